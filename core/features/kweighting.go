package features

import "math"

// K-weighting stages, designed by bilinear transform so that the 48 kHz
// coefficients match the BS.1770 table and other rates follow the same
// analog prototype.
const (
	shelfFreq  = 1681.974450955533
	shelfGain  = 3.999843853973347
	shelfQ     = 0.7071752369554196
	shelfShape = 0.4996667741545416

	highpassFreq = 38.13547087602444
	highpassQ    = 0.5003270373238773
)

// biquad holds normalised coefficients (a0 == 1).
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// shelfStage is the pre-filter modelling the acoustic effect of the head.
func shelfStage(rate int) biquad {
	k := math.Tan(math.Pi * shelfFreq / float64(rate))
	vh := math.Pow(10, shelfGain/20)
	vb := math.Pow(vh, shelfShape)

	a0 := 1 + k/shelfQ + k*k
	return biquad{
		b0: (vh + vb*k/shelfQ + k*k) / a0,
		b1: 2 * (k*k - vh) / a0,
		b2: (vh - vb*k/shelfQ + k*k) / a0,
		a1: 2 * (k*k - 1) / a0,
		a2: (1 - k/shelfQ + k*k) / a0,
	}
}

// highpassStage is the RLB weighting curve. The numerator is {1, -2, 1}
// as in the BS.1770 table.
func highpassStage(rate int) biquad {
	k := math.Tan(math.Pi * highpassFreq / float64(rate))

	a0 := 1 + k/highpassQ + k*k
	return biquad{
		b0: 1,
		b1: -2,
		b2: 1,
		a1: 2 * (k*k - 1) / a0,
		a2: (1 - k/highpassQ + k*k) / a0,
	}
}

// apply filters x from zero state (direct form I) into a new slice.
func (f biquad) apply(x []float64) []float64 {
	y := make([]float64, len(x))
	var x1, x2, y1, y2 float64
	for i, v := range x {
		out := f.b0*v + f.b1*x1 + f.b2*x2 - f.a1*y1 - f.a2*y2
		x2, x1 = x1, v
		y2, y1 = y1, out
		y[i] = out
	}
	return y
}

// kWeight applies the shelf then the high-pass.
func kWeight(x []float64, rate int) []float64 {
	return highpassStage(rate).apply(shelfStage(rate).apply(x))
}
