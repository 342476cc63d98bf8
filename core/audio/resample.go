package audio

import "math"

// Kaiser-windowed sinc lowpass, evaluated polyphase on the fly.
const (
	resampleTapsPerPhase = 32
	resampleCutoffScale  = 0.92
	resampleKaiserBeta   = 7.5
)

// Resample converts x from inRate to outRate. The output has
// ceil(len(x)*outRate/inRate) samples and is aligned with the input.
func Resample(x []float64, inRate, outRate int) []float64 {
	if inRate == outRate || len(x) == 0 || inRate <= 0 || outRate <= 0 {
		return x
	}

	g := gcd(inRate, outRate)
	up, down := outRate/g, inRate/g
	taps := designLowpass(up, down)
	n := len(taps)
	delay := (n - 1) / 2

	outLen := (len(x)*up + down - 1) / down
	out := make([]float64, outLen)
	for m := range out {
		// position in the zero-stuffed stream, shifted by the filter delay
		pos := m*down + delay
		var acc float64
		for k := pos % up; k < n; k += up {
			j := (pos - k) / up
			if j < 0 {
				break
			}
			if j >= len(x) {
				continue
			}
			acc += taps[k] * x[j]
		}
		out[m] = acc
	}
	return out
}

func designLowpass(up, down int) []float64 {
	nTaps := resampleTapsPerPhase * up
	fc := 0.5 / float64(max(up, down)) * resampleCutoffScale

	taps := make([]float64, nTaps)
	center := 0.5 * float64(nTaps-1)
	var sum float64
	for i := range taps {
		t := float64(i) - center
		taps[i] = 2 * fc * sinc(2*fc*t) * kaiserWindow(i, nTaps, resampleKaiserBeta)
		sum += taps[i]
	}

	// unity passband gain after zero stuffing
	scale := float64(up) / sum
	for i := range taps {
		taps[i] *= scale
	}
	return taps
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func sinc(x float64) float64 {
	if math.Abs(x) < 1e-12 {
		return 1
	}
	pix := math.Pi * x
	return math.Sin(pix) / pix
}

func kaiserWindow(i, n int, beta float64) float64 {
	if n <= 1 || beta == 0 {
		return 1
	}
	t := 2*float64(i)/float64(n-1) - 1
	a := math.Sqrt(math.Max(0, 1-t*t))
	return besselI0(beta*a) / besselI0(beta)
}

// besselI0 is the zeroth-order modified Bessel function (power series).
func besselI0(x float64) float64 {
	sum, term := 1.0, 1.0
	x2 := x * x / 4
	for k := 1; k < 64; k++ {
		term *= x2 / float64(k*k)
		sum += term
		if term < 1e-16*sum {
			break
		}
	}
	return sum
}
