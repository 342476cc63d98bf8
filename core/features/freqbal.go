package features

import (
	"mixlens/core/audio"
	"mixlens/model"
)

const (
	balanceFFTSize = 4096
	balanceHop     = 1024
)

// band is a half-open frequency range [lo, hi) in Hz.
type band struct{ lo, hi float64 }

var balanceBands = [3]band{
	{20, 200},
	{200, 5000},
	{5000, 20000},
}

// BandEnergies returns the mean |X|² over each band's bins and all STFT
// frames. Bins outside every band are ignored.
func BandEnergies(x []float64, rate int) [3]float64 {
	binHz := float64(rate) / balanceFFTSize
	var lo, hi [3]int
	for b, bd := range balanceBands {
		lo[b], hi[b] = -1, -1
		for k := 0; k <= balanceFFTSize/2; k++ {
			f := float64(k) * binHz
			if f >= bd.lo && f < bd.hi {
				if lo[b] < 0 {
					lo[b] = k
				}
				hi[b] = k + 1
			}
		}
	}

	var sums [3]float64
	powerSpectra(x, balanceFFTSize, balanceHop, func(_ int, power []float64) {
		for b := range sums {
			if lo[b] < 0 {
				continue
			}
			for k := lo[b]; k < hi[b]; k++ {
				sums[b] += power[k]
			}
		}
	})

	frames := float64(stftFrames(len(x), balanceHop))
	var energy [3]float64
	for b := range energy {
		if lo[b] < 0 {
			continue
		}
		energy[b] = sums[b] / (float64(hi[b]-lo[b]) * frames)
	}
	return energy
}

// FrequencyBalance reports the low, mid and high share of spectral energy.
func FrequencyBalance(buf *audio.Buffer) (model.FrequencyBalanceFeatures, error) {
	if buf.Len() == 0 {
		return model.FrequencyBalanceFeatures{}, emptyBufferError("freqbal")
	}
	e := BandEnergies(buf.Mono(), buf.SampleRate)
	total := e[0] + e[1] + e[2] + eps
	return model.FrequencyBalanceFeatures{
		Low:  e[0] / total,
		Mid:  e[1] / total,
		High: e[2] / total,
	}, nil
}
