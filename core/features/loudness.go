package features

import (
	"math"

	"mixlens/core/audio"
	"mixlens/model"
)

const (
	gateBlockSeconds = 0.4
	gateStepSeconds  = 0.1 // 75% block overlap
	absoluteGateLUFS = -70.0
	relativeGateLU   = -10.0

	shortTermSeconds = 3.0
)

// IntegratedLoudness returns gated BS.1770 loudness of a mono signal in LUFS.
// It is -Inf when the signal is shorter than one gating block or no block
// passes the gates.
func IntegratedLoudness(x []float64, rate int) float64 {
	blockLen := int(math.Round(gateBlockSeconds * float64(rate)))
	step := int(math.Round(gateStepSeconds * float64(rate)))
	if blockLen < 1 || step < 1 || len(x) < blockLen {
		return math.Inf(-1)
	}

	y := kWeight(x, rate)
	cum := make([]float64, len(y)+1)
	for i, v := range y {
		cum[i+1] = cum[i] + v*v
	}

	numBlocks := (len(y)-blockLen)/step + 1
	power := make([]float64, numBlocks)
	for j := range power {
		start := j * step
		power[j] = (cum[start+blockLen] - cum[start]) / float64(blockLen)
	}

	gated := gateMean(power, func(l float64) bool { return l >= absoluteGateLUFS })
	if gated == 0 {
		return math.Inf(-1)
	}
	relative := blockLoudness(gated) + relativeGateLU

	gated = gateMean(power, func(l float64) bool { return l > relative && l > absoluteGateLUFS })
	if gated == 0 {
		return math.Inf(-1)
	}
	return blockLoudness(gated)
}

func blockLoudness(meanSquare float64) float64 {
	return -0.691 + 10*math.Log10(meanSquare)
}

// gateMean averages the block powers whose loudness passes. It returns 0
// when nothing passes.
func gateMean(power []float64, pass func(l float64) bool) float64 {
	var sum float64
	var n int
	for _, p := range power {
		if p <= 0 {
			continue
		}
		if pass(blockLoudness(p)) {
			sum += p
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// ShortTermLoudness measures every complete 3 s window with a 1.5 s step.
func ShortTermLoudness(x []float64, rate int) []float64 {
	win := int(shortTermSeconds * float64(rate))
	hop := win / 2
	if win < 1 || hop < 1 {
		return nil
	}
	var out []float64
	for start := 0; start+win <= len(x); start += hop {
		out = append(out, IntegratedLoudness(x[start:start+win], rate))
	}
	return out
}

// Loudness extracts integrated and short-term loudness statistics.
// With no complete short-term window the statistics are NaN.
func Loudness(buf *audio.Buffer) (model.LoudnessFeatures, error) {
	if buf.Len() == 0 {
		return model.LoudnessFeatures{}, emptyBufferError("loudness")
	}
	x := buf.Mono()
	mean, std := nanMeanStd(ShortTermLoudness(x, buf.SampleRate))
	return model.LoudnessFeatures{
		Integrated:    IntegratedLoudness(x, buf.SampleRate),
		ShortTermMean: mean,
		ShortTermStd:  std,
	}, nil
}
