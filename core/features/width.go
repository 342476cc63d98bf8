package features

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"mixlens/core/audio"
	"mixlens/model"
)

const (
	widthFrameSeconds = 0.5
	widthHopSeconds   = 0.25
	silentStd         = 1e-6
)

// Correlations returns the clamped Pearson correlation of every complete
// frame where both channels carry signal.
func Correlations(left, right []float64, rate int) []float64 {
	win := int(widthFrameSeconds * float64(rate))
	hop := int(widthHopSeconds * float64(rate))
	if win < 2 || hop < 1 {
		return nil
	}
	n := min(len(left), len(right))

	var out []float64
	for start := 0; start+win <= n; start += hop {
		l := left[start : start+win]
		r := right[start : start+win]
		if stat.PopStdDev(l, nil) < silentStd || stat.PopStdDev(r, nil) < silentStd {
			continue
		}
		rho := stat.Correlation(l, r, nil)
		if math.IsNaN(rho) {
			continue
		}
		out = append(out, math.Max(-1, math.Min(1, rho)))
	}
	return out
}

// StereoWidth summarises inter-channel correlation. A single-channel buffer
// is fully correlated by definition. When no frame carries signal on both
// channels every field is NaN.
func StereoWidth(buf *audio.Buffer) (model.StereoWidthFeatures, error) {
	if buf.Len() == 0 {
		return model.StereoWidthFeatures{}, emptyBufferError("width")
	}
	if buf.NumChannels() < 2 {
		return model.StereoWidthFeatures{RhoMean: 1, RhoP10: 1, RhoP90: 1}, nil
	}

	rhos := Correlations(buf.Channels[0], buf.Channels[1], buf.SampleRate)
	if len(rhos) == 0 {
		nan := math.NaN()
		return model.StereoWidthFeatures{RhoMean: nan, RhoP10: nan, RhoP90: nan}, nil
	}
	return model.StereoWidthFeatures{
		RhoMean: stat.Mean(rhos, nil),
		RhoP10:  percentile(rhos, 10),
		RhoP90:  percentile(rhos, 90),
	}, nil
}
