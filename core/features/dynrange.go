package features

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"mixlens/core/audio"
	"mixlens/model"
)

const (
	crestFrameSeconds = 0.4
	crestHopSeconds   = 0.2
)

// CrestFactors returns peak_dB - rms_dB for each complete frame. A signal
// shorter than one frame is measured as a single frame.
func CrestFactors(x []float64, rate int) []float64 {
	win := int(crestFrameSeconds * float64(rate))
	hop := int(crestHopSeconds * float64(rate))
	if win < 1 || hop < 1 || len(x) < win {
		return []float64{crest(x)}
	}

	out := make([]float64, 0, (len(x)-win)/hop+1)
	for start := 0; start+win <= len(x); start += hop {
		out = append(out, crest(x[start:start+win]))
	}
	return out
}

func crest(frame []float64) float64 {
	var ss, peak float64
	for _, v := range frame {
		ss += v * v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	rms := 0.0
	if len(frame) > 0 {
		rms = math.Sqrt(ss / float64(len(frame)))
	}
	return db(peak) - db(rms)
}

// DynamicRange summarises the crest factor distribution. Lower values mean
// a more compressed signal.
func DynamicRange(buf *audio.Buffer) (model.DynamicRangeFeatures, error) {
	if buf.Len() == 0 {
		return model.DynamicRangeFeatures{}, emptyBufferError("dynrange")
	}
	dr := CrestFactors(buf.Mono(), buf.SampleRate)
	return model.DynamicRangeFeatures{
		Mean: stat.Mean(dr, nil),
		P25:  percentile(dr, 25),
		P75:  percentile(dr, 75),
	}, nil
}
