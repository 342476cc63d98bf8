package features

import (
	"math"

	"mixlens/core/audio"
	"mixlens/model"
)

const (
	onsetFFTSize = 2048
	onsetHop     = 512
	onsetTopDB   = 80.0
	powerFloor   = 1e-10

	minTempoBPM   = 30.0
	maxTempoBPM   = 300.0
	priorTempoBPM = 120.0

	minDriftBeats = 4
)

// OnsetEnvelope is the rectified log-spectral flux per STFT frame, averaged
// over frequency bins. Frame 0 is always zero.
func OnsetEnvelope(x []float64, rate int) []float64 {
	// First pass finds the spectral peak for the top-dB floor.
	peak := powerFloor
	powerSpectra(x, onsetFFTSize, onsetHop, func(_ int, power []float64) {
		for _, p := range power {
			if p > peak {
				peak = p
			}
		}
	})
	floor := 10*math.Log10(peak) - onsetTopDB

	env := make([]float64, stftFrames(len(x), onsetHop))
	prev := make([]float64, onsetFFTSize/2+1)
	cur := make([]float64, onsetFFTSize/2+1)
	powerSpectra(x, onsetFFTSize, onsetHop, func(f int, power []float64) {
		for k, p := range power {
			cur[k] = math.Max(10*math.Log10(math.Max(p, powerFloor)), floor)
		}
		if f > 0 {
			var flux float64
			for k := range cur {
				if d := cur[k] - prev[k]; d > 0 {
					flux += d
				}
			}
			env[f] = flux / float64(len(cur))
		}
		prev, cur = cur, prev
	})
	return env
}

// EstimateTempo picks the autocorrelation lag of env that scores best under
// a log-normal prior centred on 120 BPM. fps is the envelope frame rate.
// It returns 0 for an envelope without energy.
func EstimateTempo(env []float64, fps float64) float64 {
	var ac0 float64
	for _, v := range env {
		ac0 += v * v
	}
	if ac0 == 0 {
		return 0
	}

	minLag := max(1, int(math.Floor(60*fps/maxTempoBPM)))
	maxLag := min(len(env)-1, int(math.Ceil(60*fps/minTempoBPM)))

	best := math.Inf(-1)
	bestLag := 0
	for lag := minLag; lag <= maxLag; lag++ {
		bpm := 60 * fps / float64(lag)
		if bpm < minTempoBPM || bpm > maxTempoBPM {
			continue
		}
		var ac float64
		for i := 0; i+lag < len(env); i++ {
			ac += env[i] * env[i+lag]
		}
		prior := math.Log2(bpm / priorTempoBPM)
		score := math.Log1p(1e6*ac/ac0) - 0.5*prior*prior
		if score > best {
			best = score
			bestLag = lag
		}
	}
	if bestLag == 0 {
		return 0
	}
	return 60 * fps / float64(bestLag)
}

// DriftPct is the interquartile range of the inter-beat intervals as a
// percentage of their median. It is nil with fewer than four beats.
func DriftPct(beatTimes []float64) *float64 {
	if len(beatTimes) < minDriftBeats {
		return nil
	}
	intervals := make([]float64, len(beatTimes)-1)
	for i := range intervals {
		intervals[i] = beatTimes[i+1] - beatTimes[i]
	}
	iqr := percentile(intervals, 75) - percentile(intervals, 25)
	drift := iqr / (percentile(intervals, 50) + eps) * 100
	return &drift
}

// Tempo estimates BPM and beat timing consistency. Silence yields 0 BPM and
// no drift.
func Tempo(buf *audio.Buffer) (model.TempoFeatures, error) {
	if buf.Len() == 0 {
		return model.TempoFeatures{}, emptyBufferError("tempo")
	}
	env := OnsetEnvelope(buf.Mono(), buf.SampleRate)
	fps := float64(buf.SampleRate) / onsetHop

	bpm := EstimateTempo(env, fps)
	if bpm == 0 {
		return model.TempoFeatures{}, nil
	}

	frames := TrackBeats(env, fps, bpm)
	times := make([]float64, len(frames))
	for i, f := range frames {
		times[i] = float64(f) / fps
	}
	return model.TempoFeatures{BPM: bpm, DriftPct: DriftPct(times)}, nil
}
