package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// beatTightness weighs tempo consistency against onset strength.
const beatTightness = 100.0

// TrackBeats selects beat frames from an onset envelope by dynamic
// programming around the given tempo, then trims weak beats at both ends.
func TrackBeats(env []float64, fps, bpm float64) []int {
	if len(env) == 0 || bpm <= 0 {
		return nil
	}
	std := stat.PopStdDev(env, nil)
	if std == 0 {
		return nil
	}
	period := math.Round(60 * fps / bpm)
	if period < 1 {
		return nil
	}

	norm := make([]float64, len(env))
	for i, v := range env {
		norm[i] = v / std
	}
	local := localScore(norm, int(period))

	cumscore, backlink := beatDP(local, period)
	tail := lastBeat(cumscore)
	if tail < 0 {
		return nil
	}

	var beats []int
	for b := tail; b >= 0; b = backlink[b] {
		beats = append(beats, b)
	}
	for i, j := 0, len(beats)-1; i < j; i, j = i+1, j-1 {
		beats[i], beats[j] = beats[j], beats[i]
	}
	return trimBeats(local, beats)
}

// localScore smooths the envelope with a Gaussian spanning one period on
// each side.
func localScore(env []float64, period int) []float64 {
	kernel := make([]float64, 2*period+1)
	for k := range kernel {
		d := float64(k-period) * 32 / float64(period)
		kernel[k] = math.Exp(-0.5 * d * d)
	}
	out := make([]float64, len(env))
	for i := range env {
		var acc float64
		for k, w := range kernel {
			j := i + k - period
			if j >= 0 && j < len(env) {
				acc += env[j] * w
			}
		}
		out[i] = acc
	}
	return out
}

// beatDP accumulates the best score of a beat sequence ending at each frame.
// The previous beat is searched between two periods and half a period back.
func beatDP(local []float64, period float64) ([]float64, []int) {
	lo := -2 * int(period)
	hi := -int(math.Round(period / 2))
	txwt := make([]float64, hi-lo+1)
	for i := range txwt {
		l := math.Log(-float64(lo+i) / period)
		txwt[i] = -beatTightness * l * l
	}

	n := len(local)
	cumscore := make([]float64, n)
	backlink := make([]int, n)
	threshold := 0.01 * floats.Max(local)
	firstBeat := true

	for i := 0; i < n; i++ {
		best := math.Inf(-1)
		bestPrev := -1
		for d := lo; d <= hi; d++ {
			prev := i + d
			score := txwt[d-lo]
			if prev >= 0 {
				score += cumscore[prev]
			}
			if score > best {
				best = score
				bestPrev = prev
			}
		}
		cumscore[i] = local[i] + best

		if firstBeat && local[i] < threshold {
			backlink[i] = -1
		} else {
			backlink[i] = bestPrev
			firstBeat = false
		}
	}
	return cumscore, backlink
}

// lastBeat is the last local maximum of cumscore above half the median of
// all local maxima.
func lastBeat(cumscore []float64) int {
	var peaks []int
	var values []float64
	for i, v := range cumscore {
		left := v > cumscore[max(i-1, 0)]
		if i == 0 {
			left = false
		}
		right := i == len(cumscore)-1 || v >= cumscore[i+1]
		if left && right {
			peaks = append(peaks, i)
			values = append(values, v)
		}
	}
	if len(peaks) == 0 {
		return -1
	}
	med := percentile(values, 50)
	for i := len(peaks) - 1; i >= 0; i-- {
		if 2*values[i] > med {
			return peaks[i]
		}
	}
	return -1
}

// trimBeats drops leading and trailing beats whose onset strength is below
// half the RMS of the Hann-smoothed beat strengths.
func trimBeats(local []float64, beats []int) []int {
	if len(beats) == 0 {
		return beats
	}
	hann := [5]float64{0, 0.5, 1, 0.5, 0}
	var ms float64
	for i := range beats {
		var acc float64
		for k, w := range hann {
			j := i + k - 2
			if j >= 0 && j < len(beats) {
				acc += local[beats[j]] * w
			}
		}
		ms += acc * acc
	}
	threshold := 0.5 * math.Sqrt(ms/float64(len(beats)))

	start := 0
	for start < len(beats) && local[beats[start]] < threshold {
		start++
	}
	end := len(beats) - 1
	for end >= start && local[beats[end]] < threshold {
		end--
	}
	return beats[start : end+1]
}
