package features

import (
	"math"
	"testing"

	"mixlens/core/audio/audiotest"
)

func TestFrequencyBalanceSumsToOne(t *testing.T) {
	f, err := FrequencyBalance(monoBuffer(audiotest.Noise(0.3, 3*rate, 1)))
	if err != nil {
		t.Fatal(err)
	}
	if sum := f.Low + f.Mid + f.High; math.Abs(sum-1) > 1e-6 {
		t.Fatalf("proportions sum to %.9f", sum)
	}
}

func TestFrequencyBalanceDominantBand(t *testing.T) {
	cases := []struct {
		freq float64
		pick func(low, mid, high float64) float64
		name string
	}{
		{100, func(l, _, _ float64) float64 { return l }, "low"},
		{1000, func(_, m, _ float64) float64 { return m }, "mid"},
		{10000, func(_, _, h float64) float64 { return h }, "high"},
	}
	for _, c := range cases {
		f, err := FrequencyBalance(monoBuffer(audiotest.Sine(c.freq, 0.5, rate, 2*rate)))
		if err != nil {
			t.Fatal(err)
		}
		if share := c.pick(f.Low, f.Mid, f.High); share < 0.9 {
			t.Errorf("%.0f Hz: %s share = %.3f (%+v)", c.freq, c.name, share, f)
		}
	}
}

func TestFrequencyBalanceSilence(t *testing.T) {
	f, err := FrequencyBalance(monoBuffer(make([]float64, rate)))
	if err != nil {
		t.Fatal(err)
	}
	if f.Low != 0 || f.Mid != 0 || f.High != 0 {
		t.Fatalf("silence = %+v, want zeros", f)
	}
}

func TestSTFTFrameCount(t *testing.T) {
	var frames int
	powerSpectra(make([]float64, 10000), balanceFFTSize, balanceHop, func(int, []float64) { frames++ })
	if want := 1 + 10000/balanceHop; frames != want {
		t.Fatalf("frames = %d, want %d", frames, want)
	}
}
