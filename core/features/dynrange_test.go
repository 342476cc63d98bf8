package features

import (
	"math"
	"testing"

	"mixlens/core/audio/audiotest"
)

func TestDynamicRangeSine(t *testing.T) {
	f, err := DynamicRange(monoBuffer(audiotest.Sine(1000, 0.5, rate, 2*rate)))
	if err != nil {
		t.Fatal(err)
	}
	// Sine crest factor is √2, 3.01 dB.
	for name, v := range map[string]float64{"mean": f.Mean, "p25": f.P25, "p75": f.P75} {
		if math.Abs(v-3.0103) > 0.01 {
			t.Errorf("%s = %.4f, want 3.01", name, v)
		}
	}
}

func TestDynamicRangeClippedIsLower(t *testing.T) {
	sine := audiotest.Sine(1000, 0.5, rate, 2*rate)
	clipped := audiotest.Scale(sine, 20)
	for i, v := range clipped {
		clipped[i] = math.Max(-1, math.Min(1, v))
	}

	open, _ := DynamicRange(monoBuffer(sine))
	squashed, _ := DynamicRange(monoBuffer(clipped))
	if squashed.Mean >= open.Mean-1.5 {
		t.Fatalf("clipped crest %.2f not well below open crest %.2f", squashed.Mean, open.Mean)
	}
}

func TestDynamicRangeAlwaysFinite(t *testing.T) {
	inputs := map[string][]float64{
		"silence": make([]float64, 2*rate),
		"short":   audiotest.Sine(1000, 0.5, rate, 100),
		"tiny":    audiotest.Scale(audiotest.Noise(1, rate, 7), 1e-12),
	}
	for name, x := range inputs {
		f, err := DynamicRange(monoBuffer(x))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		for _, v := range []float64{f.Mean, f.P25, f.P75} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("%s: non-finite %+v", name, f)
			}
		}
	}
}

func TestCrestFactorsFraming(t *testing.T) {
	// 1 s at 400 ms / 200 ms gives frames at 0, 0.2, 0.4 and 0.6 s.
	if n := len(CrestFactors(make([]float64, rate), rate)); n != 4 {
		t.Fatalf("frames = %d, want 4", n)
	}
	if n := len(CrestFactors(make([]float64, 10), rate)); n != 1 {
		t.Fatalf("short buffer frames = %d, want 1", n)
	}
}
