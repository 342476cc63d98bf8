package features

import (
	"errors"
	"math"
	"testing"

	"mixlens/core/audio"
	"mixlens/core/audio/audiotest"
)

const rate = 48000

func monoBuffer(x []float64) *audio.Buffer {
	return &audio.Buffer{Channels: [][]float64{x}, SampleRate: rate}
}

func TestIntegratedLoudnessSine(t *testing.T) {
	// A 997 Hz sine at -6 dBFS peak reads -9.03 LUFS in one channel.
	x := audiotest.Sine(997, 0.5, rate, 5*rate)
	got := IntegratedLoudness(x, rate)
	if math.Abs(got-(-9.03)) > 0.05 {
		t.Fatalf("IntegratedLoudness = %.3f, want -9.03", got)
	}
}

func TestIntegratedLoudnessTracksGain(t *testing.T) {
	x := audiotest.Sine(997, 0.5, rate, 5*rate)
	loud := IntegratedLoudness(x, rate)
	quiet := IntegratedLoudness(audiotest.Scale(x, 0.5), rate)
	if d := loud - quiet; math.Abs(d-6.02) > 0.05 {
		t.Fatalf("halving gain changed loudness by %.3f dB, want 6.02", d)
	}
}

func TestIntegratedLoudnessDegenerate(t *testing.T) {
	if got := IntegratedLoudness(make([]float64, 2*rate), rate); !math.IsInf(got, -1) {
		t.Errorf("silence = %v, want -Inf", got)
	}
	short := audiotest.Sine(997, 0.5, rate, rate/10)
	if got := IntegratedLoudness(short, rate); !math.IsInf(got, -1) {
		t.Errorf("sub-block signal = %v, want -Inf", got)
	}
}

func TestLoudnessShortTermStats(t *testing.T) {
	// 6 s holds three complete 3 s windows at a 1.5 s step.
	x := audiotest.Sine(997, 0.5, rate, 6*rate)
	if n := len(ShortTermLoudness(x, rate)); n != 3 {
		t.Fatalf("windows = %d, want 3", n)
	}

	f, err := Loudness(monoBuffer(x))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(f.ShortTermMean-f.Integrated) > 0.2 {
		t.Errorf("short-term mean %.3f far from integrated %.3f", f.ShortTermMean, f.Integrated)
	}
	if f.ShortTermStd > 0.05 {
		t.Errorf("steady tone short-term std = %.4f", f.ShortTermStd)
	}
}

func TestLoudnessShortTermNaNWithoutWindow(t *testing.T) {
	f, err := Loudness(monoBuffer(audiotest.Sine(997, 0.5, rate, 2*rate)))
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(f.ShortTermMean) || !math.IsNaN(f.ShortTermStd) {
		t.Errorf("short-term stats = %v/%v, want NaN", f.ShortTermMean, f.ShortTermStd)
	}
	if math.IsInf(f.Integrated, 0) || math.IsNaN(f.Integrated) {
		t.Errorf("integrated = %v, want finite", f.Integrated)
	}
}

func TestLoudnessSilentWindowsIgnored(t *testing.T) {
	// Silent windows measure -Inf and drop out of the statistics.
	x := append(make([]float64, 6*rate), audiotest.Sine(997, 0.5, rate, 6*rate)...)
	f, err := Loudness(monoBuffer(x))
	if err != nil {
		t.Fatal(err)
	}
	if math.IsNaN(f.ShortTermMean) || math.IsInf(f.ShortTermMean, 0) {
		t.Fatalf("short-term mean = %v, want finite", f.ShortTermMean)
	}
}

func TestExtractorsRejectEmptyBuffer(t *testing.T) {
	empty := monoBuffer(nil)
	checks := map[string]func() error{
		"loudness": func() error { _, err := Loudness(empty); return err },
		"dynrange": func() error { _, err := DynamicRange(empty); return err },
		"freqbal":  func() error { _, err := FrequencyBalance(empty); return err },
		"width":    func() error { _, err := StereoWidth(empty); return err },
		"tempo":    func() error { _, err := Tempo(empty); return err },
	}
	for name, check := range checks {
		var ce *ComputeError
		err := check()
		if !errors.As(err, &ce) || !errors.Is(err, ErrEmptyBuffer) {
			t.Errorf("%s: err = %v, want ComputeError(ErrEmptyBuffer)", name, err)
			continue
		}
		if ce.Metric != name {
			t.Errorf("%s: metric = %q", name, ce.Metric)
		}
	}
}
