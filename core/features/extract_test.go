package features

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"mixlens/core/audio"
	"mixlens/core/audio/audiotest"
)

func TestExtractAllStereoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mix.wav")
	left := audiotest.Noise(0.3, 4*22050, 21)
	right := audiotest.Noise(0.3, 4*22050, 22)
	if err := audiotest.WriteWAV(path, 22050, left, right); err != nil {
		t.Fatal(err)
	}

	rec, err := ExtractAll(path, WithSampleRate(22050))
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	if math.IsInf(rec.Loudness.Integrated, 0) || math.IsNaN(rec.Loudness.Integrated) {
		t.Errorf("integrated = %v", rec.Loudness.Integrated)
	}
	if sum := rec.FreqBal.Low + rec.FreqBal.Mid + rec.FreqBal.High; math.Abs(sum-1) > 1e-6 {
		t.Errorf("freqbal sum = %v", sum)
	}
	if rec.Width.RhoMean > 0.3 {
		t.Errorf("independent channels rho = %v", rec.Width.RhoMean)
	}
}

func TestExtractAllMonoFileIsFullyCorrelated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.wav")
	if err := audiotest.WriteWAV(path, 16000, audiotest.Sine(440, 0.4, 16000, 2*16000)); err != nil {
		t.Fatal(err)
	}

	rec, err := ExtractAll(path, WithSampleRate(16000), WithLoader(audio.NewLoader("ffmpeg")))
	if err != nil {
		t.Fatalf("ExtractAll: %v", err)
	}
	if rec.Width.RhoMean != 1 || rec.Width.RhoP10 != 1 || rec.Width.RhoP90 != 1 {
		t.Fatalf("width = %+v", rec.Width)
	}
}

func TestExtractAllDecodeError(t *testing.T) {
	_, err := ExtractAll(filepath.Join(t.TempDir(), "nope.wav"))
	var de *audio.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want *audio.DecodeError", err)
	}
}
