package features

import (
	"math"
	"testing"

	"mixlens/core/audio/audiotest"
)

func TestTempoClickTrack(t *testing.T) {
	// 120 BPM: one click every 0.5 s for 20 s.
	x := audiotest.Clicks(rate/2, 20*rate, 0.8)
	f, err := Tempo(monoBuffer(x))
	if err != nil {
		t.Fatal(err)
	}
	if f.BPM < 110 || f.BPM > 130 {
		t.Fatalf("bpm = %.2f, want ~120", f.BPM)
	}
	if f.DriftPct == nil {
		t.Fatal("drift is nil for a 20 s click track")
	}
	if *f.DriftPct < 0 || *f.DriftPct > 10 {
		t.Fatalf("drift = %.2f%%, want small and non-negative", *f.DriftPct)
	}
}

func TestTempoSilence(t *testing.T) {
	f, err := Tempo(monoBuffer(make([]float64, 5*rate)))
	if err != nil {
		t.Fatal(err)
	}
	if f.BPM != 0 || f.DriftPct != nil {
		t.Fatalf("silence = %+v, want zero bpm and nil drift", f)
	}
}

func TestDriftPct(t *testing.T) {
	if DriftPct([]float64{0, 0.5, 1.0}) != nil {
		t.Error("three beats should give nil drift")
	}

	steady := DriftPct([]float64{0, 0.5, 1.0, 1.5})
	if steady == nil || *steady != 0 {
		t.Errorf("steady beats drift = %v, want 0", steady)
	}

	// intervals 0.5 0.6 0.4 0.5: IQR 0.05 over median 0.5
	uneven := DriftPct([]float64{0, 0.5, 1.1, 1.5, 2.0})
	if uneven == nil || math.Abs(*uneven-10) > 1e-6 {
		t.Errorf("uneven beats drift = %v, want 10", uneven)
	}
}

func TestEstimateTempoEmptyEnvelope(t *testing.T) {
	if bpm := EstimateTempo(make([]float64, 500), 93.75); bpm != 0 {
		t.Fatalf("bpm = %v, want 0", bpm)
	}
}

func TestTrackBeatsPulseTrain(t *testing.T) {
	// Envelope pulses every 50 frames.
	env := make([]float64, 1000)
	for i := 10; i < len(env); i += 50 {
		env[i] = 1
	}
	fps := 100.0
	beats := TrackBeats(env, fps, 120)
	if len(beats) < 15 {
		t.Fatalf("found %d beats, want ~20", len(beats))
	}
	for i := 1; i < len(beats); i++ {
		if d := beats[i] - beats[i-1]; d < 45 || d > 55 {
			t.Fatalf("beat spacing %d at %d, want ~50", d, i)
		}
	}
}
