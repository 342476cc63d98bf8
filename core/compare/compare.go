// Package compare turns two feature records into mixing recommendations.
package compare

import (
	"math"

	"mixlens/model"
)

// MaxRecommendations caps the list returned for one source.
const MaxRecommendations = 6

// Rule thresholds.
const (
	LoudnessThresholdDB  = 2.0
	CompressionDeltaDB   = -1.5
	BandThreshold        = 0.08
	WidthThreshold       = 0.10
	PhaseRhoP10          = -0.05
	DriftThresholdPoints = 5.0
)

type bandRule struct {
	label string
	pick  func(model.FrequencyBalanceFeatures) float64
}

var bandRules = []bandRule{
	{"low end (20–200 Hz)", func(f model.FrequencyBalanceFeatures) float64 { return f.Low }},
	{"mids (200 Hz–5 kHz)", func(f model.FrequencyBalanceFeatures) float64 { return f.Mid }},
	{"highs (5–20 kHz)", func(f model.FrequencyBalanceFeatures) float64 { return f.High }},
}

// Compare applies every rule in fixed order and keeps the first
// MaxRecommendations messages. It never fails. Rules whose inputs are
// not finite are skipped.
func Compare(user, ref model.FeatureRecord, src model.Source) []string {
	subj := subjectFor(src)
	out := make([]string, 0, MaxRecommendations)
	add := func(name string, m message) {
		m.subject = subj
		out = append(out, render(name, m))
	}

	if dl, ok := delta(user.Loudness.Integrated, ref.Loudness.Integrated); ok && math.Abs(dl) >= LoudnessThresholdDB {
		if dl < 0 {
			add("quieter", message{Delta: math.Abs(dl)})
		} else {
			add("louder", message{Delta: dl})
		}
	}

	if ddr, ok := delta(user.DynRange.Mean, ref.DynRange.Mean); ok && ddr <= CompressionDeltaDB {
		add("compressed", message{})
	}

	for _, b := range bandRules {
		d, ok := delta(b.pick(user.FreqBal), b.pick(ref.FreqBal))
		if !ok || math.Abs(d) < BandThreshold {
			continue
		}
		action := "boost"
		if d > 0 {
			action = "reduce"
		}
		add("band", message{Band: b.label, Delta: math.Abs(d), More: d > 0, Action: action})
	}

	if drho, ok := delta(user.Width.RhoMean, ref.Width.RhoMean); ok && math.Abs(drho) >= WidthThreshold {
		if drho > 0 {
			add("narrower", message{})
		} else {
			add("wider", message{})
		}
	}

	if finite(user.Width.RhoP10) && user.Width.RhoP10 < PhaseRhoP10 {
		add("phase", message{})
	}

	if user.Tempo.DriftPct != nil && ref.Tempo.DriftPct != nil {
		if dd, ok := delta(*user.Tempo.DriftPct, *ref.Tempo.DriftPct); ok && dd >= DriftThresholdPoints {
			add("drift", message{})
		}
	}

	if len(out) > MaxRecommendations {
		out = out[:MaxRecommendations]
	}
	return out
}

// CompareAll compares the mix and every stem present on both sides.
// A mix missing from either side yields an empty list.
func CompareAll(user, ref model.FeatureSet) map[model.Source][]string {
	out := make(map[model.Source][]string, 1+len(model.Stems))

	u, uok := user[model.SourceMix]
	r, rok := ref[model.SourceMix]
	if uok && rok {
		out[model.SourceMix] = Compare(u, r, model.SourceMix)
	} else {
		out[model.SourceMix] = []string{}
	}

	for _, stem := range model.Stems {
		u, uok := user[stem]
		r, rok := ref[stem]
		if !uok || !rok {
			continue
		}
		out[stem] = Compare(u, r, stem)
	}
	return out
}

func delta(a, b float64) (float64, bool) {
	if !finite(a) || !finite(b) {
		return 0, false
	}
	return a - b, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
