package model

import (
	"encoding/json"
	"math"
)

// Source labels one analysed signal: the full mix or a separated stem.
type Source string

const (
	SourceMix    Source = "mix"
	SourceVocals Source = "vocals"
	SourceDrums  Source = "drums"
	SourceBass   Source = "bass"
	SourceOther  Source = "other"
)

// Stems lists the separated sources in comparison order.
var Stems = []Source{SourceVocals, SourceDrums, SourceBass, SourceOther}

// IsStem reports whether s is one of the four separated stems.
func (s Source) IsStem() bool {
	for _, stem := range Stems {
		if s == stem {
			return true
		}
	}
	return false
}

// LoudnessFeatures holds integrated and short-term loudness in LUFS.
// Any field may be non-finite; JSON carries those as null.
type LoudnessFeatures struct {
	Integrated    float64
	ShortTermMean float64
	ShortTermStd  float64
}

type loudnessJSON struct {
	Integrated    *float64 `json:"integrated"`
	ShortTermMean *float64 `json:"short_term_mean"`
	ShortTermStd  *float64 `json:"short_term_std"`
}

func (l LoudnessFeatures) MarshalJSON() ([]byte, error) {
	return json.Marshal(loudnessJSON{
		Integrated:    finiteOrNil(l.Integrated),
		ShortTermMean: finiteOrNil(l.ShortTermMean),
		ShortTermStd:  finiteOrNil(l.ShortTermStd),
	})
}

func (l *LoudnessFeatures) UnmarshalJSON(data []byte) error {
	var w loudnessJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	l.Integrated = nanIfNil(w.Integrated)
	l.ShortTermMean = nanIfNil(w.ShortTermMean)
	l.ShortTermStd = nanIfNil(w.ShortTermStd)
	return nil
}

// DynamicRangeFeatures summarises per-frame crest factor in dB.
type DynamicRangeFeatures struct {
	Mean float64 `json:"dr_mean"`
	P25  float64 `json:"dr_p25"`
	P75  float64 `json:"dr_p75"`
}

// FrequencyBalanceFeatures are energy proportions of the three bands.
type FrequencyBalanceFeatures struct {
	Low  float64 `json:"low"`
	Mid  float64 `json:"mid"`
	High float64 `json:"high"`
}

// StereoWidthFeatures are statistics of the per-frame L/R correlation.
type StereoWidthFeatures struct {
	RhoMean float64
	RhoP10  float64
	RhoP90  float64
}

type widthJSON struct {
	RhoMean *float64 `json:"rho_mean"`
	RhoP10  *float64 `json:"rho_p10"`
	RhoP90  *float64 `json:"rho_p90"`
}

func (w StereoWidthFeatures) MarshalJSON() ([]byte, error) {
	return json.Marshal(widthJSON{
		RhoMean: finiteOrNil(w.RhoMean),
		RhoP10:  finiteOrNil(w.RhoP10),
		RhoP90:  finiteOrNil(w.RhoP90),
	})
}

func (w *StereoWidthFeatures) UnmarshalJSON(data []byte) error {
	var j widthJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	w.RhoMean = nanIfNil(j.RhoMean)
	w.RhoP10 = nanIfNil(j.RhoP10)
	w.RhoP90 = nanIfNil(j.RhoP90)
	return nil
}

// TempoFeatures holds the tempo estimate. DriftPct is nil below four beats.
type TempoFeatures struct {
	BPM      float64  `json:"bpm"`
	DriftPct *float64 `json:"drift_pct"`
}

// FeatureRecord is every measurement for one source.
type FeatureRecord struct {
	Loudness LoudnessFeatures         `json:"loudness"`
	DynRange DynamicRangeFeatures     `json:"dynrange"`
	FreqBal  FrequencyBalanceFeatures `json:"freqbal"`
	Width    StereoWidthFeatures      `json:"width"`
	Tempo    TempoFeatures            `json:"tempo"`
}

// FeatureSet maps each analysed source to its record. SourceMix is always present.
type FeatureSet map[Source]FeatureRecord

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nanIfNil(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
