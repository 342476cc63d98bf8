package features

import (
	"time"

	"mixlens/core/audio"
	"mixlens/logger"
	"mixlens/model"
)

type options struct {
	sampleRate int
	loader     *audio.Loader
}

// Option configures ExtractAll.
type Option func(*options)

// WithSampleRate sets the analysis rate. Defaults to 48 kHz.
func WithSampleRate(rate int) Option {
	return func(o *options) {
		if rate > 0 {
			o.sampleRate = rate
		}
	}
}

// WithLoader sets the loader used to decode the source.
func WithLoader(l *audio.Loader) Option {
	return func(o *options) {
		if l != nil {
			o.loader = l
		}
	}
}

// ExtractAll runs every extractor on the file at path. The first failure
// aborts the record.
func ExtractAll(path string, opts ...Option) (model.FeatureRecord, error) {
	o := options{sampleRate: audio.DefaultSampleRate}
	for _, opt := range opts {
		opt(&o)
	}
	load := audio.Load
	if o.loader != nil {
		load = o.loader.Load
	}

	started := time.Now()
	var rec model.FeatureRecord

	mono, err := load(path, o.sampleRate, true)
	if err != nil {
		return rec, err
	}
	if rec.Loudness, err = Loudness(mono); err != nil {
		return rec, err
	}
	if rec.DynRange, err = DynamicRange(mono); err != nil {
		return rec, err
	}
	if rec.FreqBal, err = FrequencyBalance(mono); err != nil {
		return rec, err
	}
	if rec.Tempo, err = Tempo(mono); err != nil {
		return rec, err
	}

	stereo, err := load(path, o.sampleRate, false)
	if err != nil {
		return rec, err
	}
	if rec.Width, err = StereoWidth(stereo); err != nil {
		return rec, err
	}

	logger.Debug("Features extracted",
		logger.String("path", path),
		logger.Duration("audio", mono.Duration()),
		logger.Duration("took", time.Since(started)))
	return rec, nil
}
