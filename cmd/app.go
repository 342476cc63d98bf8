package cmd

import (
	"fmt"

	"mixlens/cache"
	"mixlens/config"
	"mixlens/core/audio"
	"mixlens/core/jobs"
	"mixlens/core/stems"
	"mixlens/db"
	"mixlens/logger"
	"mixlens/model"
	"mixlens/repository"
	"mixlens/server"
	"mixlens/storage"
)

// app holds the components shared by the server, analyze and watch commands.
type app struct {
	runner  *jobs.Runner
	deps    server.Deps
	closers []func() error
}

// buildApp connects the configured backends and assembles the runner.
// Call close when done, also on error.
func buildApp(cfg *config.Config) (*app, error) {
	a := &app{}

	var store jobs.Store = jobs.NewMemoryStore()
	if cfg.Store == "redis" {
		if err := cache.ConnectRedis(cfg); err != nil {
			return a, err
		}
		a.closers = append(a.closers, cache.CloseRedis)
		store = cache.NewJobCache(cfg.JobTTL)
	}

	sep, err := stems.New(cfg.Separator, cfg.DemucsPath, cfg.DemucsModel)
	if err != nil {
		return a, err
	}

	var sinks []jobs.Sink
	if cfg.MinioEnabled {
		client, err := storage.NewMinioClient(cfg)
		if err != nil {
			return a, err
		}
		artifacts := storage.NewArtifactStore(client, cfg.MinioBucket)
		sinks = append(sinks, artifacts)
		a.deps.Artifacts = artifacts
	}
	if cfg.HistoryEnabled {
		if err := db.ConnectGormDB(cfg); err != nil {
			return a, err
		}
		a.closers = append(a.closers, db.CloseGormDB)
		if err := db.AutoMigrateModels(&model.AnalysisRecord{}); err != nil {
			return a, err
		}
		repo := repository.NewGormAnalysisRepository(db.GormDB)
		sinks = append(sinks, repository.HistorySink{Repo: repo})
		a.deps.History = repo
	}

	a.runner = jobs.NewRunner(store, jobs.Options{
		WorkDir:    cfg.WorkDir,
		SampleRate: cfg.AnalysisSampleRate,
		Workers:    cfg.Workers,
		QueueSize:  cfg.QueueSize,
		Loader:     audio.NewLoader(cfg.FFmpegPath),
		Separator:  sep,
		Sinks:      sinks,
	})
	a.deps.Runner = a.runner

	logger.Info("Components ready",
		logger.String("store", cfg.Store),
		logger.String("separator", cfg.Separator),
		logger.Bool("minio", cfg.MinioEnabled),
		logger.Bool("history", cfg.HistoryEnabled))
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("Close failed", logger.ErrorField(err))
		}
	}
}

func exitError(kind model.ErrorKind, msg string) error {
	return fmt.Errorf("%s: %s", kind, msg)
}
