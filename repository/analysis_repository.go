// Package repository persists analysis history.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"mixlens/core/jobs"
	"mixlens/model"
)

// DefaultHistoryLimit bounds ListRecent when no limit is given.
const DefaultHistoryLimit = 50

// AnalysisRepository stores one record per finished job.
type AnalysisRepository interface {
	Save(ctx context.Context, rec *model.AnalysisRecord) error
	GetByID(ctx context.Context, id string) (*model.AnalysisRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*model.AnalysisRecord, error)
}

// gormAnalysisRepository GORM implementation
type gormAnalysisRepository struct {
	db *gorm.DB
}

// NewGormAnalysisRepository creates a repository on db.
func NewGormAnalysisRepository(db *gorm.DB) AnalysisRepository {
	return &gormAnalysisRepository{db: db}
}

// Save inserts or replaces the record with the same ID.
func (r *gormAnalysisRepository) Save(ctx context.Context, rec *model.AnalysisRecord) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

// GetByID returns nil, nil when no record exists.
func (r *gormAnalysisRepository) GetByID(ctx context.Context, id string) (*model.AnalysisRecord, error) {
	var rec model.AnalysisRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// ListRecent returns the newest records first, without their result blobs.
func (r *gormAnalysisRepository) ListRecent(ctx context.Context, limit int) ([]*model.AnalysisRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = DefaultHistoryLimit
	}
	var recs []*model.AnalysisRecord
	err := r.db.WithContext(ctx).
		Omit("result").
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

// HistorySink records finished jobs in an AnalysisRepository.
type HistorySink struct {
	Repo AnalysisRepository
}

var _ jobs.Sink = HistorySink{}

func (HistorySink) Name() string { return "history" }

func (s HistorySink) Publish(ctx context.Context, job model.Job, out jobs.Outcome, _ string) error {
	return s.Repo.Save(ctx, model.NewAnalysisRecord(job, out.Result))
}
