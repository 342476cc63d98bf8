package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mixlens/model"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Create(ctx, model.Job{ID: "a"}))
	job, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, model.StateQueued, job.State)
	assert.False(t, job.CreatedAt.IsZero())

	_, err = s.Result(ctx, "a")
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, s.SetRunning(ctx, "a"))
	job, _ = s.Get(ctx, "a")
	assert.Equal(t, model.StateRunning, job.State)

	res := &model.Result{Recs: map[model.Source][]string{model.SourceMix: {}}}
	require.NoError(t, s.Complete(ctx, "a", res))
	job, _ = s.Get(ctx, "a")
	assert.Equal(t, model.StateDone, job.State)
	assert.Nil(t, job.Error)

	got, err := s.Result(ctx, "a")
	require.NoError(t, err)
	assert.Same(t, res, got)
}

func TestMemoryStoreFail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Create(ctx, model.Job{ID: "b"}))

	jobErr := &model.JobError{Kind: model.ErrDecode, Message: "bad file"}
	require.NoError(t, s.Fail(ctx, "b", jobErr))

	job, err := s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, model.StateError, job.State)
	assert.Equal(t, jobErr, job.Error)

	_, err = s.Result(ctx, "b")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestMemoryStoreUnknownAndDuplicate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.SetRunning(ctx, "missing"), ErrNotFound)
	_, err = s.Result(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Create(ctx, model.Job{ID: "dup"}))
	assert.ErrorIs(t, s.Create(ctx, model.Job{ID: "dup"}), ErrExists)
}
