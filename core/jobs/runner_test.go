package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mixlens/core/audio"
	"mixlens/core/audio/audiotest"
	"mixlens/core/features"
	"mixlens/core/plot"
	"mixlens/core/stems"
	"mixlens/model"
)

const testRate = 22050

type fakeSeparator struct {
	extra map[model.Source]string
	err   error
}

func (f fakeSeparator) Separate(_ context.Context, input, _ string) (map[model.Source]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := map[model.Source]string{model.SourceMix: input}
	for k, v := range f.extra {
		out[k] = v
	}
	return out, nil
}

type recordingSink struct {
	mu   sync.Mutex
	jobs []model.Job
	outs []Outcome
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Publish(_ context.Context, job model.Job, out Outcome, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	s.outs = append(s.outs, out)
	return nil
}

func writeNoise(t *testing.T, name string, amp float64, seed int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, audiotest.WriteWAV(path, testRate, audiotest.Noise(amp, 3*testRate, seed)))
	return path
}

func newTestRunner(t *testing.T, sep stems.Separator, sinks ...Sink) *Runner {
	t.Helper()
	return NewRunner(NewMemoryStore(), Options{
		WorkDir:    t.TempDir(),
		SampleRate: testRate,
		Workers:    2,
		QueueSize:  4,
		Separator:  sep,
		Sinks:      sinks,
	})
}

func TestRunProducesResult(t *testing.T) {
	sink := &recordingSink{}
	r := newTestRunner(t, stems.PassthroughSeparator{}, sink)
	user := writeNoise(t, "user.wav", 0.05, 1)
	ref := writeNoise(t, "ref.wav", 0.3, 2)

	id, out, err := r.Run(context.Background(), user, ref)
	require.NoError(t, err)
	require.True(t, out.OK(), "outcome error: %v", out.Err)

	res := out.Result
	require.Contains(t, res.Recs, model.SourceMix)
	require.NotEmpty(t, res.Recs[model.SourceMix])
	assert.Contains(t, res.Recs[model.SourceMix][0], "dB quieter than the reference")
	assert.Less(t, res.User[model.SourceMix].Loudness.Integrated, res.Ref[model.SourceMix].Loudness.Integrated)

	for _, name := range []string{plot.NameLoudnessUser, plot.NameLoudnessRef, plot.NameFreqBars} {
		require.Contains(t, res.Plots, name)
		assert.FileExists(t, res.Plots[name])
	}

	data, err := os.ReadFile(filepath.Join(r.Dir(id), ResultFile))
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "recs")
	assert.Contains(t, doc, "plots")

	job, err := r.Store().Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.StateDone, job.State)

	stored, err := r.Store().Result(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, res.Recs, stored.Recs)

	require.Len(t, sink.outs, 1)
	assert.True(t, sink.outs[0].OK())
	assert.Equal(t, model.StateDone, sink.jobs[0].State)
}

func TestRunComparesSharedStems(t *testing.T) {
	vocals := writeNoise(t, "vocals.wav", 0.1, 3)
	bass := writeNoise(t, "bass.wav", 0.1, 4)
	sep := fakeSeparator{extra: map[model.Source]string{
		model.SourceVocals: vocals,
		model.SourceBass:   bass,
	}}
	r := newTestRunner(t, sep)

	_, out, err := r.Run(context.Background(), writeNoise(t, "u.wav", 0.2, 5), writeNoise(t, "r.wav", 0.2, 6))
	require.NoError(t, err)
	require.True(t, out.OK(), "outcome error: %v", out.Err)

	assert.Len(t, out.Result.Recs, 3)
	assert.Contains(t, out.Result.Recs, model.SourceVocals)
	assert.Contains(t, out.Result.Recs, model.SourceBass)
	assert.Len(t, out.Result.User, 3)
}

func TestRunDecodeFailure(t *testing.T) {
	sink := &recordingSink{}
	r := newTestRunner(t, stems.PassthroughSeparator{}, sink)
	bad := filepath.Join(t.TempDir(), "bad.wav")
	require.NoError(t, os.WriteFile(bad, []byte("not audio"), 0644))

	id, out, err := r.Run(context.Background(), bad, writeNoise(t, "ref.wav", 0.2, 7))
	require.NoError(t, err)
	require.False(t, out.OK())
	assert.Equal(t, model.ErrDecode, out.Err.Kind)

	job, err := r.Store().Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.StateError, job.State)
	assert.Equal(t, model.ErrDecode, job.Error.Kind)

	require.Len(t, sink.jobs, 1)
	assert.Equal(t, model.StateError, sink.jobs[0].State)
}

func TestRunSeparationFailure(t *testing.T) {
	sep := fakeSeparator{err: &stems.SeparationError{Input: "x", Err: errors.New("exit status 1")}}
	r := newTestRunner(t, sep)

	_, out, err := r.Run(context.Background(), "u.wav", "r.wav")
	require.NoError(t, err)
	require.NotNil(t, out.Err)
	assert.Equal(t, model.ErrSeparation, out.Err.Kind)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.ErrorKind
	}{
		{"decode", &audio.DecodeError{Path: "a", Err: errors.New("eof")}, model.ErrDecode},
		{"wrapped decode", fmt.Errorf("load: %w", &audio.DecodeError{Path: "a", Err: errors.New("eof")}), model.ErrDecode},
		{"separation", &stems.SeparationError{Input: "a", Err: errors.New("boom")}, model.ErrSeparation},
		{"compute", &features.ComputeError{Metric: "loudness", Err: features.ErrEmptyBuffer}, model.ErrCompute},
		{"job error", &model.JobError{Kind: model.ErrCompute, Message: "x"}, model.ErrCompute},
		{"other", errors.New("disk full"), model.ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.want, got.Kind)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestSubmitAndSubscribe(t *testing.T) {
	r := newTestRunner(t, stems.PassthroughSeparator{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer r.Close()

	id, err := r.Submit(ctx, writeNoise(t, "u.wav", 0.1, 8), writeNoise(t, "r.wav", 0.1, 9))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	updates := r.Subscribe(id)
	var last model.Job
	timeout := time.After(60 * time.Second)
	for done := false; !done; {
		select {
		case job, ok := <-updates:
			if !ok {
				done = true
				break
			}
			last = job
		case <-timeout:
			t.Fatal("timed out waiting for job")
		}
	}
	assert.Equal(t, id, last.ID)
	assert.Equal(t, model.StateDone, last.State)

	res, err := r.Store().Result(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, res.Recs, model.SourceMix)
}

func TestSubscribeUnknownJobIsClosed(t *testing.T) {
	r := newTestRunner(t, stems.PassthroughSeparator{})
	_, ok := <-r.Subscribe("nope")
	assert.False(t, ok)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	r := newTestRunner(t, stems.PassthroughSeparator{})
	require.NoError(t, r.Store().Create(context.Background(), model.Job{ID: "j"}))

	ch := r.Subscribe("j")
	first := <-ch
	assert.Equal(t, model.StateQueued, first.State)

	r.Unsubscribe("j", ch)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestSubmitAfterClose(t *testing.T) {
	r := newTestRunner(t, stems.PassthroughSeparator{})
	r.Start(context.Background())
	r.Close()

	_, err := r.Submit(context.Background(), "u.wav", "r.wav")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSubmitQueueFull(t *testing.T) {
	r := NewRunner(NewMemoryStore(), Options{WorkDir: t.TempDir(), QueueSize: 1})
	ctx := context.Background()

	_, err := r.Submit(ctx, "u.wav", "r.wav")
	require.NoError(t, err)
	id, err := r.Submit(ctx, "u.wav", "r.wav")
	require.ErrorIs(t, err, ErrQueueFull)
	require.NotEmpty(t, id)

	job, err := r.Store().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StateError, job.State)
	require.NotNil(t, job.Error)
	assert.Equal(t, model.ErrInternal, job.Error.Kind)
}
