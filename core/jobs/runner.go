package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"mixlens/core/audio"
	"mixlens/core/compare"
	"mixlens/core/features"
	"mixlens/core/plot"
	"mixlens/core/stems"
	"mixlens/logger"
	"mixlens/model"
)

// ResultFile is the name of the result document inside a job directory.
const ResultFile = "result.json"

var (
	// ErrQueueFull is returned by Submit when no queue slot is free.
	ErrQueueFull = errors.New("job queue is full")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("runner closed")
)

// Outcome is the end state of one job: a result or a classified failure.
type Outcome struct {
	Result *model.Result
	Err    *model.JobError
}

// OK reports whether the job produced a result.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Result != nil
}

// Sink receives every finished job along with its working directory.
type Sink interface {
	Name() string
	Publish(ctx context.Context, job model.Job, outcome Outcome, dir string) error
}

// Options configures a Runner.
type Options struct {
	WorkDir    string
	SampleRate int
	Workers    int
	QueueSize  int
	Loader     *audio.Loader
	Separator  stems.Separator
	Sinks      []Sink
}

type task struct {
	id      string
	userIn  string
	refIn   string
	enqueue time.Time
}

// Runner is a worker pool that executes analysis jobs.
type Runner struct {
	store   Store
	opts    Options
	queue   chan task
	wg      sync.WaitGroup
	closeMu sync.RWMutex
	closed  bool

	subsMu sync.Mutex
	subs   map[string][]chan model.Job
}

// NewRunner creates a runner backed by store. Call Start to launch workers.
func NewRunner(store Store, opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
		if opts.Workers > 8 {
			opts.Workers = 8
		}
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = audio.DefaultSampleRate
	}
	if opts.WorkDir == "" {
		opts.WorkDir = filepath.Join(os.TempDir(), "mixlens")
	}
	if opts.Separator == nil {
		opts.Separator = stems.PassthroughSeparator{}
	}
	if opts.Loader == nil {
		opts.Loader = audio.NewLoader("")
	}
	return &Runner{
		store: store,
		opts:  opts,
		queue: make(chan task, opts.QueueSize),
		subs:  make(map[string][]chan model.Job),
	}
}

// Start launches the workers. They stop when ctx is done or Close is called.
func (r *Runner) Start(ctx context.Context) {
	logger.Info("Starting job runner",
		logger.Int("workers", r.opts.Workers),
		logger.Int("queueSize", r.opts.QueueSize),
		logger.String("workDir", r.opts.WorkDir))

	for i := 0; i < r.opts.Workers; i++ {
		r.wg.Add(1)
		go func(workerID int) {
			defer r.wg.Done()
			r.worker(ctx, workerID)
		}(i)
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (r *Runner) Close() {
	r.closeMu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.closeMu.Unlock()
	r.wg.Wait()
}

// Submit creates a queued job for the pair and returns its ID. When the
// queue is full the job is recorded as failed and its ID is returned with
// ErrQueueFull.
func (r *Runner) Submit(ctx context.Context, userPath, refPath string) (string, error) {
	r.closeMu.RLock()
	defer r.closeMu.RUnlock()
	if r.closed {
		return "", ErrClosed
	}

	id := uuid.New().String()
	if err := r.store.Create(ctx, model.Job{ID: id, State: model.StateQueued}); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	select {
	case r.queue <- task{id: id, userIn: userPath, refIn: refPath, enqueue: time.Now()}:
	default:
		jobErr := &model.JobError{Kind: model.ErrInternal, Message: ErrQueueFull.Error()}
		if err := r.store.Fail(ctx, id, jobErr); err != nil {
			logger.Warn("Failed to mark rejected job", logger.JobID(id), logger.ErrorField(err))
		}
		return id, ErrQueueFull
	}

	logger.Info("Job queued",
		logger.JobID(id),
		logger.String("user", userPath),
		logger.String("ref", refPath))
	return id, nil
}

// Run executes one job on the calling goroutine.
func (r *Runner) Run(ctx context.Context, userPath, refPath string) (string, Outcome, error) {
	id := uuid.New().String()
	if err := r.store.Create(ctx, model.Job{ID: id, State: model.StateQueued}); err != nil {
		return "", Outcome{}, fmt.Errorf("create job: %w", err)
	}
	out := r.execute(ctx, task{id: id, userIn: userPath, refIn: refPath, enqueue: time.Now()})
	return id, out, nil
}

// Dir returns the working directory of a job.
func (r *Runner) Dir(id string) string {
	return filepath.Join(r.opts.WorkDir, id)
}

// Store returns the job store the runner writes to.
func (r *Runner) Store() Store {
	return r.store
}

func (r *Runner) worker(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-r.queue:
			if !ok {
				return
			}
			logger.Debug("Worker picked job",
				logger.Int("worker", workerID),
				logger.JobID(t.id),
				logger.Duration("waited", time.Since(t.enqueue)))
			r.execute(ctx, t)
		}
	}
}

// execute runs every stage of one job and records the outcome.
func (r *Runner) execute(ctx context.Context, t task) (out Outcome) {
	started := time.Now()
	r.transition(ctx, t.id, func() error { return r.store.SetRunning(ctx, t.id) })

	defer func() {
		if p := recover(); p != nil {
			logger.Error("Job panicked", logger.JobID(t.id), logger.Any("panic", p))
			out = Outcome{Err: &model.JobError{Kind: model.ErrInternal, Message: fmt.Sprint(p)}}
		}
		r.finish(ctx, t.id, out)
		logger.Info("Job finished",
			logger.JobID(t.id),
			logger.Bool("ok", out.OK()),
			logger.Duration("took", time.Since(started)))
	}()

	res, err := r.pipeline(ctx, t)
	if err != nil {
		return Outcome{Err: Classify(err)}
	}
	return Outcome{Result: res}
}

func (r *Runner) pipeline(ctx context.Context, t task) (*model.Result, error) {
	dir := r.Dir(t.id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create job directory: %w", err)
	}

	userSet, userMix, err := r.analyzeSide(ctx, t.id, "user", t.userIn, dir)
	if err != nil {
		return nil, err
	}
	refSet, refMix, err := r.analyzeSide(ctx, t.id, "ref", t.refIn, dir)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &model.Result{
		Recs: compare.CompareAll(userSet, refSet),
		User: userSet,
		Ref:  refSet,
	}

	stageStart := time.Now()
	plots, err := r.renderPlots(dir, userMix, refMix, userSet, refSet)
	if err != nil {
		return nil, err
	}
	res.Plots = plots
	logger.Debug("Plots rendered", logger.JobID(t.id), logger.Duration("took", time.Since(stageStart)))

	if err := writeResult(filepath.Join(dir, ResultFile), res); err != nil {
		return nil, err
	}
	return res, nil
}

// analyzeSide separates one input and extracts a record for the mix and each
// produced stem.
func (r *Runner) analyzeSide(ctx context.Context, id, side, input, dir string) (model.FeatureSet, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	stageStart := time.Now()
	paths, err := r.opts.Separator.Separate(ctx, input, filepath.Join(dir, side))
	if err != nil {
		return nil, "", err
	}
	if paths == nil {
		paths = make(map[model.Source]string, 1)
	}
	mix := paths[model.SourceMix]
	if mix == "" {
		mix = input
		paths[model.SourceMix] = input
	}
	logger.Info("Separation done",
		logger.JobID(id),
		logger.String("side", side),
		logger.Int("sources", len(paths)),
		logger.Duration("took", time.Since(stageStart)))

	set := make(model.FeatureSet, len(paths))
	for _, src := range append([]model.Source{model.SourceMix}, model.Stems...) {
		path, ok := paths[src]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		stageStart = time.Now()
		rec, err := features.ExtractAll(path,
			features.WithSampleRate(r.opts.SampleRate),
			features.WithLoader(r.opts.Loader))
		if err != nil {
			return nil, "", err
		}
		set[src] = rec
		logger.Info("Features extracted",
			logger.JobID(id),
			logger.String("side", side),
			logger.Source(string(src)),
			logger.Duration("took", time.Since(stageStart)))
	}
	return set, mix, nil
}

func (r *Runner) renderPlots(dir, userMix, refMix string, userSet, refSet model.FeatureSet) (map[string]string, error) {
	plots := make(map[string]string, 3)
	curves := []struct {
		name string
		path string
	}{
		{plot.NameLoudnessUser, userMix},
		{plot.NameLoudnessRef, refMix},
	}
	for _, c := range curves {
		buf, err := r.opts.Loader.Load(c.path, r.opts.SampleRate, true)
		if err != nil {
			return nil, err
		}
		out := filepath.Join(dir, c.name+".png")
		if err := plot.LoudnessCurve(buf, out); err != nil {
			return nil, err
		}
		plots[c.name] = out
	}

	out := filepath.Join(dir, plot.NameFreqBars+".png")
	if err := plot.FrequencyBars(userSet[model.SourceMix].FreqBal, refSet[model.SourceMix].FreqBal, out); err != nil {
		return nil, err
	}
	plots[plot.NameFreqBars] = out
	return plots, nil
}

func writeResult(path string, res *model.Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// finish publishes to the sinks and then records the terminal state.
func (r *Runner) finish(ctx context.Context, id string, out Outcome) {
	ctx = context.WithoutCancel(ctx)
	job, err := r.store.Get(ctx, id)
	if err != nil {
		job = model.Job{ID: id}
	}
	if out.OK() {
		job.State = model.StateDone
	} else {
		job.State = model.StateError
		job.Error = out.Err
	}
	job.UpdatedAt = time.Now()

	for _, s := range r.opts.Sinks {
		if err := s.Publish(ctx, job, out, r.Dir(id)); err != nil {
			logger.Warn("Sink publish failed",
				logger.JobID(id),
				logger.String("sink", s.Name()),
				logger.ErrorField(err))
		}
	}

	if out.OK() {
		r.transition(ctx, id, func() error { return r.store.Complete(ctx, id, out.Result) })
		return
	}
	logger.Warn("Job failed",
		logger.JobID(id),
		logger.String("kind", string(out.Err.Kind)),
		logger.String("message", out.Err.Message))
	r.transition(ctx, id, func() error { return r.store.Fail(ctx, id, out.Err) })
}

// transition applies a store update and notifies subscribers.
func (r *Runner) transition(ctx context.Context, id string, update func() error) {
	if err := update(); err != nil {
		logger.Error("Job state update failed", logger.JobID(id), logger.ErrorField(err))
		return
	}
	job, err := r.store.Get(ctx, id)
	if err != nil {
		logger.Error("Job state read failed", logger.JobID(id), logger.ErrorField(err))
		return
	}
	r.notify(job)
}

// Classify maps a pipeline error to its JobError kind.
func Classify(err error) *model.JobError {
	var (
		jobErr *model.JobError
		decErr *audio.DecodeError
		sepErr *stems.SeparationError
		cmpErr *features.ComputeError
	)
	switch {
	case errors.As(err, &jobErr):
		return jobErr
	case errors.As(err, &decErr):
		return &model.JobError{Kind: model.ErrDecode, Message: err.Error()}
	case errors.As(err, &sepErr):
		return &model.JobError{Kind: model.ErrSeparation, Message: err.Error()}
	case errors.As(err, &cmpErr):
		return &model.JobError{Kind: model.ErrCompute, Message: err.Error()}
	default:
		return &model.JobError{Kind: model.ErrInternal, Message: err.Error()}
	}
}
