package jobs

import (
	"context"

	"mixlens/model"
)

const subscriberBuffer = 8

// Subscribe returns a channel that receives the job's current state and every
// later transition. The channel is closed after a terminal state, or at once
// when the job is unknown.
func (r *Runner) Subscribe(id string) <-chan model.Job {
	ch := make(chan model.Job, subscriberBuffer)

	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	job, err := r.store.Get(context.Background(), id)
	if err != nil {
		close(ch)
		return ch
	}
	ch <- job
	if job.State.Terminal() {
		close(ch)
		return ch
	}
	r.subs[id] = append(r.subs[id], ch)
	return ch
}

// Unsubscribe detaches ch before the job ends.
func (r *Runner) Unsubscribe(id string, ch <-chan model.Job) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	list := r.subs[id]
	for i, c := range list {
		if c == ch {
			close(c)
			r.subs[id] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(r.subs[id]) == 0 {
		delete(r.subs, id)
	}
}

func (r *Runner) notify(job model.Job) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	for _, ch := range r.subs[job.ID] {
		select {
		case ch <- job:
		default:
		}
		if job.State.Terminal() {
			close(ch)
		}
	}
	if job.State.Terminal() {
		delete(r.subs, job.ID)
	}
}
