// Package watch turns a drop folder into analysis jobs.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"mixlens/logger"
)

// Side tells which half of a pair a file is.
type Side string

const (
	SideUser Side = "user"
	SideRef  Side = "ref"
)

// SubmitFunc queues a job for a complete pair.
type SubmitFunc func(ctx context.Context, userPath, refPath string) (string, error)

// ParseName splits "<name>_user.<ext>" or "<name>_ref.<ext>".
func ParseName(file string) (name string, side Side, ok bool) {
	base := filepath.Base(file)
	if strings.HasPrefix(base, ".") {
		return "", "", false
	}
	ext := filepath.Ext(base)
	if ext == "" || ext == "." {
		return "", "", false
	}
	stem := strings.TrimSuffix(base, ext)
	for _, s := range []Side{SideUser, SideRef} {
		suffix := "_" + string(s)
		if strings.HasSuffix(stem, suffix) && len(stem) > len(suffix) {
			return strings.TrimSuffix(stem, suffix), s, true
		}
	}
	return "", "", false
}

type pair struct {
	user, ref string
}

// Inbox watches a directory and submits a job once both files of a pair
// have stopped changing for the settle period.
type Inbox struct {
	dir     string
	settle  time.Duration
	submit  SubmitFunc
	pairs   map[string]*pair
	pending map[string]time.Time
}

// NewInbox creates an inbox for dir. settle defaults to one second.
func NewInbox(dir string, settle time.Duration, submit SubmitFunc) *Inbox {
	if settle <= 0 {
		settle = time.Second
	}
	return &Inbox{
		dir:     dir,
		settle:  settle,
		submit:  submit,
		pairs:   make(map[string]*pair),
		pending: make(map[string]time.Time),
	}
}

// Run watches until ctx is done. Files already in the directory are picked
// up at start.
func (in *Inbox) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(in.dir); err != nil {
		return fmt.Errorf("watch %s: %w", in.dir, err)
	}

	entries, err := os.ReadDir(in.dir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", in.dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			in.pending[filepath.Join(in.dir, e.Name())] = time.Time{}
		}
	}

	logger.Info("Watching inbox", logger.String("dir", in.dir))

	ticker := time.NewTicker(tickInterval(in.settle))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if _, _, match := ParseName(event.Name); !match {
				continue
			}
			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				in.pending[event.Name] = time.Now()
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				in.forget(event.Name)
			}

		case <-ticker.C:
			in.flush(ctx, time.Now())

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Inbox watcher error", logger.ErrorField(err))
		}
	}
}

// tickInterval polls twice per settle period, at most once a millisecond.
func tickInterval(settle time.Duration) time.Duration {
	return max(settle/2, time.Millisecond)
}

// flush moves settled files into pairs and submits completed pairs.
func (in *Inbox) flush(ctx context.Context, now time.Time) {
	for path, last := range in.pending {
		if now.Sub(last) < in.settle {
			continue
		}
		delete(in.pending, path)
		if fi, err := os.Stat(path); err != nil || !fi.Mode().IsRegular() {
			continue
		}
		in.offer(ctx, path)
	}
}

func (in *Inbox) offer(ctx context.Context, path string) {
	name, side, ok := ParseName(path)
	if !ok {
		return
	}
	p := in.pairs[name]
	if p == nil {
		p = &pair{}
		in.pairs[name] = p
	}
	if side == SideUser {
		p.user = path
	} else {
		p.ref = path
	}
	if p.user == "" || p.ref == "" {
		return
	}
	delete(in.pairs, name)

	id, err := in.submit(ctx, p.user, p.ref)
	if err != nil {
		logger.Error("Inbox submit failed", logger.String("pair", name), logger.ErrorField(err))
		return
	}
	logger.Info("Inbox pair submitted",
		logger.JobID(id),
		logger.String("pair", name),
		logger.String("user", p.user),
		logger.String("ref", p.ref))
}

func (in *Inbox) forget(path string) {
	delete(in.pending, path)
	name, side, ok := ParseName(path)
	if !ok {
		return
	}
	if p := in.pairs[name]; p != nil {
		if side == SideUser && p.user == path {
			p.user = ""
		}
		if side == SideRef && p.ref == path {
			p.ref = ""
		}
	}
}
