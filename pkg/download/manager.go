// Package download implements the download manager: it resolves which
// archive entries to fetch, runs extractions with bounded retries and
// transparent token renewal, and aggregates per-task outcomes. A failed task
// never aborts its siblings; only a failed token renewal does.
package download

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/remicres/theia-picker/pkg/auth"
	pkghttp "github.com/remicres/theia-picker/pkg/http"
	"github.com/remicres/theia-picker/pkg/logger"
	"github.com/remicres/theia-picker/pkg/remotezip"
	"github.com/sirupsen/logrus"
)

// DefaultMaxRetries bounds extraction attempts per task when the caller does
// not override it.
const DefaultMaxRetries = 5

// retryDelay is the pause between failed attempts of the same task.
const retryDelay = 2 * time.Second

// Manager runs download tasks against a remote archive.
type Manager struct {
	tokens     TokenRenewer
	retryDelay time.Duration
}

// NewManager creates a download manager. tokens may be nil when the archive
// does not require authentication.
func NewManager(tokens TokenRenewer) *Manager {
	return &Manager{tokens: tokens, retryDelay: retryDelay}
}

// FetchMatching extracts every entry whose name contains at least one of the
// given patterns, in index order, into destDir (preserving archive-relative
// paths). An empty match set yields zero tasks and no error. The returned
// error is non-nil only for run-level failures (context cancellation or a
// failed token renewal); per-task failures are reported in the results.
func (m *Manager) FetchMatching(ctx context.Context, archive Extractor, patterns []string, destDir string, opts Options) ([]Result, error) {
	tasks := m.buildTasks(archive, patterns, destDir)
	if len(tasks) == 0 {
		return nil, nil
	}

	maxRetries := opts.MaxRetries
	if maxRetries < 1 {
		maxRetries = DefaultMaxRetries
	}

	run := &run{
		manager:    m,
		archive:    archive,
		tasks:      tasks,
		maxRetries: maxRetries,
	}
	run.execute(ctx, opts.Concurrency)

	results := make([]Result, len(tasks))
	for i, t := range tasks {
		status := StatusFailed
		switch {
		case t.state == stateDone && t.skipped:
			status = StatusSkipped
		case t.state == stateDone:
			status = StatusDownloaded
		}
		results[i] = Result{
			Entry:    t.entry,
			Dest:     t.dest,
			Status:   status,
			Attempts: t.attempts,
			Err:      t.err,
		}
	}
	return results, run.authFailed()
}

func (m *Manager) buildTasks(archive Extractor, patterns []string, destDir string) []*task {
	var tasks []*task
	for _, entry := range archive.Entries() {
		for _, pattern := range patterns {
			if strings.Contains(entry.Name, pattern) {
				tasks = append(tasks, &task{
					entry: entry.Name,
					dest:  filepath.Join(destDir, filepath.FromSlash(entry.Name)),
					state: statePending,
				})
				break
			}
		}
	}
	return tasks
}

// run holds the shared state of one FetchMatching execution.
type run struct {
	manager    *Manager
	archive    Extractor
	tasks      []*task
	maxRetries int

	mu      sync.Mutex
	authErr error
}

func (r *run) execute(ctx context.Context, concurrency int) {
	if concurrency <= 1 {
		for _, t := range r.tasks {
			r.runTask(ctx, t)
		}
		return
	}

	queue := make(chan *task)
	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range queue {
				r.runTask(ctx, t)
			}
		}()
	}
	for _, t := range r.tasks {
		queue <- t
	}
	close(queue)
	wg.Wait()
}

func (r *run) authFailed() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.authErr
}

func (r *run) recordAuthFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.authErr == nil {
		r.authErr = err
	}
}

// runTask drives one task through its state machine until it resolves.
func (r *run) runTask(ctx context.Context, t *task) {
	if err := r.authFailed(); err != nil {
		t.state = stateFailed
		t.err = err
		return
	}

	renewed := false
	for {
		if err := ctx.Err(); err != nil {
			t.state = stateFailed
			t.err = err
			return
		}

		t.state = stateFetching
		t.attempts++
		outcome, err := r.archive.ExtractEntry(ctx, t.entry, t.dest)
		if err == nil {
			t.skipped = outcome == remotezip.OutcomeSkipped
			t.state = stateDone
			return
		}

		logger.Warn("extraction attempt failed", logrus.Fields{
			"entry": t.entry, "attempt": t.attempts, "error": err,
		})

		switch classify(err) {
		case verdictFatal:
			t.state = stateFailed
			t.err = err
			return
		case verdictRenewThenRetry:
			if r.manager.tokens != nil && !renewed {
				renewed = true
				if _, renewErr := r.manager.tokens.Renew(ctx); renewErr != nil {
					r.recordAuthFailure(renewErr)
					t.state = stateFailed
					t.err = renewErr
					return
				}
			}
		case verdictRetry:
			// fall through to the retry bookkeeping below
		}

		if t.attempts >= r.maxRetries {
			t.state = stateFailed
			t.err = err
			return
		}
		t.state = stateRetrying
		select {
		case <-time.After(r.manager.retryDelay):
		case <-ctx.Done():
			t.state = stateFailed
			t.err = ctx.Err()
			return
		}
	}
}

type verdict int

const (
	verdictRetry verdict = iota
	verdictRenewThenRetry
	verdictFatal
)

// classify sorts extraction failures into retry policy buckets. Unknown
// errors (typically transient network failures) are retried.
func classify(err error) verdict {
	switch {
	case errors.Is(err, remotezip.ErrEntryNotFound),
		errors.Is(err, remotezip.ErrUnsupportedCompression),
		errors.Is(err, remotezip.ErrMalformedArchive),
		errors.Is(err, pkghttp.ErrRangeNotSatisfiable),
		errors.Is(err, auth.ErrAuthFailure),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return verdictFatal
	case errors.Is(err, pkghttp.ErrAuthExpired),
		errors.Is(err, pkghttp.ErrRangeNotHonored):
		return verdictRenewThenRetry
	default:
		return verdictRetry
	}
}
