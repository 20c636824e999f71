// Package jobs runs reconciliation analyses in the background, keyed by
// job id. Status reads never wait on a running job.
package jobs

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/shelfsync/shelfsync/pkg/logging"
	"github.com/shelfsync/shelfsync/pkg/progress"
	"github.com/shelfsync/shelfsync/pkg/reconcile"
)

// RunFunc performs one analysis, reporting progress through r and
// honoring ctx for cooperative cancellation
type RunFunc func(ctx context.Context, r progress.Reporter) (*reconcile.Result, error)

// Status is a point-in-time view of one job
type Status struct {
	ID       string            `json:"id"`
	Running  bool              `json:"running"`
	Snapshot progress.Snapshot `json:"snapshot"`
}

type job struct {
	cancel context.CancelFunc
	done   chan struct{}

	result *reconcile.Result
	err    error
}

// Manager owns the running jobs and their latest snapshots. Completed
// jobs stay queryable until Forget is called.
type Manager struct {
	store  *progress.Store
	logger logging.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

// NewManager creates a manager writing snapshots into store
func NewManager(store *progress.Store, logger logging.Logger) *Manager {
	if store == nil {
		store = progress.NewStore()
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Manager{
		store:  store,
		logger: logger,
		jobs:   make(map[string]*job),
	}
}

// Store exposes the snapshot store for read-only pollers
func (m *Manager) Store() *progress.Store {
	return m.store
}

// Start launches run on its own goroutine and returns the new job id
// immediately
func (m *Manager) Start(parent context.Context, run RunFunc) string {
	ctx, cancel := context.WithCancel(parent)
	j := &job{cancel: cancel, done: make(chan struct{})}
	id := uuid.New().String()

	m.mu.Lock()
	m.jobs[id] = j
	m.mu.Unlock()

	go func() {
		defer cancel()
		defer close(j.done)

		result, err := run(ctx, m.store.Reporter(id))

		m.mu.Lock()
		j.result, j.err = result, err
		m.mu.Unlock()

		if err != nil {
			m.logger.Error(ctx, "analysis job failed", err, logging.Fields{"job_id": id})
			return
		}
		m.logger.Info(ctx, "analysis job finished", logging.Fields{
			"job_id":     id,
			"incomplete": result != nil && result.Incomplete,
		})
	}()
	return id
}

// Status returns the current state of a job without blocking on it.
// Unknown ids report not-running with an idle snapshot.
func (m *Manager) Status(id string) Status {
	m.mu.Lock()
	j, ok := m.jobs[id]
	m.mu.Unlock()

	running := false
	if ok {
		select {
		case <-j.done:
		default:
			running = true
		}
	}
	return Status{ID: id, Running: running, Snapshot: m.store.Get(id)}
}

// Wait blocks until the job finishes and returns its result. Unknown
// ids return (nil, false).
func (m *Manager) Wait(id string) (*reconcile.Result, error, bool) {
	m.mu.Lock()
	j, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return nil, nil, false
	}
	<-j.done

	m.mu.Lock()
	defer m.mu.Unlock()
	return j.result, j.err, true
}

// Cancel requests cooperative cancellation of a running job. The job
// keeps its partial result once it observes the cancellation.
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	j, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	j.cancel()
	return true
}

// Forget drops a finished job and its snapshot. Running jobs are left
// alone.
func (m *Manager) Forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return
	}
	select {
	case <-j.done:
		delete(m.jobs, id)
		m.store.Forget(id)
	default:
	}
}
