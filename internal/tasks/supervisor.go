// internal/tasks/supervisor.go
package tasks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ratio1/r1nodectl/internal/logging"
)

// Task is one tracked asynchronous operation. Callers wait on Done and read
// the outcome from Err.
type Task struct {
	ID        string
	Container string
	Op        string
	StartedAt time.Time

	done chan struct{}
	mu   sync.Mutex
	err  error
}

// Done is closed when the task finishes, successfully or not.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the task outcome. It is meaningful once Done is closed and
// nil before that.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Wait blocks until the task finishes or ctx expires, returning the task
// outcome or the context error.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return t.Err()
	}
}

func (t *Task) finish(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	close(t.done)
}

// ErrBusy reports a mutating operation refused because the container is
// already held by an in-flight one. Op names the operation holding it.
type ErrBusy struct {
	Name string
	Op   string
}

func (e *ErrBusy) Error() string {
	return fmt.Sprintf("container %s is busy with %s", e.Name, e.Op)
}

// TaskInfo is a point-in-time snapshot of one in-flight task.
type TaskInfo struct {
	ID        string    `json:"id"`
	Container string    `json:"container,omitempty"`
	Op        string    `json:"op"`
	StartedAt time.Time `json:"started_at"`
}

// Supervisor owns every in-flight operation. Each task runs on its own
// goroutine and stays tracked until it signals completion; container names
// act as locks so at most one mutating operation per container is in
// flight at a time.
type Supervisor struct {
	mu       sync.Mutex
	tasks    map[string]*Task
	holders  map[string]*Task
	closed   bool
	onStart  func(*Task)
	onFinish func(*Task, error)

	wg sync.WaitGroup
}

// NewSupervisor returns an empty Supervisor ready for Go calls.
func NewSupervisor() *Supervisor {
	return &Supervisor{
		tasks:   make(map[string]*Task),
		holders: make(map[string]*Task),
	}
}

// SetHooks installs task lifecycle callbacks: onStart fires before Go
// returns, onFinish from the task's goroutine after completion. Install
// hooks before the first Go call.
func (s *Supervisor) SetHooks(onStart func(*Task), onFinish func(*Task, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStart = onStart
	s.onFinish = onFinish
}

// Go runs fn on its own goroutine as a tracked task. containerName names
// the container the operation mutates; a held name fails fast with
// *ErrBusy instead of queueing. Read-only operations pass an empty name
// and are never serialized. Cancellation through ctx is best-effort: a
// subprocess already running is bounded by its own timeout.
func (s *Supervisor) Go(ctx context.Context, containerName, op string, fn func(context.Context) error) (*Task, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.New("supervisor is shut down")
	}
	if containerName != "" {
		if holder, held := s.holders[containerName]; held {
			s.mu.Unlock()
			return nil, &ErrBusy{Name: containerName, Op: holder.Op}
		}
	}

	t := &Task{
		ID:        uuid.New().String(),
		Container: containerName,
		Op:        op,
		StartedAt: time.Now(),
		done:      make(chan struct{}),
	}
	s.tasks[t.ID] = t
	if containerName != "" {
		s.holders[containerName] = t
	}
	onStart := s.onStart
	s.wg.Add(1)
	s.mu.Unlock()

	logging.Debug("Task %s started: %s %s", t.ID, t.Op, t.Container)
	if onStart != nil {
		onStart(t)
	}

	go func() {
		defer s.wg.Done()
		err := runProtected(ctx, fn)
		t.finish(err)

		s.mu.Lock()
		delete(s.tasks, t.ID)
		if t.Container != "" && s.holders[t.Container] == t {
			delete(s.holders, t.Container)
		}
		onFinish := s.onFinish
		s.mu.Unlock()

		if err != nil {
			logging.Error("Task %s failed: %s %s: %v", t.ID, t.Op, t.Container, err)
		} else {
			logging.Debug("Task %s finished: %s %s", t.ID, t.Op, t.Container)
		}
		if onFinish != nil {
			onFinish(t, err)
		}
	}()

	return t, nil
}

// runProtected converts a panicking task into an error so one bad
// operation cannot take the whole process down.
func runProtected(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("task panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// Busy reports whether a mutating operation currently holds containerName.
func (s *Supervisor) Busy(containerName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, held := s.holders[containerName]
	return held
}

// Len returns the number of in-flight tasks.
func (s *Supervisor) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// List snapshots the in-flight tasks, oldest first.
func (s *Supervisor) List() []TaskInfo {
	s.mu.Lock()
	out := make([]TaskInfo, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, TaskInfo{
			ID:        t.ID,
			Container: t.Container,
			Op:        t.Op,
			StartedAt: t.StartedAt,
		})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Shutdown refuses new tasks and waits for the in-flight ones, up to the
// context deadline. In-flight tasks are never aborted here; they run to
// their own timeouts.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	inFlight := len(s.tasks)
	s.mu.Unlock()

	if inFlight > 0 {
		logging.Info("Waiting for %d in-flight task(s) to finish", inFlight)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for in-flight tasks")
	}
}
