package tasks

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestGoRunsTask(t *testing.T) {
	s := NewSupervisor()

	var ran atomic.Bool
	task, err := s.Go(context.Background(), "r1node0", "stop", func(context.Context) error {
		ran.Store(true)
		return nil
	})
	if err != nil {
		t.Fatalf("Go: %v", err)
	}
	if task.ID == "" {
		t.Error("Expected a task id")
	}

	if err := task.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !ran.Load() {
		t.Error("Expected the task body to run")
	}
}

func TestTaskCarriesError(t *testing.T) {
	s := NewSupervisor()

	boom := errors.New("boom")
	task, err := s.Go(context.Background(), "r1node0", "stop", func(context.Context) error {
		return boom
	})
	if err != nil {
		t.Fatalf("Go: %v", err)
	}

	<-task.Done()
	if !errors.Is(task.Err(), boom) {
		t.Errorf("Expected the task error surfaced, got %v", task.Err())
	}
}

func TestBusyNameRefusedWithoutSpawning(t *testing.T) {
	s := NewSupervisor()

	release := make(chan struct{})
	first, err := s.Go(context.Background(), "r1node0", "launch", func(context.Context) error {
		<-release
		return nil
	})
	if err != nil {
		t.Fatalf("Go: %v", err)
	}

	var spawned atomic.Int32
	_, err = s.Go(context.Background(), "r1node0", "stop", func(context.Context) error {
		spawned.Add(1)
		return nil
	})
	var busy *ErrBusy
	if !errors.As(err, &busy) {
		t.Fatalf("Expected *ErrBusy, got %v", err)
	}
	if busy.Name != "r1node0" || busy.Op != "launch" {
		t.Errorf("Expected the holder named, got %+v", busy)
	}

	close(release)
	if err := first.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if spawned.Load() != 0 {
		t.Error("A refused task must never spawn")
	}

	// The name frees up once the holder finishes.
	second, err := s.Go(context.Background(), "r1node0", "stop", func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("Expected the name released after completion, got %v", err)
	}
	if err := second.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestReadOnlyOpsBypassLock(t *testing.T) {
	s := NewSupervisor()

	release := make(chan struct{})
	if _, err := s.Go(context.Background(), "r1node0", "launch", func(context.Context) error {
		<-release
		return nil
	}); err != nil {
		t.Fatalf("Go: %v", err)
	}
	defer close(release)

	// Empty container name means read-only; it must start while the
	// mutating task is in flight.
	ro, err := s.Go(context.Background(), "", "inspect", func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("Read-only op must bypass the name lock, got %v", err)
	}
	if err := ro.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestDifferentNamesRunConcurrently(t *testing.T) {
	s := NewSupervisor()

	release := make(chan struct{})
	if _, err := s.Go(context.Background(), "r1node0", "launch", func(context.Context) error {
		<-release
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	defer close(release)

	other, err := s.Go(context.Background(), "r1node1", "stop", func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("Distinct names must not serialize, got %v", err)
	}
	if err := other.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestListSnapshotsInFlight(t *testing.T) {
	s := NewSupervisor()

	release := make(chan struct{})
	first, _ := s.Go(context.Background(), "r1node0", "launch", func(context.Context) error {
		<-release
		return nil
	})
	second, _ := s.Go(context.Background(), "r1node1", "pull", func(context.Context) error {
		<-release
		return nil
	})

	infos := s.List()
	if len(infos) != 2 {
		t.Fatalf("Expected 2 in-flight tasks, got %d", len(infos))
	}
	ops := map[string]bool{}
	for _, info := range infos {
		ops[info.Op] = true
	}
	if !ops["launch"] || !ops["pull"] {
		t.Errorf("Expected both ops listed, got %+v", infos)
	}

	close(release)
	<-first.Done()
	<-second.Done()

	// Completed tasks leave the snapshot.
	deadline := time.After(2 * time.Second)
	for s.Len() != 0 {
		select {
		case <-deadline:
			t.Fatalf("Expected tracking cleared, still %d", s.Len())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestShutdownWaitsForInFlight(t *testing.T) {
	s := NewSupervisor()

	var finished atomic.Bool
	if _, err := s.Go(context.Background(), "r1node0", "stop", func(context.Context) error {
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !finished.Load() {
		t.Error("Shutdown must return only after in-flight tasks end")
	}
}

func TestShutdownHonorsDeadline(t *testing.T) {
	s := NewSupervisor()

	release := make(chan struct{})
	task, _ := s.Go(context.Background(), "r1node0", "launch", func(context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Shutdown(ctx); err == nil {
		t.Fatal("Expected shutdown to give up at the deadline")
	}

	close(release)
	<-task.Done()
}

func TestShutdownRefusesNewTasks(t *testing.T) {
	s := NewSupervisor()
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Go(context.Background(), "r1node0", "stop", func(context.Context) error { return nil }); err == nil {
		t.Fatal("Expected Go to fail after shutdown")
	}
}

func TestPanicBecomesError(t *testing.T) {
	s := NewSupervisor()

	task, err := s.Go(context.Background(), "r1node0", "launch", func(context.Context) error {
		panic("unexpected state")
	})
	if err != nil {
		t.Fatal(err)
	}

	<-task.Done()
	if task.Err() == nil || !strings.Contains(task.Err().Error(), "panicked") {
		t.Errorf("Expected the panic converted to an error, got %v", task.Err())
	}

	// The name must be released despite the panic.
	next, err := s.Go(context.Background(), "r1node0", "stop", func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("Expected the name released after a panic, got %v", err)
	}
	<-next.Done()
}

func TestHooks(t *testing.T) {
	s := NewSupervisor()

	var started, finished atomic.Int32
	var finishErr error
	done := make(chan struct{})
	s.SetHooks(
		func(*Task) { started.Add(1) },
		func(_ *Task, err error) {
			finishErr = err
			finished.Add(1)
			close(done)
		},
	)

	boom := errors.New("boom")
	task, err := s.Go(context.Background(), "r1node0", "stop", func(context.Context) error { return boom })
	if err != nil {
		t.Fatal(err)
	}
	<-task.Done()
	<-done

	if started.Load() != 1 || finished.Load() != 1 {
		t.Errorf("Expected one start and one finish, got %d/%d", started.Load(), finished.Load())
	}
	if !errors.Is(finishErr, boom) {
		t.Errorf("Expected the task error in the finish hook, got %v", finishErr)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	s := NewSupervisor()

	release := make(chan struct{})
	task, _ := s.Go(context.Background(), "r1node0", "launch", func(context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := task.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected a deadline error, got %v", err)
	}

	close(release)
	<-task.Done()
}
