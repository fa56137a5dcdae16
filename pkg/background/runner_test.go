package background

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recordingLogger struct {
	mu     sync.Mutex
	errors []map[string]interface{}
}

func (l *recordingLogger) Debug(string, string, map[string]interface{}) {}
func (l *recordingLogger) Info(string, string, map[string]interface{})  {}
func (l *recordingLogger) Warn(string, string, map[string]interface{})  {}
func (l *recordingLogger) Error(_, _ string, details map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, details)
}
func (l *recordingLogger) Sync() error { return nil }

func TestRunner_FailuresGoToSink(t *testing.T) {
	sink := &recordingLogger{}
	r := NewRunner(sink, time.Second)

	var ran int32
	r.Go("ok", func(context.Context) error { atomic.AddInt32(&ran, 1); return nil })
	r.Go("fails", func(context.Context) error { return errors.New("boom") })
	r.Go("panics", func(context.Context) error { panic("kaboom") })
	r.Schedule("plain", func() { atomic.AddInt32(&ran, 1) })
	r.Wait()

	if ran != 2 {
		t.Errorf("ran = %d, want 2", ran)
	}
	if len(sink.errors) != 2 {
		t.Fatalf("sink got %d errors, want 2", len(sink.errors))
	}
	tasks := map[interface{}]bool{}
	for _, e := range sink.errors {
		tasks[e["task"]] = true
	}
	if !tasks["fails"] || !tasks["panics"] {
		t.Errorf("sink tasks = %v", tasks)
	}
}

func TestRunner_TaskContextIsBounded(t *testing.T) {
	r := NewRunner(&recordingLogger{}, 20*time.Millisecond)
	var sawDeadline int32
	r.Go("slow", func(ctx context.Context) error {
		<-ctx.Done()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			atomic.StoreInt32(&sawDeadline, 1)
		}
		return nil
	})
	r.Wait()
	if sawDeadline != 1 {
		t.Error("task context was not bounded by the runner timeout")
	}
}

func TestRunner_ShutdownHonoursContext(t *testing.T) {
	r := NewRunner(&recordingLogger{}, time.Second)
	release := make(chan struct{})
	r.Go("blocked", func(context.Context) error { <-release; return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := r.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown = %v, want deadline exceeded", err)
	}
	close(release)
	if err := r.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown after release = %v", err)
	}
}
