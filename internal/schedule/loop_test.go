package schedule

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoRunsOnLoopInOrder(t *testing.T) {
	l := NewLoop(nil)
	defer l.Stop()

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		if err := l.Post(func() { got = append(got, i) }); err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
	}
	var snapshot []int
	if err := l.Do(context.Background(), func() { snapshot = append(snapshot, got...) }); err != nil {
		t.Fatalf("do: %v", err)
	}
	if len(snapshot) != 5 {
		t.Fatalf("expected 5 tasks before Do, got %v", snapshot)
	}
	for i, v := range snapshot {
		if v != i {
			t.Fatalf("tasks ran out of order: %v", snapshot)
		}
	}
}

func TestAfterRunsOnLoop(t *testing.T) {
	l := NewLoop(nil)
	defer l.Stop()

	fired := make(chan struct{})
	l.After(time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("timer did not fire")
	}
}

func TestCancelPreventsRun(t *testing.T) {
	l := NewLoop(nil)
	defer l.Stop()

	ran := make(chan struct{}, 1)
	var h Handle
	// Schedule and cancel from the loop itself, the way the controller does.
	if err := l.Do(context.Background(), func() {
		h = l.After(0, func() { ran <- struct{}{} })
		if !h.Cancel() {
			t.Errorf("expected first cancel to succeed")
		}
	}); err != nil {
		t.Fatalf("do: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	// Drain anything the timer may have queued.
	_ = l.Do(context.Background(), func() {})
	select {
	case <-ran:
		t.Fatalf("cancelled task ran")
	default:
	}
	if h.Cancel() {
		t.Fatalf("second cancel should report false")
	}
}

func TestCancelAfterFireReportsFalse(t *testing.T) {
	l := NewLoop(nil)
	defer l.Stop()

	fired := make(chan struct{})
	h := l.After(0, func() { close(fired) })
	<-fired
	if h.Cancel() {
		t.Fatalf("cancel after run should report false")
	}
}

func TestStoppedLoopRejectsWork(t *testing.T) {
	l := NewLoop(nil)
	l.Stop()
	if err := l.Post(func() {}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if err := l.Do(context.Background(), func() {}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped from Do, got %v", err)
	}
	select {
	case <-l.Done():
	default:
		t.Fatalf("Done should be closed")
	}
}

func TestManualRunsDueTasksInOrder(t *testing.T) {
	m := NewManual()
	var got []string
	m.After(10*time.Millisecond, func() { got = append(got, "b") })
	m.After(0, func() {
		got = append(got, "a")
		m.After(5*time.Millisecond, func() { got = append(got, "a2") })
	})
	late := m.After(time.Second, func() { got = append(got, "late") })

	if n := m.Advance(10 * time.Millisecond); n != 3 {
		t.Fatalf("expected 3 tasks to run, got %d (%v)", n, got)
	}
	want := []string{"a", "a2", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if m.Pending() != 1 {
		t.Fatalf("expected 1 pending task, got %d", m.Pending())
	}
	if !late.Cancel() {
		t.Fatalf("expected cancel to succeed")
	}
	if m.Flush() != 0 || len(got) != 3 {
		t.Fatalf("cancelled task ran: %v", got)
	}
}
