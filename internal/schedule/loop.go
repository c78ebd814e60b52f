// Package schedule provides the single-goroutine event loop that owns a
// match, and cancellable delayed tasks that run on it.
package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Handle cancels a scheduled task.
type Handle interface {
	// Cancel stops the task from running. It reports false when the task
	// already ran or was already cancelled.
	Cancel() bool
}

// Scheduler runs fn after d on the caller's event loop.
type Scheduler interface {
	After(d time.Duration, fn func()) Handle
}

// ErrStopped is returned for work posted to a stopped loop.
var ErrStopped = errors.New("loop stopped")

// Loop executes posted functions one at a time on its own goroutine. Code
// running on the loop needs no locking against other loop tasks.
type Loop struct {
	tasks    chan func()
	done     chan struct{}
	stopOnce sync.Once
	log      *slog.Logger
}

// NewLoop starts a loop. A nil logger discards output.
func NewLoop(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	l := &Loop{
		tasks: make(chan func(), 64),
		done:  make(chan struct{}),
		log:   logger,
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	for {
		select {
		case <-l.done:
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post queues fn. It must not be called from a loop task when the queue may
// be full; use After(0, fn) there.
func (l *Loop) Post(fn func()) error {
	select {
	case <-l.done:
		return ErrStopped
	case l.tasks <- fn:
		return nil
	}
}

// Do runs fn on the loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	err := l.Post(func() {
		defer close(finished)
		fn()
	})
	if err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// After schedules fn on the loop once d has elapsed. A zero delay still
// defers fn to a later loop turn.
func (l *Loop) After(d time.Duration, fn func()) Handle {
	t := &timer{fn: fn}
	t.t = time.AfterFunc(d, func() {
		if err := l.Post(t.fire); err != nil {
			l.log.Debug("timer dropped", "err", err)
		}
	})
	return t
}

// Stop ends the loop. Queued and pending work is dropped.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

// Done is closed once Stop has been called.
func (l *Loop) Done() <-chan struct{} { return l.done }

const (
	timerPending int32 = iota
	timerFired
	timerCancelled
)

type timer struct {
	t     *time.Timer
	fn    func()
	state atomic.Int32
}

// fire runs on the loop. A Cancel made on the loop before this point wins
// even when the underlying timer already went off.
func (t *timer) fire() {
	if t.state.CompareAndSwap(timerPending, timerFired) {
		t.fn()
	}
}

func (t *timer) Cancel() bool {
	t.t.Stop()
	return t.state.CompareAndSwap(timerPending, timerCancelled)
}
