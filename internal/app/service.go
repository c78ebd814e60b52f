package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jaminalder/tictactoe-cpu/internal/domain"
	"github.com/jaminalder/tictactoe-cpu/internal/match"
	"github.com/jaminalder/tictactoe-cpu/internal/schedule"
)

// Errors exposed by the service layer.
var (
	ErrNotFound = errors.New("game not found")
)

// session is one browser match: its own loop, controller and view.
type session struct {
	id      string
	loop    *schedule.Loop
	ctrl    *match.Controller
	view    *view
	publish func(Snapshot)
}

// After runs controller timers on the session loop and publishes whatever
// they changed.
func (s *session) After(d time.Duration, fn func()) schedule.Handle {
	return s.loop.After(d, func() {
		fn()
		s.flush()
	})
}

func (s *session) flush() {
	snap, changed := s.view.commit(s.ctrl.State().String(), s.ctrl.HumanMark())
	if changed {
		s.publish(snap)
	}
}

func (s *session) do(ctx context.Context, fn func(c *match.Controller) error) (Snapshot, error) {
	var fnErr error
	err := s.loop.Do(ctx, func() {
		fnErr = fn(s.ctrl)
		s.flush()
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("session %s: %w", s.id, err)
	}
	return s.view.snapshot(), fnErr
}

type subscriber struct {
	ch        chan Snapshot
	closeOnce sync.Once
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

// subscriberBuffer is how many snapshots a subscriber may fall behind
// before it is dropped.
const subscriberBuffer = 8

// Service manages sessions and their subscribers.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*session
	subs     map[string]map[*subscriber]struct{}

	mover match.Mover
	opts  match.Options
	log   *slog.Logger
}

// NewService creates a service whose sessions play against mover. A nil
// logger discards output.
func NewService(mover match.Mover, opts match.Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		sessions: make(map[string]*session),
		subs:     make(map[string]map[*subscriber]struct{}),
		mover:    mover,
		opts:     opts,
		log:      logger,
	}
}

// Create registers a session and starts its first round with the human
// playing mark.
func (s *Service) Create(ctx context.Context, mark domain.Mark) (Snapshot, error) {
	if !mark.Valid() {
		return Snapshot{}, fmt.Errorf("%w: %v", match.ErrInvalidSide, mark)
	}
	id := newSessionID()
	logger := s.log.With("session", id)
	sess := &session{
		id:   id,
		loop: schedule.NewLoop(logger),
		view: newView(id),
	}
	sess.publish = func(snap Snapshot) { s.broadcast(id, snap) }
	sess.ctrl = match.New(sess.view, sess, s.mover, s.opts, logger)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	logger.Info("session created", "human", mark.String())

	return s.Start(ctx, id, mark)
}

// Get returns the latest snapshot of a session.
func (s *Service) Get(id string) (Snapshot, bool) {
	sess, ok := s.lookup(id)
	if !ok {
		return Snapshot{}, false
	}
	return sess.view.snapshot(), true
}

// Start leaves the menu and begins a round with the human playing mark.
func (s *Service) Start(ctx context.Context, id string, mark domain.Mark) (Snapshot, error) {
	sess, ok := s.lookup(id)
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return sess.do(ctx, func(c *match.Controller) error {
		if err := c.StartRound(mark); err != nil {
			return err
		}
		sess.view.hideMenu()
		return nil
	})
}

// Select forwards a cell click. Invalid clicks are ignored by the
// controller and simply return the unchanged snapshot.
func (s *Service) Select(ctx context.Context, id string, cell int) (Snapshot, error) {
	sess, ok := s.lookup(id)
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return sess.do(ctx, func(c *match.Controller) error {
		c.HandleCellSelected(cell)
		return nil
	})
}

// PlayAgain starts the next round once the current one is over.
func (s *Service) PlayAgain(ctx context.Context, id string) (Snapshot, error) {
	sess, ok := s.lookup(id)
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return sess.do(ctx, func(c *match.Controller) error {
		c.PlayAgain()
		return nil
	})
}

// Reset restarts the round, or with clearScores ends the match and shows
// the menu.
func (s *Service) Reset(ctx context.Context, id string, clearScores bool) (Snapshot, error) {
	sess, ok := s.lookup(id)
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return sess.do(ctx, func(c *match.Controller) error {
		c.RequestReset(clearScores)
		return nil
	})
}

// Subscribe registers for snapshots of a session. The channel is closed
// when ctx ends, the unsubscribe func is called, the subscriber falls too
// far behind, or the session goes away.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan Snapshot, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return nil, nil, ErrNotFound
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan Snapshot, subscriberBuffer)}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
			sub.close()
			s.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub, nil
}

// broadcast fans a snapshot out; slow subscribers are closed and dropped.
// Sends happen under the lock so a concurrent unsubscribe cannot close a
// channel mid-send.
func (s *Service) broadcast(id string, snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs[id] {
		select {
		case sub.ch <- snap:
		default:
			s.log.Debug("dropping slow subscriber", "session", id)
			sub.close()
			delete(s.subs[id], sub)
		}
	}
}

// Sweep removes sessions idle for longer than maxIdle and returns how many
// were removed.
func (s *Service) Sweep(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if time.Since(sess.view.snapshot().Updated) <= maxIdle {
			continue
		}
		s.removeLocked(id, sess)
		removed++
	}
	return removed
}

// Close stops every session.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		s.removeLocked(id, sess)
	}
}

// Len returns the number of live sessions.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Service) removeLocked(id string, sess *session) {
	sess.loop.Stop()
	for sub := range s.subs[id] {
		sub.close()
	}
	delete(s.subs, id)
	delete(s.sessions, id)
	s.log.Info("session closed", "session", id)
}

func (s *Service) lookup(id string) (*session, bool) {
	if !validSessionID(id) {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}
