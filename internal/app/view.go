package app

import (
	"sync"
	"time"

	"github.com/jaminalder/tictactoe-cpu/internal/domain"
)

// Snapshot is everything a client needs to draw a session.
type Snapshot struct {
	ID            string
	Board         domain.Board
	Highlight     [domain.Cells]bool
	Available     [domain.Cells]bool
	Message       string
	HumanScore    int
	ComputerScore int
	Human         domain.Mark
	State         string
	InMenu        bool
	Version       int
	Updated       time.Time
}

// RoundOver reports whether the snapshot shows a finished round.
func (s Snapshot) RoundOver() bool { return s.State == "round-over" }

// view is the match.Presenter of a browser session. The controller writes
// it on the session loop; HTTP handlers read copies.
type view struct {
	mu    sync.Mutex
	snap  Snapshot
	dirty bool
}

func newView(id string) *view {
	return &view{snap: Snapshot{ID: id, InMenu: true, State: "idle", Updated: time.Now()}}
}

func (v *view) update(fn func(s *Snapshot)) {
	v.mu.Lock()
	fn(&v.snap)
	v.dirty = true
	v.mu.Unlock()
}

func (v *view) RenderMark(cell int, mark domain.Mark) {
	v.update(func(s *Snapshot) { s.Board[cell] = mark })
}

func (v *view) HighlightCells(cells []int) {
	v.update(func(s *Snapshot) {
		for _, c := range cells {
			s.Highlight[c] = true
		}
	})
}

func (v *view) SetCellsAvailable(cells []int, available bool) {
	v.update(func(s *Snapshot) {
		for _, c := range cells {
			s.Available[c] = available
		}
	})
}

func (v *view) ShowRoundMessage(text string) {
	v.update(func(s *Snapshot) { s.Message = text })
}

func (v *view) ClearRoundMessage() {
	v.update(func(s *Snapshot) { s.Message = "" })
}

func (v *view) UpdateScoreDisplay(human, computer int) {
	v.update(func(s *Snapshot) { s.HumanScore, s.ComputerScore = human, computer })
}

func (v *view) ClearBoard() {
	v.update(func(s *Snapshot) {
		s.Board = domain.Board{}
		s.Highlight = [domain.Cells]bool{}
	})
}

func (v *view) ShowMenu() {
	v.update(func(s *Snapshot) { s.InMenu = true })
}

func (v *view) hideMenu() {
	v.update(func(s *Snapshot) { s.InMenu = false })
}

// commit stamps controller state into the snapshot. It reports the new
// snapshot and whether anything changed since the last commit.
func (v *view) commit(state string, human domain.Mark) (Snapshot, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.snap.State != state || v.snap.Human != human {
		v.snap.State = state
		v.snap.Human = human
		v.dirty = true
	}
	if !v.dirty {
		return v.snap, false
	}
	v.dirty = false
	v.snap.Version++
	v.snap.Updated = time.Now()
	return v.snap, true
}

func (v *view) snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap
}
