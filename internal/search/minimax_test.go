package search

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/jaminalder/tictactoe-cpu/internal/domain"
)

func newTestEngine(seed uint64) *Engine {
	return New(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), nil)
}

// reachable returns every distinct position that legal play can produce
// which is still running and holds at least one mark.
func reachable() map[domain.Board]domain.Mark {
	seen := make(map[domain.Board]domain.Mark)
	var walk func(b domain.Board, turn domain.Mark)
	walk = func(b domain.Board, turn domain.Mark) {
		for _, c := range b.Available() {
			next := b
			next[c] = turn
			if _, ok := seen[next]; ok {
				continue
			}
			if domain.EvaluateFull(next).Terminal() {
				continue
			}
			seen[next] = turn.Opponent()
			walk(next, turn.Opponent())
		}
	}
	walk(domain.Board{}, domain.Cross)
	return seen
}

func TestSelectMoveReturnsAvailableCellAndNeverHandsHumanAWin(t *testing.T) {
	e := newTestEngine(1)
	for b, toMove := range reachable() {
		computer, human := toMove, toMove.Opponent()
		cell, err := e.SelectMove(b, human, computer)
		if err != nil {
			t.Fatalf("board %v: unexpected error %v", b, err)
		}
		if !domain.InRange(cell) || b[cell] != domain.Empty {
			t.Fatalf("board %v: cell %d is not available", b, cell)
		}
		next := b
		next[cell] = computer
		if res := domain.EvaluateFull(next); res.Outcome == domain.Win && res.Winner == human {
			t.Fatalf("board %v: move %d produced a human win", b, cell)
		}
	}
}

func TestTieBreakPicksLowestBestCell(t *testing.T) {
	for b, toMove := range reachable() {
		s := searcher{human: toMove.Opponent(), computer: toMove}
		scores := s.rootScores(b)
		best := LossScore - 1
		for _, c := range b.Available() {
			if scores[c] > best {
				best = scores[c]
			}
		}
		want := -1
		for _, c := range b.Available() {
			if scores[c] == best {
				want = c
				break
			}
		}
		got, _ := pickBest(b, scores)
		if got != want {
			t.Fatalf("board %v scores %v: picked %d, want lowest best %d", b, scores, got, want)
		}
	}
}

func TestTakesImmediateWin(t *testing.T) {
	e := newTestEngine(2)
	// O O _ / X X _ / X _ _ with Circle (computer) to move.
	b := domain.Board{
		domain.Circle, domain.Circle, domain.Empty,
		domain.Cross, domain.Cross, domain.Empty,
		domain.Cross, domain.Empty, domain.Empty,
	}
	cell, err := e.SelectMove(b, domain.Cross, domain.Circle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cell != 2 {
		t.Fatalf("expected winning cell 2, got %d", cell)
	}
}

func TestBlocksHumanThreat(t *testing.T) {
	e := newTestEngine(3)
	// X X _ / _ O _ / _ _ _ with Circle (computer) to move.
	b := domain.Board{
		domain.Cross, domain.Cross, domain.Empty,
		domain.Empty, domain.Circle, domain.Empty,
		domain.Empty, domain.Empty, domain.Empty,
	}
	cell, err := e.SelectMove(b, domain.Cross, domain.Circle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cell != 2 {
		t.Fatalf("expected block at 2, got %d", cell)
	}
}

// play runs a game where the engine owns computer and opponent picks every
// human move; it reports the final result for each branch.
func play(t *testing.T, e *Engine, r domain.Round, computer domain.Mark, report func(domain.Result)) {
	t.Helper()
	if r.Over() {
		report(r.Result)
		return
	}
	if r.Turn == computer {
		cell, err := e.SelectMove(r.Board, computer.Opponent(), computer)
		if err != nil {
			t.Fatalf("board %v: %v", r.Board, err)
		}
		if _, err := r.Play(cell); err != nil {
			t.Fatalf("board %v: engine move %d rejected: %v", r.Board, cell, err)
		}
		play(t, e, r, computer, report)
		return
	}
	for _, c := range r.Board.Available() {
		next := r
		if _, err := next.Play(c); err != nil {
			t.Fatalf("opponent move %d rejected: %v", c, err)
		}
		play(t, e, next, computer, report)
	}
}

func TestNeverLosesAgainstAnyOpponent(t *testing.T) {
	e := newTestEngine(4)
	check := func(computer domain.Mark) func(domain.Result) {
		return func(res domain.Result) {
			if res.Outcome == domain.Win && res.Winner != computer {
				t.Fatalf("engine playing %v lost: %+v", computer, res)
			}
		}
	}

	// Computer as Circle: the opponent tries every line from the empty board.
	play(t, e, domain.NewRound(), domain.Circle, check(domain.Circle))

	// Computer as Cross: cover every possible random opening.
	for open := 0; open < domain.Cells; open++ {
		r := domain.NewRound()
		if _, err := r.Play(open); err != nil {
			t.Fatalf("opening %d: %v", open, err)
		}
		play(t, e, r, domain.Cross, check(domain.Cross))
	}
}

func TestSelfPlayEndsInTie(t *testing.T) {
	e := newTestEngine(5)
	for game := 0; game < 20; game++ {
		r := domain.NewRound()
		for !r.Over() {
			cell, err := e.SelectMove(r.Board, r.Turn.Opponent(), r.Turn)
			if err != nil {
				t.Fatalf("game %d: %v", game, err)
			}
			if _, err := r.Play(cell); err != nil {
				t.Fatalf("game %d: move %d rejected: %v", game, cell, err)
			}
		}
		if r.Result.Outcome != domain.Tie {
			t.Fatalf("game %d: expected tie between optimal players, got %+v", game, r.Result)
		}
	}
}

func TestOpeningMoveIsUniform(t *testing.T) {
	e := newTestEngine(6)
	const trials = 9000
	var counts [domain.Cells]int
	for i := 0; i < trials; i++ {
		cell, err := e.SelectMove(domain.Board{}, domain.Circle, domain.Cross)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !domain.InRange(cell) {
			t.Fatalf("opening %d out of range", cell)
		}
		counts[cell]++
	}
	expected := trials / domain.Cells
	for c, n := range counts {
		// expected 1000 per cell, standard deviation about 31
		if n < expected-200 || n > expected+200 {
			t.Fatalf("cell %d chosen %d times out of %d; counts=%v", c, n, trials, counts)
		}
	}
}

func TestContractViolations(t *testing.T) {
	e := newTestEngine(7)
	full := domain.Board{
		domain.Cross, domain.Circle, domain.Cross,
		domain.Cross, domain.Circle, domain.Circle,
		domain.Circle, domain.Cross, domain.Cross,
	}
	if _, err := e.SelectMove(full, domain.Cross, domain.Circle); !errors.Is(err, ErrNoMoves) {
		t.Fatalf("expected ErrNoMoves on full board, got %v", err)
	}

	bad := domain.Board{4: domain.Mark(9)}
	if _, err := e.SelectMove(bad, domain.Cross, domain.Circle); !errors.Is(err, ErrMalformedBoard) {
		t.Fatalf("expected ErrMalformedBoard on invalid mark, got %v", err)
	}
	if _, err := e.SelectMove(domain.Board{}, domain.Cross, domain.Cross); !errors.Is(err, ErrMalformedBoard) {
		t.Fatalf("expected ErrMalformedBoard for equal players, got %v", err)
	}
	if _, err := e.SelectMove(domain.Board{}, domain.Empty, domain.Cross); !errors.Is(err, ErrMalformedBoard) {
		t.Fatalf("expected ErrMalformedBoard for empty player, got %v", err)
	}
	short := make([]domain.Mark, 8)
	if _, err := e.SelectMoveSlice(short, domain.Cross, domain.Circle); !errors.Is(err, ErrMalformedBoard) {
		t.Fatalf("expected ErrMalformedBoard for 8 cells, got %v", err)
	}
}

func TestSearchCountsNodes(t *testing.T) {
	e := newTestEngine(8)
	_, st, err := e.Search(domain.Board{4: domain.Cross}, domain.Cross, domain.Circle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Nodes == 0 {
		t.Fatalf("expected nodes to be counted")
	}
}
