package domain

import (
	"errors"
	"testing"
)

// helper to apply a sequence of moves
func playMoves(t *testing.T, r *Round, cells []int) {
	t.Helper()
	for i, c := range cells {
		if _, err := r.Play(c); err != nil {
			t.Fatalf("move %d (cell %d) failed: %v", i, c, err)
		}
	}
}

func TestNewRoundInitialState(t *testing.T) {
	r := NewRound()
	if r.Turn != Cross {
		t.Fatalf("expected Cross to move first, got %v", r.Turn)
	}
	if r.Moves != 0 {
		t.Fatalf("expected 0 moves, got %d", r.Moves)
	}
	if r.Over() {
		t.Fatalf("expected round not over")
	}
	for i, c := range r.Board {
		if c != Empty {
			t.Fatalf("expected empty board, cell %d = %v", i, c)
		}
	}
}

func TestPlayOutOfBounds(t *testing.T) {
	r := NewRound()
	for _, c := range []int{-1, 9, 42} {
		if _, err := r.Play(c); !errors.Is(err, ErrOutOfBounds) {
			t.Fatalf("expected ErrOutOfBounds for %d, got %v", c, err)
		}
	}
}

func TestPlayOccupied(t *testing.T) {
	r := NewRound()
	if _, err := r.Play(0); err != nil {
		t.Fatalf("first move failed: %v", err)
	}
	if _, err := r.Play(0); !errors.Is(err, ErrOccupied) {
		t.Fatalf("expected ErrOccupied on same cell, got %v", err)
	}
	if r.Moves != 1 || r.Turn != Circle {
		t.Fatalf("rejected move must not change state: moves=%d turn=%v", r.Moves, r.Turn)
	}
}

func TestCenterOpeningKeepsRunning(t *testing.T) {
	r := NewRound()
	res, err := r.Play(4)
	if err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if res.Outcome != Running {
		t.Fatalf("expected running, got %v", res.Outcome)
	}
	if r.Turn != Circle {
		t.Fatalf("expected turn to pass to Circle, got %v", r.Turn)
	}
}

func TestWinOnEveryLine(t *testing.T) {
	for _, line := range WinLines {
		for _, winner := range []Mark{Cross, Circle} {
			r := NewRound()
			var fillers []int
			for c := 0; c < Cells; c++ {
				if c != line[0] && c != line[1] && c != line[2] {
					fillers = append(fillers, c)
				}
			}
			var seq []int
			if winner == Cross {
				seq = []int{line[0], fillers[0], line[1], fillers[len(fillers)-1], line[2]}
			} else {
				seq = []int{fillers[0], line[0], fillers[len(fillers)-1], line[1], fillers[2], line[2]}
			}
			var res Result
			for _, c := range seq {
				var err error
				if res, err = r.Play(c); err != nil {
					t.Fatalf("line %v winner %v: move %d failed: %v", line, winner, c, err)
				}
			}
			if res.Outcome != Win || res.Winner != winner || res.Line != line {
				t.Fatalf("expected %v to win on %v, got %+v", winner, line, res)
			}
		}
	}
}

func TestWinScenarioTopRow(t *testing.T) {
	r := NewRound()
	playMoves(t, &r, []int{0, 3, 1, 4})
	res, err := r.Play(2)
	if err != nil {
		t.Fatalf("winning move failed: %v", err)
	}
	if res.Outcome != Win || res.Winner != Cross || res.Line != (Line{0, 1, 2}) {
		t.Fatalf("expected Cross win on [0 1 2], got %+v", res)
	}
}

func TestDrawNoWinner(t *testing.T) {
	r := NewRound()
	// X O X / X O O / O X X
	playMoves(t, &r, []int{0, 1, 2, 4, 3, 5, 7, 6, 8})
	if r.Result.Outcome != Tie {
		t.Fatalf("expected tie, got %+v", r.Result)
	}
	if r.Moves != 9 {
		t.Fatalf("expected 9 moves on draw, got %d", r.Moves)
	}
}

func TestGameOverBlocksFurtherMoves(t *testing.T) {
	r := NewRound()
	playMoves(t, &r, []int{0, 3, 1, 4, 2})
	if !r.Over() || r.Result.Winner != Cross {
		t.Fatalf("expected Cross win before extra move")
	}
	if _, err := r.Play(8); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
}

func TestParseMark(t *testing.T) {
	cases := map[string]Mark{"x": Cross, "X": Cross, "cross": Cross, " o ": Circle, "Circle": Circle}
	for in, want := range cases {
		got, err := ParseMark(in)
		if err != nil || got != want {
			t.Fatalf("ParseMark(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseMark("z"); !errors.Is(err, ErrInvalidMark) {
		t.Fatalf("expected ErrInvalidMark, got %v", err)
	}
}

func TestValidateRejectsUnknownMarks(t *testing.T) {
	var b Board
	b[5] = Mark(7)
	if err := b.Validate(); !errors.Is(err, ErrInvalidMark) {
		t.Fatalf("expected ErrInvalidMark, got %v", err)
	}
}
