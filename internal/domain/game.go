package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Mark is what a cell holds: nothing, a cross or a circle.
type Mark uint8

const (
	Empty Mark = iota
	Cross
	Circle
)

func (m Mark) String() string {
	switch m {
	case Cross:
		return "X"
	case Circle:
		return "O"
	default:
		return ""
	}
}

// Valid reports whether m is a player mark.
func (m Mark) Valid() bool { return m == Cross || m == Circle }

// Opponent returns the other player's mark. Empty maps to Empty.
func (m Mark) Opponent() Mark {
	switch m {
	case Cross:
		return Circle
	case Circle:
		return Cross
	default:
		return Empty
	}
}

// ParseMark accepts "x"/"cross" and "o"/"circle" in any case.
func ParseMark(s string) (Mark, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x", "cross":
		return Cross, nil
	case "o", "circle":
		return Circle, nil
	}
	return Empty, fmt.Errorf("%w: %q", ErrInvalidMark, s)
}

// Cells is the number of cells on the board.
const Cells = 9

// Board is a fixed 3x3 board stored row-major.
type Board [Cells]Mark

// Errors returned by domain operations.
var (
	ErrOutOfBounds = errors.New("out of bounds")
	ErrOccupied    = errors.New("cell occupied")
	ErrGameOver    = errors.New("game over")
	ErrInvalidMark = errors.New("invalid mark")
)

// InRange reports whether cell is a board index.
func InRange(cell int) bool { return cell >= 0 && cell < Cells }

// Available lists empty cells in ascending order.
func (b Board) Available() []int {
	out := make([]int, 0, Cells)
	for i, m := range b {
		if m == Empty {
			out = append(out, i)
		}
	}
	return out
}

// Count returns the number of marks placed.
func (b Board) Count() int {
	n := 0
	for _, m := range b {
		if m != Empty {
			n++
		}
	}
	return n
}

// Validate rejects boards holding values outside the Mark enum.
func (b Board) Validate() error {
	for i, m := range b {
		if m != Empty && !m.Valid() {
			return fmt.Errorf("%w: cell %d holds %d", ErrInvalidMark, i, m)
		}
	}
	return nil
}

// HasWin reports whether side owns any full line.
func (b Board) HasWin(side Mark) bool {
	for _, ln := range WinLines {
		if b[ln[0]] == side && b[ln[1]] == side && b[ln[2]] == side {
			return true
		}
	}
	return false
}

// Round holds the state of a single round. Cross always moves first.
type Round struct {
	Board  Board
	Turn   Mark
	Moves  int
	Result Result
}

// NewRound returns an empty round with Cross to move.
func NewRound() Round {
	return Round{Turn: Cross}
}

// Over reports whether the round reached a terminal outcome.
func (r *Round) Over() bool { return r.Result.Terminal() }

// Play places the current mover's mark on cell and evaluates the outcome.
// The turn only passes when the round keeps running.
func (r *Round) Play(cell int) (Result, error) {
	if r.Over() {
		return r.Result, ErrGameOver
	}
	if !InRange(cell) {
		return r.Result, ErrOutOfBounds
	}
	if r.Board[cell] != Empty {
		return r.Result, ErrOccupied
	}

	mover := r.Turn
	r.Board[cell] = mover
	r.Moves++

	r.Result = Evaluate(r.Board, mover, cell, r.Moves)
	if r.Result.Outcome == Running {
		r.Turn = mover.Opponent()
	}
	return r.Result, nil
}
