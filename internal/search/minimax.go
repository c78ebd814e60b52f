// Package search picks the computer's move with an exhaustive minimax search.
package search

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jaminalder/tictactoe-cpu/internal/domain"
)

// Terminal scores from the computer's point of view. No depth discount is
// applied, so a slow win scores the same as a fast one.
const (
	WinScore  = 10
	LossScore = -10
	DrawScore = 0
)

// Errors returned when the engine is called outside its contract.
var (
	ErrNoMoves        = errors.New("no legal move")
	ErrMalformedBoard = errors.New("malformed board")
)

// Stats captures the cost of a search.
type Stats struct {
	Nodes    int
	Duration time.Duration
}

// Engine selects moves. It is safe for concurrent use.
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand
	log *slog.Logger
}

// New returns an engine drawing opening moves from rng. A nil rng is seeded
// from the runtime source; a nil logger discards output.
func New(rng *rand.Rand, logger *slog.Logger) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{rng: rng, log: logger}
}

// SelectMove returns the cell the computer should play.
func (e *Engine) SelectMove(b domain.Board, human, computer domain.Mark) (int, error) {
	cell, _, err := e.Search(b, human, computer)
	return cell, err
}

// SelectMoveSlice is SelectMove for callers holding the board as a slice.
func (e *Engine) SelectMoveSlice(cells []domain.Mark, human, computer domain.Mark) (int, error) {
	if len(cells) != domain.Cells {
		return -1, fmt.Errorf("%w: %d cells, want %d", ErrMalformedBoard, len(cells), domain.Cells)
	}
	var b domain.Board
	copy(b[:], cells)
	return e.SelectMove(b, human, computer)
}

// Search is SelectMove plus the search statistics.
func (e *Engine) Search(b domain.Board, human, computer domain.Mark) (int, Stats, error) {
	if err := checkInput(b, human, computer); err != nil {
		return -1, Stats{}, err
	}
	start := time.Now()

	// Every opening is equivalent; skip the full tree.
	if b.Count() == 0 {
		e.mu.Lock()
		cell := e.rng.IntN(domain.Cells)
		e.mu.Unlock()
		st := Stats{Duration: time.Since(start)}
		e.log.Debug("search opening", "cell", cell)
		return cell, st, nil
	}

	s := searcher{human: human, computer: computer}
	scores := s.rootScores(b)
	cell, best := pickBest(b, scores)
	st := Stats{Nodes: s.nodes, Duration: time.Since(start)}
	e.log.Debug("search", "cell", cell, "score", best, "nodes", st.Nodes, "dur", st.Duration)
	return cell, st, nil
}

func checkInput(b domain.Board, human, computer domain.Mark) error {
	if !human.Valid() || !computer.Valid() || human == computer {
		return fmt.Errorf("%w: players %d and %d", ErrMalformedBoard, human, computer)
	}
	if err := b.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBoard, err)
	}
	if b.Count() == domain.Cells {
		return ErrNoMoves
	}
	return nil
}

// pickBest returns the lowest available cell holding the maximal score.
func pickBest(b domain.Board, scores [domain.Cells]int) (int, int) {
	cell, best := -1, math.MinInt
	for _, c := range b.Available() {
		if scores[c] > best {
			cell, best = c, scores[c]
		}
	}
	return cell, best
}

type searcher struct {
	human    domain.Mark
	computer domain.Mark
	nodes    int
}

// rootScores scores each available cell as a computer move. Occupied cells
// are left at zero and never picked.
func (s *searcher) rootScores(b domain.Board) [domain.Cells]int {
	var out [domain.Cells]int
	for _, c := range b.Available() {
		next := b
		next[c] = s.computer
		out[c] = s.minimax(next, s.human)
	}
	return out
}

// minimax works on its own copy of the board; branches never share state.
func (s *searcher) minimax(b domain.Board, toMove domain.Mark) int {
	s.nodes++
	if b.HasWin(s.human) {
		return LossScore
	}
	if b.HasWin(s.computer) {
		return WinScore
	}
	avail := b.Available()
	if len(avail) == 0 {
		return DrawScore
	}

	maximize := toMove == s.computer
	best := math.MaxInt
	if maximize {
		best = math.MinInt
	}
	for _, c := range avail {
		next := b
		next[c] = toMove
		score := s.minimax(next, toMove.Opponent())
		if (maximize && score > best) || (!maximize && score < best) {
			best = score
		}
	}
	return best
}
