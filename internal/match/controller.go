// Package match drives a human against the computer: turn order, outcome
// evaluation, the cumulative score and the end-of-round sequence.
//
// A Controller is not safe for concurrent use. Every call, including the
// tasks it hands to its Scheduler, must run on one event loop.
package match

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jaminalder/tictactoe-cpu/internal/domain"
	"github.com/jaminalder/tictactoe-cpu/internal/schedule"
	"github.com/jaminalder/tictactoe-cpu/internal/search"
)

// State is the controller's position in a round.
type State uint8

const (
	Idle State = iota
	AwaitingHumanMove
	ComputerThinking
	RoundOver
)

func (s State) String() string {
	switch s {
	case AwaitingHumanMove:
		return "awaiting-human"
	case ComputerThinking:
		return "computer-thinking"
	case RoundOver:
		return "round-over"
	default:
		return "idle"
	}
}

// Presenter is the display the controller drives.
type Presenter interface {
	RenderMark(cell int, mark domain.Mark)
	HighlightCells(cells []int)
	SetCellsAvailable(cells []int, available bool)
	ShowRoundMessage(text string)
	ClearRoundMessage()
	UpdateScoreDisplay(human, computer int)
	// ClearBoard removes marks and highlights before a new round.
	ClearBoard()
	// ShowMenu returns the display to side selection.
	ShowMenu()
}

// Mover picks the computer's cell.
type Mover interface {
	SelectMove(b domain.Board, human, computer domain.Mark) (int, error)
}

// End-of-round messages.
const (
	MsgHumanWon       = "You won! (how, tho'?)"
	MsgHumanLost      = "You lost :("
	MsgTie            = "It's a tie!"
	MsgComputerFailed = "The computer could not move"
)

// Options tune the round pacing.
type Options struct {
	// ComputerDelay defers the search; zero still waits for the next loop turn.
	ComputerDelay time.Duration
	// MessageDelay is how long the end-of-round message stays up.
	MessageDelay time.Duration
	// AutoAdvance starts the next round when the message is cleared.
	AutoAdvance bool
}

// DefaultOptions matches the browser game: one second message, then the
// next round starts by itself.
func DefaultOptions() Options {
	return Options{MessageDelay: time.Second, AutoAdvance: true}
}

// Scores is the cumulative tally of a match.
type Scores struct {
	Human    int
	Computer int
}

// ErrInvalidSide is returned when a round is started without a player mark.
var ErrInvalidSide = errors.New("invalid side")

var allCells = []int{0, 1, 2, 3, 4, 5, 6, 7, 8}

// Controller owns the board and score for one match.
type Controller struct {
	view  Presenter
	sched schedule.Scheduler
	mover Mover
	opts  Options
	log   *slog.Logger

	state    State
	round    domain.Round
	human    domain.Mark
	scores   Scores
	credited bool
	// failed marks a round abandoned by the computer; it is not auto-advanced.
	failed   bool

	computerTask schedule.Handle
	messageTask  schedule.Handle
}

// New wires a controller. A nil logger discards output.
func New(view Presenter, sched schedule.Scheduler, mover Mover, opts Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		view:  view,
		sched: sched,
		mover: mover,
		opts:  opts,
		log:   logger,
		round: domain.NewRound(),
	}
}

func (c *Controller) State() State              { return c.state }
func (c *Controller) Scores() Scores            { return c.scores }
func (c *Controller) Board() domain.Board       { return c.round.Board }
func (c *Controller) Turn() domain.Mark         { return c.round.Turn }
func (c *Controller) HumanMark() domain.Mark    { return c.human }
func (c *Controller) Result() domain.Result     { return c.round.Result }
func (c *Controller) ComputerMark() domain.Mark { return c.human.Opponent() }

// StartRound begins a round with the human playing mark. Any round in
// progress is abandoned without changing the score.
func (c *Controller) StartRound(mark domain.Mark) error {
	if !mark.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidSide, mark)
	}
	c.human = mark
	c.log.Info("round start", "human", mark.String())
	c.beginRound()
	return nil
}

// HandleCellSelected applies the human's move. Selections that are out of
// turn, out of range or on a taken cell are ignored.
func (c *Controller) HandleCellSelected(cell int) {
	if c.state != AwaitingHumanMove || c.round.Turn != c.human {
		c.log.Debug("cell ignored", "cell", cell, "state", c.state.String())
		return
	}
	if !domain.InRange(cell) || c.round.Board[cell] != domain.Empty {
		c.log.Debug("cell ignored", "cell", cell, "reason", "unavailable")
		return
	}
	c.apply(cell, c.human)
}

// PlayAgain leaves RoundOver: the winner is credited and a fresh round
// starts. It reports false in any other state.
func (c *Controller) PlayAgain() bool {
	if c.state != RoundOver {
		return false
	}
	c.cancelTimers()
	c.creditRound()
	c.beginRound()
	return true
}

// RequestReset stops whatever is pending. With clearScores the match ends
// and the display returns to the menu; otherwise a fresh round starts with
// the same sides and the tally untouched. The interrupted round is never
// credited.
func (c *Controller) RequestReset(clearScores bool) {
	c.cancelTimers()
	if clearScores {
		c.scores = Scores{}
		c.credited = true
		c.round = domain.NewRound()
		c.state = Idle
		c.view.UpdateScoreDisplay(0, 0)
		c.view.ClearBoard()
		c.view.SetCellsAvailable(allCells, false)
		c.view.ShowMenu()
		c.log.Info("match reset")
		return
	}
	if c.state == Idle {
		return
	}
	c.beginRound()
}

func (c *Controller) beginRound() {
	c.cancelTimers()
	c.round = domain.NewRound()
	c.credited = false
	c.failed = false
	c.view.ClearBoard()
	c.view.SetCellsAvailable(allCells, true)
	c.view.UpdateScoreDisplay(c.scores.Human, c.scores.Computer)
	c.enterTurn()
}

func (c *Controller) enterTurn() {
	if c.round.Turn == c.human {
		c.state = AwaitingHumanMove
		return
	}
	c.state = ComputerThinking
	if c.computerTask != nil {
		return
	}
	c.computerTask = c.sched.After(c.opts.ComputerDelay, c.computerMove)
}

func (c *Controller) computerMove() {
	c.computerTask = nil
	computer := c.human.Opponent()
	cell, err := c.mover.SelectMove(c.round.Board, c.human, computer)
	if errors.Is(err, search.ErrNoMoves) || errors.Is(err, search.ErrMalformedBoard) {
		panic(fmt.Errorf("match: search called outside its contract: %w", err))
	}
	if err == nil && (!domain.InRange(cell) || c.round.Board[cell] != domain.Empty) {
		err = fmt.Errorf("unusable cell %d", cell)
	}
	if err != nil {
		c.abandonRound(err)
		return
	}
	c.apply(cell, computer)
}

func (c *Controller) apply(cell int, mark domain.Mark) {
	res, err := c.round.Play(cell)
	if err != nil {
		c.log.Error("move rejected", "cell", cell, "mark", mark.String(), "err", err)
		return
	}
	c.view.RenderMark(cell, mark)
	c.view.SetCellsAvailable([]int{cell}, false)
	if res.Terminal() {
		c.finishRound(res)
		return
	}
	c.enterTurn()
}

func (c *Controller) finishRound(res domain.Result) {
	c.state = RoundOver
	c.view.SetCellsAvailable(c.round.Board.Available(), false)

	msg := MsgTie
	if res.Outcome == domain.Win {
		c.view.HighlightCells(res.Line[:])
		if res.Winner == c.human {
			msg = MsgHumanWon
		} else {
			msg = MsgHumanLost
		}
	}
	c.log.Info("round over", "outcome", res.Outcome.String(), "winner", res.Winner.String(), "moves", c.round.Moves)
	c.showMessage(msg)
}

// abandonRound ends a round the computer could not continue. Nobody is
// credited, and the match waits for PlayAgain even with AutoAdvance on.
func (c *Controller) abandonRound(err error) {
	c.log.Error("computer move failed", "err", err, "board", c.round.Board)
	c.state = RoundOver
	c.credited = true
	c.failed = true
	c.view.SetCellsAvailable(c.round.Board.Available(), false)
	c.showMessage(MsgComputerFailed)
}

func (c *Controller) showMessage(msg string) {
	c.view.ShowRoundMessage(msg)
	c.messageTask = c.sched.After(c.opts.MessageDelay, c.messageElapsed)
}

func (c *Controller) messageElapsed() {
	c.messageTask = nil
	c.view.ClearRoundMessage()
	if c.opts.AutoAdvance && !c.failed {
		c.PlayAgain()
	}
}

func (c *Controller) creditRound() {
	if c.credited {
		return
	}
	c.credited = true
	res := c.round.Result
	if res.Outcome != domain.Win {
		return
	}
	if res.Winner == c.human {
		c.scores.Human++
	} else {
		c.scores.Computer++
	}
	c.log.Info("score", "human", c.scores.Human, "computer", c.scores.Computer)
	c.view.UpdateScoreDisplay(c.scores.Human, c.scores.Computer)
}

func (c *Controller) cancelTimers() {
	if c.computerTask != nil {
		c.computerTask.Cancel()
		c.computerTask = nil
	}
	if c.messageTask != nil {
		c.messageTask.Cancel()
		c.messageTask = nil
		c.view.ClearRoundMessage()
	}
}
