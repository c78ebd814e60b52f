package term

import (
	"context"
	"io"
	"log/slog"

	"github.com/gdamore/tcell/v2"
	"github.com/jaminalder/tictactoe-cpu/internal/domain"
	"github.com/jaminalder/tictactoe-cpu/internal/match"
	"github.com/jaminalder/tictactoe-cpu/internal/schedule"
)

// Action is what a key asks the match to do.
type Action int

const (
	ActNone Action = iota
	ActSide
	ActCell
	ActAgain
	ActMenu
	ActQuit
)

// Command is a decoded key press.
type Command struct {
	Action Action
	Cell   int
	Mark   domain.Mark
}

// KeyCommand decodes a key: x/o pick a side, 1-9 pick a cell in reading
// order, n plays again, r returns to the menu and q, Esc or Ctrl-C quit.
func KeyCommand(ev *tcell.EventKey) Command {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return Command{Action: ActQuit}
	case tcell.KeyRune:
	default:
		return Command{}
	}
	r := ev.Rune()
	switch {
	case r >= '1' && r <= '9':
		return Command{Action: ActCell, Cell: int(r - '1')}
	case r == 'x' || r == 'X':
		return Command{Action: ActSide, Mark: domain.Cross}
	case r == 'o' || r == 'O':
		return Command{Action: ActSide, Mark: domain.Circle}
	case r == 'n' || r == 'N':
		return Command{Action: ActAgain}
	case r == 'r' || r == 'R':
		return Command{Action: ActMenu}
	case r == 'q' || r == 'Q':
		return Command{Action: ActQuit}
	}
	return Command{}
}

// App runs one match on a screen. The caller owns Init and Fini.
type App struct {
	screen tcell.Screen
	loop   *schedule.Loop
	view   *View
	ctrl   *match.Controller
	log    *slog.Logger
}

// NewApp wires a controller to screen. A nil logger discards output.
func NewApp(screen tcell.Screen, mover match.Mover, opts match.Options, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	a := &App{
		screen: screen,
		loop:   schedule.NewLoop(logger),
		log:    logger,
	}
	_ = a.loop.Do(context.Background(), func() {
		a.view = NewView(screen)
		a.ctrl = match.New(a.view, a.loop, mover, opts, logger)
	})
	return a
}

// Run reads keys until the player quits or ctx ends.
func (a *App) Run(ctx context.Context) error {
	defer a.loop.Stop()
	stop := context.AfterFunc(ctx, func() {
		_ = a.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
	defer stop()

	for {
		ev := a.screen.PollEvent()
		switch ev := ev.(type) {
		case nil:
			return nil
		case *tcell.EventInterrupt:
			if err := ctx.Err(); err != nil {
				return err
			}
		case *tcell.EventResize:
			_ = a.loop.Post(a.view.Redraw)
		case *tcell.EventKey:
			cmd := KeyCommand(ev)
			if cmd.Action == ActQuit {
				a.log.Info("quit")
				return nil
			}
			if cmd.Action == ActNone {
				continue
			}
			if err := a.loop.Post(func() { a.apply(cmd) }); err != nil {
				return err
			}
		}
	}
}

func (a *App) apply(cmd Command) {
	switch cmd.Action {
	case ActSide:
		if a.ctrl.State() != match.Idle {
			return
		}
		if err := a.ctrl.StartRound(cmd.Mark); err != nil {
			a.log.Error("start round", "err", err)
			return
		}
		a.view.play(cmd.Mark)
	case ActCell:
		a.ctrl.HandleCellSelected(cmd.Cell)
	case ActAgain:
		a.ctrl.PlayAgain()
	case ActMenu:
		a.ctrl.RequestReset(true)
	}
}
