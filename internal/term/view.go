// Package term plays the match in a terminal through tcell.
package term

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/jaminalder/tictactoe-cpu/internal/domain"
)

var (
	styleText      = tcell.StyleDefault
	styleTitle     = tcell.StyleDefault.Bold(true)
	styleHint      = tcell.StyleDefault.Dim(true)
	styleHighlight = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow).Bold(true)
	styleMessage   = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
)

// Screen layout, in cells from the top-left corner.
const (
	originX    = 2
	boardY     = 2
	cellWidth  = 4
	messageY   = boardY + 6
	helpY      = messageY + 2
	scoreLabel = "You %d : %d CPU"
)

// View is a match.Presenter drawing on a tcell screen. It must only be used
// from the loop goroutine that owns the match.
type View struct {
	screen    tcell.Screen
	board     domain.Board
	highlight [domain.Cells]bool
	available [domain.Cells]bool
	message   string
	human     int
	computer  int
	side      domain.Mark
	menu      bool
}

// NewView returns a view showing the side menu.
func NewView(screen tcell.Screen) *View {
	v := &View{screen: screen, menu: true}
	v.draw()
	return v
}

func (v *View) RenderMark(cell int, mark domain.Mark) {
	v.board[cell] = mark
	v.draw()
}

func (v *View) HighlightCells(cells []int) {
	for _, c := range cells {
		v.highlight[c] = true
	}
	v.draw()
}

func (v *View) SetCellsAvailable(cells []int, available bool) {
	for _, c := range cells {
		v.available[c] = available
	}
	v.draw()
}

func (v *View) ShowRoundMessage(text string) {
	v.message = text
	v.draw()
}

func (v *View) ClearRoundMessage() {
	v.message = ""
	v.draw()
}

func (v *View) UpdateScoreDisplay(human, computer int) {
	v.human, v.computer = human, computer
	v.draw()
}

func (v *View) ClearBoard() {
	v.board = domain.Board{}
	v.highlight = [domain.Cells]bool{}
	v.draw()
}

func (v *View) ShowMenu() {
	v.menu = true
	v.side = domain.Empty
	v.draw()
}

func (v *View) play(side domain.Mark) {
	v.menu = false
	v.side = side
	v.draw()
}

// Redraw repaints everything, e.g. after a resize.
func (v *View) Redraw() {
	v.screen.Sync()
	v.draw()
}

func (v *View) draw() {
	s := v.screen
	s.Clear()
	putString(s, originX, 0, styleTitle, "Tic-tac-toe")
	putString(s, originX+14, 0, styleText, fmt.Sprintf(scoreLabel, v.human, v.computer))

	if v.menu {
		putString(s, originX, boardY, styleText, "Play as...")
		putString(s, originX, boardY+1, styleText, "[x] Cross  [o] Circle")
		putString(s, originX, helpY, styleHint, "q quit")
		s.Show()
		return
	}

	for row := 0; row < 3; row++ {
		y := boardY + row*2
		for col := 0; col < 3; col++ {
			i := row*3 + col
			x := originX + col*cellWidth
			label, st := v.cellLabel(i)
			putString(s, x, y, st, label)
			if col < 2 {
				putString(s, x+3, y, styleText, "|")
			}
		}
		if row < 2 {
			putString(s, originX, y+1, styleText, "---+---+---")
		}
	}
	putString(s, originX+16, boardY, styleText, "You are "+v.side.String())
	if v.message != "" {
		putString(s, originX, messageY, styleMessage, v.message)
	}
	putString(s, originX, helpY, styleHint, "1-9 move  n again  r menu  q quit")
	s.Show()
}

func (v *View) cellLabel(i int) (string, tcell.Style) {
	switch {
	case v.board[i] != domain.Empty && v.highlight[i]:
		return " " + v.board[i].String() + " ", styleHighlight
	case v.board[i] != domain.Empty:
		return " " + v.board[i].String() + " ", styleText
	case v.available[i]:
		return fmt.Sprintf(" %d ", i+1), styleHint
	}
	return "   ", styleText
}

func putString(s tcell.Screen, x, y int, st tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, st)
		x++
	}
}
