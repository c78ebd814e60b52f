package domain

// Line is a triple of cells that wins when one mark holds all three.
type Line [3]int

// WinLines lists rows, columns and diagonals in a fixed order.
var WinLines = [8]Line{
	// rows
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	// cols
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	// diags
	{0, 4, 8}, {2, 4, 6},
}

// linesThrough[c] holds the WinLines containing cell c, in WinLines order.
var linesThrough = func() [Cells][]Line {
	var out [Cells][]Line
	for _, ln := range WinLines {
		for _, c := range ln {
			out[c] = append(out[c], ln)
		}
	}
	return out
}()

// Outcome classifies a round.
type Outcome uint8

const (
	Running Outcome = iota
	Win
	Tie
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Tie:
		return "tie"
	default:
		return "running"
	}
}

// Result is an Outcome plus, for Win, the winner and the completed line.
type Result struct {
	Outcome Outcome
	Winner  Mark
	Line    Line
}

// Terminal reports whether no further moves are allowed.
func (r Result) Terminal() bool { return r.Outcome == Win || r.Outcome == Tie }

// minMarksForWin is the fewest marks on a 3x3 board that can contain a line.
const minMarksForWin = 5

// Evaluate classifies b right after lastMover played lastCell, with placed
// marks on the board. Any newly completed line passes through lastCell, so
// only those lines are checked.
func Evaluate(b Board, lastMover Mark, lastCell, placed int) Result {
	if placed < minMarksForWin {
		return Result{Outcome: Running}
	}
	if InRange(lastCell) {
		for _, ln := range linesThrough[lastCell] {
			if b[ln[0]] == lastMover && b[ln[1]] == lastMover && b[ln[2]] == lastMover {
				return Result{Outcome: Win, Winner: lastMover, Line: ln}
			}
		}
	}
	if placed >= Cells {
		return Result{Outcome: Tie}
	}
	return Result{Outcome: Running}
}

// EvaluateFull checks all eight lines for both marks without shortcuts.
func EvaluateFull(b Board) Result {
	for _, ln := range WinLines {
		m := b[ln[0]]
		if m != Empty && b[ln[1]] == m && b[ln[2]] == m {
			return Result{Outcome: Win, Winner: m, Line: ln}
		}
	}
	if b.Count() == Cells {
		return Result{Outcome: Tie}
	}
	return Result{Outcome: Running}
}
