package web

import (
	"bytes"
	"html/template"

	"github.com/jaminalder/tictactoe-cpu/internal/app"
	"github.com/jaminalder/tictactoe-cpu/internal/domain"
)

type templates struct {
	base  *template.Template
	game  *template.Template
	board *template.Template
	index *template.Template
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"iter": func(n int) []int {
			a := make([]int, n)
			for i := range a {
				a[i] = i
			}
			return a
		},
		"cellSymbol": func(m domain.Mark) string { return m.String() },
		"add":        func(a, b int) int { return a + b },
		"mul":        func(a, b int) int { return a * b },
	}
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Funcs(funcs()).Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<title>Tic-tac-toe</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org@1.9.12/dist/ext/sse.js"></script>
<style>
.row{display:flex}.cell{width:4em;height:4em;font-size:2em}
.highlight{background:#ffe08a}.popup{font-weight:bold}.scores span{font-size:1.5em}
</style>
</head><body>{{template "content" .}}</body></html>`))
	// Define the board template within the same set so game can include it
	template.Must(base.New("board").Funcs(funcs()).Parse(boardTemplate))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(menuTemplate))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<div hx-ext="sse" sse-connect="/game/{{.ID}}/events">
  <div id="board-slot" sse-swap="board" hx-swap="innerHTML">{{template "board" .}}</div>
</div>`))
	// Standalone board template used for fragment rendering
	board := template.Must(template.New("board_only").Funcs(funcs()).Parse(boardTemplate))
	return &templates{base: base, game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
	var buf bytes.Buffer
	if name == "" {
		_ = t.Execute(&buf, data)
	} else {
		_ = t.ExecuteTemplate(&buf, name, data)
	}
	return buf.Bytes()
}

// boardData feeds the board template.
type boardData struct {
	ID    string
	Snap  app.Snapshot
	Error string
}

const menuTemplate = `<h1>Tic-tac-toe</h1>
<div class="menu popup">
  <p>Play as...</p>
  <form action="/game" method="post">
    <button name="mark" value="x" class="cross-btn">X</button>
    <button name="mark" value="o" class="circle-btn">O</button>
  </form>
</div>`

const boardTemplate = `
<div id="board">
  <div class="scores">
    <span id="player-tally">{{.Snap.HumanScore}}</span> You
    &middot; CPU <span id="cpu-tally">{{.Snap.ComputerScore}}</span>
  </div>
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  {{if .Snap.InMenu}}
  <div class="menu popup">
    <p>Play as...</p>
    <form hx-post="/game/{{.ID}}/start" hx-target="#board" hx-swap="outerHTML" method="post">
      <button name="mark" value="x" class="cross-btn">X</button>
      <button name="mark" value="o" class="circle-btn">O</button>
    </form>
  </div>
  {{else}}
  {{/* 3x3 grid */}}
  {{range $r := iter 3}}
  <div class="row">
    {{range $c := iter 3}}{{$i := add (mul $r 3) $c}}
      <form hx-post="/game/{{$.ID}}/cell" hx-target="#board" hx-swap="outerHTML" method="post">
        <input type="hidden" name="cell" value="{{$i}}">
        <button type="submit" data-cell-id="{{$i}}" class="cell{{if index $.Snap.Highlight $i}} highlight{{end}}{{if index $.Snap.Available $i}} available{{end}}"{{if not (index $.Snap.Available $i)}} disabled{{end}}>{{cellSymbol (index $.Snap.Board $i)}}</button>
      </form>
    {{end}}
  </div>
  {{end}}
  {{if .Snap.Message}}
  <div class="popup end-game-msg"><p>{{.Snap.Message}}</p></div>
  {{end}}
  {{if .Snap.RoundOver}}
  <form hx-post="/game/{{.ID}}/again" hx-target="#board" hx-swap="outerHTML" method="post">
    <button type="submit" class="play-again">Play again</button>
  </form>
  {{end}}
  <form hx-post="/game/{{.ID}}/reset" hx-target="#board" hx-swap="outerHTML" method="post">
    <input type="hidden" name="scores" value="1">
    <button type="submit" class="go-back">Start Again</button>
  </form>
  {{end}}
</div>
`
