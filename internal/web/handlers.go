package web

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jaminalder/tictactoe-cpu/internal/app"
	"github.com/jaminalder/tictactoe-cpu/internal/domain"
	"github.com/jaminalder/tictactoe-cpu/internal/match"
)

type handlers struct {
	svc *app.Service
	tpl *templates
	log *slog.Logger
}

func (h *handlers) renderBoard(snap app.Snapshot, errMsg string) []byte {
	return renderTemplate(h.tpl.board, "", boardData{ID: snap.ID, Snap: snap, Error: errMsg})
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderTemplate(h.tpl.index, "", nil))
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintf(w, "ok sessions=%d\n", h.svc.Len())
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	mark, err := domain.ParseMark(r.Form.Get("mark"))
	if err != nil {
		http.Error(w, "choose x or o", http.StatusBadRequest)
		return
	}
	snap, err := h.svc.Create(r.Context(), mark)
	if err != nil {
		h.log.Error("create session", "err", err)
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/game/"+snap.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	data := boardData{ID: snap.ID, Snap: snap}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	// The page embeds the board; later boards arrive over SSE.
	_, _ = w.Write(renderTemplate(h.tpl.game, "", data))
}

func (h *handlers) start(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_ = r.ParseForm()
	mark, err := domain.ParseMark(r.Form.Get("mark"))
	if err != nil {
		h.writeResult(w, r, id, app.Snapshot{}, err)
		return
	}
	snap, err := h.svc.Start(r.Context(), id, mark)
	h.writeResult(w, r, id, snap, err)
}

func (h *handlers) cell(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_ = r.ParseForm()
	cell, err := strconv.Atoi(r.Form.Get("cell"))
	if err != nil {
		// Same as clicking outside the board: ignored.
		cell = -1
	}
	snap, err := h.svc.Select(r.Context(), id, cell)
	h.writeResult(w, r, id, snap, err)
}

func (h *handlers) again(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := h.svc.PlayAgain(r.Context(), id)
	h.writeResult(w, r, id, snap, err)
}

func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_ = r.ParseForm()
	clearScores := isTruthy(r.Form.Get("scores"))
	snap, err := h.svc.Reset(r.Context(), id, clearScores)
	h.writeResult(w, r, id, snap, err)
}

// writeResult answers a board action with the board fragment, carrying an
// alert when the action failed.
func (h *handlers) writeResult(w http.ResponseWriter, r *http.Request, id string, snap app.Snapshot, err error) {
	status := http.StatusOK
	var errMsg string
	if err != nil {
		switch {
		case errors.Is(err, app.ErrNotFound):
			http.NotFound(w, r)
			return
		case errors.Is(err, domain.ErrInvalidMark), errors.Is(err, match.ErrInvalidSide):
			errMsg = "Choose X or O"
			status = http.StatusBadRequest
		default:
			h.log.Error("board action", "session", id, "err", err)
			errMsg = "Something went wrong"
			status = http.StatusInternalServerError
		}
		if snap.ID == "" {
			if latest, ok := h.svc.Get(id); ok {
				snap = latest
			}
		}
	}
	if snap.ID == "" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(h.renderBoard(snap, errMsg))
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

var heartbeatInterval = 15 * time.Second

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// Plain GETs only learn that the stream exists.
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer unsub()
	// Subscribed first, so nothing published after this read is missed.
	current, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	writeSSE(w, "board", h.renderBoard(current, ""))
	flusher.Flush()
	sent := current.Version
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if snap.Version <= sent {
				continue
			}
			sent = snap.Version
			writeSSE(w, "board", h.renderBoard(snap, ""))
			flusher.Flush()
		}
	}
}

// writeSSE emits one event; every payload line needs its own data field.
func writeSSE(w io.Writer, event string, payload []byte) {
	_, _ = fmt.Fprintf(w, "event: %s\n", event)
	for _, line := range strings.Split(strings.TrimRight(string(payload), "\n"), "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = io.WriteString(w, "\n")
}
