package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/jaminalder/tictactoe-cpu/internal/app"
	"github.com/jaminalder/tictactoe-cpu/internal/domain"
)

var wsIdlePingInterval = 30 * time.Second

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// wsMessage is the envelope for every server frame.
type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// clientMsg is a command sent by the browser.
type clientMsg struct {
	Type  string `json:"type"` // "cell" | "again" | "reset" | "start" | "ping"
	Cell  *int   `json:"cell,omitempty"`
	Clear bool   `json:"clear,omitempty"`
	Mark  string `json:"mark,omitempty"`
}

type scoresDTO struct {
	Human    int `json:"human"`
	Computer int `json:"computer"`
}

type snapshotDTO struct {
	ID        string    `json:"id"`
	Board     [9]string `json:"board"`
	Highlight []int     `json:"highlight"`
	Available []int     `json:"available"`
	Message   string    `json:"message,omitempty"`
	Scores    scoresDTO `json:"scores"`
	You       string    `json:"you"`
	State     string    `json:"state"`
	Menu      bool      `json:"menu"`
	Version   int       `json:"version"`
}

type errorDTO struct {
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

func toDTO(s app.Snapshot) snapshotDTO {
	dto := snapshotDTO{
		ID:        s.ID,
		Highlight: []int{},
		Available: []int{},
		Message:   s.Message,
		Scores:    scoresDTO{Human: s.HumanScore, Computer: s.ComputerScore},
		You:       s.Human.String(),
		State:     s.State,
		Menu:      s.InMenu,
		Version:   s.Version,
	}
	for i, m := range s.Board {
		dto.Board[i] = m.String()
		if s.Highlight[i] {
			dto.Highlight = append(dto.Highlight, i)
		}
		if s.Available[i] {
			dto.Available = append(dto.Available, i)
		}
	}
	return dto
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func frame(typ string, payload any) []byte {
	return mustMarshal(wsMessage{Type: typ, Payload: mustMarshal(payload)})
}

func (h *handlers) ws(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		http.NotFound(w, r)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer conn.Close()

	snaps, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		_ = conn.WriteMessage(websocket.TextMessage, frame("error", errorDTO{Code: "not_found"}))
		return
	}
	defer unsub()
	first, ok := h.svc.Get(id)
	if !ok {
		_ = conn.WriteMessage(websocket.TextMessage, frame("error", errorDTO{Code: "not_found"}))
		return
	}

	replies := make(chan []byte, 4)
	go func() {
		defer cancel()
		defer conn.Close()
		if err := writeWSWithHeartbeat(ctx, conn, first, snaps, replies); err != nil {
			h.log.Debug("ws write", "session", id, "err", err)
		}
	}()

	for {
		var msg clientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if err := h.dispatch(ctx, id, msg); err != nil {
			reply := frame("error", errorDTO{Code: "bad_request", Detail: err.Error()})
			if errors.Is(err, app.ErrNotFound) {
				reply = frame("error", errorDTO{Code: "not_found"})
			}
			select {
			case replies <- reply:
			default:
			}
		}
	}
}

// dispatch applies a client command. State changes reach the client through
// the subscription, so success needs no reply.
func (h *handlers) dispatch(ctx context.Context, id string, msg clientMsg) error {
	var err error
	switch msg.Type {
	case "cell":
		if msg.Cell == nil {
			return errors.New("cell missing")
		}
		_, err = h.svc.Select(ctx, id, *msg.Cell)
	case "again":
		_, err = h.svc.PlayAgain(ctx, id)
	case "reset":
		_, err = h.svc.Reset(ctx, id, msg.Clear)
	case "start":
		mark, perr := domain.ParseMark(msg.Mark)
		if perr != nil {
			return perr
		}
		_, err = h.svc.Start(ctx, id, mark)
	case "ping":
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
	return err
}

// writeWSWithHeartbeat owns all writes on conn: the initial state, every
// snapshot, error replies and idle pings.
func writeWSWithHeartbeat(ctx context.Context, conn *websocket.Conn, first app.Snapshot, snaps <-chan app.Snapshot, replies <-chan []byte) error {
	ticker := time.NewTicker(wsIdlePingInterval)
	defer ticker.Stop()
	pingPayload := mustMarshal(wsMessage{Type: "ping"})

	if err := conn.WriteMessage(websocket.TextMessage, frame("state", toDTO(first))); err != nil {
		return err
	}
	lastWrite := time.Now()
	sent := first.Version
	for {
		var msg []byte
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			if snap.Version <= sent {
				continue
			}
			sent = snap.Version
			msg = frame("state", toDTO(snap))
		case msg = <-replies:
		case <-ticker.C:
			if time.Since(lastWrite) < wsIdlePingInterval {
				continue
			}
			msg = pingPayload
		}
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return err
		}
		lastWrite = time.Now()
	}
}
