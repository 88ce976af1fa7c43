package http

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"pubquiz-hub/internal/app"
)

// WSHandler pushes a marker's current task over a websocket for as long as the
// connection stays open.
type WSHandler struct {
	service  *app.MarkingService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.MarkingService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

// ServeWS upgrades the request and streams "task" messages. A payload with
// assigned=false means the marker currently has nothing to mark.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	quizID := q.Get("quizId")
	pubID := q.Get("pubId")
	uid := q.Get("uid")
	part, err := strconv.Atoi(q.Get("part"))
	if quizID == "" || pubID == "" || uid == "" || err != nil || part < 1 {
		http.Error(w, "missing quizId, part, pubId, or uid", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel, err := h.service.Subscribe(r.Context(), quizID, part, pubID, uid)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	// Reads only detect the client going away; inbound messages are ignored.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case n, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[any]{Type: "task", Payload: n}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-closed:
			return
		}
	}
}
