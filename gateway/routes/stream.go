package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"

	"github.com/harvestlabs/farmengine/gateway/events"
)

const wsWriteTimeout = 10 * time.Second

// stream upgrades the connection to a websocket and pushes farm lifecycle
// events (snapshot taken, harvest period scheduled, claim settled), mirroring
// the teacher's rpc.Server.handlePOSFinalityWS accept/backlog/stream shape.
func (h *handlers) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	backlog, updates, cancel := h.events.Subscribe(r.Context())
	defer cancel()

	for _, ev := range backlog {
		if err := writeEvent(r.Context(), conn, ev); err != nil {
			return
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(r.Context(), conn, ev); err != nil {
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
