package websocketadapter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	httpadapter "sheepyard/contexts/scheduling/event-polls/adapters/http"
	"sheepyard/contexts/scheduling/event-polls/domain/entities"
	domainerrors "sheepyard/contexts/scheduling/event-polls/domain/errors"
	"sheepyard/contexts/scheduling/event-polls/ports"
	httptransport "sheepyard/contexts/scheduling/event-polls/transport/http"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"
)

const (
	messageTypeSnapshot = "poll_snapshot"

	detachTimeout = 2 * time.Second
)

// Subscriptions is the part of the broadcast hub a live connection needs.
type Subscriptions interface {
	Subscribe(ctx context.Context, pollID string, conn ports.LiveConn) error
	Unsubscribe(ctx context.Context, pollID string, conn ports.LiveConn)
}

// Handler upgrades requests to websocket connections that receive a fresh
// poll snapshot after every state change of that poll.
type Handler struct {
	Hub            Subscriptions
	Snapshots      ports.SnapshotReader
	OriginPatterns []string
	Logger         *slog.Logger
}

// Serve blocks until the client disconnects or the hub closes the
// connection.
func (h Handler) Serve(w http.ResponseWriter, r *http.Request, pollID string) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pollID = strings.TrimSpace(pollID)

	if _, err := h.Snapshots.GetPollSnapshot(r.Context(), pollID); err != nil {
		if errors.Is(err, domainerrors.ErrPollNotFound) {
			http.Error(w, "poll not found", http.StatusNotFound)
			return
		}
		http.Error(w, "snapshot unavailable", http.StatusInternalServerError)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.OriginPatterns,
	})
	if err != nil {
		logger.Warn("live connection upgrade failed",
			"event", "event_polls_ws_accept_failed",
			"module", "scheduling/event-polls",
			"layer", "adapter",
			"poll_id", pollID,
			"error", err.Error(),
		)
		return
	}
	conn := NewConn(ws)

	// The hub queues the current snapshot as the first frame, so no state
	// change can slip between the initial view and the subscription.
	if err := h.Hub.Subscribe(r.Context(), pollID, conn); err != nil {
		reason := "subscribe failed"
		if errors.Is(err, domainerrors.ErrPollNotFound) {
			reason = "poll deleted"
		}
		conn.Close(reason)
		return
	}
	logger.Info("live subscriber attached",
		"event", "event_polls_ws_attached",
		"module", "scheduling/event-polls",
		"layer", "adapter",
		"poll_id", pollID,
	)

	readCtx := ws.CloseRead(r.Context())
	select {
	case <-readCtx.Done():
	case <-conn.Done():
	}

	detachCtx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), detachTimeout)
	h.Hub.Unsubscribe(detachCtx, pollID, conn)
	cancel()
	conn.Close("client left")
}

// Conn adapts a websocket connection to ports.LiveConn.
type Conn struct {
	ws        *websocket.Conn
	closeOnce sync.Once
	done      chan struct{}
}

var _ ports.LiveConn = (*Conn)(nil)

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws, done: make(chan struct{})}
}

func (c *Conn) Push(ctx context.Context, snapshot entities.PollSnapshot) error {
	payload, err := EncodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	return c.ws.Write(ctx, websocket.MessageText, payload)
}

func (c *Conn) Close(reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close(websocket.StatusGoingAway, reason)
	})
}

// Done is closed once the connection has been closed from either side.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// EncodeSnapshot renders the frame pushed to live subscribers.
func EncodeSnapshot(snapshot entities.PollSnapshot) ([]byte, error) {
	return json.Marshal(httptransport.LiveMessage{
		Type: messageTypeSnapshot,
		Poll: httpadapter.SnapshotResponse(snapshot),
	})
}
