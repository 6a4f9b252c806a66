package live

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/inseasoncup/cup-server/internal/obslog"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// conn is the slice of a websocket connection the hub uses, so delivery
// behavior stays testable without a live socket.
type conn interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// Message is the envelope pushed to subscribers.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type BroadcastResult struct {
	Sent   int `json:"sent"`
	Pruned int `json:"pruned"`
}

// Hub holds one record per open realtime subscription.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]conn

	writeTimeout time.Duration
}

func NewHub() *Hub {
	return &Hub{
		conns:        make(map[string]conn),
		writeTimeout: 5 * time.Second,
	}
}

// Add registers a subscription and returns its connection id.
func (h *Hub) Add(c *websocket.Conn) string {
	return h.add(c)
}

func (h *Hub) add(c conn) string {
	id := uuid.NewString()
	h.mu.Lock()
	h.conns[id] = c
	h.mu.Unlock()
	return id
}

func (h *Hub) Remove(id string) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast delivers one message to every subscription concurrently.
// Failures are isolated per subscriber: a write error that carries a
// transport close status means the recipient is gone and the subscription
// is deleted; any other failure is logged and the subscription kept.
func (h *Hub) Broadcast(ctx context.Context, msgType string, payload json.RawMessage) BroadcastResult {
	raw, err := json.Marshal(Message{Type: msgType, Payload: payload})
	if err != nil {
		obslog.L().Error("broadcast_encode_failed", zap.Error(err))
		return BroadcastResult{}
	}

	h.mu.RLock()
	snapshot := make(map[string]conn, len(h.conns))
	for id, c := range h.conns {
		snapshot[id] = c
	}
	h.mu.RUnlock()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		result BroadcastResult
	)
	for id, c := range snapshot {
		wg.Add(1)
		go func(id string, c conn) {
			defer wg.Done()
			wctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err := c.Write(wctx, websocket.MessageText, raw)
			cancel()
			if err == nil {
				mu.Lock()
				result.Sent++
				mu.Unlock()
				return
			}
			if isGone(err) {
				h.Remove(id)
				_ = c.Close(websocket.StatusGoingAway, "stale")
				obslog.L().Info("subscriber_pruned", zap.String("conn_id", id))
				mu.Lock()
				result.Pruned++
				mu.Unlock()
				return
			}
			obslog.L().Warn("broadcast_send_failed", zap.String("conn_id", id), zap.Error(err))
		}(id, c)
	}
	wg.Wait()
	return result
}

// isGone reports whether a delivery error means the recipient is dead
// rather than transiently unreachable.
func isGone(err error) bool {
	if websocket.CloseStatus(err) != -1 {
		return true
	}
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF)
}
