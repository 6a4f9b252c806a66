package httpapi

import (
	"net/http"

	"github.com/inseasoncup/cup-server/internal/obslog"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// subscribe upgrades the request and registers the connection with the
// hub. Subscribers only listen; the read side is closed and the handler
// waits until the peer goes away, at which point the record is removed.
func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	id := s.hub.Add(c)
	obslog.L().Info("subscriber_joined", zap.String("conn_id", id))
	defer func() {
		s.hub.Remove(id)
		_ = c.Close(websocket.StatusNormalClosure, "bye")
		obslog.L().Info("subscriber_left", zap.String("conn_id", id))
	}()

	ctx := c.CloseRead(r.Context())
	<-ctx.Done()
}
