package server

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

// streamSession upgrades to a websocket and pushes every SessionView the
// controller publishes. Slow clients skip intermediate views.
func (s *Server) streamSession(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.AllowedOrigins,
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	// Clients never send; reading only detects the close.
	ctx := conn.CloseRead(r.Context())

	views, unsubscribe := s.tutor.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-views:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "tutor closed")
				return
			}
			if err := wsjson.Write(ctx, conn, v); err != nil {
				if websocket.CloseStatus(err) == -1 {
					s.logger.Debug("websocket write failed", zap.Error(err))
				}
				return
			}
		}
	}
}
