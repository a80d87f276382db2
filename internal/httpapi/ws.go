package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ent0n29/lankachat/internal/chat"
)

const (
	wsReadTimeout  = 120 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// handleChatWS serves chat exchanges over one websocket: every text frame is a
// chat request, answered in order with a reply or error frame.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if s.metrics != nil {
		s.metrics.WSConnections.Inc()
		defer s.metrics.WSConnections.Dec()
	}
	log := s.logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("chat websocket closed", zap.Error(err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var out any
		var req chatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			s.metrics.ObserveChat("ws", "invalid")
			out = errorResponse{Error: err.Error(), Code: "invalid_request"}
		} else {
			reply, err := s.chat.Handle(r.Context(), chat.Message{UID: req.UID, Role: req.Role, Text: req.Text})
			switch {
			case err != nil:
				status, code, outcome := classifyError(err)
				s.metrics.ObserveChat("ws", outcome)
				msg := err.Error()
				if status >= http.StatusInternalServerError {
					log.Error("chat websocket exchange failed", zap.Error(err))
					msg = "could not process chat message"
				}
				out = errorResponse{Error: msg, Code: code}
			default:
				s.metrics.ObserveChat("ws", replyOutcome(reply))
				out = chatResponse{Reply: reply.Text}
			}
		}

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(out); err != nil {
			log.Debug("chat websocket write failed", zap.Error(err))
			return
		}
	}
}
