package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

const socketReadLimit = 1 << 20

var errStreamClosed = errors.New("answer stream ended without a result")

// socketFrame is one server message on the chat socket. Sources ride on the
// done frame.
type socketFrame struct {
	domain.StreamEvent
	Sources []domain.SearchResult `json:"sources,omitempty"`
}

func errorFrame(err error) socketFrame {
	return socketFrame{StreamEvent: domain.StreamEvent{Type: domain.StreamError, Content: err.Error()}}
}

// handleChatSocket answers questions over a WebSocket. Every text message is
// a chat request; the reply is a run of token frames closed by one done or
// error frame. The socket stays open for follow-up questions.
func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	if s.svc.Chat == nil {
		writeError(w, domain.ErrLLMUnavailable)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		logger.Debug("chat socket upgrade: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(socketReadLimit)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("chat socket read: %v", err)
			}
			return
		}
		var req chatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			err = conn.WriteJSON(errorFrame(domain.ValidationErrorf("invalid request body: %v", err)))
		} else {
			err = s.answerOnSocket(r.Context(), conn, req.toDomain())
		}
		if err != nil {
			logger.Debug("chat socket write: %v", err)
			return
		}
	}
}

func (s *Server) answerOnSocket(ctx context.Context, conn *websocket.Conn, req domain.ChatRequest) error {
	req.Stream = true
	stream, err := s.svc.Chat.ChatStream(ctx, req)
	if err != nil {
		return conn.WriteJSON(errorFrame(err))
	}
	defer stream.Close()

	for ev := range stream.Events() {
		frame := socketFrame{StreamEvent: ev}
		if ev.Type == domain.StreamDone {
			frame.Sources = stream.Sources()
		}
		if err := conn.WriteJSON(frame); err != nil {
			return err
		}
		if ev.IsTerminal() {
			return nil
		}
	}
	return conn.WriteJSON(errorFrame(errStreamClosed))
}
