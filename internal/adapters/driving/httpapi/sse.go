package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// SSE sentinels terminating a streamed answer.
const (
	sseDone        = "[DONE]"
	sseErrorPrefix = "[ERROR] "
)

// streamChat relays a streamed answer as server-sent events. Each
// fragment becomes one event; the stream ends with [DONE] or [ERROR].
func (s *Server) streamChat(w http.ResponseWriter, r *http.Request, req domain.ChatRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, errors.New("streaming unsupported by response writer"))
		return
	}

	stream, err := s.svc.Chat.ChatStream(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	defer stream.Close()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := stream.Events()
	for {
		select {
		case <-r.Context().Done():
			logger.Debug("chat stream client disconnected")
			return
		case ev, open := <-events:
			if !open {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				logger.Debug("writing chat stream: %v", err)
				return
			}
			flusher.Flush()
			if ev.IsTerminal() {
				return
			}
		}
	}
}

func writeEvent(w io.Writer, ev domain.StreamEvent) error {
	switch ev.Type {
	case domain.StreamDone:
		return writeData(w, sseDone)
	case domain.StreamError:
		return writeData(w, sseErrorPrefix+ev.Content)
	default:
		return writeData(w, ev.Content)
	}
}

// writeData writes one event. Multi-line payloads use one data field per
// line, which clients rejoin with newlines.
func writeData(w io.Writer, payload string) error {
	var b strings.Builder
	for _, line := range strings.Split(payload, "\n") {
		b.WriteString("data: ")
		b.WriteString(strings.TrimSuffix(line, "\r"))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	_, err := fmt.Fprint(w, b.String())
	return err
}
