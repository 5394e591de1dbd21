package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"gemini-session-client/internal/gemini"
	"gemini-session-client/internal/prompt"
	"gemini-session-client/internal/session"
)

const sessionHeader = "X-Session-ID"

type server struct {
	sessions       *session.Store[string]
	logger         *slog.Logger
	allowPaths     bool
	maxBodyBytes   int64
	requestTimeout time.Duration
}

type apiError struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

type promptResponse struct {
	SessionID string `json:"session_id"`
	Type      string `json:"type"`
	Text      string `json:"text"`
	Data      any    `json:"data,omitempty"`
	Skipped   int    `json:"skipped,omitempty"`
}

type historyMessage struct {
	Role     string `json:"role"`
	Text     string `json:"text,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Bytes    int    `json:"bytes,omitempty"`
}

type historyResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []historyMessage `json:"messages"`
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/prompt", s.handlePrompt)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("DELETE /api/history", s.handleClearHistory)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int{"sessions": s.sessions.Len()})
	})
	return mux
}

// handlePrompt accepts {"prompt": <string or item array>, "response_type": "text"|"structured"}.
func (s *server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, apiError{Error: "request body too large"})
		return
	}
	if !gjson.ValidBytes(body) {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid json body"})
		return
	}

	raw := gjson.GetBytes(body, "prompt")
	if !raw.Exists() {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "missing prompt"})
		return
	}
	items, skipped, err := prompt.Decode([]byte(raw.Raw))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !s.allowPaths {
		for _, item := range items {
			if _, ok := item.(prompt.FileByPath); ok {
				writeJSON(w, http.StatusBadRequest, apiError{Error: "file paths are disabled", Kind: "invalid_input"})
				return
			}
		}
	}

	rt := gemini.ParseResponseType(gjson.GetBytes(body, "response_type").String())

	ctx := r.Context()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	id := sessionID(w, r)
	var reply gemini.Reply
	err = s.sessions.Do(id, func(sess *session.Session) error {
		var err error
		reply, err = sess.SendPrompt(ctx, rt, items...)
		return err
	})
	if err != nil {
		s.logger.Error("prompt failed", "session_id", id, "err", err)
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, promptResponse{
		SessionID: id,
		Type:      reply.Type.String(),
		Text:      reply.Text,
		Data:      reply.Data,
		Skipped:   skipped,
	})
}

// handleHistory is read-only: an unknown or missing session id yields an
// empty list and no session is created.
func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.Header.Get(sessionHeader))
	if id != "" {
		w.Header().Set(sessionHeader, id)
	}

	var history []gemini.Message
	if id != "" {
		s.sessions.Peek(id, func(sess *session.Session) {
			history = sess.History()
		})
	}

	out := historyResponse{SessionID: id, Messages: make([]historyMessage, 0, len(history))}
	for _, m := range history {
		hm := historyMessage{Role: string(m.Role), Text: m.Part.Text}
		if m.Part.IsInline() {
			hm.MimeType = m.Part.InlineData.MimeType
			hm.Bytes = len(m.Part.InlineData.Data)
		}
		out.Messages = append(out.Messages, hm)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(sessionID(w, r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status, kind := http.StatusBadGateway, "internal"
	switch {
	case errors.Is(err, gemini.ErrInvalidInput):
		status, kind = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, gemini.ErrNetwork):
		status, kind = http.StatusUnprocessableEntity, "network"
	case errors.Is(err, context.DeadlineExceeded):
		status, kind = http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, gemini.ErrTransport):
		kind = "transport"
	case errors.Is(err, gemini.ErrHTTP):
		kind = "http"
	case errors.Is(err, gemini.ErrAPI):
		kind = "api"
	case errors.Is(err, gemini.ErrDecode):
		kind = "decode"
	}
	writeJSON(w, status, apiError{Error: err.Error(), Kind: kind})
}

// sessionID reads the client's session header, minting one when absent. The
// id in use is echoed back in the same header.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(sessionHeader))
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(sessionHeader, id)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "dur_ms", time.Since(start).Milliseconds())
	})
}
