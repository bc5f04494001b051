// Package webchat is the HTTP boundary of the site chat widget.
package webchat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/wolfman30/lakeside-dental/internal/chat"
	"github.com/wolfman30/lakeside-dental/pkg/logging"
)

// Client-facing messages. Neither carries validation or server details.
const (
	InvalidRequestMessage = "I didn't catch that—please send your question again."
	UnavailableMessage    = "I'm having trouble answering right now. Please try again."
)

const maxBodyBytes = 64 << 10

// Rejection reasons reported to the Observer.
const (
	RejectSchema    = "schema"
	RejectMalformed = "malformed"
	RejectTooLarge  = "too_large"
	RejectPanic     = "panic"
)

var errInvalidRequest = errors.New("webchat: invalid chat request")

// Responder resolves a validated chat request. *chat.Engine implements it.
type Responder interface {
	Respond(ctx context.Context, req chat.Request) chat.Result
}

// Observer records per-request outcomes.
type Observer interface {
	ObserveReply(stage, source string)
	ObserveRejected(reason string)
}

// Handler serves POST /api/chat.
type Handler struct {
	engine   Responder
	observer Observer
	logger   *logging.Logger
}

// NewHandler creates a chat handler. observer may be nil.
func NewHandler(engine Responder, observer Observer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, observer: observer, logger: logger}
}

type errorBody struct {
	Message string `json:"message"`
}

// HandleChat validates the body, runs the engine and writes the reply.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("webchat: panic while answering", "panic", rec)
			h.reject(RejectPanic)
			writeJSON(w, http.StatusInternalServerError, errorBody{Message: UnavailableMessage})
		}
	}()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(RejectTooLarge)
			writeJSON(w, http.StatusBadRequest, errorBody{Message: InvalidRequestMessage})
			return
		}
		h.logger.Error("webchat: failed to read body", "error", err)
		h.reject(RejectMalformed)
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: UnavailableMessage})
		return
	}

	req, err := parseRequest(body)
	switch {
	case errors.Is(err, errInvalidRequest):
		h.logger.Debug("webchat: rejected request", "error", err)
		h.reject(RejectSchema)
		writeJSON(w, http.StatusBadRequest, errorBody{Message: InvalidRequestMessage})
		return
	case err != nil:
		h.logger.Error("webchat: malformed request body", "error", err)
		h.reject(RejectMalformed)
		writeJSON(w, http.StatusInternalServerError, errorBody{Message: UnavailableMessage})
		return
	}

	result := h.engine.Respond(r.Context(), req)
	if h.observer != nil {
		h.observer.ObserveReply(string(result.Stage), result.Reply.Source)
	}
	h.logger.Info("webchat: answered",
		"stage", result.Stage,
		"rule", result.Rule,
		"source", result.Reply.Source,
		"pathname", req.Pathname,
	)
	writeJSON(w, http.StatusOK, result.Reply)
}

func (h *Handler) reject(reason string) {
	if h.observer != nil {
		h.observer.ObserveRejected(reason)
	}
}

// parseRequest decodes and validates a chat body. Syntax errors are returned
// unwrapped; everything else wraps errInvalidRequest.
func parseRequest(body []byte) (chat.Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return chat.Request{}, invalid("body must be an object")
		}
		return chat.Request{}, err
	}

	var req chat.Request
	message, ok, err := stringField(fields, "message")
	if err != nil || !ok {
		return chat.Request{}, invalid("message must be a string")
	}
	req.Message = strings.TrimSpace(message)
	if n := utf8.RuneCountInString(req.Message); n == 0 || n > chat.MaxMessageLength {
		return chat.Request{}, invalid("message length out of range")
	}

	pathname, ok, err := stringField(fields, "pathname")
	if err != nil {
		return chat.Request{}, invalid("pathname must be a string")
	}
	req.Pathname = "/"
	if ok && strings.TrimSpace(pathname) != "" {
		req.Pathname = strings.TrimSpace(pathname)
	}

	history, err := parseHistory(fields["history"])
	if err != nil {
		return chat.Request{}, err
	}
	req.History = history
	return req, nil
}

func parseHistory(raw json.RawMessage) ([]chat.Turn, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, invalid("history must be an array of objects")
	}
	if len(entries) > chat.MaxHistoryTurns {
		return nil, invalid("history too long")
	}
	turns := make([]chat.Turn, 0, len(entries))
	for _, entry := range entries {
		role, ok, err := stringField(entry, "role")
		if err != nil || !ok || (role != chat.RoleUser && role != chat.RoleAssistant) {
			return nil, invalid("history role must be user or assistant")
		}
		content, ok, err := stringField(entry, "content")
		content = strings.TrimSpace(content)
		if err != nil || !ok {
			return nil, invalid("history content must be a string")
		}
		if n := utf8.RuneCountInString(content); n == 0 || n > chat.MaxMessageLength {
			return nil, invalid("history content length out of range")
		}
		turns = append(turns, chat.Turn{Role: role, Content: content})
	}
	return turns, nil
}

// stringField reads an optional string. A JSON null counts as absent.
func stringField(fields map[string]json.RawMessage, name string) (string, bool, error) {
	raw, present := fields[name]
	if !present || isAbsent(raw) {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false, err
	}
	return s, true, nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", errInvalidRequest, reason)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
