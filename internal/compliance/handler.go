package compliance

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/lakeside-dental/pkg/logging"
)

// EventQuerier reads audit events. *AuditService implements it.
type EventQuerier interface {
	QueryEvents(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)
}

// Handler serves the admin audit trail.
type Handler struct {
	events EventQuerier
	logger *logging.Logger
}

func NewHandler(events EventQuerier, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{events: events, logger: logger}
}

type listEventsResponse struct {
	Events []AuditEvent `json:"events"`
	Count  int          `json:"count"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

// ListEvents handles GET /api/admin/audit-events?event_type=&since=&limit=&offset=
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := AuditFilter{Limit: 50}

	if eventType := strings.TrimSpace(q.Get("event_type")); eventType != "" {
		filter.EventType = AuditEventType(eventType)
	}
	if since := strings.TrimSpace(q.Get("since")); since != "" {
		parsed, err := time.Parse(time.RFC3339, since)
		if err != nil {
			http.Error(w, "invalid since, use RFC3339 format", http.StatusBadRequest)
			return
		}
		filter.Since = parsed
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit <= 100 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset >= 0 {
		filter.Offset = offset
	}

	events, err := h.events.QueryEvents(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to query audit events", "error", err)
		http.Error(w, "failed to load audit events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []AuditEvent{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(listEventsResponse{
		Events: events,
		Count:  len(events),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}
