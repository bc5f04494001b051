// Package content serves the site's public content collections and accepts
// appointment requests.
package content

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/lakeside-dental/internal/knowledge"
	"github.com/wolfman30/lakeside-dental/pkg/logging"
)

const maxAppointmentBody = 16 << 10

// AppointmentObserver counts appointment request outcomes.
type AppointmentObserver interface {
	ObserveAppointment(outcome string)
}

// Handler handles HTTP requests for site content
type Handler struct {
	kb       *knowledge.Base
	repo     Repository
	observer AppointmentObserver
	logger   *logging.Logger
}

// NewHandler creates a new content handler. observer may be nil.
func NewHandler(kb *knowledge.Base, repo Repository, observer AppointmentObserver, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		kb:       kb,
		repo:     repo,
		observer: observer,
		logger:   logger,
	}
}

// BlogSummary is a blog post without its body.
type BlogSummary struct {
	Slug      string `json:"slug"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Published string `json:"published"`
}

// ListServices handles GET /api/services
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"services": nonNil(h.kb.Services)})
}

// ListBlogPosts handles GET /api/blog
func (h *Handler) ListBlogPosts(w http.ResponseWriter, r *http.Request) {
	posts := make([]BlogSummary, 0, len(h.kb.Blog))
	for _, p := range h.kb.Blog {
		posts = append(posts, BlogSummary{Slug: p.Slug, Title: p.Title, Summary: p.Summary, Published: p.Published})
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

// GetBlogPost handles GET /api/blog/{slug}
func (h *Handler) GetBlogPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	post, ok := h.kb.BlogPost(slug)
	if !ok {
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// ListTestimonials handles GET /api/testimonials
func (h *Handler) ListTestimonials(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"testimonials": nonNil(h.kb.Testimonials)})
}

// GetOffice handles GET /api/office
func (h *Handler) GetOffice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.kb.Office)
}

// CreateAppointment handles POST /api/appointments
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxAppointmentBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode appointment request", "error", err)
		h.observe("invalid")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Normalize()

	if req.Service != "" && !h.offers(req.Service) {
		h.observe("invalid")
		writeError(w, http.StatusBadRequest, ErrUnknownService.Error())
		return
	}

	appt, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		if isValidation(err) {
			h.observe("invalid")
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create appointment request", "error", err)
		h.observe("error")
		writeError(w, http.StatusInternalServerError, "failed to save appointment request")
		return
	}

	h.logger.Info("appointment request created", "id", appt.ID, "service", appt.Service)
	h.observe("created")
	writeJSON(w, http.StatusCreated, appt)
}

// ListAppointmentsResponse is the response for listing appointment requests
type ListAppointmentsResponse struct {
	Appointments []*Appointment `json:"appointments"`
	Count        int            `json:"count"`
	Offset       int            `json:"offset"`
	Limit        int            `json:"limit"`
}

// ListAppointments handles GET /api/appointments (admin only)
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	filter := ParsePage(r)

	appts, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list appointment requests", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list appointment requests")
		return
	}

	writeJSON(w, http.StatusOK, ListAppointmentsResponse{
		Appointments: appts,
		Count:        len(appts),
		Offset:       filter.Offset,
		Limit:        filter.Limit,
	})
}

// ParsePage reads limit (1..100, default 50) and offset from the query string.
// Out-of-range values fall back to the defaults.
func ParsePage(r *http.Request) ListAppointmentsFilter {
	filter := ListAppointmentsFilter{Limit: 50}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit <= 100 {
			filter.Limit = limit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		}
	}
	return filter
}

func (h *Handler) offers(slug string) bool {
	for _, s := range h.kb.Services {
		if strings.EqualFold(s.Slug, slug) {
			return true
		}
	}
	return false
}

func (h *Handler) observe(outcome string) {
	if h.observer != nil {
		h.observer.ObserveAppointment(outcome)
	}
}

func isValidation(err error) bool {
	return errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrMissingContact) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrFieldTooLong)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
