package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/lakeside-dental/internal/knowledge"
	"github.com/wolfman30/lakeside-dental/pkg/logging"
)

type countingObserver struct {
	outcomes []string
}

func (c *countingObserver) ObserveAppointment(outcome string) {
	c.outcomes = append(c.outcomes, outcome)
}

func newTestHandler(repo Repository) (*Handler, *countingObserver) {
	obs := &countingObserver{}
	return NewHandler(knowledge.MustDefault(), repo, obs, logging.Default()), obs
}

func TestCreateAppointment_Success(t *testing.T) {
	handler, obs := newTestHandler(NewInMemoryRepository())

	body, _ := json.Marshal(CreateAppointmentRequest{
		Name:          "  Jane Doe ",
		Email:         "jane@example.com",
		PreferredDate: "2026-11-03",
		Service:       "whitening",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/appointments", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.CreateAppointment(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var appt Appointment
	require.NoError(t, json.NewDecoder(w.Body).Decode(&appt))
	assert.Equal(t, "Jane Doe", appt.Name)
	assert.Equal(t, "whitening", appt.Service)
	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, []string{"created"}, obs.outcomes)
}

func TestCreateAppointment_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", "{"},
		{"missing name", `{"email":"a@b.c"}`},
		{"missing contact", `{"name":"Jane"}`},
		{"bad date", `{"name":"Jane","phone":"555","preferredDate":"tomorrow"}`},
		{"unknown service", `{"name":"Jane","phone":"555","service":"botox"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, obs := newTestHandler(NewInMemoryRepository())
			req := httptest.NewRequest(http.MethodPost, "/api/appointments", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			handler.CreateAppointment(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
			assert.Equal(t, []string{"invalid"}, obs.outcomes)
		})
	}
}

type failingRepository struct{}

func (failingRepository) Create(context.Context, *CreateAppointmentRequest) (*Appointment, error) {
	return nil, errors.New("boom")
}

func (failingRepository) GetByID(context.Context, string) (*Appointment, error) {
	return nil, ErrAppointmentNotFound
}

func (failingRepository) List(context.Context, ListAppointmentsFilter) ([]*Appointment, error) {
	return nil, errors.New("boom")
}

func TestCreateAppointment_RepositoryError(t *testing.T) {
	handler, obs := newTestHandler(failingRepository{})
	req := httptest.NewRequest(http.MethodPost, "/api/appointments", strings.NewReader(`{"name":"Jane","phone":"555"}`))
	w := httptest.NewRecorder()

	handler.CreateAppointment(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
	assert.Equal(t, []string{"error"}, obs.outcomes)
}

func TestListAppointments_Pagination(t *testing.T) {
	repo := NewInMemoryRepository()
	for i := 0; i < 3; i++ {
		_, err := repo.Create(context.Background(), &CreateAppointmentRequest{Name: "Jane", Phone: "555"})
		require.NoError(t, err)
	}
	handler, _ := newTestHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/appointments?limit=2&offset=0", nil)
	w := httptest.NewRecorder()
	handler.ListAppointments(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp ListAppointmentsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 2, resp.Limit)

	w = httptest.NewRecorder()
	handler.ListAppointments(w, httptest.NewRequest(http.MethodGet, "/api/appointments", nil))
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Count)
}

func TestListAppointments_RepositoryError(t *testing.T) {
	handler, _ := newTestHandler(failingRepository{})
	w := httptest.NewRecorder()
	handler.ListAppointments(w, httptest.NewRequest(http.MethodGet, "/api/appointments", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 50, 0},
		{"limit=100&offset=20", 100, 20},
		{"limit=0", 50, 0},
		{"limit=101", 50, 0},
		{"limit=abc&offset=-1", 50, 0},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/x?"+tt.query, nil)
		got := ParsePage(r)
		assert.Equal(t, tt.wantLimit, got.Limit, tt.query)
		assert.Equal(t, tt.wantOffset, got.Offset, tt.query)
	}
}

func TestContentEndpoints(t *testing.T) {
	handler, _ := newTestHandler(NewInMemoryRepository())
	r := chi.NewRouter()
	r.Get("/api/services", handler.ListServices)
	r.Get("/api/blog", handler.ListBlogPosts)
	r.Get("/api/blog/{slug}", handler.GetBlogPost)
	r.Get("/api/testimonials", handler.ListTestimonials)
	r.Get("/api/office", handler.GetOffice)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/api/services")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"slug":"invisalign"`)

	w = get("/api/blog")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "flossing-habits")
	assert.NotContains(t, w.Body.String(), `"body"`)

	w = get("/api/blog/flossing-habits")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"body"`)

	w = get("/api/blog/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get("/api/testimonials")
	assert.Contains(t, w.Body.String(), "Maria G.")

	w = get("/api/office")
	assert.Contains(t, w.Body.String(), `"phoneE164"`)
}
