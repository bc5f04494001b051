package content

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for appointment request storage
type Repository interface {
	Create(ctx context.Context, req *CreateAppointmentRequest) (*Appointment, error)
	GetByID(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context, filter ListAppointmentsFilter) ([]*Appointment, error)
}

// InMemoryRepository keeps appointment requests in process memory. It is used
// when no database is configured.
type InMemoryRepository struct {
	mu           sync.RWMutex
	appointments map[string]*Appointment
	now          func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		appointments: make(map[string]*Appointment),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a validated appointment request.
func (r *InMemoryRepository) Create(ctx context.Context, req *CreateAppointmentRequest) (*Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	appt := &Appointment{
		ID:            uuid.New().String(),
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		PreferredDate: req.PreferredDate,
		Service:       req.Service,
		Notes:         req.Notes,
		CreatedAt:     r.now(),
	}

	r.mu.Lock()
	r.appointments[appt.ID] = appt
	r.mu.Unlock()

	return appt, nil
}

// GetByID retrieves an appointment request by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	appt, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return appt, nil
}

// List returns appointment requests newest first.
func (r *InMemoryRepository) List(ctx context.Context, filter ListAppointmentsFilter) ([]*Appointment, error) {
	r.mu.RLock()
	all := make([]*Appointment, 0, len(r.appointments))
	for _, appt := range r.appointments {
		all = append(all, appt)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if filter.Offset >= len(all) {
		return []*Appointment{}, nil
	}
	all = all[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(all) {
		all = all[:filter.Limit]
	}
	return all, nil
}
