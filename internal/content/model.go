package content

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	dateLayout    = "2006-01-02"
	maxNameLength = 120
	maxNotesLen   = 1000
)

// Appointment is a stored appointment request. The office confirms by phone.
type Appointment struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	PreferredDate string    `json:"preferredDate,omitempty"`
	Service       string    `json:"service,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// CreateAppointmentRequest represents the request body for an appointment request
type CreateAppointmentRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	PreferredDate string `json:"preferredDate"`
	Service       string `json:"service"`
	Notes         string `json:"notes"`
}

// Normalize trims every field in place.
func (r *CreateAppointmentRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.PreferredDate = strings.TrimSpace(r.PreferredDate)
	r.Service = strings.TrimSpace(r.Service)
	r.Notes = strings.TrimSpace(r.Notes)
}

// Validate validates the appointment request. Service slugs are checked by the handler.
func (r *CreateAppointmentRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if utf8.RuneCountInString(r.Name) > maxNameLength {
		return fmt.Errorf("%w: name", ErrFieldTooLong)
	}
	if strings.TrimSpace(r.Email) == "" && strings.TrimSpace(r.Phone) == "" {
		return ErrMissingContact
	}
	if r.PreferredDate != "" {
		if _, err := time.Parse(dateLayout, r.PreferredDate); err != nil {
			return ErrInvalidDate
		}
	}
	if utf8.RuneCountInString(r.Notes) > maxNotesLen {
		return fmt.Errorf("%w: notes", ErrFieldTooLong)
	}
	return nil
}

// ListAppointmentsFilter pages through appointment requests, newest first.
type ListAppointmentsFilter struct {
	Limit  int
	Offset int
}
