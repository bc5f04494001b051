package content

import "errors"

var (
	// ErrInvalidName is returned when the name is missing
	ErrInvalidName = errors.New("name is required")

	// ErrMissingContact is returned when both email and phone are missing
	ErrMissingContact = errors.New("either email or phone is required")

	// ErrInvalidDate is returned when preferredDate is not YYYY-MM-DD
	ErrInvalidDate = errors.New("preferredDate must be formatted YYYY-MM-DD")

	// ErrUnknownService is returned when the service slug is not offered
	ErrUnknownService = errors.New("unknown service")

	// ErrFieldTooLong is returned when a free-text field exceeds its limit
	ErrFieldTooLong = errors.New("field is too long")

	// ErrAppointmentNotFound is returned when an appointment request is not found
	ErrAppointmentNotFound = errors.New("appointment request not found")
)
