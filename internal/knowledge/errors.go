package knowledge

import "errors"

var (
	// ErrMissingOffice is returned when the office name is absent
	ErrMissingOffice = errors.New("knowledge: office name is required")

	// ErrMissingPhone is returned when either phone representation is absent
	ErrMissingPhone = errors.New("knowledge: office phone and phone_e164 are required")

	// ErrInvalidPagePath is returned for page paths that are not root-relative
	ErrInvalidPagePath = errors.New("knowledge: page path must be root-relative")

	// ErrDuplicatePage is returned when a path appears twice in the registry
	ErrDuplicatePage = errors.New("knowledge: duplicate page path")

	// ErrEmptyFAQ is returned for FAQ entries missing a question or answer
	ErrEmptyFAQ = errors.New("knowledge: faq question and answer are required")
)
