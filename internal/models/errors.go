package models

import "errors"

// Sentinel errors services wrap with %w so handlers can map them onto
// HTTP status codes with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)
