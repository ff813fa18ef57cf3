package uuidx

import "github.com/google/uuid"

// New generates a version 7 UUID and panics if generation fails.
// Version 7 identifiers embed a millisecond timestamp, so identifiers
// created later compare lexicographically greater than earlier ones.
// Envelope identifiers and spool entry names rely on this ordering.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString generates a version 7 UUID and returns its canonical
// string form.
func NewString() string {
	return New().String()
}
