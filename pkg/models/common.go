package models

import "github.com/google/uuid"

// NewUUID generates a new UUID string
func NewUUID() string {
	return uuid.New().String()
}

// NewCorrelationID generates the short correlation ID attached to one
// collection's logs and metric record.
func NewCorrelationID() string {
	return uuid.New().String()[:8]
}
