package service

import "github.com/google/uuid"

// Actor is the authenticated staff member performing an operation.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role string
}
