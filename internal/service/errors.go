package service

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTicketClosed      = errors.New("ticket is closed")
	ErrUnauthorized      = errors.New("invalid credentials")
)

// InsufficientStockError is returned when a debit asks for more units than
// the item holds. It matches errors.Is(err, ErrInsufficientStock).
type InsufficientStockError struct {
	ItemID    string
	ItemName  string
	Available int
	Requested int
}

var ErrInsufficientStock = errors.New("insufficient stock")

func (e *InsufficientStockError) Deficit() int { return e.Requested - e.Available }

func (e *InsufficientStockError) Error() string {
	name := e.ItemName
	if name == "" {
		name = e.ItemID
	}
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", name, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ValidationError carries a client-facing message and wraps ErrValidation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError names the missing entity and wraps ErrNotFound.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Entity + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func notFound(entity, id string) error { return &NotFoundError{Entity: entity, ID: id} }

// translate maps storage errors onto the service taxonomy. entity and id
// label a record-not-found result.
func translate(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(entity, id)
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s already exists", ErrConflict, entity)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
