package model

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TicketStatus is the service ticket lifecycle state.
type TicketStatus string

const (
	StatusQueue       TicketStatus = "Queue"
	StatusDiagnosing  TicketStatus = "Diagnosing"
	StatusWaitingPart TicketStatus = "Waiting_Part"
	StatusInProgress  TicketStatus = "In_Progress"
	StatusCompleted   TicketStatus = "Completed"
	StatusPickedUp    TicketStatus = "Picked_Up"
	StatusCancelled   TicketStatus = "Cancelled"
)

// Customer types.
const (
	CustomerStudent  = "Mahasiswa"
	CustomerLecturer = "Dosen"
	CustomerGeneral  = "Umum"
)

type Customer struct {
	Name  string `gorm:"not null"`
	Phone string `gorm:"type:varchar(30);not null;index"`
	Type  string `gorm:"type:varchar(20);not null;default:'Umum'"`
}

type Device struct {
	Type         string `gorm:"not null"`
	Brand        string `gorm:"not null"`
	Model        string `gorm:"not null"`
	SerialNumber *string
	Symptoms     string `gorm:"type:text;not null"`
	Accessories  string `gorm:"not null;default:'None'"`
}

type Technician struct {
	UserID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name   string    `gorm:"not null"`
}

// TicketTimestamps are stamped once, on first entry into the matching state.
type TicketTimestamps struct {
	DiagnosedAt *time.Time
	CompletedAt *time.Time
	PickedUpAt  *time.Time
}

type ServiceTicket struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TicketNumber string           `gorm:"type:varchar(20);uniqueIndex;not null"`
	Customer     Customer         `gorm:"embedded;embeddedPrefix:customer_"`
	Device       Device           `gorm:"embedded;embeddedPrefix:device_"`
	Technician   Technician       `gorm:"embedded;embeddedPrefix:technician_"`
	Status       TicketStatus     `gorm:"type:varchar(20);not null;index;default:'Queue'"`
	ServiceFee   decimal.Decimal  `gorm:"type:decimal(14,2);not null;default:0"`
	TotalCost    decimal.Decimal  `gorm:"type:decimal(14,2);not null;default:0"`
	Notes        *string          `gorm:"type:text"`
	Timestamps   TicketTimestamps `gorm:"embedded"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Parts []ServiceTicketPart `gorm:"foreignKey:TicketID;constraint:OnDelete:CASCADE"`
}

func (ServiceTicket) TableName() string { return "service_tickets" }

// RecomputeTotal sets TotalCost to the parts subtotal plus the service fee.
func (t *ServiceTicket) RecomputeTotal() {
	total := t.ServiceFee
	for _, p := range t.Parts {
		total = total.Add(p.Subtotal)
	}
	t.TotalCost = total
}

// DurationDays is the number of started days from intake to completion,
// or nil until the ticket is completed.
func (t *ServiceTicket) DurationDays() *int {
	if t.Timestamps.CompletedAt == nil {
		return nil
	}
	days := int(math.Ceil(t.Timestamps.CompletedAt.Sub(t.CreatedAt).Hours() / 24))
	return &days
}

type ServiceTicketPart struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TicketID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name        string          `gorm:"not null"`
	Qty         int             `gorm:"not null"`
	PriceAtTime decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	CreatedAt   time.Time
}

func (ServiceTicketPart) TableName() string { return "service_ticket_parts" }
