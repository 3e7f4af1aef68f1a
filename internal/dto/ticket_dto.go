package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CustomerRequest struct {
	Name  string `json:"name"  validate:"required,min=1,max=100"`
	Phone string `json:"phone" validate:"required,min=5,max=30"`
	Type  string `json:"type"  validate:"omitempty,oneof=Mahasiswa Dosen Umum"`
}

type DeviceRequest struct {
	Type         string  `json:"type"          validate:"required,max=50"`
	Brand        string  `json:"brand"         validate:"required,max=50"`
	Model        string  `json:"model"         validate:"required,max=100"`
	SerialNumber *string `json:"serial_number" validate:"omitempty,max=100"`
	Symptoms     string  `json:"symptoms"      validate:"required,min=3"`
	Accessories  string  `json:"accessories"   validate:"omitempty,max=200"`
}

type CreateTicketRequest struct {
	Customer     CustomerRequest `json:"customer"      validate:"required"`
	Device       DeviceRequest   `json:"device"        validate:"required"`
	TechnicianID string          `json:"technician_id" validate:"required,uuid"`
	ServiceFee   decimal.Decimal `json:"service_fee"   validate:"min=0"`
	Notes        *string         `json:"notes"         validate:"omitempty,max=1000"`
}

type UpdateStatusRequest struct {
	Status string  `json:"status" validate:"required,oneof=Queue Diagnosing Waiting_Part In_Progress Completed Picked_Up Cancelled"`
	Notes  *string `json:"notes"  validate:"omitempty,max=1000"`
}

type AddPartRequest struct {
	ItemID   string `json:"item_id"  validate:"required,uuid"`
	Quantity int    `json:"quantity"`
}

type UpdateServiceFeeRequest struct {
	ServiceFee decimal.Decimal `json:"service_fee" validate:"min=0"`
}

// ─── Filter / List ──────────────────────────────────────────────────────────

// TicketFilter is bound from query string of GET /v1/services.
type TicketFilter struct {
	Status        string `form:"status"` // comma separated list
	TechnicianID  string `form:"technician_id" validate:"omitempty,uuid"`
	CustomerPhone string `form:"customer_phone"`
	StartDate     string `form:"start_date"`
	EndDate       string `form:"end_date"`
	Page          int    `form:"page,default=1"   validate:"min=1"`
	Limit         int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type TicketPartResponse struct {
	ID          string          `json:"id"`
	ItemID      string          `json:"item_id"`
	Name        string          `json:"name"`
	Qty         int             `json:"qty"`
	PriceAtTime decimal.Decimal `json:"price_at_time"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type TicketTimestampsResponse struct {
	CreatedAt   string  `json:"created_at"`
	DiagnosedAt *string `json:"diagnosed_at"`
	CompletedAt *string `json:"completed_at"`
	PickedUpAt  *string `json:"picked_up_at"`
}

type TechnicianRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TicketResponse struct {
	ID           string                   `json:"id"`
	TicketNumber string                   `json:"ticket_number"`
	Customer     CustomerRequest          `json:"customer"`
	Device       DeviceRequest            `json:"device"`
	Technician   TechnicianRef            `json:"technician"`
	Status       string                   `json:"status"`
	PartsUsed    []TicketPartResponse     `json:"parts_used"`
	ServiceFee   decimal.Decimal          `json:"service_fee"`
	TotalCost    decimal.Decimal          `json:"total_cost"`
	Notes        *string                  `json:"notes"`
	DurationDays *int                     `json:"duration_days"`
	Timestamps   TicketTimestampsResponse `json:"timestamps"`
}

type TicketListResponse struct {
	Data       []TicketResponse `json:"data"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
}

// WorkloadResponse counts a technician's tickets per open status.
type WorkloadResponse struct {
	TechnicianID string         `json:"technician_id"`
	Counts       map[string]int `json:"counts"`
	TotalOpen    int            `json:"total_open"`
}
