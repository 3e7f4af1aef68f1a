package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type SaleLineRequest struct {
	ItemID string `json:"item_id" validate:"required,uuid"`
	Qty    int    `json:"qty"`
}

// CheckoutRequest is the body of POST /v1/transactions.
// AmountPaid may be omitted for non-cash methods; it then defaults to the grand total.
type CheckoutRequest struct {
	Lines         []SaleLineRequest `json:"lines"          validate:"required,min=1,dive"`
	PaymentMethod string            `json:"payment_method" validate:"required,oneof=Cash Transfer QRIS Card"`
	AmountPaid    decimal.Decimal   `json:"amount_paid"    validate:"min=0"`
	// CustomerEmail: optional, when present the receipt worker mails the PDF receipt.
	CustomerEmail *string `json:"customer_email" validate:"omitempty,email"`
	Notes         *string `json:"notes"          validate:"omitempty,max=500"`
}

// ─── Filter / List ──────────────────────────────────────────────────────────

// SaleFilter is bound from query string of GET /v1/transactions.
type SaleFilter struct {
	CashierID     string `form:"cashier_id"     validate:"omitempty,uuid"`
	PaymentMethod string `form:"payment_method" validate:"omitempty,oneof=Cash Transfer QRIS Card"`
	StartDate     string `form:"start_date"` // YYYY-MM-DD
	EndDate       string `form:"end_date"`   // YYYY-MM-DD, inclusive
	Page          int    `form:"page,default=1"   validate:"min=1"`
	Limit         int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleLineResponse struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type SaleResponse struct {
	ID            string             `json:"id"`
	InvoiceNo     string             `json:"invoice_no"`
	CashierID     string             `json:"cashier_id"`
	CashierName   string             `json:"cashier_name"`
	Lines         []SaleLineResponse `json:"lines"`
	GrandTotal    decimal.Decimal    `json:"grand_total"`
	PaymentMethod string             `json:"payment_method"`
	AmountPaid    decimal.Decimal    `json:"amount_paid"`
	ChangeDue     decimal.Decimal    `json:"change_due"`
	CustomerEmail *string            `json:"customer_email"`
	Notes         *string            `json:"notes"`
	Date          string             `json:"date"`
}

type SaleListResponse struct {
	Data       []SaleResponse `json:"data"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

// RefundLine reports the outcome of crediting one sale line back to stock.
type RefundLine struct {
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
	Qty    int    `json:"qty"`
	Reason string `json:"reason,omitempty"`
}

type DeleteSaleResponse struct {
	SaleID    string       `json:"sale_id"`
	InvoiceNo string       `json:"invoice_no"`
	Restocked bool         `json:"restocked"`
	Credited  []RefundLine `json:"credited"`
	Failed    []RefundLine `json:"failed"`
}
