// Package apierror holds the error envelopes returned to API clients. Handlers
// build every 4xx/5xx body from here so storage and runtime details never
// reach the wire.
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError lists the failing validator tag per request field.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Validation failed", Fields: fields}
}

// StockError is returned when a debit asks for more units than an item holds.
type StockError struct {
	Detail    string `json:"detail"`
	ItemID    string `json:"item_id"`
	ItemName  string `json:"item_name,omitempty"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
	Deficit   int    `json:"deficit"`
}
