package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateItemRequest struct {
	SKU           string          `json:"sku"             validate:"required,min=1,max=50"`
	Name          string          `json:"name"            validate:"required,min=1,max=200"`
	Category      string          `json:"category"        validate:"omitempty,oneof=Sparepart Accessory Software Service Other"`
	PurchasePrice decimal.Decimal `json:"purchase_price"  validate:"min=0"`
	SellingPrice  decimal.Decimal `json:"selling_price"   validate:"min=0"`
	Stock         int             `json:"stock"           validate:"min=0"`
	MinStockAlert *int            `json:"min_stock_alert" validate:"omitempty,min=0"`
	Description   *string         `json:"description"     validate:"omitempty,max=500"`
}

// UpdateItemRequest never carries stock: stock changes go through the ledger.
type UpdateItemRequest struct {
	SKU           *string          `json:"sku"             validate:"omitempty,min=1,max=50"`
	Name          *string          `json:"name"            validate:"omitempty,min=1,max=200"`
	Category      *string          `json:"category"        validate:"omitempty,oneof=Sparepart Accessory Software Service Other"`
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
	SellingPrice  *decimal.Decimal `json:"selling_price"`
	MinStockAlert *int             `json:"min_stock_alert" validate:"omitempty,min=0"`
	Description   *string          `json:"description"     validate:"omitempty,max=500"`
}

type AdjustStockRequest struct {
	Quantity int    `json:"quantity"`
	Type     string `json:"type"     validate:"required,oneof=add deduct"`
	Reason   string `json:"reason"   validate:"omitempty,max=200"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ItemFilter struct {
	Category string `form:"category"`
	Search   string `form:"search"`
	LowStock bool   `form:"low_stock"`
	Active   string `form:"active"` // "false" | "all" | default active only
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=20" validate:"min=1,max=100"`
}

type MovementFilter struct {
	ItemID string `form:"item_id" validate:"omitempty,uuid"`
	Type   string `form:"type"`
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=500"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemResponse struct {
	ID            string          `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	ProfitMargin  decimal.Decimal `json:"profit_margin"`
	Stock         int             `json:"stock"`
	MinStockAlert int             `json:"min_stock_alert"`
	IsLowStock    bool            `json:"is_low_stock"`
	Description   *string         `json:"description"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

type ItemListResponse struct {
	Data       []ItemResponse `json:"data"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

type StockResponse struct {
	ItemID   string `json:"item_id"`
	SKU      string `json:"sku"`
	Name     string `json:"name"`
	Stock    int    `json:"stock"`
	Movement string `json:"movement"`
}

type LowStockAlert struct {
	ID            string `json:"id"`
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	Stock         int    `json:"stock"`
	MinStockAlert int    `json:"min_stock_alert"`
	Deficit       int    `json:"deficit"`
}

type MovementResponse struct {
	ID          string  `json:"id"`
	ItemID      string  `json:"item_id"`
	ItemName    string  `json:"item_name,omitempty"`
	Type        string  `json:"type"`
	Quantity    int     `json:"quantity"`
	StockBefore int     `json:"stock_before"`
	StockAfter  int     `json:"stock_after"`
	Reason      string  `json:"reason"`
	ReferenceID *string `json:"reference_id"`
	CreatedAt   string  `json:"created_at"`
}

type MovementListResponse struct {
	Data  []MovementResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// PriceHistoryItem is one row of an item's price-change history.
type PriceHistoryItem struct {
	ID                  string          `json:"id"`
	ItemID              string          `json:"item_id"`
	PurchasePriceBefore decimal.Decimal `json:"purchase_price_before"`
	PurchasePriceAfter  decimal.Decimal `json:"purchase_price_after"`
	SellingPriceBefore  decimal.Decimal `json:"selling_price_before"`
	SellingPriceAfter   decimal.Decimal `json:"selling_price_after"`
	ChangedBy           *string         `json:"changed_by"`
	CreatedAt           string          `json:"created_at"`
}

type PriceHistoryListResponse struct {
	Data  []PriceHistoryItem `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// PriceCheckResponse is returned by the public price check endpoint.
type PriceCheckResponse struct {
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Category     string          `json:"category"`
}
