package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/dto"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceCacheInvalidator drops cached public price answers.
type PriceCacheInvalidator interface {
	Invalidate(ctx context.Context, skus ...string)
}

type InventoryService interface {
	Create(ctx context.Context, actorID uuid.UUID, req dto.CreateItemRequest) (*dto.ItemResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.ItemResponse, error)
	GetBySKU(ctx context.Context, sku string) (*dto.ItemResponse, error)
	List(ctx context.Context, filter dto.ItemFilter) (*dto.ItemListResponse, error)
	LowStockAlerts(ctx context.Context) ([]dto.LowStockAlert, error)
	Update(ctx context.Context, actorID, id uuid.UUID, req dto.UpdateItemRequest) (*dto.ItemResponse, error)
	AdjustStock(ctx context.Context, actorID, id uuid.UUID, req dto.AdjustStockRequest) (*dto.StockResponse, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Reactivate(ctx context.Context, id uuid.UUID) error
	PriceHistory(ctx context.Context, id uuid.UUID, page, limit int) (*dto.PriceHistoryListResponse, error)
	PriceCheck(ctx context.Context, sku string) (*dto.PriceCheckResponse, error)
}

type inventoryService struct {
	repo    repository.InventoryRepository
	history repository.PriceHistoryRepository
	ledger  LedgerService
	txr     repository.Transactor
	cache   PriceCacheInvalidator
}

func NewInventoryService(
	repo repository.InventoryRepository,
	history repository.PriceHistoryRepository,
	ledger LedgerService,
	txr repository.Transactor,
	cache PriceCacheInvalidator,
) InventoryService {
	return &inventoryService{repo: repo, history: history, ledger: ledger, txr: txr, cache: cache}
}

func normalizeSKU(sku string) string { return strings.ToUpper(strings.TrimSpace(sku)) }

func validatePrices(purchase, selling decimal.Decimal) error {
	if purchase.IsNegative() || selling.IsNegative() {
		return invalid("prices cannot be negative")
	}
	if selling.LessThan(purchase) {
		return invalid("selling price must be greater than or equal to purchase price")
	}
	return nil
}

// ── Create ───────────────────────────────────────────────────────────────────
// The row is inserted with zero stock; the opening quantity goes through the
// ledger as a restock movement in the same transaction.

func (s *inventoryService) Create(ctx context.Context, actorID uuid.UUID, req dto.CreateItemRequest) (*dto.ItemResponse, error) {
	if err := validatePrices(req.PurchasePrice, req.SellingPrice); err != nil {
		return nil, err
	}
	item := &model.InventoryItem{
		SKU:           normalizeSKU(req.SKU),
		Name:          strings.TrimSpace(req.Name),
		Category:      req.Category,
		PurchasePrice: req.PurchasePrice,
		SellingPrice:  req.SellingPrice,
		MinStockAlert: 5,
		Description:   req.Description,
		IsActive:      true,
	}
	if item.Category == "" {
		item.Category = model.CategorySparepart
	}
	if req.MinStockAlert != nil {
		item.MinStockAlert = *req.MinStockAlert
	}

	var mv *model.StockMovement
	err := runTx(ctx, s.txr, func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, item); err != nil {
			return translate(err, "item with this SKU", "")
		}
		if req.Stock == 0 {
			return nil
		}
		var err error
		mv, err = s.ledger.CreditTx(ctx, tx, item.ID, req.Stock, MovementRef{
			Type:    model.MovementRestock,
			Reason:  "initial stock",
			ActorID: &actorID,
		})
		if err != nil {
			return err
		}
		item.Stock = mv.StockAfter
		return nil
	})
	if err != nil {
		return nil, err
	}
	if mv != nil {
		s.ledger.AfterCommit(ctx, *mv)
	}
	resp := itemToResponse(item)
	return &resp, nil
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *inventoryService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ItemResponse, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "item", id.String())
	}
	resp := itemToResponse(item)
	return &resp, nil
}

func (s *inventoryService) GetBySKU(ctx context.Context, sku string) (*dto.ItemResponse, error) {
	item, err := s.repo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, translate(err, "item", normalizeSKU(sku))
	}
	resp := itemToResponse(item)
	return &resp, nil
}

func (s *inventoryService) List(ctx context.Context, filter dto.ItemFilter) (*dto.ItemListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ItemResponse, len(items))
	for i := range items {
		data[i] = itemToResponse(&items[i])
	}
	return &dto.ItemListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages(total, filter.Limit),
	}, nil
}

func (s *inventoryService) LowStockAlerts(ctx context.Context) ([]dto.LowStockAlert, error) {
	items, err := s.repo.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LowStockAlert, len(items))
	for i, it := range items {
		out[i] = dto.LowStockAlert{
			ID:            it.ID.String(),
			SKU:           it.SKU,
			Name:          it.Name,
			Category:      it.Category,
			Stock:         it.Stock,
			MinStockAlert: it.MinStockAlert,
			Deficit:       it.MinStockAlert - it.Stock,
		}
	}
	return out, nil
}

func (s *inventoryService) PriceCheck(ctx context.Context, sku string) (*dto.PriceCheckResponse, error) {
	item, err := s.repo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, translate(err, "item", normalizeSKU(sku))
	}
	if !item.IsActive {
		return nil, notFound("item", item.SKU)
	}
	return &dto.PriceCheckResponse{
		SKU:          item.SKU,
		Name:         item.Name,
		SellingPrice: item.SellingPrice,
		Category:     item.Category,
	}, nil
}

// ── Update ───────────────────────────────────────────────────────────────────
// Stock is not editable here. A price change writes a history row in the
// same transaction as the update.

func (s *inventoryService) Update(ctx context.Context, actorID, id uuid.UUID, req dto.UpdateItemRequest) (*dto.ItemResponse, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "item", id.String())
	}
	oldSKU := item.SKU
	oldPurchase, oldSelling := item.PurchasePrice, item.SellingPrice

	if req.SKU != nil {
		item.SKU = normalizeSKU(*req.SKU)
	}
	if req.Name != nil {
		item.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.PurchasePrice != nil {
		item.PurchasePrice = *req.PurchasePrice
	}
	if req.SellingPrice != nil {
		item.SellingPrice = *req.SellingPrice
	}
	if req.MinStockAlert != nil {
		item.MinStockAlert = *req.MinStockAlert
	}
	if req.Description != nil {
		item.Description = req.Description
	}
	if err := validatePrices(item.PurchasePrice, item.SellingPrice); err != nil {
		return nil, err
	}
	item.UpdatedAt = time.Now()

	priceChanged := !oldPurchase.Equal(item.PurchasePrice) || !oldSelling.Equal(item.SellingPrice)
	err = runTx(ctx, s.txr, func(tx *gorm.DB) error {
		if err := s.repo.UpdateDetails(ctx, tx, item); err != nil {
			return translate(err, "item with this SKU", "")
		}
		if !priceChanged {
			return nil
		}
		return s.history.Create(ctx, tx, &model.PriceHistory{
			ItemID:              item.ID,
			PurchasePriceBefore: oldPurchase,
			PurchasePriceAfter:  item.PurchasePrice,
			SellingPriceBefore:  oldSelling,
			SellingPriceAfter:   item.SellingPrice,
			ChangedBy:           &actorID,
		})
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, oldSKU, item.SKU)

	resp := itemToResponse(item)
	return &resp, nil
}

// ── Stock adjustment ─────────────────────────────────────────────────────────

func (s *inventoryService) AdjustStock(ctx context.Context, actorID, id uuid.UUID, req dto.AdjustStockRequest) (*dto.StockResponse, error) {
	if req.Quantity <= 0 {
		return nil, invalid("quantity must be greater than zero")
	}
	ref := MovementRef{Reason: req.Reason, ActorID: &actorID}

	var stock int
	var err error
	switch req.Type {
	case "add":
		ref.Type = model.MovementRestock
		stock, err = s.ledger.Credit(ctx, id, req.Quantity, ref)
	case "deduct":
		ref.Type = model.MovementAdjustment
		stock, err = s.ledger.TryDebit(ctx, id, req.Quantity, ref)
	default:
		return nil, invalid("type must be add or deduct")
	}
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "item", id.String())
	}
	return &dto.StockResponse{
		ItemID:   id.String(),
		SKU:      item.SKU,
		Name:     item.Name,
		Stock:    stock,
		Movement: ref.Type,
	}, nil
}

// ── Activation ───────────────────────────────────────────────────────────────

func (s *inventoryService) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.setActive(ctx, id, false)
}

func (s *inventoryService) Reactivate(ctx context.Context, id uuid.UUID) error {
	return s.setActive(ctx, id, true)
}

func (s *inventoryService) setActive(ctx context.Context, id uuid.UUID, active bool) error {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return translate(err, "item", id.String())
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return translate(err, "item", id.String())
	}
	s.invalidate(ctx, item.SKU)
	return nil
}

func (s *inventoryService) PriceHistory(ctx context.Context, id uuid.UUID, page, limit int) (*dto.PriceHistoryListResponse, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, translate(err, "item", id.String())
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	rows, total, err := s.history.ListByItem(ctx, id, page, limit)
	if err != nil {
		return nil, err
	}
	data := make([]dto.PriceHistoryItem, len(rows))
	for i, h := range rows {
		data[i] = dto.PriceHistoryItem{
			ID:                  h.ID.String(),
			ItemID:              h.ItemID.String(),
			PurchasePriceBefore: h.PurchasePriceBefore,
			PurchasePriceAfter:  h.PurchasePriceAfter,
			SellingPriceBefore:  h.SellingPriceBefore,
			SellingPriceAfter:   h.SellingPriceAfter,
			CreatedAt:           h.CreatedAt.Format(time.RFC3339),
		}
		if h.ChangedBy != nil {
			by := h.ChangedBy.String()
			data[i].ChangedBy = &by
		}
	}
	return &dto.PriceHistoryListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

func (s *inventoryService) invalidate(ctx context.Context, skus ...string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, skus...)
	}
}

// ── Mapping helpers ──────────────────────────────────────────────────────────

func itemToResponse(it *model.InventoryItem) dto.ItemResponse {
	return dto.ItemResponse{
		ID:            it.ID.String(),
		SKU:           it.SKU,
		Name:          it.Name,
		Category:      it.Category,
		PurchasePrice: it.PurchasePrice,
		SellingPrice:  it.SellingPrice,
		ProfitMargin:  it.ProfitMargin(),
		Stock:         it.Stock,
		MinStockAlert: it.MinStockAlert,
		IsLowStock:    it.IsLowStock(),
		Description:   it.Description,
		IsActive:      it.IsActive,
		CreatedAt:     it.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     it.UpdatedAt.Format(time.RFC3339),
	}
}

func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
