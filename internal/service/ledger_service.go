package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/dto"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/infra"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/repository"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("github.com/FarrelGhozy/Kasir-UTC-02/internal/service")

// MovementRef describes why the ledger is moving stock.
type MovementRef struct {
	Type        string
	Reason      string
	ReferenceID *uuid.UUID
	ActorID     *uuid.UUID
}

type DebitLine struct {
	ItemID uuid.UUID
	Qty    int
}

// LedgerService is the only writer of inventory stock.
//
// The Tx variants join a transaction owned by the caller and return the
// movements they recorded; the caller passes them to AfterCommit once the
// transaction has committed. The plain variants run their own transaction.
type LedgerService interface {
	TryDebit(ctx context.Context, itemID uuid.UUID, qty int, ref MovementRef) (int, error)
	Credit(ctx context.Context, itemID uuid.UUID, qty int, ref MovementRef) (int, error)
	BatchTryDebit(ctx context.Context, lines []DebitLine, ref MovementRef) ([]model.StockMovement, error)

	TryDebitTx(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int, ref MovementRef) (*model.StockMovement, error)
	CreditTx(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int, ref MovementRef) (*model.StockMovement, error)
	BatchTryDebitTx(ctx context.Context, tx *gorm.DB, lines []DebitLine, ref MovementRef) ([]model.StockMovement, error)
	AfterCommit(ctx context.Context, movements ...model.StockMovement)

	ListMovements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error)
}

type ledgerService struct {
	items      repository.InventoryRepository
	movements  repository.StockMovementRepository
	txr        repository.Transactor
	events     *infra.StockEventPublisher
	dispatcher *worker.Dispatcher
}

func NewLedgerService(
	items repository.InventoryRepository,
	movements repository.StockMovementRepository,
	txr repository.Transactor,
	events *infra.StockEventPublisher,
	dispatcher *worker.Dispatcher,
) LedgerService {
	return &ledgerService{
		items:      items,
		movements:  movements,
		txr:        txr,
		events:     events,
		dispatcher: dispatcher,
	}
}

// ── Single-item operations ───────────────────────────────────────────────────

func (s *ledgerService) TryDebit(ctx context.Context, itemID uuid.UUID, qty int, ref MovementRef) (int, error) {
	var mv *model.StockMovement
	err := runTx(ctx, s.txr, func(tx *gorm.DB) error {
		var err error
		mv, err = s.TryDebitTx(ctx, tx, itemID, qty, ref)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.AfterCommit(ctx, *mv)
	return mv.StockAfter, nil
}

func (s *ledgerService) Credit(ctx context.Context, itemID uuid.UUID, qty int, ref MovementRef) (int, error) {
	var mv *model.StockMovement
	err := runTx(ctx, s.txr, func(tx *gorm.DB) error {
		var err error
		mv, err = s.CreditTx(ctx, tx, itemID, qty, ref)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.AfterCommit(ctx, *mv)
	return mv.StockAfter, nil
}

func (s *ledgerService) TryDebitTx(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int, ref MovementRef) (*model.StockMovement, error) {
	ctx, span := tracer.Start(ctx, "ledger.TryDebit", trace.WithAttributes(
		attribute.String("item.id", itemID.String()),
		attribute.Int("qty", qty),
	))
	defer span.End()

	mv, err := s.debit(ctx, tx, itemID, qty, ref)
	recordSpanErr(span, err)
	infra.LedgerOps.WithLabelValues("debit", outcome(err)).Inc()
	return mv, err
}

func (s *ledgerService) debit(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int, ref MovementRef) (*model.StockMovement, error) {
	if qty <= 0 {
		return nil, invalid("quantity must be greater than zero")
	}
	item, ok, err := s.items.TryDebitTx(ctx, tx, itemID, qty)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.explainMiss(ctx, tx, itemID, qty)
	}
	return s.record(ctx, tx, item, -qty, ref)
}

// explainMiss classifies a conditional debit that matched no row.
func (s *ledgerService) explainMiss(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int) error {
	item, err := s.items.FindByIDTx(ctx, tx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("item", itemID.String())
		}
		return err
	}
	if !item.IsActive {
		return notFound("item", itemID.String())
	}
	return &InsufficientStockError{
		ItemID:    itemID.String(),
		ItemName:  item.Name,
		Available: item.Stock,
		Requested: qty,
	}
}

func (s *ledgerService) CreditTx(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int, ref MovementRef) (*model.StockMovement, error) {
	ctx, span := tracer.Start(ctx, "ledger.Credit", trace.WithAttributes(
		attribute.String("item.id", itemID.String()),
		attribute.Int("qty", qty),
	))
	defer span.End()

	mv, err := s.credit(ctx, tx, itemID, qty, ref)
	recordSpanErr(span, err)
	infra.LedgerOps.WithLabelValues("credit", outcome(err)).Inc()
	return mv, err
}

func (s *ledgerService) credit(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int, ref MovementRef) (*model.StockMovement, error) {
	if qty <= 0 {
		return nil, invalid("quantity must be greater than zero")
	}
	item, ok, err := s.items.CreditTx(ctx, tx, itemID, qty)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("item", itemID.String())
	}
	return s.record(ctx, tx, item, qty, ref)
}

func (s *ledgerService) record(ctx context.Context, tx *gorm.DB, item *model.InventoryItem, delta int, ref MovementRef) (*model.StockMovement, error) {
	mv := &model.StockMovement{
		ItemID:      item.ID,
		Type:        ref.Type,
		Quantity:    delta,
		StockBefore: item.Stock - delta,
		StockAfter:  item.Stock,
		Reason:      ref.Reason,
		ReferenceID: ref.ReferenceID,
		ActorID:     ref.ActorID,
		CreatedAt:   time.Now(),
	}
	if err := s.movements.CreateTx(ctx, tx, mv); err != nil {
		return nil, err
	}
	mv.Item = item
	return mv, nil
}

// ── Batch debit ──────────────────────────────────────────────────────────────

func (s *ledgerService) BatchTryDebit(ctx context.Context, lines []DebitLine, ref MovementRef) ([]model.StockMovement, error) {
	var mvs []model.StockMovement
	err := runTx(ctx, s.txr, func(tx *gorm.DB) error {
		var err error
		mvs, err = s.BatchTryDebitTx(ctx, tx, lines, ref)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.AfterCommit(ctx, mvs...)
	return mvs, nil
}

// BatchTryDebitTx debits every line or returns the first failure. Lines for
// the same item are merged and items are locked in id order so two
// concurrent batches cannot deadlock. The caller's tx must be rolled back
// on error.
func (s *ledgerService) BatchTryDebitTx(ctx context.Context, tx *gorm.DB, lines []DebitLine, ref MovementRef) ([]model.StockMovement, error) {
	ctx, span := tracer.Start(ctx, "ledger.BatchTryDebit", trace.WithAttributes(attribute.Int("lines", len(lines))))
	defer span.End()

	merged := mergeLines(lines)
	if len(merged) == 0 {
		err := invalid("no lines to debit")
		recordSpanErr(span, err)
		return nil, err
	}

	out := make([]model.StockMovement, 0, len(merged))
	for _, l := range merged {
		mv, err := s.TryDebitTx(ctx, tx, l.ItemID, l.Qty, ref)
		if err != nil {
			recordSpanErr(span, err)
			return nil, err
		}
		out = append(out, *mv)
	}
	return out, nil
}

func mergeLines(lines []DebitLine) []DebitLine {
	byItem := make(map[uuid.UUID]int, len(lines))
	for _, l := range lines {
		byItem[l.ItemID] += l.Qty
	}
	out := make([]DebitLine, 0, len(byItem))
	for id, qty := range byItem {
		out = append(out, DebitLine{ItemID: id, Qty: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID.String() < out[j].ItemID.String() })
	return out
}

// ── Post-commit side effects ─────────────────────────────────────────────────

// AfterCommit publishes stock events and queues low-stock alerts. Failures are
// logged; the ledger state is already durable.
func (s *ledgerService) AfterCommit(ctx context.Context, movements ...model.StockMovement) {
	if len(movements) == 0 {
		return
	}
	events := make([]infra.StockEvent, 0, len(movements))
	for _, mv := range movements {
		infra.LedgerUnits.WithLabelValues(mv.Type).Add(float64(abs(mv.Quantity)))
		ev := infra.StockEvent{
			MovementID:  mv.ID.String(),
			ItemID:      mv.ItemID.String(),
			Type:        mv.Type,
			Quantity:    mv.Quantity,
			StockBefore: mv.StockBefore,
			StockAfter:  mv.StockAfter,
			At:          mv.CreatedAt,
		}
		if mv.ReferenceID != nil {
			ev.ReferenceID = mv.ReferenceID.String()
		}
		events = append(events, ev)

		if mv.Quantity < 0 && mv.Item != nil && mv.Item.IsLowStock() && s.dispatcher != nil {
			err := s.dispatcher.EnqueueLowStock(ctx, worker.LowStockJobPayload{
				ItemID:        mv.ItemID.String(),
				SKU:           mv.Item.SKU,
				Name:          mv.Item.Name,
				Stock:         mv.StockAfter,
				MinStockAlert: mv.Item.MinStockAlert,
			})
			if err != nil {
				log.Warn().Err(err).Str("item_id", mv.ItemID.String()).Msg("ledger: low-stock job not enqueued")
			}
		}
	}

	if s.events == nil {
		return
	}
	go func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.events.Publish(ctx, events...); err != nil {
			log.Warn().Err(err).Int("events", len(events)).Msg("ledger: stock events not published")
		}
	}(context.WithoutCancel(ctx))
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *ledgerService) ListMovements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error) {
	rf := repository.MovementFilter{Type: filter.Type, Page: filter.Page, Limit: filter.Limit}
	if filter.ItemID != "" {
		id, err := uuid.Parse(filter.ItemID)
		if err != nil {
			return nil, invalid("invalid item_id")
		}
		rf.ItemID = &id
	}
	rows, total, err := s.movements.List(ctx, rf)
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovementResponse, len(rows))
	for i := range rows {
		data[i] = movementToResponse(&rows[i])
	}
	return &dto.MovementListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func movementToResponse(m *model.StockMovement) dto.MovementResponse {
	resp := dto.MovementResponse{
		ID:          m.ID.String(),
		ItemID:      m.ItemID.String(),
		Type:        m.Type,
		Quantity:    m.Quantity,
		StockBefore: m.StockBefore,
		StockAfter:  m.StockAfter,
		Reason:      m.Reason,
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
	}
	if m.Item != nil {
		resp.ItemName = m.Item.Name
	}
	if m.ReferenceID != nil {
		ref := m.ReferenceID.String()
		resp.ReferenceID = &ref
	}
	return resp
}

// ── helpers ──────────────────────────────────────────────────────────────────

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func recordSpanErr(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
