package service

import (
	"context"
	"fmt"
	"time"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/dto"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/infra"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/repository"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type SaleService interface {
	Checkout(ctx context.Context, cashier Actor, req dto.CheckoutRequest) (*dto.SaleResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error)
	GetByInvoice(ctx context.Context, invoiceNo string) (*dto.SaleResponse, error)
	List(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID, restock bool) (*dto.DeleteSaleResponse, error)
	ReceiptPath(ctx context.Context, id uuid.UUID) (string, error)
}

type saleService struct {
	repo       repository.SaleRepository
	items      repository.InventoryRepository
	counters   repository.CounterRepository
	receipts   repository.ReceiptRepository
	ledger     LedgerService
	txr        repository.Transactor
	dispatcher *worker.Dispatcher
	now        func() time.Time
}

func NewSaleService(
	repo repository.SaleRepository,
	items repository.InventoryRepository,
	counters repository.CounterRepository,
	receipts repository.ReceiptRepository,
	ledger LedgerService,
	txr repository.Transactor,
	dispatcher *worker.Dispatcher,
) SaleService {
	return &saleService{
		repo:       repo,
		items:      items,
		counters:   counters,
		receipts:   receipts,
		ledger:     ledger,
		txr:        txr,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// ── Checkout ─────────────────────────────────────────────────────────────────
//   1. Resolve every line to an active item and snapshot name and price
//   2. Validate payment against the grand total (no stock touched yet)
//   3. BEGIN TX: allocate invoice number, batch debit, insert sale + lines
//   4. COMMIT
//   5. (async) stock events, low-stock alerts, receipt job

func (s *saleService) Checkout(ctx context.Context, cashier Actor, req dto.CheckoutRequest) (*dto.SaleResponse, error) {
	ctx, span := tracer.Start(ctx, "sale.Checkout")
	defer span.End()
	span.SetAttributes(attribute.Int("lines", len(req.Lines)), attribute.String("payment.method", req.PaymentMethod))

	resp, err := s.checkout(ctx, cashier, req)
	recordSpanErr(span, err)
	infra.Checkouts.WithLabelValues(req.PaymentMethod, outcome(err)).Inc()
	return resp, err
}

func (s *saleService) checkout(ctx context.Context, cashier Actor, req dto.CheckoutRequest) (*dto.SaleResponse, error) {
	if len(req.Lines) == 0 {
		return nil, invalid("cart is empty")
	}

	now := s.now()
	sale := model.RetailSale{
		ID:            uuid.New(),
		CashierID:     cashier.ID,
		CashierName:   cashier.Name,
		CustomerEmail: req.CustomerEmail,
		Notes:         req.Notes,
		Date:          now,
	}

	// 1. Resolve lines and snapshot prices (pre-flight, outside TX)
	debits := make([]DebitLine, 0, len(req.Lines))
	total := decimal.Zero
	for i, l := range req.Lines {
		if l.Qty <= 0 {
			return nil, invalid("line %d: qty must be greater than zero", i+1)
		}
		itemID, err := uuid.Parse(l.ItemID)
		if err != nil {
			return nil, invalid("line %d: invalid item_id", i+1)
		}
		item, err := s.items.FindByID(ctx, itemID)
		if err != nil {
			return nil, translate(err, "item", l.ItemID)
		}
		if !item.IsActive {
			return nil, notFound("item", l.ItemID)
		}
		lineTotal := item.SellingPrice.Mul(decimal.NewFromInt(int64(l.Qty)))
		total = total.Add(lineTotal)
		sale.Lines = append(sale.Lines, model.RetailSaleLine{
			SaleID:    sale.ID,
			Position:  i + 1,
			ItemID:    itemID,
			Name:      item.Name,
			Qty:       l.Qty,
			UnitPrice: item.SellingPrice,
			LineTotal: lineTotal,
		})
		debits = append(debits, DebitLine{ItemID: itemID, Qty: l.Qty})
	}
	sale.GrandTotal = total

	// 2. Payment before any stock movement
	settlement, err := Settle(req.PaymentMethod, total, req.AmountPaid)
	if err != nil {
		return nil, err
	}
	sale.PaymentMethod = string(settlement.Method)
	sale.AmountPaid = settlement.AmountPaid
	sale.ChangeDue = settlement.ChangeDue

	// 3. Debit, number and persist atomically
	var movements []model.StockMovement
	err = runTx(ctx, s.txr, func(tx *gorm.DB) error {
		period := now.Format("200601")
		n, err := s.counters.NextTx(ctx, tx, "INV-"+period)
		if err != nil {
			return err
		}
		sale.InvoiceNo = fmt.Sprintf("INV-%s-%04d", period, n)

		movements, err = s.ledger.BatchTryDebitTx(ctx, tx, debits, MovementRef{
			Type:        model.MovementSale,
			Reason:      "sale " + sale.InvoiceNo,
			ReferenceID: &sale.ID,
			ActorID:     &cashier.ID,
		})
		if err != nil {
			return err
		}

		if err := s.repo.Create(ctx, tx, &sale); err != nil {
			return translate(err, "sale", sale.InvoiceNo)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 5. Post-commit, best effort
	s.ledger.AfterCommit(ctx, movements...)
	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueReceipt(ctx, worker.ReceiptJobPayload{
			SaleID:        sale.ID.String(),
			CustomerEmail: req.CustomerEmail,
		}); err != nil {
			log.Warn().Err(err).Str("invoice_no", sale.InvoiceNo).Msg("checkout: receipt job not enqueued")
		}
	}

	log.Info().
		Str("invoice_no", sale.InvoiceNo).
		Str("cashier_id", cashier.ID.String()).
		Str("total", sale.GrandTotal.StringFixed(2)).
		Msg("checkout completed")
	return saleToResponse(&sale), nil
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *saleService) GetByID(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "sale", id.String())
	}
	return saleToResponse(sale), nil
}

func (s *saleService) GetByInvoice(ctx context.Context, invoiceNo string) (*dto.SaleResponse, error) {
	sale, err := s.repo.FindByInvoice(ctx, invoiceNo)
	if err != nil {
		return nil, translate(err, "sale", invoiceNo)
	}
	return saleToResponse(sale), nil
}

func (s *saleService) List(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error) {
	if err := validateDateRange(filter.StartDate, filter.EndDate); err != nil {
		return nil, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	sales, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.SaleResponse, len(sales))
	for i := range sales {
		data[i] = *saleToResponse(&sales[i])
	}
	return &dto.SaleListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages(total, filter.Limit),
	}, nil
}

func (s *saleService) ReceiptPath(ctx context.Context, id uuid.UUID) (string, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return "", translate(err, "sale", id.String())
	}
	rc, err := s.receipts.FindBySaleID(ctx, id)
	if err != nil {
		return "", translate(err, "receipt", id.String())
	}
	if rc.PDFPath == nil {
		return "", notFound("receipt", id.String())
	}
	return *rc.PDFPath, nil
}

// ── Delete (refund) ──────────────────────────────────────────────────────────
// The sale is claimed (locked and deleted) first, then every line is credited
// in the same tx. Each credit runs under its own savepoint, so one deactivated
// or deleted item does not block the rest. A second delete of the same sale
// waits on the row lock and then finds nothing; it never credits.

func (s *saleService) Delete(ctx context.Context, actor Actor, id uuid.UUID, restock bool) (*dto.DeleteSaleResponse, error) {
	ctx, span := tracer.Start(ctx, "sale.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("sale.id", id.String()), attribute.Bool("restock", restock))

	var (
		resp      *dto.DeleteSaleResponse
		movements []model.StockMovement
	)
	err := runTx(ctx, s.txr, func(tx *gorm.DB) error {
		sale, err := s.repo.DeleteTx(ctx, tx, id)
		if err != nil {
			return translate(err, "sale", id.String())
		}

		resp = &dto.DeleteSaleResponse{
			SaleID:    sale.ID.String(),
			InvoiceNo: sale.InvoiceNo,
			Restocked: restock,
			Credited:  []dto.RefundLine{},
			Failed:    []dto.RefundLine{},
		}
		if !restock {
			return nil
		}

		ref := MovementRef{
			Type:        model.MovementRefund,
			Reason:      "sale " + sale.InvoiceNo + " deleted",
			ReferenceID: &sale.ID,
			ActorID:     &actor.ID,
		}
		for i, line := range sale.Lines {
			rl := dto.RefundLine{ItemID: line.ItemID.String(), Name: line.Name, Qty: line.Qty}

			var mv *model.StockMovement
			failed, err := savepoint(tx, fmt.Sprintf("refund_line_%d", i), func() error {
				var err error
				mv, err = s.ledger.CreditTx(ctx, tx, line.ItemID, line.Qty, ref)
				return err
			})
			if err != nil {
				return err
			}
			if failed != nil {
				rl.Reason = failed.Error()
				if !isNotFound(failed) {
					rl.Reason = "stock could not be restored"
				}
				resp.Failed = append(resp.Failed, rl)
				log.Warn().Err(failed).
					Str("invoice_no", sale.InvoiceNo).
					Str("item_id", line.ItemID.String()).
					Int("qty", line.Qty).
					Msg("refund: line not credited")
				continue
			}
			resp.Credited = append(resp.Credited, rl)
			movements = append(movements, *mv)
		}
		return nil
	})
	if err != nil {
		recordSpanErr(span, err)
		return nil, err
	}

	infra.RefundLines.WithLabelValues("credited").Add(float64(len(resp.Credited)))
	infra.RefundLines.WithLabelValues("failed").Add(float64(len(resp.Failed)))
	s.ledger.AfterCommit(ctx, movements...)

	log.Info().
		Str("invoice_no", resp.InvoiceNo).
		Str("actor_id", actor.ID.String()).
		Bool("restock", restock).
		Int("credited_lines", len(resp.Credited)).
		Int("failed_lines", len(resp.Failed)).
		Msg("sale deleted")
	return resp, nil
}

// ── Mapping helpers ──────────────────────────────────────────────────────────

func saleToResponse(s *model.RetailSale) *dto.SaleResponse {
	lines := make([]dto.SaleLineResponse, len(s.Lines))
	for i, l := range s.Lines {
		lines[i] = dto.SaleLineResponse{
			ItemID:    l.ItemID.String(),
			Name:      l.Name,
			Qty:       l.Qty,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		}
	}
	return &dto.SaleResponse{
		ID:            s.ID.String(),
		InvoiceNo:     s.InvoiceNo,
		CashierID:     s.CashierID.String(),
		CashierName:   s.CashierName,
		Lines:         lines,
		GrandTotal:    s.GrandTotal,
		PaymentMethod: s.PaymentMethod,
		AmountPaid:    s.AmountPaid,
		ChangeDue:     s.ChangeDue,
		CustomerEmail: s.CustomerEmail,
		Notes:         s.Notes,
		Date:          s.Date.Format(time.RFC3339),
	}
}

const dateLayout = "2006-01-02"

func validateDateRange(start, end string) error {
	var from, to time.Time
	var err error
	if start != "" {
		if from, err = time.Parse(dateLayout, start); err != nil {
			return invalid("start_date must be YYYY-MM-DD")
		}
	}
	if end != "" {
		if to, err = time.Parse(dateLayout, end); err != nil {
			return invalid("end_date must be YYYY-MM-DD")
		}
	}
	if start != "" && end != "" && to.Before(from) {
		return invalid("end_date is before start_date")
	}
	return nil
}
