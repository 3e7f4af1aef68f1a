package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/dto"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/infra"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

type TicketService interface {
	Create(ctx context.Context, actor Actor, req dto.CreateTicketRequest) (*dto.TicketResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*dto.TicketResponse, error)
	GetByNumber(ctx context.Context, number string) (*dto.TicketResponse, error)
	List(ctx context.Context, filter dto.TicketFilter) (*dto.TicketListResponse, error)
	UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, req dto.UpdateStatusRequest) (*dto.TicketResponse, error)
	AddPart(ctx context.Context, actor Actor, id uuid.UUID, req dto.AddPartRequest) (*dto.TicketResponse, error)
	RemovePart(ctx context.Context, actor Actor, id, partID uuid.UUID) (*dto.TicketResponse, error)
	UpdateServiceFee(ctx context.Context, id uuid.UUID, fee decimal.Decimal) (*dto.TicketResponse, error)
	Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*dto.TicketResponse, error)
	Workload(ctx context.Context, technicianID uuid.UUID) (*dto.WorkloadResponse, error)
}

type ticketService struct {
	repo     repository.TicketRepository
	users    repository.UserRepository
	counters repository.CounterRepository
	ledger   LedgerService
	txr      repository.Transactor
	now      func() time.Time
}

func NewTicketService(
	repo repository.TicketRepository,
	users repository.UserRepository,
	counters repository.CounterRepository,
	ledger LedgerService,
	txr repository.Transactor,
) TicketService {
	return &ticketService{
		repo:     repo,
		users:    users,
		counters: counters,
		ledger:   ledger,
		txr:      txr,
		now:      time.Now,
	}
}

// ── Create ───────────────────────────────────────────────────────────────────

func (s *ticketService) Create(ctx context.Context, actor Actor, req dto.CreateTicketRequest) (*dto.TicketResponse, error) {
	techID, err := uuid.Parse(req.TechnicianID)
	if err != nil {
		return nil, invalid("invalid technician_id")
	}
	tech, err := s.users.FindByID(ctx, techID)
	if err != nil || !tech.IsActive || tech.Role != model.RoleTechnician {
		return nil, invalid("technician must be an active teknisi")
	}
	if req.ServiceFee.IsNegative() {
		return nil, invalid("service fee cannot be negative")
	}

	now := s.now()
	t := &model.ServiceTicket{
		Customer: model.Customer{
			Name:  strings.TrimSpace(req.Customer.Name),
			Phone: strings.TrimSpace(req.Customer.Phone),
			Type:  req.Customer.Type,
		},
		Device: model.Device{
			Type:         req.Device.Type,
			Brand:        req.Device.Brand,
			Model:        req.Device.Model,
			SerialNumber: req.Device.SerialNumber,
			Symptoms:     req.Device.Symptoms,
			Accessories:  req.Device.Accessories,
		},
		Technician: model.Technician{UserID: tech.ID, Name: tech.Name},
		Status:     model.StatusQueue,
		ServiceFee: req.ServiceFee,
		Notes:      req.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if t.Customer.Type == "" {
		t.Customer.Type = model.CustomerGeneral
	}
	if t.Device.Accessories == "" {
		t.Device.Accessories = "None"
	}
	t.RecomputeTotal()

	err = runTx(ctx, s.txr, func(tx *gorm.DB) error {
		year := now.Format("2006")
		n, err := s.counters.NextTx(ctx, tx, "SRV-"+year)
		if err != nil {
			return err
		}
		t.TicketNumber = fmt.Sprintf("SRV-%s%03d", year, n)
		return translate(s.repo.Create(ctx, tx, t), "ticket", t.TicketNumber)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("ticket_number", t.TicketNumber).
		Str("technician_id", tech.ID.String()).
		Str("created_by", actor.ID.String()).
		Msg("service ticket created")
	return ticketToResponse(t), nil
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *ticketService) GetByID(ctx context.Context, id uuid.UUID) (*dto.TicketResponse, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "ticket", id.String())
	}
	return ticketToResponse(t), nil
}

func (s *ticketService) GetByNumber(ctx context.Context, number string) (*dto.TicketResponse, error) {
	t, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, translate(err, "ticket", number)
	}
	return ticketToResponse(t), nil
}

func (s *ticketService) List(ctx context.Context, filter dto.TicketFilter) (*dto.TicketListResponse, error) {
	if err := validateDateRange(filter.StartDate, filter.EndDate); err != nil {
		return nil, err
	}
	for _, st := range strings.Split(filter.Status, ",") {
		if st = strings.TrimSpace(st); st != "" && !isKnownStatus(model.TicketStatus(st)) {
			return nil, invalid("unknown status %q", st)
		}
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	tickets, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.TicketResponse, len(tickets))
	for i := range tickets {
		data[i] = *ticketToResponse(&tickets[i])
	}
	return &dto.TicketListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages(total, filter.Limit),
	}, nil
}

func (s *ticketService) Workload(ctx context.Context, technicianID uuid.UUID) (*dto.WorkloadResponse, error) {
	if _, err := s.users.FindByID(ctx, technicianID); err != nil {
		return nil, translate(err, "technician", technicianID.String())
	}
	counts, err := s.repo.CountByStatus(ctx, technicianID, openStatuses)
	if err != nil {
		return nil, err
	}
	resp := &dto.WorkloadResponse{TechnicianID: technicianID.String(), Counts: make(map[string]int, len(counts))}
	for st, n := range counts {
		resp.Counts[string(st)] = n
		resp.TotalOpen += n
	}
	return resp, nil
}

// ── Mutations ────────────────────────────────────────────────────────────────
// Every mutation locks the ticket row, applies its change and recomputes the
// total inside one transaction.

// mutate runs fn on the locked ticket and saves it. Ledger movements returned
// by fn are published after commit.
func (s *ticketService) mutate(ctx context.Context, id uuid.UUID, fn func(tx *gorm.DB, t *model.ServiceTicket) ([]model.StockMovement, error)) (*model.ServiceTicket, error) {
	var (
		ticket    *model.ServiceTicket
		movements []model.StockMovement
	)
	err := runTx(ctx, s.txr, func(tx *gorm.DB) error {
		t, err := s.repo.FindForUpdateTx(ctx, tx, id)
		if err != nil {
			return translate(err, "ticket", id.String())
		}
		if movements, err = fn(tx, t); err != nil {
			return err
		}
		t.RecomputeTotal()
		t.UpdatedAt = s.now()
		if err := s.repo.SaveTx(ctx, tx, t); err != nil {
			return err
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(movements) > 0 {
		s.ledger.AfterCommit(ctx, movements...)
	}
	return ticket, nil
}

func (s *ticketService) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, req dto.UpdateStatusRequest) (*dto.TicketResponse, error) {
	to := model.TicketStatus(req.Status)
	ctx, span := tracer.Start(ctx, "ticket.UpdateStatus", trace.WithAttributes(
		attribute.String("ticket.id", id.String()),
		attribute.String("status.to", req.Status),
	))
	defer span.End()

	var from model.TicketStatus
	t, err := s.mutate(ctx, id, func(_ *gorm.DB, t *model.ServiceTicket) ([]model.StockMovement, error) {
		from = t.Status
		if err := checkTransition(t, to); err != nil {
			return nil, err
		}
		t.Status = to
		stamp(t, to, s.now())
		if req.Notes != nil {
			t.Notes = req.Notes
		}
		return nil, nil
	})
	recordSpanErr(span, err)
	if err != nil {
		return nil, err
	}

	infra.TicketTransitions.WithLabelValues(string(to)).Inc()
	log.Info().
		Str("ticket_number", t.TicketNumber).
		Str("from", string(from)).
		Str("to", string(to)).
		Str("actor_id", actor.ID.String()).
		Msg("ticket status changed")
	return ticketToResponse(t), nil
}

func checkTransition(t *model.ServiceTicket, to model.TicketStatus) error {
	if !isKnownStatus(to) {
		return invalid("unknown status %q", to)
	}
	if t.Status == model.StatusPickedUp || t.Status == model.StatusCancelled {
		return fmt.Errorf("%w: %s is %s", ErrTicketClosed, t.TicketNumber, t.Status)
	}
	if !CanTransition(t.Status, to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, t.Status, to)
	}
	return nil
}

func (s *ticketService) Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*dto.TicketResponse, error) {
	return s.UpdateStatus(ctx, actor, id, dto.UpdateStatusRequest{Status: string(model.StatusCancelled)})
}

// AddPart debits the item and appends a part priced at the current selling
// price. When the debit fails the ticket is left untouched.
func (s *ticketService) AddPart(ctx context.Context, actor Actor, id uuid.UUID, req dto.AddPartRequest) (*dto.TicketResponse, error) {
	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		return nil, invalid("invalid item_id")
	}
	if req.Quantity <= 0 {
		return nil, invalid("quantity must be greater than zero")
	}
	ctx, span := tracer.Start(ctx, "ticket.AddPart", trace.WithAttributes(
		attribute.String("ticket.id", id.String()),
		attribute.String("item.id", itemID.String()),
		attribute.Int("qty", req.Quantity),
	))
	defer span.End()

	t, err := s.mutate(ctx, id, func(tx *gorm.DB, t *model.ServiceTicket) ([]model.StockMovement, error) {
		if !acceptsChanges(t.Status) {
			return nil, fmt.Errorf("%w: cannot add parts to a %s ticket", ErrTicketClosed, t.Status)
		}
		mv, err := s.ledger.TryDebitTx(ctx, tx, itemID, req.Quantity, MovementRef{
			Type:        model.MovementServicePart,
			Reason:      "part for " + t.TicketNumber,
			ReferenceID: &t.ID,
			ActorID:     &actor.ID,
		})
		if err != nil {
			return nil, err
		}
		price := mv.Item.SellingPrice
		part := model.ServiceTicketPart{
			TicketID:    t.ID,
			ItemID:      itemID,
			Name:        mv.Item.Name,
			Qty:         req.Quantity,
			PriceAtTime: price,
			Subtotal:    price.Mul(decimal.NewFromInt(int64(req.Quantity))),
			CreatedAt:   s.now(),
		}
		if err := s.repo.AddPartTx(ctx, tx, &part); err != nil {
			return nil, err
		}
		t.Parts = append(t.Parts, part)
		return []model.StockMovement{*mv}, nil
	})
	recordSpanErr(span, err)
	if err != nil {
		return nil, err
	}
	return ticketToResponse(t), nil
}

// RemovePart deletes a part and credits its quantity back to stock in the
// same transaction. The item must still be active.
func (s *ticketService) RemovePart(ctx context.Context, actor Actor, id, partID uuid.UUID) (*dto.TicketResponse, error) {
	t, err := s.mutate(ctx, id, func(tx *gorm.DB, t *model.ServiceTicket) ([]model.StockMovement, error) {
		if !acceptsChanges(t.Status) {
			return nil, fmt.Errorf("%w: cannot remove parts from a %s ticket", ErrTicketClosed, t.Status)
		}
		idx := -1
		for i, p := range t.Parts {
			if p.ID == partID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, notFound("part", partID.String())
		}
		part := t.Parts[idx]

		mv, err := s.ledger.CreditTx(ctx, tx, part.ItemID, part.Qty, MovementRef{
			Type:        model.MovementPartRemoved,
			Reason:      "part removed from " + t.TicketNumber,
			ReferenceID: &t.ID,
			ActorID:     &actor.ID,
		})
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, invalid("item %s is inactive; reactivate it before removing the part", part.Name)
			}
			return nil, err
		}
		if err := s.repo.DeletePartTx(ctx, tx, part.ID); err != nil {
			return nil, err
		}
		t.Parts = append(t.Parts[:idx], t.Parts[idx+1:]...)
		return []model.StockMovement{*mv}, nil
	})
	if err != nil {
		return nil, err
	}
	return ticketToResponse(t), nil
}

func (s *ticketService) UpdateServiceFee(ctx context.Context, id uuid.UUID, fee decimal.Decimal) (*dto.TicketResponse, error) {
	if fee.IsNegative() {
		return nil, invalid("service fee cannot be negative")
	}
	t, err := s.mutate(ctx, id, func(_ *gorm.DB, t *model.ServiceTicket) ([]model.StockMovement, error) {
		if !acceptsChanges(t.Status) {
			return nil, fmt.Errorf("%w: service fee is fixed once the ticket is %s", ErrTicketClosed, t.Status)
		}
		t.ServiceFee = fee
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return ticketToResponse(t), nil
}

// ── Mapping helpers ──────────────────────────────────────────────────────────

func fmtTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func ticketToResponse(t *model.ServiceTicket) *dto.TicketResponse {
	parts := make([]dto.TicketPartResponse, len(t.Parts))
	for i, p := range t.Parts {
		parts[i] = dto.TicketPartResponse{
			ID:          p.ID.String(),
			ItemID:      p.ItemID.String(),
			Name:        p.Name,
			Qty:         p.Qty,
			PriceAtTime: p.PriceAtTime,
			Subtotal:    p.Subtotal,
		}
	}
	return &dto.TicketResponse{
		ID:           t.ID.String(),
		TicketNumber: t.TicketNumber,
		Customer: dto.CustomerRequest{
			Name:  t.Customer.Name,
			Phone: t.Customer.Phone,
			Type:  t.Customer.Type,
		},
		Device: dto.DeviceRequest{
			Type:         t.Device.Type,
			Brand:        t.Device.Brand,
			Model:        t.Device.Model,
			SerialNumber: t.Device.SerialNumber,
			Symptoms:     t.Device.Symptoms,
			Accessories:  t.Device.Accessories,
		},
		Technician:   dto.TechnicianRef{ID: t.Technician.UserID.String(), Name: t.Technician.Name},
		Status:       string(t.Status),
		PartsUsed:    parts,
		ServiceFee:   t.ServiceFee,
		TotalCost:    t.TotalCost,
		Notes:        t.Notes,
		DurationDays: t.DurationDays(),
		Timestamps: dto.TicketTimestampsResponse{
			CreatedAt:   t.CreatedAt.Format(time.RFC3339),
			DiagnosedAt: fmtTime(t.Timestamps.DiagnosedAt),
			CompletedAt: fmtTime(t.Timestamps.CompletedAt),
			PickedUpAt:  fmtTime(t.Timestamps.PickedUpAt),
		},
	}
}
