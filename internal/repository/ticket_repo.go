package repository

import (
	"context"
	"strings"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/dto"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TicketRepository interface {
	Create(ctx context.Context, tx *gorm.DB, t *model.ServiceTicket) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ServiceTicket, error)
	// FindForUpdateTx loads the ticket with its parts and locks the ticket row
	// until tx ends.
	FindForUpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.ServiceTicket, error)
	FindByNumber(ctx context.Context, number string) (*model.ServiceTicket, error)
	List(ctx context.Context, filter dto.TicketFilter) ([]model.ServiceTicket, int64, error)
	// SaveTx writes the ticket columns. Parts are written with AddPartTx/DeletePartTx.
	SaveTx(ctx context.Context, tx *gorm.DB, t *model.ServiceTicket) error
	AddPartTx(ctx context.Context, tx *gorm.DB, p *model.ServiceTicketPart) error
	DeletePartTx(ctx context.Context, tx *gorm.DB, partID uuid.UUID) error
	CountByStatus(ctx context.Context, technicianID uuid.UUID, statuses []model.TicketStatus) (map[model.TicketStatus]int, error)
}

type ticketRepo struct{ db *gorm.DB }

func NewTicketRepository(db *gorm.DB) TicketRepository { return &ticketRepo{db: db} }

func orderedParts(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }

func (r *ticketRepo) Create(ctx context.Context, tx *gorm.DB, t *model.ServiceTicket) error {
	return conn(ctx, r.db, tx).Omit("Parts").Create(t).Error
}

func (r *ticketRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ServiceTicket, error) {
	var t model.ServiceTicket
	err := r.db.WithContext(ctx).Preload("Parts", orderedParts).First(&t, "id = ?", id).Error
	return &t, err
}

func (r *ticketRepo) FindForUpdateTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.ServiceTicket, error) {
	var t model.ServiceTicket
	err := conn(ctx, r.db, tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&t, "id = ?", id).Error
	if err != nil {
		return &t, err
	}
	err = conn(ctx, r.db, tx).Order("created_at ASC").
		Where("ticket_id = ?", t.ID).Find(&t.Parts).Error
	return &t, err
}

func (r *ticketRepo) FindByNumber(ctx context.Context, number string) (*model.ServiceTicket, error) {
	var t model.ServiceTicket
	err := r.db.WithContext(ctx).Preload("Parts", orderedParts).
		Where("ticket_number = ?", strings.ToUpper(number)).First(&t).Error
	return &t, err
}

func (r *ticketRepo) List(ctx context.Context, filter dto.TicketFilter) ([]model.ServiceTicket, int64, error) {
	var tickets []model.ServiceTicket
	var total int64

	q := r.db.WithContext(ctx).Model(&model.ServiceTicket{})
	if filter.Status != "" {
		var statuses []string
		for _, s := range strings.Split(filter.Status, ",") {
			if s = strings.TrimSpace(s); s != "" {
				statuses = append(statuses, s)
			}
		}
		if len(statuses) > 0 {
			q = q.Where("status IN ?", statuses)
		}
	}
	if filter.TechnicianID != "" {
		q = q.Where("technician_user_id = ?", filter.TechnicianID)
	}
	if filter.CustomerPhone != "" {
		q = q.Where("customer_phone LIKE ?", "%"+filter.CustomerPhone+"%")
	}
	if filter.StartDate != "" {
		q = q.Where("DATE(created_at) >= ?", filter.StartDate)
	}
	if filter.EndDate != "" {
		q = q.Where("DATE(created_at) <= ?", filter.EndDate)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Parts", orderedParts).
		Order("created_at DESC").
		Offset(pageOffset(filter.Page, filter.Limit)).Limit(filter.Limit).
		Find(&tickets).Error
	return tickets, total, err
}

func (r *ticketRepo) SaveTx(ctx context.Context, tx *gorm.DB, t *model.ServiceTicket) error {
	return conn(ctx, r.db, tx).Omit(clause.Associations).Save(t).Error
}

func (r *ticketRepo) AddPartTx(ctx context.Context, tx *gorm.DB, p *model.ServiceTicketPart) error {
	return conn(ctx, r.db, tx).Create(p).Error
}

func (r *ticketRepo) DeletePartTx(ctx context.Context, tx *gorm.DB, partID uuid.UUID) error {
	return conn(ctx, r.db, tx).Delete(&model.ServiceTicketPart{}, "id = ?", partID).Error
}

func (r *ticketRepo) CountByStatus(ctx context.Context, technicianID uuid.UUID, statuses []model.TicketStatus) (map[model.TicketStatus]int, error) {
	var rows []struct {
		Status model.TicketStatus
		Count  int
	}
	err := r.db.WithContext(ctx).Model(&model.ServiceTicket{}).
		Select("status, COUNT(*) AS count").
		Where("technician_user_id = ? AND status IN ?", technicianID, statuses).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[model.TicketStatus]int, len(statuses))
	for _, s := range statuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
