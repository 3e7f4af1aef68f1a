package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/dto"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory store ──────────────────────────────────────────────────────────
// memStore backs every stub repository. Stub transactions hold txMu for
// their whole duration and restore a snapshot when fn fails, which gives the
// services the same all-or-nothing behaviour Postgres does. Holding txMu also
// serializes every transaction, so concurrent tests here only check the
// service logic; the conditional UPDATE, counter upsert and row locks are
// raced for real in router/e2e_test.go.

type memData struct {
	items     map[uuid.UUID]model.InventoryItem
	movements []model.StockMovement
	counters  map[string]int64
	sales     map[uuid.UUID]model.RetailSale
	tickets   map[uuid.UUID]model.ServiceTicket
	parts     map[uuid.UUID][]model.ServiceTicketPart
	users     map[uuid.UUID]model.User
	receipts  map[uuid.UUID]model.Receipt
	history   []model.PriceHistory
}

func (d *memData) clone() memData {
	out := memData{
		items:     make(map[uuid.UUID]model.InventoryItem, len(d.items)),
		movements: append([]model.StockMovement(nil), d.movements...),
		counters:  make(map[string]int64, len(d.counters)),
		sales:     make(map[uuid.UUID]model.RetailSale, len(d.sales)),
		tickets:   make(map[uuid.UUID]model.ServiceTicket, len(d.tickets)),
		parts:     make(map[uuid.UUID][]model.ServiceTicketPart, len(d.parts)),
		users:     make(map[uuid.UUID]model.User, len(d.users)),
		receipts:  make(map[uuid.UUID]model.Receipt, len(d.receipts)),
		history:   append([]model.PriceHistory(nil), d.history...),
	}
	for k, v := range d.items {
		out.items[k] = v
	}
	for k, v := range d.counters {
		out.counters[k] = v
	}
	for k, v := range d.sales {
		v.Lines = append([]model.RetailSaleLine(nil), v.Lines...)
		out.sales[k] = v
	}
	for k, v := range d.tickets {
		out.tickets[k] = v
	}
	for k, v := range d.parts {
		out.parts[k] = append([]model.ServiceTicketPart(nil), v...)
	}
	for k, v := range d.users {
		out.users[k] = v
	}
	for k, v := range d.receipts {
		out.receipts[k] = v
	}
	return out
}

type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data memData
}

func newMemStore() *memStore {
	s := &memStore{}
	s.data = memData{
		items:    map[uuid.UUID]model.InventoryItem{},
		counters: map[string]int64{},
		sales:    map[uuid.UUID]model.RetailSale{},
		tickets:  map[uuid.UUID]model.ServiceTicket{},
		parts:    map[uuid.UUID][]model.ServiceTicketPart{},
		users:    map[uuid.UUID]model.User{},
		receipts: map[uuid.UUID]model.Receipt{},
	}
	return s
}

// Transaction implements repository.Transactor.
func (s *memStore) Transaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := s.data.clone()
	s.mu.Unlock()

	if err := fn(nil); err != nil {
		s.mu.Lock()
		s.data = snap
		s.mu.Unlock()
		return err
	}
	return nil
}

var _ repository.Transactor = (*memStore)(nil)

func (s *memStore) stock(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.items[id].Stock
}

func (s *memStore) movementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.movements)
}

func (s *memStore) seedItem(name string, stock int, price int64) model.InventoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := model.InventoryItem{
		ID:            uuid.New(),
		SKU:           strings.ToUpper(strings.ReplaceAll(name, " ", "-")),
		Name:          name,
		Category:      model.CategorySparepart,
		PurchasePrice: decimal.NewFromInt(price / 2),
		SellingPrice:  decimal.NewFromInt(price),
		Stock:         stock,
		MinStockAlert: 1,
		IsActive:      true,
	}
	s.data.items[it.ID] = it
	return it
}

func (s *memStore) setItem(it model.InventoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.items[it.ID] = it
}

func (s *memStore) seedUser(name, role string, active bool) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := model.User{
		ID:       uuid.New(),
		Name:     name,
		Username: strings.ToLower(strings.ReplaceAll(name, " ", "")),
		Role:     role,
		IsActive: active,
	}
	s.data.users[u.ID] = u
	return u
}

// ── Inventory ────────────────────────────────────────────────────────────────

type stubInventoryRepo struct{ s *memStore }

var _ repository.InventoryRepository = (*stubInventoryRepo)(nil)

func (r *stubInventoryRepo) Create(_ context.Context, _ *gorm.DB, item *model.InventoryItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.data.items {
		if it.SKU == item.SKU {
			return gorm.ErrDuplicatedKey
		}
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	r.s.data.items[item.ID] = *item
	return nil
}

func (r *stubInventoryRepo) FindByID(_ context.Context, id uuid.UUID) (*model.InventoryItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.data.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &it, nil
}

func (r *stubInventoryRepo) FindByIDTx(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.InventoryItem, error) {
	return r.FindByID(ctx, id)
}

func (r *stubInventoryRepo) FindBySKU(_ context.Context, sku string) (*model.InventoryItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, it := range r.s.data.items {
		if it.SKU == strings.ToUpper(sku) {
			return &it, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubInventoryRepo) List(_ context.Context, filter dto.ItemFilter) ([]model.InventoryItem, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.InventoryItem
	for _, it := range r.s.data.items {
		if filter.Category != "" && it.Category != filter.Category {
			continue
		}
		if filter.Active != "all" && it.IsActive == (filter.Active == "false") {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (r *stubInventoryRepo) LowStock(_ context.Context) ([]model.InventoryItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.InventoryItem
	for _, it := range r.s.data.items {
		if it.IsActive && it.IsLowStock() {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stock < out[j].Stock })
	return out, nil
}

func (r *stubInventoryRepo) UpdateDetails(_ context.Context, _ *gorm.DB, item *model.InventoryItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.data.items[item.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	next := *item
	next.Stock = cur.Stock
	r.s.data.items[item.ID] = next
	return nil
}

func (r *stubInventoryRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.data.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	it.IsActive = active
	r.s.data.items[id] = it
	return nil
}

func (r *stubInventoryRepo) TryDebitTx(_ context.Context, _ *gorm.DB, id uuid.UUID, qty int) (*model.InventoryItem, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.data.items[id]
	if !ok || !it.IsActive || it.Stock < qty {
		return nil, false, nil
	}
	it.Stock -= qty
	r.s.data.items[id] = it
	return &it, true, nil
}

func (r *stubInventoryRepo) CreditTx(_ context.Context, _ *gorm.DB, id uuid.UUID, qty int) (*model.InventoryItem, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.data.items[id]
	if !ok || !it.IsActive {
		return nil, false, nil
	}
	it.Stock += qty
	r.s.data.items[id] = it
	return &it, true, nil
}

// ── Movements, counters, history ─────────────────────────────────────────────

type stubMovementRepo struct{ s *memStore }

var _ repository.StockMovementRepository = (*stubMovementRepo)(nil)

func (r *stubMovementRepo) CreateTx(_ context.Context, _ *gorm.DB, m *model.StockMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m.ID = uuid.New()
	stored := *m
	stored.Item = nil
	r.s.data.movements = append(r.s.data.movements, stored)
	return nil
}

func (r *stubMovementRepo) List(_ context.Context, f repository.MovementFilter) ([]model.StockMovement, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.StockMovement
	for _, m := range r.s.data.movements {
		if f.ItemID != nil && m.ItemID != *f.ItemID {
			continue
		}
		if f.Type != "" && m.Type != f.Type {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

type stubCounterRepo struct{ s *memStore }

var _ repository.CounterRepository = (*stubCounterRepo)(nil)

func (r *stubCounterRepo) NextTx(_ context.Context, _ *gorm.DB, scope string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.counters[scope]++
	return r.s.data.counters[scope], nil
}

type stubHistoryRepo struct{ s *memStore }

var _ repository.PriceHistoryRepository = (*stubHistoryRepo)(nil)

func (r *stubHistoryRepo) Create(_ context.Context, _ *gorm.DB, h *model.PriceHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	h.ID = uuid.New()
	h.CreatedAt = time.Now()
	r.s.data.history = append(r.s.data.history, *h)
	return nil
}

func (r *stubHistoryRepo) ListByItem(_ context.Context, itemID uuid.UUID, _, _ int) ([]model.PriceHistory, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.PriceHistory
	for _, h := range r.s.data.history {
		if h.ItemID == itemID {
			out = append(out, h)
		}
	}
	return out, int64(len(out)), nil
}

// ── Sales, receipts ──────────────────────────────────────────────────────────

type stubSaleRepo struct{ s *memStore }

var _ repository.SaleRepository = (*stubSaleRepo)(nil)

func (r *stubSaleRepo) Create(_ context.Context, _ *gorm.DB, sale *model.RetailSale) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.sales {
		if existing.InvoiceNo == sale.InvoiceNo {
			return gorm.ErrDuplicatedKey
		}
	}
	stored := *sale
	stored.Lines = append([]model.RetailSaleLine(nil), sale.Lines...)
	r.s.data.sales[sale.ID] = stored
	return nil
}

func (r *stubSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.RetailSale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sale, ok := r.s.data.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	sale.Lines = append([]model.RetailSaleLine(nil), sale.Lines...)
	return &sale, nil
}

func (r *stubSaleRepo) FindByInvoice(_ context.Context, invoiceNo string) (*model.RetailSale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sale := range r.s.data.sales {
		if sale.InvoiceNo == strings.ToUpper(invoiceNo) {
			sale.Lines = append([]model.RetailSaleLine(nil), sale.Lines...)
			return &sale, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubSaleRepo) List(_ context.Context, _ dto.SaleFilter) ([]model.RetailSale, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.RetailSale, 0, len(r.s.data.sales))
	for _, sale := range r.s.data.sales {
		out = append(out, sale)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvoiceNo > out[j].InvoiceNo })
	return out, int64(len(out)), nil
}

func (r *stubSaleRepo) DeleteTx(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.RetailSale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sale, ok := r.s.data.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	delete(r.s.data.sales, id)
	sale.Lines = append([]model.RetailSaleLine(nil), sale.Lines...)
	return &sale, nil
}

type stubReceiptRepo struct{ s *memStore }

var _ repository.ReceiptRepository = (*stubReceiptRepo)(nil)

func (r *stubReceiptRepo) Upsert(_ context.Context, rc *model.Receipt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.receipts[rc.SaleID] = *rc
	return nil
}

func (r *stubReceiptRepo) FindBySaleID(_ context.Context, saleID uuid.UUID) (*model.Receipt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rc, ok := r.s.data.receipts[saleID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &rc, nil
}

func (r *stubReceiptRepo) UpdateStatus(_ context.Context, saleID uuid.UUID, status string, lastErr *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rc, ok := r.s.data.receipts[saleID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	rc.Status = status
	rc.LastError = lastErr
	r.s.data.receipts[saleID] = rc
	return nil
}

// ── Tickets ──────────────────────────────────────────────────────────────────

type stubTicketRepo struct{ s *memStore }

var _ repository.TicketRepository = (*stubTicketRepo)(nil)

func (r *stubTicketRepo) assemble(t model.ServiceTicket) *model.ServiceTicket {
	t.Parts = append([]model.ServiceTicketPart(nil), r.s.data.parts[t.ID]...)
	return &t
}

func (r *stubTicketRepo) Create(_ context.Context, _ *gorm.DB, t *model.ServiceTicket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.tickets {
		if existing.TicketNumber == t.TicketNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	stored := *t
	stored.Parts = nil
	r.s.data.tickets[t.ID] = stored
	return nil
}

func (r *stubTicketRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ServiceTicket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.tickets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.assemble(t), nil
}

func (r *stubTicketRepo) FindForUpdateTx(ctx context.Context, _ *gorm.DB, id uuid.UUID) (*model.ServiceTicket, error) {
	return r.FindByID(ctx, id)
}

func (r *stubTicketRepo) FindByNumber(_ context.Context, number string) (*model.ServiceTicket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.data.tickets {
		if t.TicketNumber == strings.ToUpper(number) {
			return r.assemble(t), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubTicketRepo) List(_ context.Context, filter dto.TicketFilter) ([]model.ServiceTicket, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.ServiceTicket
	for _, t := range r.s.data.tickets {
		if filter.Status != "" && !strings.Contains(","+filter.Status+",", ","+string(t.Status)+",") {
			continue
		}
		out = append(out, *r.assemble(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketNumber < out[j].TicketNumber })
	return out, int64(len(out)), nil
}

func (r *stubTicketRepo) SaveTx(_ context.Context, _ *gorm.DB, t *model.ServiceTicket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := *t
	stored.Parts = nil
	r.s.data.tickets[t.ID] = stored
	return nil
}

func (r *stubTicketRepo) AddPartTx(_ context.Context, _ *gorm.DB, p *model.ServiceTicketPart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = uuid.New()
	r.s.data.parts[p.TicketID] = append(r.s.data.parts[p.TicketID], *p)
	return nil
}

func (r *stubTicketRepo) DeletePartTx(_ context.Context, _ *gorm.DB, partID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for tid, parts := range r.s.data.parts {
		for i, p := range parts {
			if p.ID == partID {
				r.s.data.parts[tid] = append(parts[:i:i], parts[i+1:]...)
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubTicketRepo) CountByStatus(_ context.Context, technicianID uuid.UUID, statuses []model.TicketStatus) (map[model.TicketStatus]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[model.TicketStatus]int, len(statuses))
	for _, st := range statuses {
		out[st] = 0
	}
	for _, t := range r.s.data.tickets {
		if t.Technician.UserID != technicianID {
			continue
		}
		if _, tracked := out[t.Status]; tracked {
			out[t.Status]++
		}
	}
	return out, nil
}

// ── Users ────────────────────────────────────────────────────────────────────

type stubUserRepo struct{ s *memStore }

var _ repository.UserRepository = (*stubUserRepo)(nil)

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.users {
		if existing.Username == u.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	r.s.data.users[u.ID] = *u
	return nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.data.users {
		if u.Username == username && u.IsActive {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *stubUserRepo) List(_ context.Context) ([]model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.User, 0, len(r.s.data.users))
	for _, u := range r.s.data.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *stubUserRepo) ListActiveByRole(_ context.Context, role string) ([]model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.User
	for _, u := range r.s.data.users {
		if u.Role == role && u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *stubUserRepo) Update(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.users[u.ID] = *u
	return nil
}

func (r *stubUserRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.data.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.IsActive = active
	r.s.data.users[id] = u
	return nil
}

// ── Fixture ──────────────────────────────────────────────────────────────────

type fixture struct {
	store     *memStore
	items     *stubInventoryRepo
	movements *stubMovementRepo
	counters  *stubCounterRepo
	sales     *stubSaleRepo
	receipts  *stubReceiptRepo
	tickets   *stubTicketRepo
	users     *stubUserRepo
	history   *stubHistoryRepo
	ledger    LedgerService
}

func newFixture() *fixture {
	s := newMemStore()
	f := &fixture{
		store:     s,
		items:     &stubInventoryRepo{s},
		movements: &stubMovementRepo{s},
		counters:  &stubCounterRepo{s},
		sales:     &stubSaleRepo{s},
		receipts:  &stubReceiptRepo{s},
		tickets:   &stubTicketRepo{s},
		users:     &stubUserRepo{s},
		history:   &stubHistoryRepo{s},
	}
	f.ledger = NewLedgerService(f.items, f.movements, s, nil, nil)
	return f
}

func (f *fixture) saleService(now time.Time) *saleService {
	svc := NewSaleService(f.sales, f.items, f.counters, f.receipts, f.ledger, f.store, nil).(*saleService)
	svc.now = func() time.Time { return now }
	return svc
}

func (f *fixture) inventoryService() InventoryService {
	return NewInventoryService(f.items, f.history, f.ledger, f.store, nil)
}

// clock returns a time source that advances by step on every call.
func clock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := cur
		cur = cur.Add(step)
		return t
	}
}

func (f *fixture) ticketService(now func() time.Time) *ticketService {
	svc := NewTicketService(f.tickets, f.users, f.counters, f.ledger, f.store).(*ticketService)
	svc.now = now
	return svc
}
