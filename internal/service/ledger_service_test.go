package service

import (
	"context"
	"errors"
	"testing"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/dto"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var restockRef = MovementRef{Type: model.MovementRestock, Reason: "test"}

func TestLedger_TryDebit_DecrementsAndRecords(t *testing.T) {
	f := newFixture()
	item := f.store.seedItem("LCD Panel", 5, 100000)

	after, err := f.ledger.TryDebit(context.Background(), item.ID, 3, MovementRef{Type: model.MovementSale})
	require.NoError(t, err)
	assert.Equal(t, 2, after)
	assert.Equal(t, 2, f.store.stock(item.ID))

	mvs, _, _ := f.movements.List(context.Background(), defaultMovementFilter(item.ID))
	require.Len(t, mvs, 1)
	assert.Equal(t, -3, mvs[0].Quantity)
	assert.Equal(t, 5, mvs[0].StockBefore)
	assert.Equal(t, 2, mvs[0].StockAfter)
	assert.Equal(t, model.MovementSale, mvs[0].Type)
}

func TestLedger_TryDebit_Insufficient(t *testing.T) {
	f := newFixture()
	item := f.store.seedItem("Battery", 2, 50000)

	_, err := f.ledger.TryDebit(context.Background(), item.ID, 3, MovementRef{Type: model.MovementSale})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientStock))

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Deficit())
	assert.Equal(t, "Battery", stockErr.ItemName)

	assert.Equal(t, 2, f.store.stock(item.ID))
	assert.Zero(t, f.store.movementCount())
}

func TestLedger_TryDebit_ExactStockReachesZero(t *testing.T) {
	f := newFixture()
	item := f.store.seedItem("Fan", 4, 30000)

	after, err := f.ledger.TryDebit(context.Background(), item.ID, 4, MovementRef{Type: model.MovementSale})
	require.NoError(t, err)
	assert.Zero(t, after)
}

func TestLedger_TryDebit_RejectsNonPositiveQty(t *testing.T) {
	f := newFixture()
	item := f.store.seedItem("Cable", 10, 10000)

	for _, qty := range []int{0, -1} {
		_, err := f.ledger.TryDebit(context.Background(), item.ID, qty, MovementRef{Type: model.MovementSale})
		assert.True(t, errors.Is(err, ErrValidation), "qty %d", qty)
	}
	assert.Equal(t, 10, f.store.stock(item.ID))
}

func TestLedger_TryDebit_UnknownOrInactiveItem(t *testing.T) {
	f := newFixture()

	_, err := f.ledger.TryDebit(context.Background(), uuid.New(), 1, MovementRef{Type: model.MovementSale})
	assert.True(t, errors.Is(err, ErrNotFound))

	item := f.store.seedItem("Old Keyboard", 10, 10000)
	require.NoError(t, f.items.SetActive(context.Background(), item.ID, false))
	_, err = f.ledger.TryDebit(context.Background(), item.ID, 1, MovementRef{Type: model.MovementSale})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, 10, f.store.stock(item.ID))
}

func TestLedger_Credit(t *testing.T) {
	f := newFixture()
	item := f.store.seedItem("SSD 256", 1, 400000)

	after, err := f.ledger.Credit(context.Background(), item.ID, 4, restockRef)
	require.NoError(t, err)
	assert.Equal(t, 5, after)

	_, err = f.ledger.Credit(context.Background(), item.ID, 0, restockRef)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = f.ledger.Credit(context.Background(), uuid.New(), 1, restockRef)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLedger_ConcurrentDebitsNeverOversell(t *testing.T) {
	f := newFixture()
	item := f.store.seedItem("RAM 8GB", 10, 300000)

	var g errgroup.Group
	results := make([]error, 25)
	for i := range results {
		i := i
		g.Go(func() error {
			_, results[i] = f.ledger.TryDebit(context.Background(), item.ID, 1, MovementRef{Type: model.MovementSale})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	ok, short := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientStock):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 10, ok)
	assert.Equal(t, 15, short)
	assert.Zero(t, f.store.stock(item.ID))
}

// ── Batch ────────────────────────────────────────────────────────────────────

func TestLedger_BatchTryDebit_AllOrNothing(t *testing.T) {
	f := newFixture()
	x := f.store.seedItem("Thermal Paste", 10, 25000)
	y := f.store.seedItem("Screw Set", 1, 15000)

	_, err := f.ledger.BatchTryDebit(context.Background(), []DebitLine{
		{ItemID: x.ID, Qty: 2},
		{ItemID: y.ID, Qty: 5},
	}, MovementRef{Type: model.MovementSale})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientStock))

	assert.Equal(t, 10, f.store.stock(x.ID))
	assert.Equal(t, 1, f.store.stock(y.ID))
	assert.Zero(t, f.store.movementCount())
}

func TestLedger_BatchTryDebit_MergesDuplicateItems(t *testing.T) {
	f := newFixture()
	x := f.store.seedItem("USB Hub", 5, 80000)

	_, err := f.ledger.BatchTryDebit(context.Background(), []DebitLine{
		{ItemID: x.ID, Qty: 3},
		{ItemID: x.ID, Qty: 3},
	}, MovementRef{Type: model.MovementSale})
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, f.store.stock(x.ID))

	mvs, err := f.ledger.BatchTryDebit(context.Background(), []DebitLine{
		{ItemID: x.ID, Qty: 2},
		{ItemID: x.ID, Qty: 1},
	}, MovementRef{Type: model.MovementSale})
	require.NoError(t, err)
	require.Len(t, mvs, 1)
	assert.Equal(t, -3, mvs[0].Quantity)
	assert.Equal(t, 2, f.store.stock(x.ID))
}

func TestLedger_BatchTryDebit_Empty(t *testing.T) {
	f := newFixture()
	_, err := f.ledger.BatchTryDebit(context.Background(), nil, MovementRef{Type: model.MovementSale})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestLedger_TxVariantRollsBackWithCaller(t *testing.T) {
	f := newFixture()
	item := f.store.seedItem("Charger", 3, 120000)
	boom := errors.New("boom")

	err := f.store.Transaction(context.Background(), func(tx *gorm.DB) error {
		if _, err := f.ledger.TryDebitTx(context.Background(), tx, item.ID, 2, MovementRef{Type: model.MovementServicePart}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, f.store.stock(item.ID))
	assert.Zero(t, f.store.movementCount())
}

func TestLedger_ListMovements(t *testing.T) {
	f := newFixture()
	a := f.store.seedItem("Mouse", 5, 50000)
	b := f.store.seedItem("Pad", 5, 20000)
	_, _ = f.ledger.TryDebit(context.Background(), a.ID, 1, MovementRef{Type: model.MovementSale})
	_, _ = f.ledger.Credit(context.Background(), b.ID, 2, restockRef)

	resp, err := f.ledger.ListMovements(context.Background(), dto.MovementFilter{ItemID: a.ID.String(), Page: 1, Limit: 50})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, a.ID.String(), resp.Data[0].ItemID)

	_, err = f.ledger.ListMovements(context.Background(), dto.MovementFilter{ItemID: "nope", Page: 1, Limit: 50})
	assert.True(t, errors.Is(err, ErrValidation))
}

func defaultMovementFilter(itemID uuid.UUID) repository.MovementFilter {
	return repository.MovementFilter{ItemID: &itemID, Page: 1, Limit: 50}
}
