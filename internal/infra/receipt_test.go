package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRupiah(t *testing.T) {
	cases := map[string]string{
		"0":          "Rp 0",
		"500":        "Rp 500",
		"1000":       "Rp 1.000",
		"1250000":    "Rp 1.250.000",
		"999999.6":   "Rp 1.000.000",
		"-15000":     "-Rp 15.000",
		"123456789":  "Rp 123.456.789",
		"1000000000": "Rp 1.000.000.000",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatRupiah(decimal.RequireFromString(in)), in)
	}
}

func TestGenerateReceiptPDF(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "receipts")
	email := "rina@example.com"
	sale := &model.RetailSale{
		ID:            uuid.New(),
		InvoiceNo:     "INV-202403-0007",
		CashierName:   "Sari",
		GrandTotal:    decimal.NewFromInt(170000),
		PaymentMethod: "Cash",
		AmountPaid:    decimal.NewFromInt(200000),
		ChangeDue:     decimal.NewFromInt(30000),
		CustomerEmail: &email,
		Date:          time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC),
		Lines: []model.RetailSaleLine{
			{Position: 1, Name: "Mouse Wireless", Qty: 2, UnitPrice: decimal.NewFromInt(75000), LineTotal: decimal.NewFromInt(150000)},
			{Position: 2, Name: "Mouse Pad", Qty: 1, UnitPrice: decimal.NewFromInt(20000), LineTotal: decimal.NewFromInt(20000)},
		},
	}

	path, err := GenerateReceiptPDF(sale, DefaultShopProfile(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "receipt_INV-202403-0007.pdf"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, len(raw) > 4)
	assert.Equal(t, "%PDF", string(raw[:4]))
}

func TestLoadShopProfile(t *testing.T) {
	t.Run("empty path gives defaults", func(t *testing.T) {
		p, err := LoadShopProfile("")
		require.NoError(t, err)
		assert.Equal(t, DefaultShopProfile(), p)
	})

	t.Run("missing file gives defaults", func(t *testing.T) {
		p, err := LoadShopProfile(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultShopProfile(), p)
	})

	t.Run("file overrides and keeps default footer", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "shop.yaml")
		require.NoError(t, os.WriteFile(path, []byte("name: UTC Kampus 2\naddress: Jl. Merdeka 1\nphone: \"0274-555\"\n"), 0o644))

		p, err := LoadShopProfile(path)
		require.NoError(t, err)
		assert.Equal(t, "UTC Kampus 2", p.Name)
		assert.Equal(t, "Jl. Merdeka 1", p.Address)
		assert.Equal(t, "0274-555", p.Phone)
		assert.Equal(t, DefaultShopProfile().Footer, p.Footer)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("name: [unclosed"), 0o644))

		p, err := LoadShopProfile(path)
		require.Error(t, err)
		assert.Equal(t, DefaultShopProfile().Name, p.Name)
	})
}
