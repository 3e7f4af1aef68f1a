package infra

import (
	"fmt"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens a GORM connection backed by pgx and migrates the schema.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "database handle")
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates or updates every table, then applies the constraints
// AutoMigrate cannot express. Safe to run on every start.
func RunMigrations(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return errors.Wrap(err, "pgcrypto extension")
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.InventoryItem{},
		&model.StockMovement{},
		&model.PriceHistory{},
		&model.RetailSale{},
		&model.RetailSaleLine{},
		&model.ServiceTicket{},
		&model.ServiceTicketPart{},
		&model.Receipt{},
		&model.DocumentCounter{},
	); err != nil {
		return errors.Wrap(err, "AutoMigrate")
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that GORM tags cannot express.
// Each statement is guarded so re-running on a patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"inventory stock never negative", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_inventory_items_stock') THEN
    ALTER TABLE inventory_items ADD CONSTRAINT chk_inventory_items_stock CHECK (stock >= 0);
  END IF;
END $$`},
		{"inventory prices", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_inventory_items_prices') THEN
    ALTER TABLE inventory_items ADD CONSTRAINT chk_inventory_items_prices
      CHECK (purchase_price >= 0 AND selling_price >= purchase_price);
  END IF;
END $$`},
		{"sale line qty positive", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_retail_sale_lines_qty') THEN
    ALTER TABLE retail_sale_lines ADD CONSTRAINT chk_retail_sale_lines_qty CHECK (qty > 0);
  END IF;
END $$`},
		{"ticket part qty positive", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_service_ticket_parts_qty') THEN
    ALTER TABLE service_ticket_parts ADD CONSTRAINT chk_service_ticket_parts_qty CHECK (qty > 0);
  END IF;
END $$`},
		{"service fee non-negative", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_service_tickets_fee') THEN
    ALTER TABLE service_tickets ADD CONSTRAINT chk_service_tickets_fee CHECK (service_fee >= 0);
  END IF;
END $$`},
		{"movements by item and time",
			`CREATE INDEX IF NOT EXISTS idx_stock_movements_item_created ON stock_movements (item_id, created_at DESC)`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
