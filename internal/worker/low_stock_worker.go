package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// LowStockJobPayload is enqueued when a debit leaves an item at or below its
// alert threshold.
type LowStockJobPayload struct {
	ItemID        string `json:"item_id"`
	SKU           string `json:"sku"`
	Name          string `json:"name"`
	Stock         int    `json:"stock"`
	MinStockAlert int    `json:"min_stock_alert"`
}

// LowStockWorker turns low-stock events into alert emails for the shop owner.
type LowStockWorker struct {
	dispatcher *Dispatcher
	alertEmail string
}

func NewLowStockWorker(dispatcher *Dispatcher, alertEmail string) *LowStockWorker {
	return &LowStockWorker{dispatcher: dispatcher, alertEmail: alertEmail}
}

func (w *LowStockWorker) Process(ctx context.Context, job Job) error {
	var p LowStockJobPayload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		log.Error().Err(err).Msg("low_stock_worker: invalid payload")
		return nil
	}
	log.Warn().
		Str("item_id", p.ItemID).
		Str("sku", p.SKU).
		Int("stock", p.Stock).
		Int("min_stock_alert", p.MinStockAlert).
		Msg("low_stock_worker: item at or below alert threshold")

	if w.alertEmail == "" {
		return nil
	}
	status := "menipis"
	if p.Stock == 0 {
		status = "habis"
	}
	return w.dispatcher.EnqueueEmail(ctx, EmailJobPayload{
		ToEmail: w.alertEmail,
		Subject: fmt.Sprintf("Stok %s: %s (%s)", status, p.Name, p.SKU),
		Body: fmt.Sprintf("Stok %s tersisa %d unit (batas minimum %d).\nSegera lakukan restock.",
			p.Name, p.Stock, p.MinStockAlert),
	})
}
