package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/infra"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ReceiptJobPayload is enqueued after a checkout commits.
type ReceiptJobPayload struct {
	SaleID        string  `json:"sale_id"`
	CustomerEmail *string `json:"customer_email,omitempty"`
}

// ReceiptWorker renders the PDF receipt of a sale, records it, and hands
// the email off to QueueEmail when the customer left an address.
type ReceiptWorker struct {
	sales       repository.SaleRepository
	receipts    repository.ReceiptRepository
	dispatcher  *Dispatcher
	shop        infra.ShopProfile
	storagePath string
}

func NewReceiptWorker(
	sales repository.SaleRepository,
	receipts repository.ReceiptRepository,
	dispatcher *Dispatcher,
	shop infra.ShopProfile,
	storagePath string,
) *ReceiptWorker {
	return &ReceiptWorker{
		sales:       sales,
		receipts:    receipts,
		dispatcher:  dispatcher,
		shop:        shop,
		storagePath: storagePath,
	}
}

func (w *ReceiptWorker) Process(ctx context.Context, job Job) error {
	var payload ReceiptJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		log.Error().Err(err).Msg("receipt_worker: invalid payload")
		return nil
	}
	saleID, err := uuid.Parse(payload.SaleID)
	if err != nil {
		log.Error().Str("sale_id", payload.SaleID).Msg("receipt_worker: invalid sale_id")
		return nil
	}

	sale, err := w.sales.FindByID(ctx, saleID)
	if err != nil {
		// Deleted before the worker got to it.
		log.Warn().Err(err).Str("sale_id", payload.SaleID).Msg("receipt_worker: sale not found")
		return nil
	}

	rc := &model.Receipt{SaleID: sale.ID, InvoiceNo: sale.InvoiceNo, Status: model.ReceiptGenerated}
	path, err := infra.GenerateReceiptPDF(sale, w.shop, w.storagePath)
	if err != nil {
		reason := err.Error()
		rc.Status = model.ReceiptFailed
		rc.LastError = &reason
		_ = w.receipts.Upsert(ctx, rc)
		return errors.Wrapf(err, "render receipt %s", sale.InvoiceNo)
	}
	rc.PDFPath = &path
	if payload.CustomerEmail != nil && *payload.CustomerEmail != "" {
		rc.Status = model.ReceiptPending
		rc.EmailedTo = payload.CustomerEmail
	}
	if err := w.receipts.Upsert(ctx, rc); err != nil {
		return errors.Wrap(err, "store receipt")
	}
	log.Info().Str("invoice_no", sale.InvoiceNo).Str("path", path).Msg("receipt_worker: PDF generated")

	if rc.EmailedTo == nil || w.dispatcher == nil {
		return nil
	}
	return w.dispatcher.EnqueueEmail(ctx, EmailJobPayload{
		ToEmail: *rc.EmailedTo,
		Subject: fmt.Sprintf("Struk pembelian %s - %s", sale.InvoiceNo, w.shop.Name),
		Body: fmt.Sprintf("Terima kasih telah berbelanja di %s.\n\nNo. invoice: %s\nTotal: %s\n\nStruk terlampir.",
			w.shop.Name, sale.InvoiceNo, infra.FormatRupiah(sale.GrandTotal)),
		PDFPath: path,
		SaleID:  sale.ID.String(),
	})
}
