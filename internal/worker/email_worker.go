package worker

import (
	"context"
	"encoding/json"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/infra"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/repository"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail. SaleID is set for
// receipt emails so the receipt row can be marked as emailed.
type EmailJobPayload struct {
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	PDFPath string `json:"pdf_path,omitempty"`
	SaleID  string `json:"sale_id,omitempty"`
}

// EmailWorker sends queued emails through the circuit-breaker-guarded mailer.
type EmailWorker struct {
	mailer   *infra.Mailer
	cb       *infra.CircuitBreaker
	receipts repository.ReceiptRepository
}

func NewEmailWorker(mailer *infra.Mailer, cb *infra.CircuitBreaker, receipts repository.ReceiptRepository) *EmailWorker {
	return &EmailWorker{mailer: mailer, cb: cb, receipts: receipts}
}

func (w *EmailWorker) Process(ctx context.Context, job Job) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return nil
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return nil
	}
	if !w.mailer.Enabled() {
		log.Warn().Str("to", payload.ToEmail).Msg("email_worker: SMTP not configured, dropping email")
		return nil
	}

	msg := infra.MailMessage{To: []string{payload.ToEmail}, Subject: payload.Subject, Text: payload.Body}
	if payload.PDFPath != "" {
		msg.Attachments = []string{payload.PDFPath}
	}

	err := w.cb.Execute(func() error { return w.mailer.Send(msg) })
	saleID, _ := uuid.Parse(payload.SaleID)
	if err != nil {
		if saleID != uuid.Nil && w.receipts != nil {
			reason := err.Error()
			_ = w.receipts.UpdateStatus(ctx, saleID, model.ReceiptFailed, &reason)
		}
		return errors.Wrapf(err, "send email to %s", payload.ToEmail)
	}

	if saleID != uuid.Nil && w.receipts != nil {
		if err := w.receipts.UpdateStatus(ctx, saleID, model.ReceiptEmailed, nil); err != nil {
			log.Warn().Err(err).Str("sale_id", payload.SaleID).Msg("email_worker: receipt status not updated")
		}
	}
	log.Info().Str("to", payload.ToEmail).Str("subject", payload.Subject).Msg("email_worker: sent")
	return nil
}
