package infra

// pdf.go renders sale receipts on 74mm thermal-roll paper with go-pdf/fpdf.
// The page grows with the number of lines; output goes to
// storagePath/receipt_<invoice>.pdf.

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// FormatRupiah renders an amount as "Rp 1.250.000" (no minor units).
func FormatRupiah(d decimal.Decimal) string {
	s := d.Round(0).Abs().String()
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	if d.IsNegative() {
		return "-Rp " + b.String()
	}
	return "Rp " + b.String()
}

// GenerateReceiptPDF writes the receipt for sale and returns the file path.
func GenerateReceiptPDF(sale *model.RetailSale, shop ShopProfile, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, "receipt_"+sale.InvoiceNo+".pdf")

	height := 90.0 + 5.0*float64(len(sale.Lines))
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: height},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8
	rule := func() {
		pdf.Ln(1)
		pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
		pdf.Ln(2)
	}

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 6, shop.Name, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	for _, l := range []string{shop.Address, shop.Phone} {
		if l != "" {
			pdf.CellFormat(contentW, 4, l, "", 1, "C", false, 0, "")
		}
	}
	rule()

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, sale.InvoiceNo, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, sale.Date.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, "Kasir: "+sale.CashierName, "", 1, "L", false, 0, "")
	rule()

	// ── Lines ────────────────────────────────────────────────────────────────
	nameW := contentW * 0.50
	qtyW := contentW * 0.14
	totalW := contentW * 0.36

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(nameW, 5, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(qtyW, 5, "Qty", "B", 0, "C", false, 0, "")
	pdf.CellFormat(totalW, 5, "Total", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, line := range sale.Lines {
		name := line.Name
		if len(name) > 24 {
			name = name[:23] + "."
		}
		pdf.CellFormat(nameW, 5, name, "", 0, "L", false, 0, "")
		pdf.CellFormat(qtyW, 5, fmt.Sprintf("x%d", line.Qty), "", 0, "C", false, 0, "")
		pdf.CellFormat(totalW, 5, FormatRupiah(line.LineTotal), "", 1, "R", false, 0, "")
	}
	rule()

	// ── Totals ───────────────────────────────────────────────────────────────
	labelW := nameW + qtyW
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(labelW, 6, "TOTAL", "", 0, "L", false, 0, "")
	pdf.CellFormat(totalW, 6, FormatRupiah(sale.GrandTotal), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(labelW, 4, "Bayar ("+sale.PaymentMethod+")", "", 0, "L", false, 0, "")
	pdf.CellFormat(totalW, 4, FormatRupiah(sale.AmountPaid), "", 1, "R", false, 0, "")
	if sale.ChangeDue.IsPositive() {
		pdf.CellFormat(labelW, 4, "Kembali", "", 0, "L", false, 0, "")
		pdf.CellFormat(totalW, 4, FormatRupiah(sale.ChangeDue), "", 1, "R", false, 0, "")
	}

	if shop.Footer != "" {
		pdf.Ln(3)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(contentW, 4, shop.Footer, "", 1, "C", false, 0, "")
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}
