package receipt

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	receiptsSheet = "Receipts"
	itemsSheet    = "Items"
)

var (
	receiptHeaders = []string{
		"Date", "Time", "Merchant", "Currency", "Subtotal", "Tax", "Delivery Fee",
		"Platform Fee", "Discount", "Total", "Items", "Engine", "Confidence", "Receipt ID", "Uploaded",
	}
	itemHeaders = []string{"Receipt ID", "Merchant", "Item", "Qty", "Unit Price", "Line Total"}
)

// ExportReceipts writes every stored receipt to w as an XLSX workbook with
// one sheet of receipts and one of their line items.
func (s *Service) ExportReceipts(w io.Writer) error {
	receipts, err := s.ListReceipts()
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", receiptsSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	writeRow := func(sheet string, row int, values ...any) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		return f.SetSheetRow(sheet, cell, &values)
	}
	headerRow := func(sheet string, headers []string) error {
		values := make([]any, len(headers))
		for i, h := range headers {
			values[i] = h
		}
		return writeRow(sheet, 1, values...)
	}

	if err := headerRow(receiptsSheet, receiptHeaders); err != nil {
		return fmt.Errorf("writing headers: %w", err)
	}
	if err := headerRow(itemsSheet, itemHeaders); err != nil {
		return fmt.Errorf("writing headers: %w", err)
	}

	itemRow := 2
	for i, r := range receipts {
		err := writeRow(receiptsSheet, i+2,
			r.Date, r.Time, r.Merchant, r.Currency,
			cellValue(r.Subtotal), cellValue(r.Tax), cellValue(r.DeliveryFee),
			cellValue(r.PlatformFee), cellValue(r.Discount), r.Total,
			len(r.Items), r.Engine, r.Confidence, r.ID, r.CreatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("writing receipt %s: %w", r.ID, err)
		}

		for _, item := range r.Items {
			lineTotal := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromFloat(item.Qty)).Round(2).InexactFloat64()
			if err := writeRow(itemsSheet, itemRow, r.ID, r.Merchant, item.Name, item.Qty, item.Price, lineTotal); err != nil {
				return fmt.Errorf("writing items of %s: %w", r.ID, err)
			}
			itemRow++
		}
	}

	_ = f.SetColWidth(receiptsSheet, "C", "C", 24)
	_ = f.SetColWidth(receiptsSheet, "N", "O", 38)
	_ = f.SetColWidth(itemsSheet, "A", "A", 38)
	_ = f.SetColWidth(itemsSheet, "C", "C", 30)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// cellValue leaves the cell blank for an absent amount
func cellValue(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
