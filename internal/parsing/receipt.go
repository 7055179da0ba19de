// Package parsing turns OCR text from bills and receipts into structured
// records and proposes how to split them.
//
// Every function in this package is pure: it reads the text it is given and
// allocates its own result, so parse calls may run concurrently.
package parsing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is assumed when the caller does not name one
const DefaultCurrency = "INR"

// ParsedReceipt is the structured form of one receipt's text
type ParsedReceipt struct {
	Merchant    string     `json:"merchant"`
	Currency    string     `json:"currency"`
	Subtotal    *float64   `json:"subtotal,omitempty"`
	Tax         *float64   `json:"tax,omitempty"`
	DeliveryFee *float64   `json:"delivery_fee,omitempty"`
	PlatformFee *float64   `json:"platform_fee,omitempty"`
	Discount    *float64   `json:"discount,omitempty"`
	Total       float64    `json:"total"`
	Items       []LineItem `json:"items"`
	Date        string     `json:"date,omitempty"` // YYYY-MM-DD
	Time        string     `json:"time,omitempty"` // HH:MM, 24-hour
}

// Parse extracts a receipt from OCR text. It never fails: fields that cannot
// be found fall back to "Unknown Merchant", a zero total, no items, and
// absent optional values. A nil rules uses DefaultRules.
func Parse(raw, hint, currency string, rules *Rules) *ParsedReceipt {
	if rules == nil {
		rules = DefaultRules()
	}

	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	t := Normalize(raw)
	receipt := &ParsedReceipt{
		Merchant: ExtractMerchant(t, hint, rules),
		Currency: currency,
		Items:    make([]LineItem, 0),
	}
	if strings.TrimSpace(raw) == "" {
		return receipt
	}

	receipt.Total, _ = ExtractTotal(t.Lower)
	receipt.Date, _ = ExtractDate(t.Original)
	receipt.Time, _ = ExtractTime(t.Original)
	receipt.Items = ExtractItems(t.Original, rules)
	receipt.Tax = optional(ExtractTax(t.Lower))
	receipt.DeliveryFee = optional(ExtractDeliveryFee(t.Lower))
	receipt.PlatformFee = optional(ExtractPlatformFee(t.Lower))
	receipt.Discount = optional(ExtractDiscount(t.Lower))

	subtotal := ReconcileSubtotal(receipt)
	receipt.Subtotal = &subtotal

	return receipt
}

// ReconcileSubtotal derives the pre-fee amount. Items are authoritative when
// present; otherwise fees and tax are backed out of the total, never going
// below zero.
func ReconcileSubtotal(r *ParsedReceipt) float64 {
	if len(r.Items) > 0 {
		sum := decimal.Zero
		for _, item := range r.Items {
			sum = sum.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromFloat(item.Qty)))
		}
		return sum.InexactFloat64()
	}

	subtotal := decimal.NewFromFloat(r.Total).
		Sub(valueOf(r.Tax)).
		Sub(valueOf(r.DeliveryFee)).
		Sub(valueOf(r.PlatformFee)).
		Add(valueOf(r.Discount))
	if subtotal.IsNegative() {
		return 0
	}
	return subtotal.InexactFloat64()
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

func valueOf(p *float64) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*p)
}
