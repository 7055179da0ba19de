package parsing

import "regexp"

// number captures a printed amount, thousands separators included
const number = `([\d,]+\.?\d*)`

// totalRules ranks the label phrasings receipts use for the amount actually paid.
// Highest priority first.
var totalRules = []amountRule{
	{10, regexp.MustCompile(`(?:grand\s+total|final\s+amount|amount\s+paid|total\s+payable|pay\s+amount|amount\s+to\s+pay|net\s+amount)[\s:]*₹?\s*` + number), "Grand Total"},
	{9, regexp.MustCompile(`(?:bill\s+total|total\s+bill|final\s+bill|amount\s+payable)[\s:]*₹?\s*` + number), "Restaurant Bill"},
	{9, regexp.MustCompile(`(?:total\s+due|amount\s+due|bill\s+amount|outstanding|balance\s+due)[\s:]*₹?\s*` + number), "Utility Bill"},
	{8, regexp.MustCompile(`(?:amount|paid|transaction\s+amount|payment\s+amount)[\s:]*₹\s*` + number), "UPI Payment"},
	{7, regexp.MustCompile(`(?:^|\n)\s*total[\s:]*₹?\s*` + number), "Total"},
	{3, regexp.MustCompile(`₹\s*` + number), "Currency Symbol"},
}

// totalRange rejects order ids, phone numbers and stray item prices
var totalRange = between(10, 100000)

// ExtractTotal finds the bill total in lowercase text. Every rule contributes
// its in-range matches once per distinct amount; the highest priority wins and
// the larger amount breaks a tie.
func ExtractTotal(lower string) (float64, bool) {
	return pickByPriority(collectCandidates(lower, totalRules, totalRange, true))
}
