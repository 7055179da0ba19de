package parsing

import "regexp"

// Each fee family is a list of label synonyms. Priorities are unused: fees
// select by position (first) or size (max), never by rule rank.

var taxRules = []amountRule{
	{0, regexp.MustCompile(`(?:^|\n)\s*(?:tax|gst|vat|cgst|sgst|igst)[:\s]+₹?\s*` + number), "Tax Line"},
	{0, regexp.MustCompile(`(?:tax\s+amount|gst\s+amount|vat\s+amount)[:\s]+₹?\s*` + number), "Tax Amount"},
	{0, regexp.MustCompile(`(?:subtotal|items\s+total)[^₹]*tax[:\s]+₹?\s*` + number), "Summary Tax"},
}

var deliveryRules = []amountRule{
	{0, regexp.MustCompile(`delivery\s+(?:fee|charges?|charge)[:\s]+₹?\s*` + number), "Delivery Fee"},
	{0, regexp.MustCompile(`(?:^|\n)\s*delivery[:\s]+₹?\s*` + number), "Delivery Line"},
	{0, regexp.MustCompile(`delivery\s+(?:fee|charges?)\s+₹\s*` + number), "Delivery Fee"},
}

var platformRules = []amountRule{
	{0, regexp.MustCompile(`(?:platform|convenience|service)\s+(?:fee|charges?)[:\s]+₹?\s*` + number), "Platform Fee"},
	{0, regexp.MustCompile(`(?:platform|convenience)\s+(?:fee|charges?)\s+₹\s*` + number), "Platform Fee"},
	{0, regexp.MustCompile(`convenience\s+charge[:\s]+₹?\s*` + number), "Convenience Charge"},
}

var discountRules = []amountRule{
	{0, regexp.MustCompile(`discount[:\s]+-?₹?\s*` + number), "Discount"},
	{0, regexp.MustCompile(`(?:offer|promo|promotion|savings|you\s+saved)[:\s]+-?₹?\s*` + number), "Offer"},
	{0, regexp.MustCompile(`discount\s+-?₹\s*` + number), "Discount"},
	{0, regexp.MustCompile(`(?:discount|offer|promo)[^₹]*-?\s*₹\s*` + number), "Discount Nearby"},
}

var (
	taxRange      = positiveUpTo(5000)
	deliveryRange = between(0, 500)
	platformRange = between(0, 100)
	discountRange = positiveUpTo(10000)
)

// ExtractTax returns the largest tax mention. Receipts often split tax into
// CGST/SGST fragments; the largest figure stands in for the aggregate.
func ExtractTax(lower string) (float64, bool) {
	return pickMax(collectCandidates(lower, taxRules, taxRange, false))
}

// ExtractDeliveryFee returns the first labelled delivery charge
func ExtractDeliveryFee(lower string) (float64, bool) {
	return pickFirst(collectCandidates(lower, deliveryRules, deliveryRange, false))
}

// ExtractPlatformFee returns the first labelled platform or convenience fee
func ExtractPlatformFee(lower string) (float64, bool) {
	return pickFirst(collectCandidates(lower, platformRules, platformRange, false))
}

// ExtractDiscount returns the first labelled discount as a positive amount,
// whether or not it was printed with a minus sign.
func ExtractDiscount(lower string) (float64, bool) {
	return pickFirst(collectCandidates(lower, discountRules, discountRange, false))
}
