package parsing

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// LineItem is one purchased item. Price is per unit.
type LineItem struct {
	Name  string  `json:"name"`
	Qty   float64 `json:"qty"`
	Price float64 `json:"price"`
}

const (
	minItemLineLen = 5
	minItemNameLen = 2
	maxItemNameLen = 50
)

var itemPriceRange = positiveUpTo(10000)

// itemPattern is one printed line-item shape. Patterns without a quantity
// group capture (name, amount); the quantity pattern captures (qty, name, amount).
type itemPattern struct {
	pattern *regexp.Regexp
	hasQty  bool
}

var itemPatterns = []itemPattern{
	// 2x Masala Dosa ₹180
	{regexp.MustCompile(`(?i)(\d+)\s*x\s*([^₹\n]+?)\s*₹\s*([\d,]+\.?\d*)`), true},
	// Masala Dosa ₹180
	{regexp.MustCompile(`(?i)([a-z][^₹\n]{2,50}?)\s+₹\s*([\d,]+\.?\d*)`), false},
	// Masala Dosa - ₹180
	{regexp.MustCompile(`(?i)([a-z][^₹\n]{2,50}?)\s*-\s*₹\s*([\d,]+\.?\d*)`), false},
	// Masala Dosa (₹180)
	{regexp.MustCompile(`(?i)([a-z][^₹\n]{2,50}?)\s*\(\s*₹\s*([\d,]+\.?\d*)\s*\)`), false},
	// Masala Dosa₹180.00
	{regexp.MustCompile(`(?i)([a-z][^₹\n]{2,50}?)\s*₹\s*([\d,]+\.\d{2})`), false},
}

var (
	runsOfSpace    = regexp.MustCompile(`\s+`)
	trailingDashes = regexp.MustCompile(`[-\s]+$`)
)

// itemKey identifies an item for deduplication
type itemKey struct {
	name  string
	price string
}

// ExtractItems reads line items from the original-case text, one per
// physical line at most. Summary lines (totals, taxes, fees, savings) are
// skipped before matching; an item already seen with the same name and
// per-unit price is dropped.
func ExtractItems(original string, rules *Rules) []LineItem {
	items := make([]LineItem, 0)
	seen := make(map[itemKey]bool)

	for _, line := range strings.Split(original, "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) < minItemLineLen {
			continue
		}
		if rules.isSummary(line) {
			continue
		}

		item, ok := matchItem(line, rules)
		if !ok {
			continue
		}
		key := itemKey{name: strings.ToLower(item.Name), price: amountKey(item.Price)}
		if seen[key] {
			continue
		}
		seen[key] = true
		items = append(items, item)
	}
	return items
}

// matchItem tries each pattern in order and returns the first valid item on the line
func matchItem(line string, rules *Rules) (LineItem, bool) {
	for _, p := range itemPatterns {
		for _, m := range p.pattern.FindAllStringSubmatch(line, -1) {
			qtyRaw, name, amountRaw := "1", m[1], m[2]
			if p.hasQty {
				qtyRaw, name, amountRaw = m[1], m[2], m[3]
			}
			if item, ok := buildItem(qtyRaw, name, amountRaw, rules); ok {
				return item, true
			}
		}
	}
	return LineItem{}, false
}

func buildItem(qtyRaw, name, amountRaw string, rules *Rules) (LineItem, bool) {
	name = cleanItemName(name)
	if rules.isSummary(name) {
		return LineItem{}, false
	}
	if n := utf8.RuneCountInString(name); n < minItemNameLen || n > maxItemNameLen {
		return LineItem{}, false
	}

	amount, ok := parseAmount(amountRaw)
	if !ok || !itemPriceRange(amount) {
		return LineItem{}, false
	}

	qty, err := strconv.ParseFloat(qtyRaw, 64)
	if err != nil || qty <= 0 {
		return LineItem{}, false
	}

	return LineItem{
		Name:  name,
		Qty:   qty,
		Price: amount / qty,
	}, true
}

func cleanItemName(name string) string {
	name = strings.TrimSpace(runsOfSpace.ReplaceAllString(name, " "))
	return trailingDashes.ReplaceAllString(name, "")
}
