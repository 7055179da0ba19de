package parsing

import (
	"regexp"
	"strings"
	"sync"
)

// DefaultKnownMerchants is the built-in merchant catalog, matched in order
var DefaultKnownMerchants = []string{
	"swiggy", "zomato", "uber eats", "blinkit", "bigbasket", "zepto",
	"phonepe", "google pay", "paytm", "bhim", "cred",
	"amazon", "flipkart", "myntra",
	"domino", "pizza hut", "kfc", "mcdonald",
}

// DefaultSummaryKeywords marks lines that summarise a bill rather than list an item
var DefaultSummaryKeywords = []string{
	"subtotal", "total", "tax", "delivery", "discount", "grand",
	"amount", "paid", "gst", "vat", "cgst", "sgst", "igst",
	"platform", "convenience", "service", "fee", "charges",
	"offer", "promo", "savings", "you saved", "packing",
	"tip", "service charge", "bill total", "final amount",
}

// Rules is the immutable configuration the assembler passes to extractors
type Rules struct {
	merchants []string
	keywords  []string
	summary   *regexp.Regexp
}

// NewRules builds a Rules value from a merchant catalog and a summary keyword list.
// Entries are lowercased and trimmed; blanks are dropped.
func NewRules(merchants, keywords []string) *Rules {
	r := &Rules{
		merchants: cleanList(merchants),
		keywords:  cleanList(keywords),
	}

	if len(r.keywords) > 0 {
		quoted := make([]string, len(r.keywords))
		for i, k := range r.keywords {
			quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(k), " ", `\s+`)
		}
		// keywords must start a word, so "coffee" never trips "fee" but
		// "cgst2.5%" and "totals" still match
		r.summary = regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)`)
	}
	return r
}

var defaultRules = sync.OnceValue(func() *Rules {
	return NewRules(DefaultKnownMerchants, DefaultSummaryKeywords)
})

// DefaultRules returns the built-in catalog and blacklist
func DefaultRules() *Rules {
	return defaultRules()
}

// KnownMerchants returns a copy of the merchant catalog
func (r *Rules) KnownMerchants() []string {
	return append([]string(nil), r.merchants...)
}

// SummaryKeywords returns a copy of the keyword blacklist
func (r *Rules) SummaryKeywords() []string {
	return append([]string(nil), r.keywords...)
}

// camelBoundary finds words OCR glued together, as in "GrandTotal"
var camelBoundary = regexp.MustCompile(`(\p{Ll})(\p{Lu})`)

// isSummary reports whether text mentions a summary keyword
func (r *Rules) isSummary(text string) bool {
	if r.summary == nil {
		return false
	}
	return r.summary.MatchString(strings.ToLower(camelBoundary.ReplaceAllString(text, "$1 $2")))
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Text is the normalised pair every extractor reads from. Original keeps the
// printed capitalisation for names; Lower is used for matching.
type Text struct {
	Original string
	Lower    string
}

// Normalize builds the Text pair for raw OCR output
func Normalize(s string) Text {
	return Text{
		Original: s,
		Lower:    strings.ToLower(s),
	}
}
