package parsing

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// candidate is one provisional value for a field, tagged with the rule that produced it
type candidate struct {
	amount   float64
	priority int
	label    string
}

// amountRule is a single entry of an extractor's rule table
type amountRule struct {
	priority int
	pattern  *regexp.Regexp
	label    string
}

// amountRange reports whether a parsed amount is plausible for a field
type amountRange func(float64) bool

func between(min, max float64) amountRange {
	return func(v float64) bool { return v >= min && v <= max }
}

func positiveUpTo(max float64) amountRange {
	return func(v float64) bool { return v > 0 && v <= max }
}

// parseAmount parses a captured amount such as "1,299.00" or "-50".
// The ok flag is false when the capture is not a number.
func parseAmount(raw string) (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// round2 rounds half away from zero to two decimals
func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// amountKey is the dedup key for an amount: its value rounded to cents
func amountKey(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// collectCandidates runs every rule over text in table order and returns the
// in-range matches in the order they were found. With dedup set, an amount
// already produced by an earlier match is skipped.
func collectCandidates(text string, rules []amountRule, inRange amountRange, dedup bool) []candidate {
	var candidates []candidate
	seen := make(map[string]bool)

	for _, rule := range rules {
		for _, m := range rule.pattern.FindAllStringSubmatch(text, -1) {
			amount, ok := parseAmount(m[1])
			if !ok || !inRange(amount) {
				continue
			}
			if dedup {
				key := amountKey(amount)
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			candidates = append(candidates, candidate{
				amount:   amount,
				priority: rule.priority,
				label:    rule.label,
			})
		}
	}
	return candidates
}

// pickByPriority returns the highest priority candidate, preferring the
// larger amount on a tie.
func pickByPriority(candidates []candidate) (float64, bool) {
	if len(candidates) == 0 {
		return 0, false
	}
	sorted := make([]candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].priority != sorted[j].priority {
			return sorted[i].priority > sorted[j].priority
		}
		return sorted[i].amount > sorted[j].amount
	})
	return sorted[0].amount, true
}

// pickFirst returns the first candidate found
func pickFirst(candidates []candidate) (float64, bool) {
	if len(candidates) == 0 {
		return 0, false
	}
	return candidates[0].amount, true
}

// pickMax returns the largest candidate
func pickMax(candidates []candidate) (float64, bool) {
	if len(candidates) == 0 {
		return 0, false
	}
	best := candidates[0].amount
	for _, c := range candidates[1:] {
		if c.amount > best {
			best = c.amount
		}
	}
	return best, true
}
