package parsing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SplitType names how a suggestion divides the bill
type SplitType string

const (
	SplitEqual     SplitType = "equal"
	SplitItemBased SplitType = "item-based"
	SplitCustom    SplitType = "custom"
)

// SplitSuggestion is a proposed division of a bill among group members
type SplitSuggestion struct {
	Type            SplitType          `json:"type"`
	AmountPerPerson *float64           `json:"amount_per_person,omitempty"`
	Splits          map[string]float64 `json:"splits,omitempty"` // member id -> amount owed
	Explanation     string             `json:"explanation"`
}

// SuggestSplit proposes how members share total. Blank and repeated member
// ids are dropped first. It returns nil when there are no members or nothing
// to pay.
//
// With items on the bill the suggestion is item-based, but items are not yet
// attributed to people, so every member is quoted the same share. Without
// items the bill is split equally: members are charged in the order given and
// the last member absorbs the rounding remainder, so the splits always add up
// to total exactly.
func SuggestSplit(total float64, items []LineItem, memberIDs []string) *SplitSuggestion {
	memberIDs = UniqueMemberIDs(memberIDs)
	if len(memberIDs) == 0 || total <= 0 {
		return nil
	}

	totalAmount := decimal.NewFromFloat(total)
	members := decimal.NewFromInt(int64(len(memberIDs)))
	perPerson := totalAmount.Div(members).Round(2)
	perPersonValue := perPerson.InexactFloat64()

	if len(items) > 0 {
		return &SplitSuggestion{
			Type:            SplitItemBased,
			AmountPerPerson: &perPersonValue,
			Explanation:     fmt.Sprintf("Split %d items equally among %d people", len(items), len(memberIDs)),
		}
	}

	splits := make(map[string]float64, len(memberIDs))
	remaining := totalAmount
	last := len(memberIDs) - 1
	for i, id := range memberIDs {
		if i == last {
			splits[id] = remaining.Round(2).InexactFloat64()
			break
		}
		splits[id] = perPersonValue
		remaining = remaining.Sub(perPerson)
	}

	return &SplitSuggestion{
		Type:            SplitEqual,
		AmountPerPerson: &perPersonValue,
		Splits:          splits,
		Explanation:     fmt.Sprintf("Equal split: ₹%s per person", perPerson.StringFixed(2)),
	}
}

// UniqueMemberIDs trims ids and drops blank and repeated ones, keeping first occurrences
func UniqueMemberIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
