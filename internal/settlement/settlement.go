// Package settlement computes member balances for a shared-expense group and
// checks that the books close.
package settlement

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Status grades how well a group's balances cancel out
type Status string

const (
	StatusOK    Status = "ok"
	StatusWarn  Status = "warn"
	StatusError Status = "error"
)

var (
	// splits may differ from the expense by up to this much
	splitTolerance = decimal.RequireFromString("0.01")
	// a net sum below this is a rounding slip rather than a bug
	roundingTolerance = decimal.NewFromInt(1)
)

// Member is one person in a group
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Expense is a bill paid by one member and owed by several
type Expense struct {
	ID       string                     `json:"id"`
	PaidBy   string                     `json:"paid_by"`
	Amount   decimal.Decimal            `json:"amount"`
	Splits   map[string]decimal.Decimal `json:"splits"`
	Date     string                     `json:"date,omitempty"`
	Merchant string                     `json:"merchant,omitempty"`
	Category string                     `json:"category,omitempty"`
	Note     string                     `json:"note,omitempty"`
}

// Settlement is money moved from one member to another
type Settlement struct {
	ID     string          `json:"id"`
	FromID string          `json:"from_id"`
	ToID   string          `json:"to_id"`
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date,omitempty"`
	Status string          `json:"status,omitempty"`
}

// Balance is one member's net position. Positive means the member is owed money.
type Balance struct {
	MemberID string
	Amount   decimal.Decimal
}

// Report is the outcome of Validate
type Report struct {
	Balances map[string]float64 `json:"balances"`
	Audit    []string           `json:"audit"`
	Status   Status             `json:"status"`
	Net      float64            `json:"net"`

	ranked []Balance
}

// Ranked returns balances from most owed to most owing, ties by member id
func (r *Report) Ranked() []Balance {
	return append([]Balance(nil), r.ranked...)
}

// Validate replays expenses and settlements onto the members' balances and
// records each step in an audit trail. The books close when the balances sum
// to zero; a net under one rupee is reported as a rounding warning.
func Validate(members []Member, expenses []Expense, settlements []Settlement) *Report {
	balances := make(map[string]decimal.Decimal, len(members))
	for _, m := range members {
		balances[m.ID] = decimal.Zero
	}
	var audit []string

	for _, e := range expenses {
		if _, ok := balances[e.PaidBy]; ok {
			balances[e.PaidBy] = balances[e.PaidBy].Add(e.Amount)
			audit = append(audit, fmt.Sprintf("Expense %s: %s paid ₹%s", e.ID, e.PaidBy, e.Amount.StringFixed(2)))
		} else {
			audit = append(audit, fmt.Sprintf("WARNING: expense %s paid by unknown member %q", e.ID, e.PaidBy))
		}

		splitTotal := decimal.Zero
		for _, id := range sortedKeys(e.Splits) {
			owed := e.Splits[id]
			if _, ok := balances[id]; !ok {
				audit = append(audit, fmt.Sprintf("  WARNING: split for unknown member %q ignored", id))
				continue
			}
			balances[id] = balances[id].Sub(owed)
			splitTotal = splitTotal.Add(owed)
			audit = append(audit, fmt.Sprintf("  %s owes ₹%s", id, owed.StringFixed(2)))
		}

		if diff := splitTotal.Sub(e.Amount).Abs(); diff.GreaterThan(splitTolerance) {
			audit = append(audit, fmt.Sprintf("  WARNING: splits sum to ₹%s but expense is ₹%s (diff ₹%s)",
				splitTotal.StringFixed(2), e.Amount.StringFixed(2), diff.StringFixed(2)))
		}
	}

	for _, s := range settlements {
		_, fromOK := balances[s.FromID]
		_, toOK := balances[s.ToID]
		if !fromOK || !toOK {
			audit = append(audit, fmt.Sprintf("WARNING: settlement %s references an unknown member", s.ID))
			continue
		}
		balances[s.FromID] = balances[s.FromID].Add(s.Amount)
		balances[s.ToID] = balances[s.ToID].Sub(s.Amount)
		audit = append(audit, fmt.Sprintf("Settlement %s: %s -> %s: ₹%s", s.ID, s.FromID, s.ToID, s.Amount.StringFixed(2)))
	}

	report := &Report{
		Balances: make(map[string]float64, len(balances)),
		ranked:   rank(balances),
	}

	net := decimal.Zero
	audit = append(audit, "Balance summary:")
	for _, b := range report.ranked {
		net = net.Add(b.Amount)
		report.Balances[b.MemberID] = b.Amount.InexactFloat64()
		if b.Amount.Abs().GreaterThan(splitTolerance) {
			verb := "owes"
			if b.Amount.IsPositive() {
				verb = "gets"
			}
			audit = append(audit, fmt.Sprintf("  %s: %s ₹%s", b.MemberID, verb, b.Amount.Abs().StringFixed(2)))
		}
	}
	audit = append(audit, fmt.Sprintf("Net sum: ₹%s (should be 0)", net.StringFixed(6)))

	report.Net = net.InexactFloat64()
	report.Status = grade(net)
	switch report.Status {
	case StatusWarn:
		audit = append(audit, "WARNING: small rounding error detected")
	case StatusError:
		audit = append(audit, "ERROR: balances do not sum to zero")
	}
	report.Audit = audit

	return report
}

func grade(net decimal.Decimal) Status {
	switch abs := net.Abs(); {
	case abs.LessThan(splitTolerance):
		return StatusOK
	case abs.LessThan(roundingTolerance):
		return StatusWarn
	default:
		return StatusError
	}
}

func rank(balances map[string]decimal.Decimal) []Balance {
	ranked := make([]Balance, 0, len(balances))
	for id, amount := range balances {
		ranked = append(ranked, Balance{MemberID: id, Amount: amount})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if c := ranked[i].Amount.Cmp(ranked[j].Amount); c != 0 {
			return c > 0
		}
		return ranked[i].MemberID < ranked[j].MemberID
	})
	return ranked
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
