package settlement

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

// Export is a group's data as exported by the mobile app or sent to the API.
// Both snake_case and the app's camelCase field names are accepted.
type Export struct {
	Members     []Member     `json:"members"`
	Expenses    []Expense    `json:"expenses"`
	Settlements []Settlement `json:"settlements"`
}

// Validate runs Validate over the export
func (e *Export) Validate() *Report {
	return Validate(e.Members, e.Expenses, e.Settlements)
}

// ReadExport decodes an export document
func ReadExport(r io.Reader) (*Export, error) {
	var export Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("decoding export: %w", err)
	}
	return &export, nil
}

// UnmarshalJSON accepts paid_by or paidBy, merchant or title, note or
// description, and splits either as a member->amount object or as a list of
// {memberId, amount} entries.
func (e *Expense) UnmarshalJSON(data []byte) error {
	type plain Expense
	var raw struct {
		plain
		PaidByCamel string          `json:"paidBy"`
		Title       string          `json:"title"`
		Description string          `json:"description"`
		Splits      json.RawMessage `json:"splits"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = Expense(raw.plain)
	if e.PaidBy == "" {
		e.PaidBy = raw.PaidByCamel
	}
	if e.Merchant == "" {
		e.Merchant = raw.Title
	}
	if e.Note == "" {
		e.Note = raw.Description
	}

	splits, err := decodeSplits(raw.Splits)
	if err != nil {
		return fmt.Errorf("expense %s: %w", e.ID, err)
	}
	e.Splits = splits
	return nil
}

func decodeSplits(data json.RawMessage) (map[string]decimal.Decimal, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return map[string]decimal.Decimal{}, nil
	}

	if data[0] == '{' {
		var splits map[string]decimal.Decimal
		if err := json.Unmarshal(data, &splits); err != nil {
			return nil, fmt.Errorf("decoding splits: %w", err)
		}
		return splits, nil
	}

	var entries []struct {
		MemberID      string          `json:"member_id"`
		MemberIDCamel string          `json:"memberId"`
		Amount        decimal.Decimal `json:"amount"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding splits: %w", err)
	}

	splits := make(map[string]decimal.Decimal, len(entries))
	for _, entry := range entries {
		id := entry.MemberID
		if id == "" {
			id = entry.MemberIDCamel
		}
		splits[id] = splits[id].Add(entry.Amount)
	}
	return splits, nil
}

// UnmarshalJSON accepts from_id/to_id or the app's fromMemberId/toMemberId
func (s *Settlement) UnmarshalJSON(data []byte) error {
	type plain Settlement
	var raw struct {
		plain
		FromCamel string `json:"fromMemberId"`
		ToCamel   string `json:"toMemberId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = Settlement(raw.plain)
	if s.FromID == "" {
		s.FromID = raw.FromCamel
	}
	if s.ToID == "" {
		s.ToID = raw.ToCamel
	}
	return nil
}
