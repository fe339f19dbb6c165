package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// SplitType tags how a split allocation is expressed.
type SplitType string

const (
	SplitTypePercentage  SplitType = "percentage"
	SplitTypeFixedAmount SplitType = "fixed_amount"
)

// Split allocates part of a payment to a secondary recipient. A split
// carries either a fixed amount in cents or a percentage of the payment.
type Split struct {
	RecipientID int64           `json:"recipient_id"`
	AmountCents int64           `json:"amount_cents,omitempty"`
	Percentage  decimal.Decimal `json:"percentage,omitempty"`
	Type        SplitType       `json:"split_type"`
}

// SplitList stores the splits of a payment as a jsonb column.
type SplitList []Split

// Value implements driver.Valuer interface
func (s SplitList) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner interface
func (s *SplitList) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		*s = nil
		return nil
	}
}

var oneHundred = decimal.NewFromInt(100)

// ResolveSplitTotal resolves every split to an absolute amount in cents and
// returns the total. Percentage splits are resolved against amountCents with
// decimal math so repeated fractions cannot drift past the payment amount.
func ResolveSplitTotal(amountCents int64, splits SplitList) (int64, error) {
	amount := decimal.NewFromInt(amountCents)
	total := decimal.Zero

	for i, split := range splits {
		switch split.Type {
		case SplitTypePercentage:
			if split.Percentage.IsNegative() || split.Percentage.GreaterThan(oneHundred) {
				return 0, fmt.Errorf("split %d: percentage must be between 0 and 100", i)
			}
			total = total.Add(amount.Mul(split.Percentage).Div(oneHundred))
		case SplitTypeFixedAmount:
			if split.AmountCents <= 0 {
				return 0, fmt.Errorf("split %d: fixed amount must be positive", i)
			}
			total = total.Add(decimal.NewFromInt(split.AmountCents))
		default:
			return 0, fmt.Errorf("split %d: unknown split type '%s'", i, split.Type)
		}
	}

	return total.Ceil().IntPart(), nil
}
