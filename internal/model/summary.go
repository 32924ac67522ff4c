package model

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// UncategorizedCategory is used for expense records without a category.
const UncategorizedCategory = "Uncategorized"

// RangeSummary totals a financial range.
type RangeSummary struct {
	Income     decimal.Decimal            `json:"income"`
	Expenses   decimal.Decimal            `json:"expenses"`
	Net        decimal.Decimal            `json:"net"`
	ByCategory map[string]decimal.Decimal `json:"by_category"`
	// Skipped counts records whose amount could not be parsed.
	Skipped int `json:"skipped"`
}

// Summarize totals the amount field of every record in the pair.
func Summarize(pair RecordListPair) RangeSummary {
	s := RangeSummary{
		Income:     decimal.Zero,
		Expenses:   decimal.Zero,
		ByCategory: make(map[string]decimal.Decimal),
	}

	for _, rec := range pair.Income {
		amt, err := recordAmount(rec)
		if err != nil {
			s.Skipped++
			continue
		}
		s.Income = s.Income.Add(amt)
	}

	for _, rec := range pair.Expenses {
		amt, err := recordAmount(rec)
		if err != nil {
			s.Skipped++
			continue
		}
		s.Expenses = s.Expenses.Add(amt)

		category, _ := rec["category"].(string)
		if strings.TrimSpace(category) == "" {
			category = UncategorizedCategory
		}
		s.ByCategory[category] = s.ByCategory[category].Add(amt)
	}

	s.Net = s.Income.Sub(s.Expenses)
	return s
}

func recordAmount(rec Document) (decimal.Decimal, error) {
	switch v := rec["amount"].(type) {
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float32:
		if err := finite(float64(v)); err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromFloat32(v), nil
	case float64:
		if err := finite(v); err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromFloat(v), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case nil:
		return decimal.Zero, fmt.Errorf("amount missing")
	default:
		return decimal.Zero, fmt.Errorf("unsupported amount type %T", v)
	}
}

// decimal panics on NaN and infinities.
func finite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("amount %v is not finite", v)
	}
	return nil
}
