package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Bracket is one marginal tax band: income in [From, To) is taxed at Rate percent.
// Bounds are in minor currency units.
type Bracket struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
	Rate int64 `json:"rate"`
}

// Schedule is an ordered, contiguous list of brackets starting at zero.
type Schedule []Bracket

// smic is twice the yearly minimum wage reference, in whole currency units.
const smic = 14729 * 2

// DefaultSchedule is the fixed schedule applied to yearly provider revenue.
var DefaultSchedule = Schedule{
	{From: 0, To: 1000 * 100, Rate: 0},
	{From: 1000 * 100, To: 2000 * 100, Rate: 10},
	{From: 2000 * 100, To: 3000 * 100, Rate: 15},
	{From: 3000 * 100, To: 4000 * 100, Rate: 20},
	{From: 4000 * 100, To: 15000 * 100, Rate: 25},
	{From: 15000 * 100, To: 20000 * 100, Rate: 40},
	{From: 20000 * 100, To: 25000 * 100, Rate: 55},
	{From: 25000 * 100, To: smic * 2 * 100, Rate: 75},
	{From: smic * 2 * 100, To: 1000000 * 100, Rate: 100},
}

// Validate checks that brackets start at zero, are contiguous and strictly increasing.
func (s Schedule) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("schedule is empty")
	}
	if s[0].From != 0 {
		return fmt.Errorf("first bracket starts at %d, want 0", s[0].From)
	}
	for i, b := range s {
		if b.To <= b.From {
			return fmt.Errorf("bracket %d: to %d <= from %d", i, b.To, b.From)
		}
		if b.Rate < 0 || b.Rate > 100 {
			return fmt.Errorf("bracket %d: rate %d out of range", i, b.Rate)
		}
		if i > 0 && b.From != s[i-1].To {
			return fmt.Errorf("bracket %d: starts at %d, previous ends at %d", i, b.From, s[i-1].To)
		}
	}
	return nil
}

// TaxAmount applies the schedule to a yearly total. Each bracket taxes only
// the share of income inside it, rounded up. Income above the last bracket is
// not taxed; negative income yields zero.
func (s Schedule) TaxAmount(totalIncome int64) int64 {
	if totalIncome <= 0 {
		return 0
	}
	var tax int64
	for _, b := range s {
		tax += ceilPercent(taxableIn(totalIncome, b), b.Rate)
	}
	return tax
}

func taxableIn(income int64, b Bracket) int64 {
	if income <= b.From {
		return 0
	}
	return min(income-b.From, b.To-b.From)
}

// ceilPercent returns ceil(amount * rate / 100) for non-negative inputs.
func ceilPercent(amount, rate int64) int64 {
	return (amount*rate + 99) / 100
}

// EffectiveRate returns ceil(tax / income * 100) as a whole percent, or 0
// when income is not positive.
func EffectiveRate(totalIncome, taxAmount int64) int64 {
	if totalIncome <= 0 {
		return 0
	}
	return EffectiveRatePrecise(totalIncome, taxAmount).Ceil().IntPart()
}

// EffectiveRatePrecise returns tax / income * 100 without rounding to a whole percent.
func EffectiveRatePrecise(totalIncome, taxAmount int64) decimal.Decimal {
	if totalIncome <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(taxAmount).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(totalIncome))
}
