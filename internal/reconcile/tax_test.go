package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultScheduleIsValid(t *testing.T) {
	require.NoError(t, DefaultSchedule.Validate())
	assert.Equal(t, int64(5891600), DefaultSchedule[7].To)
	assert.Equal(t, int64(100000000), DefaultSchedule[len(DefaultSchedule)-1].To)
}

func TestTaxAmount(t *testing.T) {
	tests := []struct {
		name   string
		income int64
		want   int64
	}{
		{"zero", 0, 0},
		{"negative", -5000, 0},
		{"first bracket ceiling", 100000, 0},
		{"half of second bracket", 150000, 5000},
		{"end of second bracket", 200000, 10000},
		{"into third bracket", 250000, 10000 + 7500},
		{"rounds each bracket up", 100001, 1},
		{"above last bracket", 200000000, DefaultSchedule.TaxAmount(100000000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultSchedule.TaxAmount(tt.income))
		})
	}
}

func TestTaxAmount_TwoBracketSchedule(t *testing.T) {
	s := Schedule{
		{From: 0, To: 100000, Rate: 0},
		{From: 100000, To: 200000, Rate: 10},
	}
	require.NoError(t, s.Validate())

	assert.Equal(t, int64(10000), s.TaxAmount(250000))
}

func TestTaxAmount_Monotonic(t *testing.T) {
	prev := DefaultSchedule.TaxAmount(0)
	for income := int64(0); income <= 7000000; income += 997 {
		got := DefaultSchedule.TaxAmount(income)
		require.GreaterOrEqual(t, got, prev, "income %d", income)
		prev = got
	}

	// Every bracket boundary and its neighbours.
	for _, b := range DefaultSchedule {
		for _, i := range []int64{b.From - 1, b.From, b.From + 1, b.To - 1, b.To, b.To + 1} {
			if i < 1 {
				continue
			}
			assert.GreaterOrEqual(t, DefaultSchedule.TaxAmount(i), DefaultSchedule.TaxAmount(i-1), "income %d", i)
		}
	}
}

func TestScheduleValidate(t *testing.T) {
	tests := []struct {
		name string
		s    Schedule
	}{
		{"empty", Schedule{}},
		{"does not start at zero", Schedule{{From: 10, To: 20, Rate: 0}}},
		{"gap", Schedule{{From: 0, To: 10, Rate: 0}, {From: 11, To: 20, Rate: 5}}},
		{"empty bracket", Schedule{{From: 0, To: 0, Rate: 0}}},
		{"rate too high", Schedule{{From: 0, To: 10, Rate: 101}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.s.Validate())
		})
	}
}

func TestEffectiveRate(t *testing.T) {
	assert.Equal(t, int64(0), EffectiveRate(0, 0))
	assert.Equal(t, int64(0), EffectiveRate(0, 100))
	assert.Equal(t, int64(0), EffectiveRate(100000, 0))
	assert.Equal(t, int64(4), EffectiveRate(150000, 5000)) // 3.33 rounded up
	assert.Equal(t, int64(5), EffectiveRate(200000, 10000))

	assert.Equal(t, "5", EffectiveRatePrecise(200000, 10000).String())
	assert.True(t, EffectiveRatePrecise(0, 10).IsZero())
}
