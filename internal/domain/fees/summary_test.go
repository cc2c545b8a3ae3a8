package fees_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitadmin/internal/domain/fees"
	"fitadmin/internal/domain/payment"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func paid(id string, on time.Time, amount string) payment.Payment {
	return payment.Payment{
		ID:          id,
		MemberID:    "m1",
		Amount:      decimal.RequireFromString(amount),
		Type:        payment.TypeMonthly,
		PaymentDate: on,
		ValidUntil:  on.AddDate(0, 1, 0),
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "%s: got %s, want %s", msg, got, want)
}

func TestComputeSummary_Empty(t *testing.T) {
	s := fees.ComputeSummary(nil, 0, day(2026, 10, 17), time.UTC)

	assert.True(t, s.MonthlyTotal.IsZero())
	assert.True(t, s.QuarterlyTotal.IsZero())
	assert.True(t, s.YearlyTotal.IsZero())
	assert.Zero(t, s.TotalMembers)
	assert.Zero(t, s.TotalPayments)
}

func TestComputeSummary_MonthBoundariesInclusive(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	payments := []payment.Payment{
		paid("first", day(2026, 10, 1), "100"),
		paid("last", day(2026, 10, 31), "200"),
		paid("mid", day(2026, 10, 17), "50.25"),
		paid("before", day(2026, 9, 30), "1000"),
		paid("after", day(2026, 11, 1), "1000"),
	}

	s := fees.ComputeSummary(payments, 2, now, time.UTC)

	assertDecimal(t, "350.25", s.MonthlyTotal, "monthly")
	assert.Equal(t, 3, s.MonthlyCount)
	assert.Equal(t, 5, s.TotalPayments)
	assert.Equal(t, 2, s.TotalMembers)
}

func TestComputeSummary_RollingQuarter(t *testing.T) {
	now := day(2026, 2, 10)
	payments := []payment.Payment{
		paid("dec", day(2025, 12, 1), "10"),  // month-2: in quarter, previous year
		paid("nov", day(2025, 11, 30), "20"), // just outside quarter
		paid("jan", day(2026, 1, 15), "30"),
		paid("feb", day(2026, 2, 28), "40"),
	}

	s := fees.ComputeSummary(payments, 1, now, time.UTC)

	assert.True(t, s.QuarterStart.Equal(day(2025, 12, 1)))
	assertDecimal(t, "80", s.QuarterlyTotal, "quarterly")
	assert.Equal(t, 3, s.QuarterlyCount)
	assertDecimal(t, "70", s.YearlyTotal, "yearly")
	assertDecimal(t, "40", s.MonthlyTotal, "monthly")
}

func TestComputeSummary_YearlyByType(t *testing.T) {
	now := day(2026, 6, 1)
	yearly := paid("y", day(2026, 3, 1), "12000")
	yearly.Type = payment.TypeYearly
	quarterly := paid("q", day(2026, 4, 1), "4000")
	quarterly.Type = payment.TypeQuarterly
	lastYear := paid("old", day(2025, 12, 31), "1500")

	s := fees.ComputeSummary([]payment.Payment{yearly, quarterly, lastYear, paid("m", day(2026, 5, 5), "1500")}, 3, now, time.UTC)

	assertDecimal(t, "17500", s.YearlyTotal, "yearly")
	assertDecimal(t, "12000", s.YearlyByType[payment.TypeYearly], "yearly type")
	assertDecimal(t, "4000", s.YearlyByType[payment.TypeQuarterly], "quarterly type")
	assertDecimal(t, "1500", s.YearlyByType[payment.TypeMonthly], "monthly type")
	assert.Equal(t, 3, s.YearlyCount)
}

func TestComputeSummary_DecimalPrecision(t *testing.T) {
	now := day(2026, 10, 17)
	payments := []payment.Payment{
		paid("a", day(2026, 10, 2), "0.10"),
		paid("b", day(2026, 10, 3), "0.20"),
	}
	s := fees.ComputeSummary(payments, 1, now, time.UTC)
	assertDecimal(t, "0.30", s.MonthlyTotal, "monthly")
}

func TestComputeSummary_Idempotent(t *testing.T) {
	now := day(2026, 10, 17)
	payments := []payment.Payment{paid("a", day(2026, 10, 2), "99.99"), paid("b", day(2026, 8, 3), "10")}

	first := fees.ComputeSummary(payments, 4, now, time.UTC)
	second := fees.ComputeSummary(payments, 4, now, time.UTC)
	assert.Equal(t, first, second)
}

func TestWindowsFor(t *testing.T) {
	w := fees.WindowsFor(day(2026, 1, 31))
	assert.True(t, w.Month.Start.Equal(day(2026, 1, 1)))
	assert.True(t, w.Month.End.Equal(day(2026, 1, 31)))
	assert.True(t, w.Quarter.Start.Equal(day(2025, 11, 1)))
	assert.True(t, w.Year.End.Equal(day(2026, 12, 31)))
}

func TestSummaryJSON_Dates(t *testing.T) {
	s := fees.ComputeSummary([]payment.Payment{paid("feb", day(2026, 2, 3), "40")}, 1, day(2026, 2, 10), time.UTC)

	raw, err := json.Marshal(s)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "2026-02-10", got["as_of"])
	assert.Equal(t, "2025-12-01", got["quarter_start"])
	assert.Equal(t, 1.0, got["monthly_count"])
	assert.Contains(t, got, "yearly_by_type")
}
