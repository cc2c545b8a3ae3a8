// Package fees aggregates the payment ledger into collection totals.
package fees

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"fitadmin/internal/domain/calendar"
	"fitadmin/internal/domain/payment"
)

// QuarterMonths is the width of the rolling quarterly window, current month included.
const QuarterMonths = 3

// Windows holds the reporting periods for one day.
type Windows struct {
	Month   calendar.Range
	Quarter calendar.Range
	Year    calendar.Range
}

// WindowsFor returns the month, rolling quarter and year containing today.
// PRE: today is a normalized calendar date
func WindowsFor(today time.Time) Windows {
	monthEnd := calendar.MonthEnd(today)
	return Windows{
		Month:   calendar.Range{Start: calendar.MonthStart(today), End: monthEnd},
		Quarter: calendar.Range{Start: calendar.AddMonths(calendar.MonthStart(today), -(QuarterMonths - 1)), End: monthEnd},
		Year:    calendar.Range{Start: calendar.YearStart(today), End: calendar.YearEnd(today)},
	}
}

// Summary is the fee collection report.
type Summary struct {
	MonthlyTotal   decimal.Decimal            `json:"monthly_total"`
	QuarterlyTotal decimal.Decimal            `json:"quarterly_total"`
	YearlyTotal    decimal.Decimal            `json:"yearly_total"`
	MonthlyCount   int                        `json:"monthly_count"`
	QuarterlyCount int                        `json:"quarterly_count"`
	YearlyCount    int                        `json:"yearly_count"`
	YearlyByType   map[string]decimal.Decimal `json:"yearly_by_type"`
	TotalMembers   int                        `json:"total_members"`
	TotalPayments  int                        `json:"total_payments"`
	AsOf           time.Time                  `json:"as_of"`
	QuarterStart   time.Time                  `json:"quarter_start"`
}

// MarshalJSON encodes AsOf and QuarterStart as YYYY-MM-DD.
func (s Summary) MarshalJSON() ([]byte, error) {
	type plain Summary
	return json.Marshal(struct {
		plain
		AsOf         *string `json:"as_of"`
		QuarterStart *string `json:"quarter_start"`
	}{plain(s), calendar.JSONDate(s.AsOf), calendar.JSONDate(s.QuarterStart)})
}

// ComputeSummary totals payments by calendar period as of now.
// A payment belongs to a period when its payment date falls inside it; first
// and last days are inclusive.
// PRE: loc is the configured business zone (nil means UTC)
// POST: Totals are rounded to two decimal places
// INVARIANT: Pure; identical inputs give identical results
func ComputeSummary(payments []payment.Payment, totalMembers int, now time.Time, loc *time.Location) Summary {
	today := calendar.Day(now, loc)
	w := WindowsFor(today)

	s := Summary{
		MonthlyTotal:   decimal.Zero,
		QuarterlyTotal: decimal.Zero,
		YearlyTotal:    decimal.Zero,
		YearlyByType: map[string]decimal.Decimal{
			payment.TypeMonthly:   decimal.Zero,
			payment.TypeQuarterly: decimal.Zero,
			payment.TypeYearly:    decimal.Zero,
		},
		TotalMembers:  totalMembers,
		TotalPayments: len(payments),
		AsOf:          today,
		QuarterStart:  w.Quarter.Start,
	}

	for _, p := range payments {
		d := calendar.Normalize(p.PaymentDate)
		if w.Year.Contains(d) {
			s.YearlyTotal = s.YearlyTotal.Add(p.Amount)
			s.YearlyCount++
			s.YearlyByType[p.Type] = s.YearlyByType[p.Type].Add(p.Amount)
		}
		if w.Quarter.Contains(d) {
			s.QuarterlyTotal = s.QuarterlyTotal.Add(p.Amount)
			s.QuarterlyCount++
		}
		if w.Month.Contains(d) {
			s.MonthlyTotal = s.MonthlyTotal.Add(p.Amount)
			s.MonthlyCount++
		}
	}

	s.MonthlyTotal = s.MonthlyTotal.Round(2)
	s.QuarterlyTotal = s.QuarterlyTotal.Round(2)
	s.YearlyTotal = s.YearlyTotal.Round(2)
	for k, v := range s.YearlyByType {
		s.YearlyByType[k] = v.Round(2)
	}
	return s
}
