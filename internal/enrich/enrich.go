// Package enrich recombines a symbol's daily price/implied-volatility
// series into a rolling realized-volatility series for comparison against
// implied volatility.
package enrich

import (
	"math"
	"sort"
)

const tradingDaysPerYear = 252

// DailyRecord is one calendar day of a symbol's stored series. All numeric
// fields are nullable; absent data stays absent.
type DailyRecord struct {
	Date                string   `json:"date"`
	Price               *float64 `json:"price"`
	ChangesPercentage   *float64 `json:"changesPercentage"`
	PutCallRatio        *float64 `json:"putCallRatio"`
	TotalOpenInterest   *float64 `json:"total_open_interest"`
	ChangesPercentageOI *float64 `json:"changesPercentageOI"`
	IV                  *float64 `json:"iv"`
}

// RVRecord is a DailyRecord plus the realized volatility associated with it.
type RVRecord struct {
	Date                string   `json:"date"`
	Price               *float64 `json:"price"`
	ChangesPercentage   *float64 `json:"changesPercentage"`
	PutCallRatio        *float64 `json:"putCallRatio"`
	TotalOpenInterest   *float64 `json:"total_open_interest"`
	ChangesPercentageOI *float64 `json:"changesPercentageOI"`
	IV                  *float64 `json:"iv"`
	RV                  *float64 `json:"rv"`
}

// Compute derives the rolling annualized realized volatility of the series
// and merges it onto each day's other fields. The result holds one record
// per input day, sorted descending by date.
//
// Realized volatility as of day i is shifted backward by window-1 positions
// so each stored rv reflects the volatility realized over the window days
// following that record, the alignment needed to compare against an implied
// volatility quote made window days prior.
func Compute(series []DailyRecord, window int) []RVRecord {
	data := make([]DailyRecord, len(series))
	copy(data, series)
	sort.Slice(data, func(i, j int) bool { return data[i].Date < data[j].Date })

	logReturns := logReturns(data)
	rv := rolling(logReturns, window)

	// Shift backward by window-1 so day i carries the volatility realized
	// over the window that starts at it.
	shifted := make([]*float64, len(rv))
	if len(rv) >= window-1 {
		copy(shifted, rv[window-1:])
	}

	out := make([]RVRecord, len(data))
	for i, day := range data {
		record := RVRecord{
			Date:                day.Date,
			Price:               day.Price,
			ChangesPercentage:   day.ChangesPercentage,
			PutCallRatio:        day.PutCallRatio,
			TotalOpenInterest:   day.TotalOpenInterest,
			ChangesPercentageOI: day.ChangesPercentageOI,
			IV:                  day.IV,
		}
		if i < len(shifted) && shifted[i] != nil {
			rounded := math.Round(*shifted[i]*100) / 100
			record.RV = &rounded
		}
		out[i] = record
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out
}

// logReturns computes per-day log returns of price. A return is null when
// either price is missing or zero.
func logReturns(data []DailyRecord) []*float64 {
	if len(data) < 2 {
		return nil
	}

	returns := make([]*float64, len(data)-1)
	for i := 1; i < len(data); i++ {
		cur, prev := data[i].Price, data[i-1].Price
		if cur == nil || prev == nil || *cur == 0 || *prev == 0 {
			continue
		}
		r := math.Log(*cur / *prev)
		returns[i-1] = &r
	}
	return returns
}

// rolling computes the annualized realized volatility over a trailing
// window of log returns. The result is null until window returns exist and
// whenever any return inside the window is null.
func rolling(returns []*float64, window int) []*float64 {
	rv := make([]*float64, len(returns))
	for i := range returns {
		if i < window-1 {
			continue
		}

		var (
			sumSquares float64
			valid      int
		)
		for j := i - window + 1; j <= i; j++ {
			if returns[j] == nil {
				continue
			}
			sumSquares += *returns[j] * *returns[j]
			valid++
		}

		if valid < window {
			continue
		}

		daily := math.Sqrt(sumSquares / float64(window))
		annualized := daily * math.Sqrt(tradingDaysPerYear)
		rv[i] = &annualized
	}
	return rv
}
