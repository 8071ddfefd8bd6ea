// Package occ parses OCC-style option contract identifiers of the form
// {UNDERLYING}{YYMMDD}{C|P}{STRIKE*1000}, e.g. AAPL240119C00150000.
package occ

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var ErrMalformedID = errors.New("malformed contract id")

var idPattern = regexp.MustCompile(`^([A-Z]+)(\d{6})([CP])(\d+)$`)

// OptionType is either "call" or "put".
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// Contract is the decoded form of a contract identifier.
type Contract struct {
	Underlying string
	Expiration time.Time
	Type       OptionType
	Strike     float64
}

// Parse decodes a contract identifier. The expiration carries a zero
// time-of-day in UTC.
func Parse(id string) (Contract, error) {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return Contract{}, fmt.Errorf("%w: %q", ErrMalformedID, id)
	}

	expiration, err := time.Parse("060102", m[2])
	if err != nil {
		return Contract{}, fmt.Errorf("%w: %q: %v", ErrMalformedID, id, err)
	}

	raw, err := strconv.ParseInt(m[4], 10, 64)
	if err != nil {
		return Contract{}, fmt.Errorf("%w: %q: %v", ErrMalformedID, id, err)
	}

	typ := Call
	if m[3] == "P" {
		typ = Put
	}

	return Contract{
		Underlying: m[1],
		Expiration: expiration,
		Type:       typ,
		Strike:     float64(raw) / 1000,
	}, nil
}

// Expired reports whether the contract's expiration falls strictly before
// the given reference date. Only the calendar date is compared.
func (c Contract) Expired(ref time.Time) bool {
	refDay := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	return c.Expiration.Before(refDay)
}
