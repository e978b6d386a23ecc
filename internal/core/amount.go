// Package core provides the ledger domain types, validation rules and
// aggregation primitives shared by every other layer.
//
// This file contains the explicit amount parse step. Amounts travel the
// wire as JSON numbers or strings; both are funneled through ParseAmount
// instead of relying on implicit coercion at the boundary.
package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseAmount converts a caller-supplied amount into whole currency
// units. It accepts integer text ("450", "-20") and integral decimal
// text ("450.0"); anything non-numeric, non-finite or fractional is
// rejected with ErrInvalidAmount. Sign is not restricted here.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	// Fast path for plain integers, which is what clients send.
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidAmount
	}
	if f != math.Trunc(f) {
		return 0, ErrInvalidAmount
	}
	// Integral float64s beyond 2^53 have already lost precision, and
	// anything near the int64 edge cannot round-trip safely.
	if f > float64(math.MaxInt64/2) || f < float64(math.MinInt64/2) {
		return 0, ErrInvalidAmount
	}
	return int64(f), nil
}
