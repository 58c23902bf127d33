/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package rounding applies fixed-precision rounding to monetary amounts.
package rounding

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Mode selects how an amount is brought to a precision.
type Mode string

const (
	// HalfUp rounds ties away from zero.
	HalfUp Mode = "ROUND_HALF_UP"
	// HalfEven rounds ties to the even neighbour.
	HalfEven Mode = "ROUND_HALF_EVEN"
	// Down truncates towards zero.
	Down Mode = "ROUND_DOWN"
	// Up rounds away from zero.
	Up Mode = "ROUND_UP"
	// Floor rounds towards negative infinity.
	Floor Mode = "ROUND_FLOOR"
	// Ceiling rounds towards positive infinity.
	Ceiling Mode = "ROUND_CEILING"
)

// ErrNegativePrecision is returned when a negative precision is requested.
var ErrNegativePrecision = errors.New("precision must not be negative")

// ParseMode maps a parameter value to a Mode. Empty means HalfUp.
func ParseMode(value string) (Mode, error) {
	mode := Mode(strings.ToUpper(strings.TrimSpace(value)))
	switch mode {
	case "":
		return HalfUp, nil
	case HalfUp, HalfEven, Down, Up, Floor, Ceiling:
		return mode, nil
	}
	return "", fmt.Errorf("unsupported rounding mode %q", value)
}

// Round brings amount to precision decimal places using mode.
func Round(amount decimal.Decimal, precision int32, mode Mode) (decimal.Decimal, error) {
	if precision < 0 {
		return decimal.Zero, fmt.Errorf("%w: %d", ErrNegativePrecision, precision)
	}

	switch mode {
	case HalfUp, "":
		return amount.Round(precision), nil
	case HalfEven:
		return amount.RoundBank(precision), nil
	case Down:
		return amount.RoundDown(precision), nil
	case Up:
		return amount.RoundUp(precision), nil
	case Floor:
		return amount.RoundFloor(precision), nil
	case Ceiling:
		return amount.RoundCeil(precision), nil
	}
	return decimal.Zero, fmt.Errorf("unsupported rounding mode %q", mode)
}

// Policy binds a precision and a mode.
type Policy struct {
	Precision int32
	Mode      Mode
}

// NewPolicy validates precision and mode.
func NewPolicy(precision int32, mode Mode) (Policy, error) {
	if precision < 0 {
		return Policy{}, fmt.Errorf("%w: %d", ErrNegativePrecision, precision)
	}
	if mode == "" {
		mode = HalfUp
	}
	if _, err := ParseMode(string(mode)); err != nil {
		return Policy{}, err
	}
	return Policy{Precision: precision, Mode: mode}, nil
}

// Round applies the policy to amount. A Policy built with NewPolicy never fails.
func (p Policy) Round(amount decimal.Decimal) decimal.Decimal {
	rounded, err := Round(amount, p.Precision, p.Mode)
	if err != nil {
		return amount
	}
	return rounded
}
