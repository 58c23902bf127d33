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

// Package daycount converts annual rates into daily and monthly rates
// under the supported day-count conventions.
package daycount

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Convention is the number of days used to prorate an annual rate.
type Convention string

const (
	Days360 Convention = "360"
	Days365 Convention = "365"
	Days366 Convention = "366"
	Actual  Convention = "actual"
)

// InternalPrecision is the number of decimal places kept on converted rates.
const InternalPrecision int32 = 10

var monthsInYear = decimal.NewFromInt(12)

// ParseConvention maps a parameter value to a Convention.
// Unrecognised values fall back to Actual.
func ParseConvention(value string) Convention {
	switch Convention(strings.ToLower(strings.TrimSpace(value))) {
	case Days360:
		return Days360
	case Days365:
		return Days365
	case Days366:
		return Days366
	default:
		return Actual
	}
}

// IsLeapYear reports whether year has 366 days.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInYear returns the denominator for convention on the given date.
func DaysInYear(convention Convention, effectiveDate time.Time) int64 {
	switch convention {
	case Days360:
		return 360
	case Days365:
		return 365
	case Days366:
		return 366
	default:
		if IsLeapYear(effectiveDate.Year()) {
			return 366
		}
		return 365
	}
}

// Denominator is DaysInYear as a decimal.
func Denominator(convention Convention, effectiveDate time.Time) decimal.Decimal {
	return decimal.NewFromInt(DaysInYear(convention, effectiveDate))
}

// DailyRate prorates annualRate to a single day, rounded half-up to InternalPrecision.
func DailyRate(annualRate decimal.Decimal, convention Convention, effectiveDate time.Time) decimal.Decimal {
	return annualRate.Div(Denominator(convention, effectiveDate)).Round(InternalPrecision)
}

// MonthlyRate prorates annualRate to a single month, rounded half-up to InternalPrecision.
func MonthlyRate(annualRate decimal.Decimal) decimal.Decimal {
	return annualRate.Div(monthsInYear).Round(InternalPrecision)
}

// DailyRateFromString parses annualRate and converts it with DailyRate.
func DailyRateFromString(annualRate string, convention string, effectiveDate time.Time) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(annualRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid annual rate %q: %w", annualRate, err)
	}
	return DailyRate(rate, ParseConvention(convention), effectiveDate), nil
}

// MonthlyRateFromString parses annualRate and converts it with MonthlyRate.
func MonthlyRateFromString(annualRate string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(annualRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid annual rate %q: %w", annualRate, err)
	}
	return MonthlyRate(rate), nil
}
