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

package accrual

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/accrual/hookerror"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func dp(v string) *decimal.Decimal {
	value := d(v)
	return &value
}

func TestAccountTierRates(t *testing.T) {
	table := AccountTierRates{Tiers: []AccountTier{
		{Name: "PREMIUM", Rate: d("0.03")},
		{Name: "PLUS", Rate: d("0.02")},
		{Name: "STANDARD", Rate: d("0.01")},
	}}

	tests := []struct {
		name  string
		flags []string
		tier  string
		rate  string
	}{
		{"matching flag", []string{"PLUS"}, "PLUS", "0.02"},
		{"first declared tier wins", []string{"PLUS", "PREMIUM"}, "PREMIUM", "0.03"},
		{"no flag falls back to last tier", nil, "STANDARD", "0.01"},
		{"unknown flag falls back to last tier", []string{"GOLD"}, "STANDARD", "0.01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			portions, err := table.resolve(d("1000"), tt.flags)
			require.NoError(t, err)
			require.Len(t, portions, 1)
			assert.Equal(t, tt.tier, portions[0].Tier)
			assert.True(t, d(tt.rate).Equal(portions[0].Rate))
			assert.True(t, d("1000").Equal(portions[0].Amount))
		})
	}
}

func TestBalanceTierRates(t *testing.T) {
	table := BalanceTierRates{Tiers: []BalanceTier{
		{Name: "high", MinimumBalance: d("10000"), Rate: d("0.03")},
		{Name: "mid", MinimumBalance: d("1000"), Rate: d("0.02")},
		{Name: "low", MinimumBalance: d("0"), Rate: d("0.01")},
	}}

	tests := []struct {
		base string
		tier string
	}{
		{"15000", "high"},
		{"10000", "high"},
		{"9999.99", "mid"},
		{"10", "low"},
		{"0", "low"},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			portions, err := table.resolve(d(tt.base), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.tier, portions[0].Tier)
		})
	}
}

func TestBandedRates(t *testing.T) {
	table := BandedRates{Bands: []RateBand{
		{UpTo: dp("1000"), Rate: d("0.01")},
		{UpTo: dp("5000"), Rate: d("0.02")},
		{Rate: d("0.03")},
	}}

	portions, err := table.resolve(d("6000"), nil)
	require.NoError(t, err)
	require.Len(t, portions, 3)
	assert.True(t, d("1000").Equal(portions[0].Amount))
	assert.True(t, d("4000").Equal(portions[1].Amount))
	assert.True(t, d("1000").Equal(portions[2].Amount))

	portions, err = table.resolve(d("500"), nil)
	require.NoError(t, err)
	require.Len(t, portions, 1)
	assert.True(t, d("500").Equal(portions[0].Amount))

	portions, err = table.resolve(decimal.Zero, nil)
	require.NoError(t, err)
	assert.Empty(t, portions)

	rate, err := annualRate(table, d("6000"), nil)
	require.NoError(t, err)
	// (1000*0.01 + 4000*0.02 + 1000*0.03) / 6000
	assert.True(t, d("120").Div(d("6000")).Equal(rate))
}

func TestInvalidRateTables(t *testing.T) {
	tests := []struct {
		name  string
		table RateTable
	}{
		{"empty account tiers", AccountTierRates{}},
		{"empty balance tiers", BalanceTierRates{}},
		{"empty bands", BandedRates{}},
		{"bounded last band", BandedRates{Bands: []RateBand{{UpTo: dp("100"), Rate: d("0.01")}}}},
		{"unbounded middle band", BandedRates{Bands: []RateBand{{Rate: d("0.01")}, {Rate: d("0.02")}}}},
		{"descending bands", BandedRates{Bands: []RateBand{{UpTo: dp("100"), Rate: d("0.01")}, {UpTo: dp("50"), Rate: d("0.02")}, {Rate: d("0.03")}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.table.resolve(d("10"), nil)
			require.Error(t, err)
			assert.Equal(t, hookerror.ErrInvalidConfiguration, hookerror.CodeOf(err))
		})
	}
}

func TestParseRateTable(t *testing.T) {
	table, err := ParseRateTable(RateTypeFlat, d("0.05"), nil)
	require.NoError(t, err)
	assert.Equal(t, FlatRate{Rate: d("0.05")}, table)

	table, err = ParseRateTable(RateTypeAccountTier, decimal.Zero, []byte(`[{"tier":"UPPER","rate":"0.02"},{"tier":"LOWER","rate":0.01}]`))
	require.NoError(t, err)
	tiers := table.(AccountTierRates).Tiers
	require.Len(t, tiers, 2)
	assert.Equal(t, "LOWER", tiers[1].Name)

	table, err = ParseRateTable(RateTypeBanded, decimal.Zero, []byte(`[{"up_to":"1000","rate":"0.01"},{"rate":"0.02"}]`))
	require.NoError(t, err)
	assert.Len(t, table.(BandedRates).Bands, 2)

	_, err = ParseRateTable(RateTypeBanded, decimal.Zero, []byte(`[{"up_to":"1000","rate":"0.01"}]`))
	assert.Error(t, err)

	_, err = ParseRateTable(RateTypeBalanceTier, decimal.Zero, []byte(`not json`))
	assert.Error(t, err)

	_, err = ParseRateTable("compound", decimal.Zero, nil)
	assert.Error(t, err)
}
