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

package rounding_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/accrual/rounding"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		precision int32
		mode      rounding.Mode
		expected  string
	}{
		{"half up tie", "1.005", 2, rounding.HalfUp, "1.01"},
		{"half up negative tie", "-1.005", 2, rounding.HalfUp, "-1.01"},
		{"half up below tie", "1.0049", 2, rounding.HalfUp, "1"},
		{"default mode", "2.5", 0, "", "3"},
		{"half even tie", "2.5", 0, rounding.HalfEven, "2"},
		{"down", "1.999", 2, rounding.Down, "1.99"},
		{"down negative", "-1.999", 2, rounding.Down, "-1.99"},
		{"up", "1.001", 2, rounding.Up, "1.01"},
		{"floor", "-1.001", 2, rounding.Floor, "-1.01"},
		{"ceiling", "1.001", 2, rounding.Ceiling, "1.01"},
		{"zero precision", "10.4", 0, rounding.HalfUp, "10"},
		{"accrual precision", "219.17808219178", 6, rounding.HalfUp, "219.178082"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := rounding.Round(decimal.RequireFromString(tt.amount), tt.precision, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.String())
		})
	}
}

func TestRoundNegativePrecision(t *testing.T) {
	_, err := rounding.Round(decimal.NewFromInt(1), -1, rounding.HalfUp)
	assert.True(t, errors.Is(err, rounding.ErrNegativePrecision))

	_, err = rounding.NewPolicy(-2, rounding.HalfUp)
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	mode, err := rounding.ParseMode("round_half_even")
	require.NoError(t, err)
	assert.Equal(t, rounding.HalfEven, mode)

	mode, err = rounding.ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, rounding.HalfUp, mode)

	_, err = rounding.ParseMode("ROUND_SIDEWAYS")
	assert.Error(t, err)
}

func TestPolicyRound(t *testing.T) {
	policy, err := rounding.NewPolicy(2, "")
	require.NoError(t, err)
	assert.Equal(t, rounding.HalfUp, policy.Mode)
	assert.Equal(t, "0.13", policy.Round(decimal.RequireFromString("0.125")).String())
}
