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
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/accrual/model"
)

func savings(id, denomination, balance string, fetched *[]string) LinkedAccount {
	return LinkedAccount{
		AccountID:    id,
		Denomination: denomination,
		Fetch: func() (model.BalanceSnapshot, error) {
			*fetched = append(*fetched, id)
			return model.NewBalanceSnapshot(model.TsideLiability,
				model.NetEntry(model.DefaultAddress, denomination, model.PhaseCommitted, d(balance))), nil
		},
	}
}

func newMortgageEngine(t *testing.T) *AccrualEngine {
	return newTestAccrualEngine(t, func(cfg *AccrualConfig) {
		cfg.AccountID = "mortgage-1"
		cfg.Tside = model.TsideAsset
		cfg.InternalAccount = "INTEREST_INCOME"
	})
}

func mortgageBalance(net string) model.BalanceSnapshot {
	return model.NewBalanceSnapshot(model.TsideAsset,
		model.NetEntry(model.DefaultAddress, "GBP", model.PhaseCommitted, d(net)))
}

func TestOffsetEligibility(t *testing.T) {
	aggregator, err := NewOffsetAggregator("GBP", "")
	require.NoError(t, err)

	var fetched []string
	offset, err := aggregator.Eligible([]LinkedAccount{
		savings("s1", "GBP", "20000", &fetched),
		savings("s2", "USD", "50000", &fetched),
		savings("s3", "GBP", "0", &fetched),
		savings("s4", "GBP", "-100", &fetched),
		savings("s0", "GBP", "5000", &fetched),
	})
	require.NoError(t, err)

	assert.Equal(t, "25000", offset.Amount.String())
	assert.Equal(t, []string{"s0", "s1"}, offset.Accounts)
	assert.NotContains(t, fetched, "s2", "accounts in another denomination are never fetched")
}

func TestOffsetAccrual(t *testing.T) {
	aggregator, err := NewOffsetAggregator("GBP", model.DefaultAddress)
	require.NoError(t, err)
	engine := newMortgageEngine(t)

	var fetched []string
	result, err := aggregator.Accrue(context.Background(), engine, AccrualInput{
		Balances:      mortgageBalance("100000"),
		EffectiveTime: effective,
	}, []LinkedAccount{savings("s1", "GBP", "90000", &fetched)})
	require.NoError(t, err)

	// (100000 - 90000) * 0.0365 / 365
	assert.Equal(t, "1", result.Amount.String())
	assert.Equal(t, "10000", result.Base.String())
	require.Len(t, result.Instructions, 1)
	assert.Equal(t, "90000", result.Instructions[0].Detail("offset_amount"))
	assert.Equal(t, "s1", result.Instructions[0].Detail("offset_accounts"))
}

func TestOffsetDegenerateCases(t *testing.T) {
	aggregator, err := NewOffsetAggregator("GBP", model.DefaultAddress)
	require.NoError(t, err)
	engine := newMortgageEngine(t)
	in := AccrualInput{Balances: mortgageBalance("100000"), EffectiveTime: effective}

	var fetched []string
	tests := []struct {
		name   string
		linked []LinkedAccount
	}{
		{"no linked accounts", nil},
		{"only other denominations", []LinkedAccount{savings("s1", "EUR", "1000", &fetched)}},
		{"no positive balances", []LinkedAccount{savings("s1", "GBP", "0", &fetched)}},
		{"offset covers the mortgage", []LinkedAccount{savings("s1", "GBP", "150000", &fetched)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := aggregator.Accrue(context.Background(), engine, in, tt.linked)
			require.NoError(t, err)
			assert.Empty(t, result.Instructions)
			assert.True(t, result.Amount.IsZero())
		})
	}
}

func TestOffsetFetchError(t *testing.T) {
	aggregator, err := NewOffsetAggregator("GBP", model.DefaultAddress)
	require.NoError(t, err)

	failing := LinkedAccount{AccountID: "s1", Denomination: "GBP", Fetch: func() (model.BalanceSnapshot, error) {
		return model.BalanceSnapshot{}, errors.New("balance service unavailable")
	}}
	_, err = aggregator.Accrue(context.Background(), newMortgageEngine(t), AccrualInput{
		Balances: mortgageBalance("1000"), EffectiveTime: effective,
	}, []LinkedAccount{failing})
	assert.Error(t, err)

	_, err = aggregator.Eligible([]LinkedAccount{{AccountID: "s2", Denomination: "GBP"}})
	assert.Error(t, err)

	_, err = NewOffsetAggregator("", "")
	assert.Error(t, err)
}

func TestOffsetNet(t *testing.T) {
	aggregator, err := NewOffsetAggregator("GBP", model.DefaultAddress)
	require.NoError(t, err)

	var fetched []string
	net, err := aggregator.Net(model.TsideLiability, []LinkedAccount{
		savings("s1", "GBP", "100", &fetched),
		savings("s2", "GBP", "-30", &fetched),
		savings("s3", "USD", "1000", &fetched),
	})
	require.NoError(t, err)
	assert.Equal(t, "70", net.Net(model.DefaultAddress, "GBP").String())
	assert.True(t, net.Net(model.DefaultAddress, "USD").IsZero())
}
