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

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/accrual"
	"github.com/blnkfinance/accrual/config"
	"github.com/blnkfinance/accrual/hookerror"
	"github.com/blnkfinance/accrual/hooks"
	"github.com/blnkfinance/accrual/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newTestRegistry(t *testing.T) *hooks.Registry {
	t.Helper()
	params := writeFile(t, "params.json", `{"interest_rate": 0.0365, "days_in_year": "365"}`)
	registry, _, err := setupRegistry(config.Default(), "savings", params)
	require.NoError(t, err)
	return registry
}

func TestSetupRegistryRejectsUnknownParameters(t *testing.T) {
	params := writeFile(t, "params.json", `{"interest_rat": "0.01"}`)
	_, _, err := setupRegistry(config.Default(), "savings", params)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "interest_rate"?`)
	assert.Equal(t, 78, hookerror.MapErrorToExitCode(err))
}

func TestReadScenarioGroupsHistory(t *testing.T) {
	path := writeFile(t, "scenario.json", `{
		"account_id": "savings-1",
		"effective_time": "2023-06-01T12:00:00Z",
		"balances": {"tside": "LIABILITY", "balances": [
			{"address": "DEFAULT", "asset": "COMMERCIAL_BANK_MONEY", "denomination": "GBP",
			 "phase": "POSTING_PHASE_COMMITTED", "credit": "0", "debit": "0", "net": "50"}
		]},
		"history": [
			{"id": "a", "type": "OUTBOUND_AUTHORISATION", "client_transaction_id": "ct1", "amount": "10", "denomination": "GBP", "value_timestamp": "2023-06-01T10:00:00Z"},
			{"id": "b", "type": "SETTLEMENT", "client_transaction_id": "ct1", "amount": "10", "final": true, "denomination": "GBP", "value_timestamp": "2023-06-01T11:00:00Z"}
		]
	}`)

	args, err := readScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "savings-1", args.AccountID)
	assert.Equal(t, "50", args.Balances.Net(model.DefaultAddress, "GBP").String())
	require.Len(t, args.ClientTransactions, 1)
	chain := args.ClientTransactions[model.ClientTransactionKey{ID: "ct1"}]
	require.NotNil(t, chain)
	assert.Len(t, chain.Instructions, 2)
	assert.True(t, chain.Effects(nil).Closed)
}

func TestReadScenarioErrors(t *testing.T) {
	_, err := readScenario(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = readScenario(writeFile(t, "scenario.json", `{"account_id": `))
	require.Error(t, err)
	assert.Equal(t, 65, hookerror.MapErrorToExitCode(errors.Wrap(err, "reading")))
}

func TestSimulateAccruesAndApplies(t *testing.T) {
	registry := newTestRegistry(t)
	start := time.Date(2023, 6, 1, 9, 0, 0, 0, time.UTC)
	args := hooks.Args{
		AccountID:     "savings-1",
		EffectiveTime: start,
		Balances: model.NewBalanceSnapshot(model.TsideLiability,
			model.NetEntry(model.DefaultAddress, "GBP", model.PhaseCommitted, decimal.NewFromInt(1000))),
	}

	result, err := simulate(context.Background(), registry, "savings", args, time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, result.Steps, 31)

	for _, step := range result.Steps[:30] {
		assert.Equal(t, accrual.EventAccrueInterest, step.EventType)
		assert.Equal(t, "0.1", step.Amount.String())
	}
	last := result.Steps[30]
	assert.Equal(t, accrual.EventApplyInterest, last.EventType)
	assert.Equal(t, time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC), last.EffectiveTime)
	assert.Equal(t, "1003", last.Balance.String())

	assert.True(t, result.Balances.Net("ACCRUED_INTEREST", "GBP").IsZero())
}

func TestSimulateRejectsReversedPeriod(t *testing.T) {
	registry := newTestRegistry(t)
	start := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := simulate(context.Background(), registry, "savings", hooks.Args{AccountID: "savings-1", EffectiveTime: start}, start.AddDate(0, 0, -1))
	require.Error(t, err)
	assert.Equal(t, hookerror.ErrInvalidInput, hookerror.CodeOf(err))
}

func TestSimulateUntilIncludesWholeDay(t *testing.T) {
	end, err := endOfDay("2023-07-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 7, 2, 0, 0, 0, 0, time.UTC), end)

	_, err = endOfDay("01/07/2023")
	assert.Equal(t, hookerror.ErrInvalidInput, hookerror.CodeOf(err))

	registry := newTestRegistry(t)
	args := hooks.Args{
		AccountID:     "savings-1",
		EffectiveTime: time.Date(2023, 6, 29, 9, 0, 0, 0, time.UTC),
		Balances: model.NewBalanceSnapshot(model.TsideLiability,
			model.NetEntry(model.DefaultAddress, "GBP", model.PhaseCommitted, decimal.NewFromInt(1000))),
	}
	result, err := simulate(context.Background(), registry, "savings", args, end)
	require.NoError(t, err)
	require.Len(t, result.Steps, 3, "accruals on 30 June and 1 July, then the application on 1 July")
	assert.Equal(t, accrual.EventApplyInterest, result.Steps[2].EventType)

	atMidnight, err := simulate(context.Background(), registry, "savings", args, time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, atMidnight.Steps, 1, "events due at the end instant are not run")
}

func TestHookScenarioWithLinkedAccounts(t *testing.T) {
	params := writeFile(t, "params.json", `{"interest_rate": "0.0365", "days_in_year": "365", "tside": "ASSET"}`)
	registry, _, err := setupRegistry(config.Default(), "mortgage", params)
	require.NoError(t, err)

	path := writeFile(t, "scenario.json", `{
		"account_id": "mortgage-1",
		"event_type": "ACCRUE_INTEREST",
		"effective_time": "2023-06-01T23:59:59Z",
		"balances": {"tside": "ASSET", "balances": [
			{"address": "DEFAULT", "asset": "COMMERCIAL_BANK_MONEY", "denomination": "GBP",
			 "phase": "POSTING_PHASE_COMMITTED", "credit": "0", "debit": "0", "net": "100000"}
		]},
		"linked_accounts": [
			{"account_id": "savings-1", "denomination": "GBP", "balances": {"tside": "LIABILITY", "balances": [
				{"address": "DEFAULT", "asset": "COMMERCIAL_BANK_MONEY", "denomination": "GBP",
				 "phase": "POSTING_PHASE_COMMITTED", "credit": "0", "debit": "0", "net": "90000"}
			]}}
		]
	}`)

	args, err := readScenario(path)
	require.NoError(t, err)
	require.Len(t, args.LinkedAccounts, 1)

	result, err := registry.Dispatch(context.Background(), "mortgage", hooks.ScheduledEvent, args)
	require.NoError(t, err)
	require.Len(t, result.Instructions, 1)
	assert.Equal(t, "1", result.Instructions[0].Amount.String())
	assert.Equal(t, "savings-1", result.Instructions[0].Detail("offset_accounts"))
}
