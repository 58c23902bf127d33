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

package limits_test

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blnkfinance/accrual/limits"
	"github.com/blnkfinance/accrual/model"
)

const accountID = "customer-account"

var now = time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func instruction(ctID string, typ model.InstructionType, amount string, at time.Time) model.PostingInstruction {
	return model.PostingInstruction{
		ID:                  ctID + "-" + string(typ),
		Type:                typ,
		ClientID:            "client",
		ClientTransactionID: ctID,
		AccountID:           accountID,
		Amount:              dec(amount),
		Denomination:        "GBP",
		ValueTimestamp:      at,
	}
}

func final(pi model.PostingInstruction) model.PostingInstruction {
	pi.Final = true
	return pi
}

func withDetail(pi model.PostingInstruction, key, value string) model.PostingInstruction {
	pi.InstructionDetails = map[string]string{key: value}
	return pi
}

func history(instructions ...model.PostingInstruction) map[model.ClientTransactionKey]*model.ClientTransaction {
	return model.GroupByClientTransaction(accountID, nil, instructions)
}

func newAggregator(t *testing.T, cfg limits.Config) *limits.Aggregator {
	t.Helper()
	if cfg.Denomination == "" {
		cfg.Denomination = "GBP"
	}
	a, err := limits.NewAggregator(cfg)
	require.NoError(t, err)
	return a
}

func check(t *testing.T, a *limits.Aggregator, in limits.Input) *model.Rejection {
	t.Helper()
	in.AccountID = accountID
	if in.EffectiveTime.IsZero() {
		in.EffectiveTime = now
	}
	rejection, err := a.Check(context.Background(), in)
	require.NoError(t, err)
	return rejection
}

func TestNewAggregatorValidates(t *testing.T) {
	tests := []struct {
		name string
		cfg  limits.Config
	}{
		{"missing denomination", limits.Config{}},
		{"negative minimum", limits.Config{Denomination: "GBP", MinimumDeposit: decPtr("-1")}},
		{"bad window", limits.Config{Denomination: "GBP", WindowLimits: []limits.WindowLimit{{Kind: limits.Deposit, Window: "weekly", Limit: dec("1")}}}},
		{"category without value", limits.Config{Denomination: "GBP", WindowLimits: []limits.WindowLimit{{Kind: limits.Withdrawal, Window: limits.Daily, Limit: dec("1"), CategoryKey: "TYPE"}}}},
		{"period end hour", limits.Config{Denomination: "GBP", PeriodEndHour: 24}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := limits.NewAggregator(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestEmptyAndReleaseOnlyBatchesAccepted(t *testing.T) {
	a := newAggregator(t, limits.Config{
		MinimumWithdrawal: decPtr("1000"),
		WindowLimits:      []limits.WindowLimit{{Kind: limits.Withdrawal, Window: limits.Daily, Limit: dec("1")}},
	})
	assert.Nil(t, check(t, a, limits.Input{}))

	hist := history(instruction("ct1", model.OutboundAuthorisation, "500", now.Add(-time.Hour)))
	release := instruction("ct1", model.Release, "0", now)
	assert.Nil(t, check(t, a, limits.Input{History: hist, Proposed: []model.PostingInstruction{release}}))
}

func TestDenomination(t *testing.T) {
	a := newAggregator(t, limits.Config{})
	pi := instruction("ct1", model.InboundHardSettlement, "10", now)
	pi.Denomination = "USD"

	rejection := check(t, a, limits.Input{Proposed: []model.PostingInstruction{pi}})
	require.NotNil(t, rejection)
	assert.Equal(t, model.ReasonWrongDenomination, rejection.Reason)
	assert.Equal(t, "Cannot make transactions in the given denomination, transactions must be one of [GBP]", rejection.Message)

	multi := newAggregator(t, limits.Config{PermittedDenominations: []string{"GBP", "USD"}})
	assert.Nil(t, check(t, multi, limits.Input{Proposed: []model.PostingInstruction{pi}}))
}

func TestSingleTransactionAmounts(t *testing.T) {
	a := newAggregator(t, limits.Config{
		MinimumDeposit:    decPtr("0.01"),
		MaximumDeposit:    decPtr("1000"),
		MinimumWithdrawal: decPtr("5"),
		MaximumWithdrawal: decPtr("500"),
	})

	tests := []struct {
		name    string
		typ     model.InstructionType
		amount  string
		message string
	}{
		{"deposit below minimum", model.InboundHardSettlement, "0.001", "Transaction amount 0.001 GBP is less than the minimum deposit amount 0.01 GBP."},
		{"deposit above maximum", model.InboundAuthorisation, "1000.5", "Transaction amount 1000.5 GBP is more than the maximum permitted deposit amount 1000 GBP."},
		{"withdrawal below minimum", model.OutboundHardSettlement, "4.99", "Transaction amount 4.99 GBP is less than the minimum withdrawal amount 5 GBP."},
		{"withdrawal above maximum", model.OutboundAuthorisation, "501", "Transaction amount 501 GBP is more than the maximum withdrawal amount 500 GBP."},
		{"deposit within range", model.InboundHardSettlement, "0.01", ""},
		{"withdrawal within range", model.OutboundHardSettlement, "500", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rejection := check(t, a, limits.Input{Proposed: []model.PostingInstruction{instruction("ct", tt.typ, tt.amount, now)}})
			if tt.message == "" {
				assert.Nil(t, rejection)
				return
			}
			require.NotNil(t, rejection)
			assert.Equal(t, model.ReasonAgainstTermsAndConditions, rejection.Reason)
			assert.Equal(t, tt.message, rejection.Message)
		})
	}
}

func TestMaximumBalance(t *testing.T) {
	a := newAggregator(t, limits.Config{MaximumBalance: decPtr("100")})
	balances := model.NewBalanceSnapshot(model.TsideLiability,
		model.NetEntry(model.DefaultAddress, "GBP", model.PhaseCommitted, dec("90")))

	rejection := check(t, a, limits.Input{
		Balances: balances,
		Proposed: []model.PostingInstruction{instruction("ct1", model.InboundHardSettlement, "20", now)},
	})
	require.NotNil(t, rejection)
	assert.Equal(t, "Posting would exceed maximum permitted balance 100 GBP.", rejection.Message)

	assert.Nil(t, check(t, a, limits.Input{
		Balances: balances,
		Proposed: []model.PostingInstruction{instruction("ct2", model.InboundHardSettlement, "10", now)},
	}))

	over := model.NewBalanceSnapshot(model.TsideLiability,
		model.NetEntry(model.DefaultAddress, "GBP", model.PhaseCommitted, dec("150")))
	assert.Nil(t, check(t, a, limits.Input{
		Balances: over,
		Proposed: []model.PostingInstruction{instruction("ct3", model.OutboundHardSettlement, "10", now)},
	}), "a withdrawal from an account above the maximum is allowed")

	empty := model.NewBalanceSnapshot(model.TsideLiability)
	rejection = check(t, a, limits.Input{
		Balances: empty,
		Proposed: []model.PostingInstruction{instruction("ct4", model.InboundHardSettlement, "101", now)},
	})
	require.NotNil(t, rejection)
	assert.Equal(t, model.ReasonAgainstTermsAndConditions, rejection.Reason)
}

func TestAvailableBalance(t *testing.T) {
	balances := model.NewBalanceSnapshot(model.TsideLiability,
		model.NetEntry(model.DefaultAddress, "GBP", model.PhaseCommitted, dec("50")))

	a := newAggregator(t, limits.Config{CheckAvailableBalance: true})
	rejection := check(t, a, limits.Input{
		Balances: balances,
		Proposed: []model.PostingInstruction{instruction("ct1", model.OutboundAuthorisation, "80", now)},
	})
	require.NotNil(t, rejection)
	assert.Equal(t, model.ReasonInsufficientFunds, rejection.Reason)
	assert.Equal(t, "Insufficient funds for transaction.", rejection.Message)

	withOverdraft := newAggregator(t, limits.Config{CheckAvailableBalance: true, OverdraftLimit: dec("30")})
	assert.Nil(t, check(t, withOverdraft, limits.Input{
		Balances: balances,
		Proposed: []model.PostingInstruction{instruction("ct1", model.OutboundAuthorisation, "80", now)},
	}))
}

func TestDailyWithdrawalLimit(t *testing.T) {
	a := newAggregator(t, limits.Config{
		WindowLimits: []limits.WindowLimit{{Kind: limits.Withdrawal, Window: limits.Daily, Limit: dec("100")}},
	})
	hist := history(instruction("earlier", model.OutboundHardSettlement, "60", now.Add(-2*time.Hour)))

	rejection := check(t, a, limits.Input{
		History:  hist,
		Proposed: []model.PostingInstruction{instruction("ct1", model.OutboundAuthorisation, "60", now)},
	})
	require.NotNil(t, rejection)
	assert.Equal(t, model.ReasonAgainstTermsAndConditions, rejection.Reason)
	assert.Equal(t, "PIB would cause the maximum daily withdrawal limit of 100 GBP to be exceeded.", rejection.Message)

	assert.Nil(t, check(t, a, limits.Input{
		History:  hist,
		Proposed: []model.PostingInstruction{instruction("ct1", model.OutboundAuthorisation, "40", now)},
	}))

	yesterday := history(instruction("earlier", model.OutboundHardSettlement, "60", now.AddDate(0, 0, -1)))
	assert.Nil(t, check(t, a, limits.Input{
		History:  yesterday,
		Proposed: []model.PostingInstruction{instruction("ct1", model.OutboundAuthorisation, "60", now)},
	}), "yesterday's withdrawals fall outside the window")
}

func TestDepositBatchesNeverBlockWithdrawalLimits(t *testing.T) {
	for _, net := range []bool{false, true} {
		a := newAggregator(t, limits.Config{
			WindowLimits: []limits.WindowLimit{{Kind: limits.Withdrawal, Window: limits.Daily, Limit: dec("100"), Net: net}},
		})
		hist := history(instruction("earlier", model.OutboundHardSettlement, "150", now.Add(-time.Hour)))
		assert.Nil(t, check(t, a, limits.Input{
			History:  hist,
			Proposed: []model.PostingInstruction{instruction("ct1", model.InboundHardSettlement, "500", now)},
		}), "net=%v", net)
	}
}

func TestSettlingAnExistingAuthorisationIsGrandfathered(t *testing.T) {
	for _, net := range []bool{false, true} {
		a := newAggregator(t, limits.Config{
			WindowLimits: []limits.WindowLimit{{Kind: limits.Deposit, Window: limits.Daily, Limit: dec("100"), Net: net}},
		})
		hist := history(instruction("ct1", model.InboundAuthorisation, "110", now.Add(-time.Hour)))
		settlement := final(instruction("ct1", model.Settlement, "110", now))

		assert.Nil(t, check(t, a, limits.Input{History: hist, Proposed: []model.PostingInstruction{settlement}}), "net=%v", net)
	}
}

func TestOversettlementCountsAsNewExposure(t *testing.T) {
	a := newAggregator(t, limits.Config{
		WindowLimits: []limits.WindowLimit{{Kind: limits.Withdrawal, Window: limits.Daily, Limit: dec("70")}},
	})
	hist := history(instruction("ct1", model.OutboundAuthorisation, "50", now.Add(-time.Hour)))

	rejection := check(t, a, limits.Input{
		History:  hist,
		Proposed: []model.PostingInstruction{final(instruction("ct1", model.Settlement, "80", now))},
	})
	require.NotNil(t, rejection)

	assert.Nil(t, check(t, a, limits.Input{
		History:  hist,
		Proposed: []model.PostingInstruction{final(instruction("ct1", model.Settlement, "60", now))},
	}))
}

func TestNegativeAdjustmentAccepted(t *testing.T) {
	a := newAggregator(t, limits.Config{
		WindowLimits: []limits.WindowLimit{{Kind: limits.Withdrawal, Window: limits.Daily, Limit: dec("50")}},
	})
	hist := history(instruction("ct1", model.OutboundAuthorisation, "90", now.Add(-time.Hour)))

	assert.Nil(t, check(t, a, limits.Input{
		History:  hist,
		Proposed: []model.PostingInstruction{instruction("ct1", model.AuthorisationAdjustment, "-30", now)},
	}))
}

func TestNetBatchLimit(t *testing.T) {
	a := newAggregator(t, limits.Config{
		WindowLimits: []limits.WindowLimit{{Kind: limits.Withdrawal, Window: limits.Daily, Limit: dec("100"), Net: true}},
	})
	batch := []model.PostingInstruction{
		instruction("deposit", model.InboundHardSettlement, "50", now),
		instruction("withdrawal", model.OutboundHardSettlement, "80", now),
	}

	tests := []struct {
		name     string
		prior    string
		rejected bool
	}{
		{"within limit", "60", false},
		{"over limit", "80", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hist := history(instruction("earlier", model.OutboundHardSettlement, tt.prior, now.Add(-time.Hour)))
			rejection := check(t, a, limits.Input{History: hist, Proposed: batch})
			assert.Equal(t, tt.rejected, rejection != nil)
		})
	}

	nonNet := newAggregator(t, limits.Config{
		WindowLimits: []limits.WindowLimit{{Kind: limits.Withdrawal, Window: limits.Daily, Limit: dec("100")}},
	})
	hist := history(instruction("earlier", model.OutboundHardSettlement, "60", now.Add(-time.Hour)))
	assert.NotNil(t, check(t, nonNet, limits.Input{History: hist, Proposed: batch}),
		"without netting the deposit does not offset the withdrawal")
}

func TestCategoryLimit(t *testing.T) {
	a := newAggregator(t, limits.Config{
		WindowLimits: []limits.WindowLimit{{
			Kind: limits.Withdrawal, Window: limits.Daily, Limit: dec("100"),
			CategoryKey: "WITHDRAWAL_TYPE", Category: "ATM",
		}},
	})
	hist := history(withDetail(instruction("earlier", model.OutboundHardSettlement, "80", now.Add(-time.Hour)), "WITHDRAWAL_TYPE", "ATM"))

	rejection := check(t, a, limits.Input{
		History:  hist,
		Proposed: []model.PostingInstruction{withDetail(instruction("ct1", model.OutboundHardSettlement, "30", now), "WITHDRAWAL_TYPE", "ATM")},
	})
	require.NotNil(t, rejection)
	assert.Equal(t, "PIB would cause the maximum daily ATM withdrawal limit of 100 GBP to be exceeded.", rejection.Message)

	assert.Nil(t, check(t, a, limits.Input{
		History:  hist,
		Proposed: []model.PostingInstruction{instruction("ct1", model.OutboundHardSettlement, "30", now)},
	}))
}

func TestPeriodEndHour(t *testing.T) {
	a := newAggregator(t, limits.Config{
		PeriodEndHour: 16,
		WindowLimits:  []limits.WindowLimit{{Kind: limits.Withdrawal, Window: limits.Daily, Limit: dec("100")}},
	})
	hist := history(instruction("earlier", model.OutboundHardSettlement, "80", time.Date(2024, 3, 14, 17, 0, 0, 0, time.UTC)))

	assert.NotNil(t, check(t, a, limits.Input{
		History:  hist,
		Proposed: []model.PostingInstruction{instruction("ct1", model.OutboundHardSettlement, "30", now)},
	}), "the window opened at 16:00 the previous day")
}

func TestMonthlyCountLimit(t *testing.T) {
	a := newAggregator(t, limits.Config{
		CountLimits: []limits.CountLimit{{Kind: limits.Withdrawal, Window: limits.Monthly, Maximum: 2}},
	})
	creation := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	hist := history(
		instruction("w1", model.OutboundHardSettlement, "1", time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)),
		instruction("w2", model.OutboundHardSettlement, "1", time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)),
		instruction("w3", model.OutboundHardSettlement, "1", time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)),
	)

	rejection := check(t, a, limits.Input{
		History:      hist,
		CreationTime: creation,
		Proposed:     []model.PostingInstruction{instruction("w4", model.OutboundHardSettlement, "1", now)},
	})
	require.NotNil(t, rejection)
	assert.Equal(t, "PIB would cause the maximum number of monthly withdrawals of 2 to be exceeded.", rejection.Message)

	assert.Nil(t, check(t, a, limits.Input{
		History:      hist,
		CreationTime: creation,
		Proposed:     []model.PostingInstruction{instruction("d1", model.InboundHardSettlement, "1", now)},
	}))
}

func TestLargerWithdrawalsNeverTurnRejectionIntoAcceptance(t *testing.T) {
	a := newAggregator(t, limits.Config{
		MaximumWithdrawal: decPtr("400"),
		WindowLimits:      []limits.WindowLimit{{Kind: limits.Withdrawal, Window: limits.Daily, Limit: dec("500")}},
	})

	for i := 0; i < 200; i++ {
		prior := decimal.NewFromInt(int64(gofakeit.Number(0, 600)))
		small := decimal.NewFromInt(int64(gofakeit.Number(1, 500)))
		large := small.Add(decimal.NewFromInt(int64(gofakeit.Number(0, 200))))

		hist := history(instruction("earlier", model.OutboundHardSettlement, prior.String(), now.Add(-time.Hour)))
		smallRejected := check(t, a, limits.Input{History: hist, Proposed: []model.PostingInstruction{instruction("ct", model.OutboundAuthorisation, small.String(), now)}}) != nil
		largeRejected := check(t, a, limits.Input{History: hist, Proposed: []model.PostingInstruction{instruction("ct", model.OutboundAuthorisation, large.String(), now)}}) != nil

		if smallRejected {
			assert.True(t, largeRejected, "prior=%s small=%s large=%s", prior, small, large)
		}
	}
}

func TestPositiveNetBatchNeverRejectedByWithdrawalLimit(t *testing.T) {
	a := newAggregator(t, limits.Config{
		WindowLimits: []limits.WindowLimit{{Kind: limits.Withdrawal, Window: limits.Daily, Limit: dec("100"), Net: true}},
	})

	for i := 0; i < 200; i++ {
		withdrawal := gofakeit.Number(1, 1000)
		deposit := withdrawal + gofakeit.Number(0, 1000)
		prior := gofakeit.Number(0, 1000)

		hist := history(instruction("earlier", model.OutboundHardSettlement, decimal.NewFromInt(int64(prior)).String(), now.Add(-time.Hour)))
		batch := []model.PostingInstruction{
			instruction("d", model.InboundHardSettlement, decimal.NewFromInt(int64(deposit)).String(), now),
			instruction("w", model.OutboundHardSettlement, decimal.NewFromInt(int64(withdrawal)).String(), now),
		}
		assert.Nil(t, check(t, a, limits.Input{History: hist, Proposed: batch}), "deposit=%d withdrawal=%d prior=%d", deposit, withdrawal, prior)
	}
}

func TestAuthorisationAdjustmentRespectsSingleAmountCap(t *testing.T) {
	a := newAggregator(t, limits.Config{MaximumWithdrawal: decPtr("100"), MaximumDeposit: decPtr("100")})
	balances := model.NewBalanceSnapshot(model.TsideLiability,
		model.NetEntry(model.DefaultAddress, "GBP", model.PhaseCommitted, dec("500")))
	hist := history(instruction("ct1", model.OutboundAuthorisation, "50", now.Add(-time.Hour)))

	rejection := check(t, a, limits.Input{
		Balances: balances,
		History:  hist,
		Proposed: []model.PostingInstruction{instruction("ct1", model.AuthorisationAdjustment, "60", now)},
	})
	require.NotNil(t, rejection)
	assert.Equal(t, "Transaction amount 110 GBP is more than the maximum withdrawal amount 100 GBP.", rejection.Message)

	assert.Nil(t, check(t, a, limits.Input{
		Balances: balances,
		History:  hist,
		Proposed: []model.PostingInstruction{instruction("ct1", model.AuthorisationAdjustment, "50", now)},
	}), "an adjustment up to the cap is accepted")

	assert.Nil(t, check(t, a, limits.Input{
		Balances: balances,
		History:  history(instruction("ct2", model.OutboundAuthorisation, "150", now.Add(-time.Hour))),
		Proposed: []model.PostingInstruction{instruction("ct2", model.AuthorisationAdjustment, "-60", now)},
	}), "a reduced authorisation is never capped")

	deposit := history(instruction("ct3", model.InboundAuthorisation, "90", now.Add(-time.Hour)))
	rejection = check(t, a, limits.Input{
		Balances: balances,
		History:  deposit,
		Proposed: []model.PostingInstruction{instruction("ct3", model.AuthorisationAdjustment, "20", now)},
	})
	require.NotNil(t, rejection)
	assert.Equal(t, "Transaction amount 110 GBP is more than the maximum permitted deposit amount 100 GBP.", rejection.Message)
}
