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
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/blnkfinance/accrual/hookerror"
	"github.com/blnkfinance/accrual/model"
)

// Fee is a periodic charge. The set of fees is closed: MonthlyMaintenanceFee,
// MinimumBalanceFee, InactivityFee and AnnualFee.
type Fee interface {
	feeName() string
}

// MonthlyMaintenanceFee is charged every month unless the balance reaches WaiveAtBalance.
// Dormant accounts pay the inactivity fee instead.
type MonthlyMaintenanceFee struct {
	Amount         decimal.Decimal
	WaiveAtBalance *decimal.Decimal
}

// MinimumBalanceFee is charged when the month's mean balance is below Threshold.
type MinimumBalanceFee struct {
	Amount    decimal.Decimal
	Threshold decimal.Decimal
}

// InactivityFee is charged only while the account is dormant.
type InactivityFee struct {
	Amount decimal.Decimal
}

type AnnualFee struct {
	Amount decimal.Decimal
}

func (MonthlyMaintenanceFee) feeName() string { return "MONTHLY_MAINTENANCE_FEE" }
func (MinimumBalanceFee) feeName() string     { return "MINIMUM_BALANCE_FEE" }
func (InactivityFee) feeName() string         { return "INACTIVITY_FEE" }
func (AnnualFee) feeName() string             { return "ANNUAL_FEE" }

// FeeInput is the account state a fee run reads.
type FeeInput struct {
	Balances       model.BalanceSnapshot
	EffectiveTime  time.Time
	AverageBalance *decimal.Decimal
	Dormant        bool
}

// FeeEngine charges fees from an account's default address into an income account. Fees
// lower a liability balance and raise an asset balance.
type FeeEngine struct {
	AccountID     string
	Denomination  string
	Tside         model.Tside
	IncomeAccount string
	EventType     string
}

// amountDue returns what fee charges for in, zero when it does not apply.
func (e *FeeEngine) amountDue(fee Fee, in FeeInput) (decimal.Decimal, error) {
	balance := in.Balances.Net(model.DefaultAddress, e.Denomination)

	switch f := fee.(type) {
	case MonthlyMaintenanceFee:
		if in.Dormant {
			return decimal.Zero, nil
		}
		if f.WaiveAtBalance != nil && balance.GreaterThanOrEqual(*f.WaiveAtBalance) {
			return decimal.Zero, nil
		}
		return f.Amount, nil
	case MinimumBalanceFee:
		average := balance
		if in.AverageBalance != nil {
			average = *in.AverageBalance
		}
		if average.LessThan(f.Threshold) {
			return f.Amount, nil
		}
		return decimal.Zero, nil
	case InactivityFee:
		if in.Dormant {
			return f.Amount, nil
		}
		return decimal.Zero, nil
	case AnnualFee:
		return f.Amount, nil
	}
	return decimal.Zero, hookerror.InvalidConfiguration("unsupported fee %T", fee)
}

// Charge returns one instruction per fee that applies.
func (e *FeeEngine) Charge(ctx context.Context, in FeeInput, fees ...Fee) ([]model.PostingInstruction, error) {
	_, span := tracer.Start(ctx, "Charging fees")
	defer span.End()

	if e.IncomeAccount == "" {
		return nil, logAndRecordError(span, "fee charge failed:", hookerror.InvalidConfiguration("fee income account is not configured"))
	}
	event := e.EventType
	if event == "" {
		event = EventApplyFees
	}
	tside := e.Tside
	if tside == "" {
		tside = model.TsideLiability
	}

	var instructions []model.PostingInstruction
	for _, fee := range fees {
		amount, err := e.amountDue(fee, in)
		if err != nil {
			return nil, logAndRecordError(span, "fee charge failed:", err)
		}
		if !amount.IsPositive() {
			continue
		}

		name := fee.feeName()
		charged := amount
		if tside == model.TsideAsset {
			charged = amount.Neg()
		}
		details := map[string]string{
			"description": fmt.Sprintf("%s of %s %s", name, amount, e.Denomination),
			"event":       event,
			"fee_type":    name,
		}
		instructions = append(instructions, customInstruction(
			model.GenerateIDWithSuffix("fee", e.AccountID, name, in.EffectiveTime.UTC().Format(time.RFC3339Nano), amount.String()),
			clientTransactionID(event, e.AccountID, in.EffectiveTime, name),
			e.AccountID, e.Denomination, amount, in.EffectiveTime, details,
			transfer(tside, e.AccountID, model.DefaultAddress, e.IncomeAccount, e.Denomination, charged),
		))
		logrus.WithFields(logrus.Fields{"account_id": e.AccountID, "fee": name, "amount": amount.String()}).Info("fee charged")
	}
	return instructions, nil
}
