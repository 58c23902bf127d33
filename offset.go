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
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/blnkfinance/accrual/hookerror"
	"github.com/blnkfinance/accrual/model"
)

// LinkedAccount is an account whose balance may offset a mortgage. Fetch loads its balances
// and is only called for accounts in the mortgage's denomination.
type LinkedAccount struct {
	AccountID    string
	Denomination string
	Fetch        func() (model.BalanceSnapshot, error)
}

// Offset is the eligible balance of a set of linked accounts.
type Offset struct {
	Amount   decimal.Decimal `json:"amount"`
	Accounts []string        `json:"accounts"`
}

// OffsetAggregator accrues mortgage interest on the mortgage balance less the positive
// balances of linked savings accounts.
type OffsetAggregator struct {
	Denomination string
	Address      string
}

// NewOffsetAggregator returns an aggregator reading address in denomination.
func NewOffsetAggregator(denomination, address string) (*OffsetAggregator, error) {
	if denomination == "" {
		return nil, hookerror.InvalidConfiguration("offset aggregator needs a denomination")
	}
	if address == "" {
		address = model.DefaultAddress
	}
	return &OffsetAggregator{Denomination: denomination, Address: address}, nil
}

// Eligible sums the balances of linked accounts in the aggregator's denomination that are
// strictly positive. Accounts in other denominations are never fetched.
func (a *OffsetAggregator) Eligible(linked []LinkedAccount) (Offset, error) {
	offset := Offset{Amount: decimal.Zero}
	for _, account := range linked {
		if account.Denomination != a.Denomination {
			continue
		}
		if account.Fetch == nil {
			return Offset{}, hookerror.InvalidInput("linked account %s has no balance fetcher", account.AccountID)
		}
		balances, err := account.Fetch()
		if err != nil {
			return Offset{}, err
		}
		balance := balances.Net(a.Address, a.Denomination)
		if !balance.IsPositive() {
			continue
		}
		offset.Amount = offset.Amount.Add(balance)
		offset.Accounts = append(offset.Accounts, account.AccountID)
	}
	sort.Strings(offset.Accounts)
	return offset, nil
}

// Net folds the balances of the eligible linked accounts into one snapshot of side tside.
func (a *OffsetAggregator) Net(tside model.Tside, linked []LinkedAccount) (model.BalanceSnapshot, error) {
	var snapshots []model.BalanceSnapshot
	for _, account := range linked {
		if account.Denomination != a.Denomination || account.Fetch == nil {
			continue
		}
		balances, err := account.Fetch()
		if err != nil {
			return model.BalanceSnapshot{}, err
		}
		snapshots = append(snapshots, balances)
	}
	return model.NetBalances(tside, snapshots...), nil
}

// Accrue runs engine with the eligible offset subtracted from the mortgage base. The result
// is empty when no linked account is eligible or the offset base accrues nothing.
func (a *OffsetAggregator) Accrue(ctx context.Context, engine *AccrualEngine, in AccrualInput, linked []LinkedAccount) (*AccrualResult, error) {
	ctx, span := tracer.Start(ctx, "Accruing offset mortgage interest")
	defer span.End()
	span.SetAttributes(attribute.Int("offset.linked_accounts", len(linked)))

	empty := &AccrualResult{Base: decimal.Zero, Offset: decimal.Zero, Amount: decimal.Zero}
	if len(linked) == 0 {
		return empty, nil
	}

	offset, err := a.Eligible(linked)
	if err != nil {
		return nil, logAndRecordError(span, "offset lookup failed:", err)
	}
	if len(offset.Accounts) == 0 {
		logrus.WithField("account_id", engine.Config().AccountID).Debug("no linked account eligible for offset")
		return empty, nil
	}

	in.Offset = offset.Amount
	result, err := engine.Accrue(ctx, in)
	if err != nil {
		return nil, err
	}
	if len(result.Instructions) == 0 {
		return empty, nil
	}

	for i := range result.Instructions {
		details := result.Instructions[i].InstructionDetails
		details["offset_amount"] = offset.Amount.String()
		details["offset_accounts"] = strings.Join(offset.Accounts, ",")
	}
	return result, nil
}
