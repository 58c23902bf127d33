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

// Package limits decides whether a proposed posting batch breaks a product's transaction
// limits: permitted denominations, single-transaction amounts, balance limits, and amounts
// or counts aggregated over daily and monthly windows.
package limits

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/blnkfinance/accrual/model"
)

// Kind is the direction a limit constrains.
type Kind string

const (
	Deposit    Kind = "deposit"
	Withdrawal Kind = "withdrawal"
)

// Window is the period a limit aggregates over.
type Window string

const (
	Daily   Window = "daily"
	Monthly Window = "monthly"
)

// WindowLimit caps the amount of deposits or withdrawals over a window.
//
// With Net unset, only transactions in the limit's direction count, each by its exposure.
// With Net set, every transaction counts with its sign and a batch whose net moves against
// the limit's direction is always accepted.
//
// CategoryKey and Category scope the limit to transactions whose instruction details carry
// CategoryKey=Category.
type WindowLimit struct {
	Kind        Kind            `json:"kind"`
	Window      Window          `json:"window"`
	Limit       decimal.Decimal `json:"limit"`
	Net         bool            `json:"net,omitempty"`
	CategoryKey string          `json:"category_key,omitempty"`
	Category    string          `json:"category,omitempty"`
}

// Validate checks the limit is well formed.
func (l WindowLimit) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Kind, validation.Required, validation.In(Deposit, Withdrawal)),
		validation.Field(&l.Window, validation.Required, validation.In(Daily, Monthly)),
		validation.Field(&l.Limit, validation.By(nonNegative)),
		validation.Field(&l.Category, validation.When(l.CategoryKey != "", validation.Required)),
	)
}

func (l WindowLimit) label() string {
	if l.Category != "" {
		return fmt.Sprintf("%s %s %s", l.Window, l.Category, l.Kind)
	}
	return fmt.Sprintf("%s %s", l.Window, l.Kind)
}

// CountLimit caps the number of deposits or withdrawals over a window.
type CountLimit struct {
	Kind    Kind   `json:"kind"`
	Window  Window `json:"window"`
	Maximum int    `json:"maximum"`
}

// Validate checks the limit is well formed.
func (l CountLimit) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Kind, validation.Required, validation.In(Deposit, Withdrawal)),
		validation.Field(&l.Window, validation.Required, validation.In(Daily, Monthly)),
		validation.Field(&l.Maximum, validation.Min(0)),
	)
}

// Config is the full set of limits of a product.
type Config struct {
	Denomination           string           `json:"denomination"`
	PermittedDenominations []string         `json:"permitted_denominations,omitempty"`
	Tside                  model.Tside      `json:"tside"`
	MinimumDeposit         *decimal.Decimal `json:"minimum_deposit,omitempty"`
	MaximumDeposit         *decimal.Decimal `json:"maximum_deposit,omitempty"`
	MinimumWithdrawal      *decimal.Decimal `json:"minimum_withdrawal,omitempty"`
	MaximumWithdrawal      *decimal.Decimal `json:"maximum_withdrawal,omitempty"`
	MaximumBalance         *decimal.Decimal `json:"maximum_balance,omitempty"`
	CheckAvailableBalance  bool             `json:"check_available_balance,omitempty"`
	OverdraftLimit         decimal.Decimal  `json:"overdraft_limit"`
	WindowLimits           []WindowLimit    `json:"window_limits,omitempty"`
	CountLimits            []CountLimit     `json:"count_limits,omitempty"`
	PeriodEndHour          int              `json:"period_end_hour"`
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Denomination, validation.Required),
		validation.Field(&c.Tside, validation.In(model.TsideAsset, model.TsideLiability)),
		validation.Field(&c.MinimumDeposit, validation.By(nonNegative)),
		validation.Field(&c.MaximumDeposit, validation.By(nonNegative)),
		validation.Field(&c.MinimumWithdrawal, validation.By(nonNegative)),
		validation.Field(&c.MaximumWithdrawal, validation.By(nonNegative)),
		validation.Field(&c.MaximumBalance, validation.By(nonNegative)),
		validation.Field(&c.OverdraftLimit, validation.By(nonNegative)),
		validation.Field(&c.WindowLimits),
		validation.Field(&c.CountLimits),
		validation.Field(&c.PeriodEndHour, validation.Min(0), validation.Max(23)),
	)
}

func (c Config) permitted() []string {
	if len(c.PermittedDenominations) > 0 {
		return c.PermittedDenominations
	}
	return []string{c.Denomination}
}

func nonNegative(value interface{}) error {
	var amount decimal.Decimal
	switch v := value.(type) {
	case decimal.Decimal:
		amount = v
	case *decimal.Decimal:
		if v == nil {
			return nil
		}
		amount = *v
	default:
		return errors.New("must be a decimal")
	}
	if amount.IsNegative() {
		return errors.New("must not be negative")
	}
	return nil
}
