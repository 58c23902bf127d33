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
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/blnkfinance/accrual/hookerror"
	"github.com/blnkfinance/accrual/model"
	"github.com/blnkfinance/accrual/rounding"
)

type DeductionKind string

const (
	DeductionZakat DeductionKind = "ZAKAT"
	DeductionTax   DeductionKind = "TAX"
)

// deductionOrder is the order deductions are taken in, whatever order they are declared in.
var deductionOrder = map[DeductionKind]int{
	DeductionZakat: 0,
	DeductionTax:   1,
}

// Deduction withholds a share of applied interest into an internal account.
type Deduction struct {
	Kind    DeductionKind   `json:"kind"`
	Rate    decimal.Decimal `json:"rate"`
	Account string          `json:"account"`
}

func (d Deduction) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Kind, validation.Required, validation.In(DeductionZakat, DeductionTax)),
		validation.Field(&d.Rate, validation.By(func(value interface{}) error {
			rate, _ := value.(decimal.Decimal)
			if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
				return fmt.Errorf("rate %s must be between 0 and 1", rate)
			}
			return nil
		})),
		validation.Field(&d.Account, validation.When(d.Rate.IsPositive(), validation.Required)),
	)
}

type ApplicationConfig struct {
	AccountID              string
	Denomination           string
	Tside                  model.Tside
	AccrualAddress         string
	AppliedAddress         string
	AccrualInternalAccount string
	RoundingAccount        string
	Rounding               rounding.Policy
	Deductions             []Deduction
	EventType              string
}

func (c ApplicationConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.AccountID, validation.Required),
		validation.Field(&c.Denomination, validation.Required),
		validation.Field(&c.Tside, validation.In(model.TsideAsset, model.TsideLiability)),
		validation.Field(&c.AccrualAddress, validation.Required),
		validation.Field(&c.AppliedAddress, validation.Required, validation.NotIn(c.AccrualAddress)),
		validation.Field(&c.AccrualInternalAccount, validation.Required),
		validation.Field(&c.RoundingAccount, validation.Required),
		validation.Field(&c.Deductions),
	)
}

type ApplicationState string

const (
	StateNothingAccrued ApplicationState = "NOTHING_ACCRUED"
	StateApplied        ApplicationState = "APPLIED"
	StateReversed       ApplicationState = "REVERSED"
)

type ApplicationResult struct {
	State          ApplicationState                  `json:"state"`
	Accrued        decimal.Decimal                   `json:"accrued"`
	Applied        decimal.Decimal                   `json:"applied"`
	CustomerAmount decimal.Decimal                   `json:"customer_amount"`
	Residue        decimal.Decimal                   `json:"residue"`
	Deductions     map[DeductionKind]decimal.Decimal `json:"deductions,omitempty"`
	Instructions   []model.PostingInstruction        `json:"instructions"`
}

// ApplicationEngine pays out or reverses what an account has accrued.
type ApplicationEngine struct {
	cfg ApplicationConfig
}

// NewApplicationEngine fills defaults into cfg and validates it.
func NewApplicationEngine(cfg ApplicationConfig) (*ApplicationEngine, error) {
	if cfg.Tside == "" {
		cfg.Tside = model.TsideLiability
	}
	if cfg.AppliedAddress == "" {
		cfg.AppliedAddress = model.DefaultAddress
	}
	if cfg.Rounding.Mode == "" {
		cfg.Rounding.Mode = rounding.HalfUp
	}
	if cfg.EventType == "" {
		cfg.EventType = EventApplyInterest
	}
	if err := cfg.Validate(); err != nil {
		return nil, hookerror.InvalidConfiguration("invalid application configuration: %v", err)
	}

	seen := make(map[DeductionKind]bool)
	for _, deduction := range cfg.Deductions {
		if seen[deduction.Kind] {
			return nil, hookerror.InvalidConfiguration("deduction %s configured twice", deduction.Kind)
		}
		seen[deduction.Kind] = true
	}
	if len(cfg.Deductions) > 0 && cfg.Tside == model.TsideAsset {
		return nil, hookerror.InvalidConfiguration("deductions are only supported on liability accounts")
	}

	deductions := make([]Deduction, len(cfg.Deductions))
	copy(deductions, cfg.Deductions)
	sort.SliceStable(deductions, func(i, j int) bool {
		return deductionOrder[deductions[i].Kind] < deductionOrder[deductions[j].Kind]
	})
	cfg.Deductions = deductions

	return &ApplicationEngine{cfg: cfg}, nil
}

// Apply moves the accrued balance out of the accrual address: deductions first, zakat
// before tax, then the customer's share, and finally the rounding residue, so the accrual
// address ends at exactly zero.
func (e *ApplicationEngine) Apply(ctx context.Context, balances model.BalanceSnapshot, effective time.Time) (*ApplicationResult, error) {
	_, span := tracer.Start(ctx, "Applying accrued interest")
	defer span.End()
	cfg := e.cfg
	span.SetAttributes(attribute.String("account.id", cfg.AccountID))

	accrued := balances.Net(cfg.AccrualAddress, cfg.Denomination)
	result := &ApplicationResult{
		State:          StateNothingAccrued,
		Accrued:        accrued,
		Applied:        decimal.Zero,
		CustomerAmount: decimal.Zero,
		Residue:        decimal.Zero,
	}
	if accrued.IsZero() {
		return result, nil
	}
	result.State = StateApplied

	if accrued.IsPositive() {
		result.Applied = cfg.Rounding.Round(accrued)
	}
	customerAmount := result.Applied

	for _, deduction := range cfg.Deductions {
		amount := cfg.Rounding.Round(accrued.Mul(deduction.Rate))
		if !amount.IsPositive() || !accrued.IsPositive() {
			continue
		}
		if result.Deductions == nil {
			result.Deductions = make(map[DeductionKind]decimal.Decimal)
		}
		result.Deductions[deduction.Kind] = amount
		customerAmount = customerAmount.Sub(amount)

		details := e.details(accrued, fmt.Sprintf("%s deducted from accrued interest at rate %s", deduction.Kind, deduction.Rate))
		details["deduction_rate"] = deduction.Rate.String()
		result.Instructions = append(result.Instructions, e.instruction(effective, string(deduction.Kind), amount, details,
			transfer(cfg.Tside, cfg.AccountID, cfg.AccrualAddress, deduction.Account, cfg.Denomination, amount)))
	}

	if customerAmount.IsNegative() {
		err := hookerror.InvalidConfiguration("deductions of %s exceed applied interest %s", result.Applied.Sub(customerAmount), result.Applied)
		return nil, logAndRecordError(span, "application failed:", err)
	}
	result.CustomerAmount = customerAmount
	if customerAmount.IsPositive() {
		result.Instructions = append(result.Instructions, e.instruction(effective, "CUSTOMER", customerAmount,
			e.details(accrued, fmt.Sprintf("Accrued interest of %s %s applied", customerAmount, cfg.Denomination)),
			move(cfg.Tside, cfg.AccountID, cfg.AccrualAddress, cfg.AppliedAddress, cfg.Denomination, customerAmount)))
	}

	result.Residue = accrued.Sub(result.Applied)
	if !result.Residue.IsZero() {
		result.Instructions = append(result.Instructions, e.instruction(effective, "RESIDUE", result.Residue.Abs(),
			e.details(accrued, fmt.Sprintf("Rounding residue of %s %s swept", result.Residue, cfg.Denomination)),
			transfer(cfg.Tside, cfg.AccountID, cfg.AccrualAddress, cfg.RoundingAccount, cfg.Denomination, result.Residue)))
	}

	logrus.WithFields(logrus.Fields{
		"account_id": cfg.AccountID,
		"accrued":    accrued.String(),
		"applied":    result.Applied.String(),
		"residue":    result.Residue.String(),
	}).Info("accrued interest applied")
	return result, nil
}

// Reverse returns the whole accrued balance to the internal account it was accrued against,
// leaving nothing for the customer. Used when an account closes before application.
func (e *ApplicationEngine) Reverse(ctx context.Context, balances model.BalanceSnapshot, effective time.Time) (*ApplicationResult, error) {
	_, span := tracer.Start(ctx, "Reversing accrued interest")
	defer span.End()
	cfg := e.cfg
	span.SetAttributes(attribute.String("account.id", cfg.AccountID))

	accrued := balances.Net(cfg.AccrualAddress, cfg.Denomination)
	result := &ApplicationResult{
		State:          StateNothingAccrued,
		Accrued:        accrued,
		Applied:        decimal.Zero,
		CustomerAmount: decimal.Zero,
		Residue:        decimal.Zero,
	}
	if accrued.IsZero() {
		return result, nil
	}

	result.State = StateReversed
	result.Instructions = []model.PostingInstruction{
		e.instruction(effective, "REVERSAL", accrued.Abs(),
			e.details(accrued, fmt.Sprintf("Accrued interest of %s %s reversed", accrued, cfg.Denomination)),
			transfer(cfg.Tside, cfg.AccountID, cfg.AccrualAddress, cfg.AccrualInternalAccount, cfg.Denomination, accrued)),
	}
	logrus.WithFields(logrus.Fields{"account_id": cfg.AccountID, "accrued": accrued.String()}).Info("accrued interest reversed")
	return result, nil
}

func (e *ApplicationEngine) details(accrued decimal.Decimal, description string) map[string]string {
	return map[string]string{
		"description":    description,
		"event":          e.cfg.EventType,
		"accrued_amount": accrued.String(),
	}
}

func (e *ApplicationEngine) instruction(effective time.Time, leg string, amount decimal.Decimal, details map[string]string, postings []model.Posting) model.PostingInstruction {
	cfg := e.cfg
	return customInstruction(
		model.GenerateIDWithSuffix("application", cfg.AccountID, cfg.EventType, leg, effective.UTC().Format(time.RFC3339Nano), amount.String()),
		clientTransactionID(cfg.EventType, cfg.AccountID, effective, leg),
		cfg.AccountID, cfg.Denomination, amount, effective, details, postings,
	)
}
