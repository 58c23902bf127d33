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

// Package accrual computes daily interest accruals, applies accrued interest with zakat and
// tax deductions, offsets mortgage interest with linked savings, and charges periodic fees.
// Every operation is a pure function of its inputs: it returns posting instructions for the
// host to commit and never writes anywhere itself.
package accrual

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/blnkfinance/accrual/daycount"
	"github.com/blnkfinance/accrual/hookerror"
	"github.com/blnkfinance/accrual/model"
	"github.com/blnkfinance/accrual/rounding"
)

var (
	tracer = otel.Tracer("Accrual")
)

const (
	EventAccrueInterest = "ACCRUE_INTEREST"
	EventApplyInterest  = "APPLY_INTEREST"
	EventApplyFees      = "APPLY_FEES"
)

func logAndRecordError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	logrus.Error(msg, err)
	return err
}

// AccrualConfig fixes how one account accrues.
type AccrualConfig struct {
	AccountID       string
	Denomination    string
	Tside           model.Tside
	BaseAddresses   []string
	AccrualAddress  string
	InternalAccount string
	DayCount        daycount.Convention
	Rounding        rounding.Policy
	Rates           RateTable
	// Adjustment scales the rate, such as the customer's profit-sharing ratio.
	Adjustment *decimal.Decimal
	EventType  string
}

func (c AccrualConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.AccountID, validation.Required),
		validation.Field(&c.Denomination, validation.Required),
		validation.Field(&c.Tside, validation.In(model.TsideAsset, model.TsideLiability)),
		validation.Field(&c.AccrualAddress, validation.Required),
		validation.Field(&c.InternalAccount, validation.Required),
		validation.Field(&c.Rates, validation.Required),
		validation.Field(&c.Rounding, validation.By(func(value interface{}) error {
			p, _ := value.(rounding.Policy)
			_, err := rounding.NewPolicy(p.Precision, p.Mode)
			return err
		})),
	)
}

// AccrualEngine computes the daily accrual of one account.
type AccrualEngine struct {
	cfg AccrualConfig
}

// NewAccrualEngine fills defaults into cfg and validates it.
func NewAccrualEngine(cfg AccrualConfig) (*AccrualEngine, error) {
	if cfg.Tside == "" {
		cfg.Tside = model.TsideLiability
	}
	if len(cfg.BaseAddresses) == 0 {
		cfg.BaseAddresses = []string{model.DefaultAddress}
	}
	if cfg.DayCount == "" {
		cfg.DayCount = daycount.Actual
	}
	if cfg.Rounding.Mode == "" {
		cfg.Rounding.Mode = rounding.HalfUp
	}
	if cfg.EventType == "" {
		cfg.EventType = EventAccrueInterest
	}
	if err := cfg.Validate(); err != nil {
		return nil, hookerror.InvalidConfiguration("invalid accrual configuration: %v", err)
	}
	return &AccrualEngine{cfg: cfg}, nil
}

// Config returns the engine's configuration with defaults applied.
func (e *AccrualEngine) Config() AccrualConfig {
	return e.cfg
}

// AccrualInput is the data one accrual run reads.
type AccrualInput struct {
	Balances      model.BalanceSnapshot
	EffectiveTime time.Time
	AccountFlags  []string
	// Offset is subtracted from the base before rates are applied.
	Offset decimal.Decimal
	// Days is the number of days accrued in this run. Zero means one.
	Days int
}

// AccrualResult is the outcome of one accrual run.
type AccrualResult struct {
	Base         decimal.Decimal            `json:"base"`
	Offset       decimal.Decimal            `json:"offset"`
	Days         int                        `json:"days"`
	Amount       decimal.Decimal            `json:"amount"`
	Tiers        []string                   `json:"tiers,omitempty"`
	Instructions []model.PostingInstruction `json:"instructions"`
}

// Base is the committed net of the base addresses less offset, never below zero.
func (e *AccrualEngine) Base(balances model.BalanceSnapshot, offset decimal.Decimal) decimal.Decimal {
	base := decimal.Zero
	for _, address := range e.cfg.BaseAddresses {
		base = base.Add(balances.Net(address, e.cfg.Denomination))
	}
	base = base.Sub(offset)
	if base.IsNegative() {
		return decimal.Zero
	}
	return base
}

// Calculate works out the accrued amount without building instructions.
// The amount is rounded once, after every portion, the adjustment and the day count
// have been applied.
func (e *AccrualEngine) Calculate(in AccrualInput) (*AccrualResult, error) {
	days := in.Days
	if days == 0 {
		days = 1
	}
	if days < 0 {
		return nil, hookerror.InvalidInput("accrual days must not be negative, got %d", days)
	}

	base := e.Base(in.Balances, in.Offset)
	portions, err := e.cfg.Rates.resolve(base, in.AccountFlags)
	if err != nil {
		return nil, err
	}

	numerator := decimal.Zero
	var tiers []string
	for _, portion := range portions {
		numerator = numerator.Add(portion.Amount.Mul(portion.Rate))
		if portion.Tier != "" {
			tiers = append(tiers, portion.Tier)
		}
	}
	if e.cfg.Adjustment != nil {
		numerator = numerator.Mul(*e.cfg.Adjustment)
	}
	numerator = numerator.Mul(decimal.NewFromInt(int64(days)))
	amount := e.cfg.Rounding.Round(numerator.Div(daycount.Denominator(e.cfg.DayCount, in.EffectiveTime)))

	return &AccrualResult{
		Base:   base,
		Offset: in.Offset,
		Days:   days,
		Amount: amount,
		Tiers:  tiers,
	}, nil
}

// Accrue returns the instruction that books the day's accrual. Nothing is booked when the
// rounded amount is zero or negative.
func (e *AccrualEngine) Accrue(ctx context.Context, in AccrualInput) (*AccrualResult, error) {
	_, span := tracer.Start(ctx, "Accruing interest")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", e.cfg.AccountID))

	result, err := e.Calculate(in)
	if err != nil {
		return nil, logAndRecordError(span, "accrual failed:", err)
	}
	span.SetAttributes(attribute.String("accrual.amount", result.Amount.String()))

	if !result.Amount.IsPositive() {
		logrus.WithFields(logrus.Fields{
			"account_id": e.cfg.AccountID,
			"base":       result.Base.String(),
			"amount":     result.Amount.String(),
		}).Debug("nothing to accrue")
		return result, nil
	}

	result.Instructions = []model.PostingInstruction{e.instruction(in.EffectiveTime, result)}
	return result, nil
}

func (e *AccrualEngine) instruction(effective time.Time, result *AccrualResult) model.PostingInstruction {
	cfg := e.cfg
	details := map[string]string{
		"description": fmt.Sprintf("Daily interest accrued at %s on balance of %s %s",
			strings.Join(result.Tiers, ","), result.Base, cfg.Denomination),
		"event":        cfg.EventType,
		"accrual_base": result.Base.String(),
		"accrual_days": strconv.Itoa(result.Days),
	}
	if len(result.Tiers) == 0 {
		details["description"] = fmt.Sprintf("Daily interest accrued on balance of %s %s", result.Base, cfg.Denomination)
	}
	if !result.Offset.IsZero() {
		details["offset_amount"] = result.Offset.String()
	}

	customer := increase(cfg.Tside, cfg.AccountID, cfg.AccrualAddress, cfg.Denomination, result.Amount, true)
	postings := []model.Posting{customer, counter(customer, cfg.InternalAccount, model.DefaultAddress)}
	return customInstruction(
		model.GenerateIDWithSuffix("accrual", cfg.AccountID, cfg.EventType, effective.UTC().Format(time.RFC3339Nano), result.Amount.String()),
		clientTransactionID(cfg.EventType, cfg.AccountID, effective),
		cfg.AccountID, cfg.Denomination, result.Amount, effective, details, postings,
	)
}
