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
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/blnkfinance/accrual/config"
	"github.com/blnkfinance/accrual/daycount"
	"github.com/blnkfinance/accrual/hookerror"
	"github.com/blnkfinance/accrual/hooks"
	"github.com/blnkfinance/accrual/limits"
	"github.com/blnkfinance/accrual/model"
	"github.com/blnkfinance/accrual/parameters"
	"github.com/blnkfinance/accrual/rounding"
	"github.com/blnkfinance/accrual/schedule"
)

// Product is an interest-bearing account product exposed to the host through hooks.
// Every hook reads the parameters in force at the call's effective time.
type Product struct {
	Name   string
	params *parameters.Set
	cnf    *config.Configuration
}

var _ hooks.Contract = (*Product)(nil)

// NewProduct binds a parameter set to a product. A nil cnf uses the loaded configuration,
// or the defaults when none is loaded.
func NewProduct(name string, params *parameters.Set, cnf *config.Configuration) (*Product, error) {
	if params == nil {
		return nil, hookerror.InvalidConfiguration("product %s has no parameters", name)
	}
	if cnf == nil {
		loaded, err := config.Fetch()
		if err != nil {
			loaded = config.Default()
		}
		cnf = loaded
	}
	return &Product{Name: name, params: params, cnf: cnf}, nil
}

// settings is every parameter a hook needs, read at one effective time.
type settings struct {
	denomination     string
	tside            model.Tside
	rates            RateTable
	adjustment       *decimal.Decimal
	dayCount         daycount.Convention
	accrualRounding  rounding.Policy
	applyRounding    rounding.Policy
	accruedAddress   string
	accrualInternal  string
	roundingAccount  string
	deductions       []Deduction
	accrualAt        schedule.TimeOfDay
	applicationDay   int
	applicationAt    schedule.TimeOfDay
	limits           limits.Config
	maturity         *time.Time
	dormancyFlag     string
	fees             []Fee
	feeIncomeAccount string
}

// paramReader reads parameters at one time and keeps the first error.
type paramReader struct {
	set *parameters.Set
	at  *time.Time
	err error
}

func (r *paramReader) str(name string) string {
	if r.err != nil {
		return ""
	}
	value, err := r.set.String(name, r.at)
	r.err = err
	return value
}

func (r *paramReader) dec(name string) *decimal.Decimal {
	if r.err != nil {
		return nil
	}
	value, ok, err := r.set.OptionalDecimal(name, r.at)
	if err != nil || !ok {
		r.err = err
		return nil
	}
	return &value
}

func (r *paramReader) integer(name string) (int, bool) {
	if r.err != nil {
		return 0, false
	}
	value, ok, err := r.set.Int(name, r.at)
	r.err = err
	return value, ok
}

func (r *paramReader) boolean(name string) bool {
	if r.err != nil {
		return false
	}
	value, err := r.set.Bool(name, r.at)
	r.err = err
	return value
}

func (r *paramReader) date(name string) *time.Time {
	if r.err != nil {
		return nil
	}
	value, err := r.set.Date(name, r.at)
	r.err = err
	return value
}

func (r *paramReader) json(name string, out interface{}) bool {
	if r.err != nil {
		return false
	}
	ok, err := r.set.JSON(name, r.at, out)
	r.err = err
	return ok
}

func (p *Product) settings(at time.Time) (*settings, error) {
	r := &paramReader{set: p.params, at: &at}
	s := &settings{
		denomination:     r.str(ParamDenomination),
		tside:            model.Tside(r.str(ParamTside)),
		adjustment:       r.dec(ParamProfitSharingRatio),
		dayCount:         daycount.ParseConvention(r.str(ParamDaysInYear)),
		accruedAddress:   r.str(ParamAccruedAddress),
		accrualInternal:  r.str(ParamAccrualInternalAccount),
		roundingAccount:  r.str(ParamRoundingAccount),
		dormancyFlag:     r.str(ParamDormancyFlag),
		feeIncomeAccount: r.str(ParamFeeIncomeAccount),
		maturity:         r.date(ParamMaturityDate),
	}

	rateType := r.str(ParamInterestRateType)
	flatRate := r.dec(ParamInterestRate)
	var tiers json.RawMessage
	hasTiers := r.json(ParamInterestRateTiers, &tiers)

	accrualPrecision, _ := r.integer(ParamAccrualPrecision)
	applyPrecision, _ := r.integer(ParamApplicationPrecision)
	mode := r.str(ParamRoundingMode)

	accrualHour, _ := r.integer(ParamAccrualHour)
	applicationDay, _ := r.integer(ParamApplicationDay)
	applicationHour, _ := r.integer(ParamApplicationHour)

	zakatRate, zakatAccount := r.dec(ParamZakatRate), r.str(ParamZakatAccount)
	taxRate, taxAccount := r.dec(ParamTaxRate), r.str(ParamTaxAccount)

	s.limits = p.limitConfig(r, s.denomination, s.tside)
	s.fees = readFees(r)

	if r.err != nil {
		return nil, r.err
	}

	switch {
	case rateType == RateTypeFlat && flatRate == nil:
		return nil, hookerror.InvalidConfiguration("parameter %q has no value", ParamInterestRate)
	case rateType != RateTypeFlat && !hasTiers:
		return nil, hookerror.InvalidConfiguration("parameter %q has no value", ParamInterestRateTiers)
	}
	rate := decimal.Zero
	if flatRate != nil {
		rate = *flatRate
	}
	table, err := ParseRateTable(rateType, rate, tiers)
	if err != nil {
		return nil, err
	}
	s.rates = table

	parsedMode, err := rounding.ParseMode(mode)
	if err != nil {
		return nil, hookerror.InvalidConfiguration("%v", err)
	}
	if s.accrualRounding, err = rounding.NewPolicy(int32(accrualPrecision), parsedMode); err != nil {
		return nil, hookerror.InvalidConfiguration("%v", err)
	}
	if s.applyRounding, err = rounding.NewPolicy(int32(applyPrecision), parsedMode); err != nil {
		return nil, hookerror.InvalidConfiguration("%v", err)
	}

	s.accrualAt = schedule.TimeOfDay{Hour: accrualHour, Minute: p.cnf.Accrual.Minute, Second: p.cnf.Accrual.Second}
	s.applicationDay = applicationDay
	s.applicationAt = schedule.TimeOfDay{Hour: applicationHour, Minute: p.cnf.Application.Minute, Second: p.cnf.Application.Second}

	if zakatRate != nil {
		s.deductions = append(s.deductions, Deduction{Kind: DeductionZakat, Rate: *zakatRate, Account: zakatAccount})
	}
	if taxRate != nil {
		s.deductions = append(s.deductions, Deduction{Kind: DeductionTax, Rate: *taxRate, Account: taxAccount})
	}
	return s, nil
}

func (p *Product) limitConfig(r *paramReader, denomination string, tside model.Tside) limits.Config {
	cfg := limits.Config{
		Denomination:          denomination,
		Tside:                 tside,
		MinimumDeposit:        r.dec(ParamMinimumDeposit),
		MaximumDeposit:        r.dec(ParamMaximumDeposit),
		MinimumWithdrawal:     r.dec(ParamMinimumWithdrawal),
		MaximumWithdrawal:     r.dec(ParamMaximumWithdrawal),
		MaximumBalance:        r.dec(ParamMaximumBalance),
		CheckAvailableBalance: r.boolean(ParamCheckAvailableBalance),
		OverdraftLimit:        decimal.Zero,
		PeriodEndHour:         p.cnf.Limits.PeriodEndHour,
	}
	r.json(ParamPermittedDenominations, &cfg.PermittedDenominations)
	if overdraft := r.dec(ParamOverdraftLimit); overdraft != nil {
		cfg.OverdraftLimit = *overdraft
	}

	net := r.boolean(ParamNetBatchLimits)
	if limit := r.dec(ParamMaximumDailyDeposit); limit != nil {
		cfg.WindowLimits = append(cfg.WindowLimits, limits.WindowLimit{Kind: limits.Deposit, Window: limits.Daily, Limit: *limit, Net: net})
	}
	if limit := r.dec(ParamMaximumDailyWithdrawal); limit != nil {
		cfg.WindowLimits = append(cfg.WindowLimits, limits.WindowLimit{Kind: limits.Withdrawal, Window: limits.Daily, Limit: *limit, Net: net})
	}

	var byType map[string]decimal.Decimal
	if r.json(ParamDailyWithdrawalByType, &byType) {
		types := make([]string, 0, len(byType))
		for category := range byType {
			types = append(types, category)
		}
		sort.Strings(types)
		for _, category := range types {
			cfg.WindowLimits = append(cfg.WindowLimits, limits.WindowLimit{
				Kind: limits.Withdrawal, Window: limits.Daily, Limit: byType[category], Net: net,
				CategoryKey: CategoryDetailKey, Category: category,
			})
		}
	}

	if count, ok := r.integer(ParamMaximumMonthlyCount); ok {
		cfg.CountLimits = append(cfg.CountLimits, limits.CountLimit{Kind: limits.Withdrawal, Window: limits.Monthly, Maximum: count})
	}
	return cfg
}

func readFees(r *paramReader) []Fee {
	var fees []Fee
	if amount := r.dec(ParamMaintenanceFee); amount != nil {
		fees = append(fees, MonthlyMaintenanceFee{Amount: *amount, WaiveAtBalance: r.dec(ParamMaintenanceFeeWaiver)})
	}
	if amount := r.dec(ParamMinimumBalanceFee); amount != nil {
		threshold := r.dec(ParamMinimumBalanceLimit)
		if threshold != nil {
			fees = append(fees, MinimumBalanceFee{Amount: *amount, Threshold: *threshold})
		}
	}
	if amount := r.dec(ParamInactivityFee); amount != nil {
		fees = append(fees, InactivityFee{Amount: *amount})
	}
	if amount := r.dec(ParamAnnualFee); amount != nil {
		fees = append(fees, AnnualFee{Amount: *amount})
	}
	return fees
}

func (p *Product) accrualEngine(s *settings, accountID string) (*AccrualEngine, error) {
	return NewAccrualEngine(AccrualConfig{
		AccountID:       accountID,
		Denomination:    s.denomination,
		Tside:           s.tside,
		AccrualAddress:  s.accruedAddress,
		InternalAccount: s.accrualInternal,
		DayCount:        s.dayCount,
		Rounding:        s.accrualRounding,
		Rates:           s.rates,
		Adjustment:      s.adjustment,
	})
}

func (p *Product) applicationEngine(s *settings, accountID string) (*ApplicationEngine, error) {
	return NewApplicationEngine(ApplicationConfig{
		AccountID:              accountID,
		Denomination:           s.denomination,
		Tside:                  s.tside,
		AccrualAddress:         s.accruedAddress,
		AppliedAddress:         p.cnf.Application.AppliedAddress,
		AccrualInternalAccount: s.accrualInternal,
		RoundingAccount:        s.roundingAccount,
		Rounding:               s.applyRounding,
		Deductions:             s.deductions,
	})
}

// Requirements declares what the host must fetch before each hook.
func (p *Product) Requirements() []hooks.Requirement {
	window := time.Duration(p.cnf.Limits.HistoryWindowDays) * 24 * time.Hour
	return []hooks.Requirement{
		{Hook: hooks.Activation, Parameters: []string{ParamAccrualHour, ParamApplicationDay, ParamApplicationHour}, Calendars: p.cnf.Calendars},
		{Hook: hooks.PrePosting, BalanceFetchers: []string{"live_balances"}, ClientTransactionWindow: window, Parameters: []string{
			ParamDenomination, ParamPermittedDenominations, ParamMinimumDeposit, ParamMaximumDeposit, ParamMinimumWithdrawal,
			ParamMaximumWithdrawal, ParamMaximumBalance, ParamMaximumDailyDeposit, ParamMaximumDailyWithdrawal,
			ParamDailyWithdrawalByType, ParamMaximumMonthlyCount, ParamMaturityDate, ParamDormancyFlag,
		}},
		{Hook: hooks.ScheduledEvent, EventType: EventAccrueInterest, BalanceFetchers: []string{"eod_balances"}, LinkedAccounts: true, Parameters: []string{
			ParamInterestRateType, ParamInterestRate, ParamInterestRateTiers, ParamProfitSharingRatio, ParamDaysInYear, ParamAccrualPrecision,
		}},
		{Hook: hooks.ScheduledEvent, EventType: EventApplyInterest, BalanceFetchers: []string{"live_balances"}, Calendars: p.cnf.Calendars, Parameters: []string{
			ParamApplicationPrecision, ParamZakatRate, ParamTaxRate, ParamApplicationDay,
		}},
		{Hook: hooks.ScheduledEvent, EventType: EventApplyFees, BalanceFetchers: []string{"live_balances"}, Calendars: p.cnf.Calendars, Parameters: []string{
			ParamMaintenanceFee, ParamMinimumBalanceFee, ParamInactivityFee, ParamAnnualFee,
		}},
		{Hook: hooks.DerivedParameter, BalanceFetchers: []string{"live_balances"}, LinkedAccounts: true},
		{Hook: hooks.Deactivation, BalanceFetchers: []string{"live_balances"}},
	}
}

// Activation returns the recurring events of a new account.
func (p *Product) Activation(ctx context.Context, args hooks.Args) (*hooks.Result, error) {
	_, span := tracer.Start(ctx, "Product activation")
	defer span.End()

	s, err := p.settings(args.EffectiveTime)
	if err != nil {
		return nil, logAndRecordError(span, "activation failed:", err)
	}

	nextAccrual, err := schedule.NextDaily(args.EffectiveTime, s.accrualAt)
	if err != nil {
		return nil, logAndRecordError(span, "activation failed:", hookerror.InvalidConfiguration("%v", err))
	}
	nextApplication, err := p.nextApplication(s, args.EffectiveTime, args.CalendarEvents)
	if err != nil {
		return nil, logAndRecordError(span, "activation failed:", err)
	}

	schedules := []schedule.EventSchedule{
		{EventType: EventAccrueInterest, Expression: schedule.DailyExpression(s.accrualAt), Start: args.EffectiveTime, Next: nextAccrual},
		{EventType: EventApplyInterest, Expression: schedule.MonthlyExpression(s.applicationDay, s.applicationAt), Start: args.EffectiveTime, Next: nextApplication},
	}
	if len(s.fees) > 0 {
		nextFees, err := schedule.NextMonthly(args.EffectiveTime, p.cnf.Fees.Day, s.applicationAt)
		if err != nil {
			return nil, logAndRecordError(span, "activation failed:", hookerror.InvalidConfiguration("%v", err))
		}
		schedules = append(schedules, schedule.EventSchedule{
			EventType: EventApplyFees, Expression: schedule.MonthlyExpression(p.cnf.Fees.Day, s.applicationAt),
			Start: args.EffectiveTime, Next: schedule.ShiftForHolidays(nextFees, args.CalendarEvents),
		})
	}
	return &hooks.Result{Schedules: schedules}, nil
}

func (p *Product) nextApplication(s *settings, after time.Time, events []schedule.CalendarEvent) (time.Time, error) {
	next, err := schedule.NextMonthly(after, s.applicationDay, s.applicationAt)
	if err != nil {
		return time.Time{}, hookerror.InvalidConfiguration("%v", err)
	}
	return schedule.ShiftForHolidays(next, events), nil
}

// PrePosting accepts or rejects a proposed batch.
func (p *Product) PrePosting(ctx context.Context, args hooks.Args) (*hooks.Result, error) {
	ctx, span := tracer.Start(ctx, "Product pre-posting")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", args.AccountID))

	s, err := p.settings(args.EffectiveTime)
	if err != nil {
		return nil, logAndRecordError(span, "pre-posting failed:", err)
	}

	if rejection := checkAccountState(s, args); rejection != nil {
		return &hooks.Result{Rejection: rejection}, nil
	}

	aggregator, err := limits.NewAggregator(s.limits)
	if err != nil {
		return nil, logAndRecordError(span, "pre-posting failed:", hookerror.InvalidConfiguration("%v", err))
	}
	rejection, err := aggregator.Check(ctx, limits.Input{
		AccountID:     args.AccountID,
		Proposed:      args.Proposed,
		History:       args.ClientTransactions,
		Balances:      args.Balances,
		EffectiveTime: args.EffectiveTime,
		CreationTime:  args.CreationTime,
	})
	if err != nil {
		return nil, logAndRecordError(span, "pre-posting failed:", err)
	}
	return &hooks.Result{Rejection: rejection}, nil
}

func checkAccountState(s *settings, args hooks.Args) *model.Rejection {
	if hasFlag(args.AccountFlags, s.dormancyFlag) {
		for _, instruction := range args.Proposed {
			if instruction.Type != model.Release {
				return model.NewRejection(model.ReasonAccountDormant, "Account is dormant and cannot accept transactions.")
			}
		}
	}
	if s.maturity != nil && args.EffectiveTime.After(*s.maturity) {
		for _, instruction := range args.Proposed {
			if instruction.Type.Inbound() {
				return model.NewRejection(model.ReasonAgainstTermsAndConditions,
					"Deposits are not accepted after the maturity date %s.", s.maturity.Format("2006-01-02"))
			}
		}
	}
	return nil
}

// PostPosting has nothing to do for this product.
func (p *Product) PostPosting(ctx context.Context, args hooks.Args) (*hooks.Result, error) {
	return &hooks.Result{}, nil
}

// ScheduledEvent runs the accrual, application or fee event named in args.
func (p *Product) ScheduledEvent(ctx context.Context, args hooks.Args) (*hooks.Result, error) {
	ctx, span := tracer.Start(ctx, "Product scheduled event")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", args.AccountID), attribute.String("event.type", args.EventType))

	s, err := p.settings(args.EffectiveTime)
	if err != nil {
		return nil, logAndRecordError(span, "scheduled event failed:", err)
	}

	switch args.EventType {
	case EventAccrueInterest:
		engine, err := p.accrualEngine(s, args.AccountID)
		if err != nil {
			return nil, err
		}
		days, err := accrualDays(args)
		if err != nil {
			return nil, logAndRecordError(span, "scheduled event failed:", err)
		}
		in := AccrualInput{
			Balances:      args.Balances,
			EffectiveTime: args.EffectiveTime,
			AccountFlags:  args.AccountFlags,
			Days:          days,
		}
		if len(args.LinkedAccounts) > 0 {
			return p.accrueWithOffset(ctx, s, engine, in, linkedAccounts(args.LinkedAccounts))
		}
		result, err := engine.Accrue(ctx, in)
		if err != nil {
			return nil, err
		}
		return &hooks.Result{Instructions: result.Instructions}, nil

	case EventApplyInterest:
		engine, err := p.applicationEngine(s, args.AccountID)
		if err != nil {
			return nil, err
		}
		result, err := engine.Apply(ctx, args.Balances, args.EffectiveTime)
		if err != nil {
			return nil, err
		}
		next, err := p.nextApplication(s, args.EffectiveTime, args.CalendarEvents)
		if err != nil {
			return nil, err
		}
		return &hooks.Result{
			Instructions: result.Instructions,
			Schedules: []schedule.EventSchedule{{
				EventType: EventApplyInterest, Expression: schedule.MonthlyExpression(s.applicationDay, s.applicationAt),
				Start: args.EffectiveTime, Next: next,
			}},
		}, nil

	case EventApplyFees:
		engine := &FeeEngine{
			AccountID:     args.AccountID,
			Denomination:  s.denomination,
			Tside:         s.tside,
			IncomeAccount: s.feeIncomeAccount,
		}
		instructions, err := engine.Charge(ctx, FeeInput{
			Balances:       args.Balances,
			EffectiveTime:  args.EffectiveTime,
			AverageBalance: args.AverageBalance,
			Dormant:        hasFlag(args.AccountFlags, s.dormancyFlag),
		}, s.fees...)
		if err != nil {
			return nil, err
		}
		return &hooks.Result{Instructions: instructions}, nil
	}

	return nil, logAndRecordError(span, "scheduled event failed:", hookerror.InvalidInput("unsupported event type %q", args.EventType))
}

// DerivedParameters reports values computed from balances and parameters.
func (p *Product) DerivedParameters(ctx context.Context, args hooks.Args) (*hooks.Result, error) {
	_, span := tracer.Start(ctx, "Product derived parameters")
	defer span.End()

	s, err := p.settings(args.EffectiveTime)
	if err != nil {
		return nil, logAndRecordError(span, "derived parameters failed:", err)
	}
	engine, err := p.accrualEngine(s, args.AccountID)
	if err != nil {
		return nil, err
	}

	annual, err := annualRate(s.rates, engine.Base(args.Balances, decimal.Zero), args.AccountFlags)
	if err != nil {
		return nil, err
	}
	if s.adjustment != nil {
		annual = annual.Mul(*s.adjustment)
	}
	next, err := p.nextApplication(s, args.EffectiveTime, args.CalendarEvents)
	if err != nil {
		return nil, err
	}

	accrued := args.Balances.Net(s.accruedAddress, s.denomination)
	derived := map[string]string{
		"accrued_interest":      s.applyRounding.Round(accrued).String(),
		"next_application_date": next.Format("2006-01-02"),
		"daily_rate":            daycount.DailyRate(annual, s.dayCount, args.EffectiveTime).String(),
	}

	if len(args.LinkedAccounts) > 0 {
		aggregator, err := NewOffsetAggregator(s.denomination, model.DefaultAddress)
		if err != nil {
			return nil, err
		}
		linked := linkedAccounts(args.LinkedAccounts)
		offset, err := aggregator.Eligible(linked)
		if err != nil {
			return nil, err
		}
		netted, err := aggregator.Net(s.tside, linked)
		if err != nil {
			return nil, err
		}
		derived["offset_balance"] = offset.Amount.String()
		derived["linked_net_balance"] = netted.Net(model.DefaultAddress, s.denomination).String()
	}
	return &hooks.Result{DerivedParameters: derived}, nil
}

// Deactivation reverses interest accrued but not yet applied.
func (p *Product) Deactivation(ctx context.Context, args hooks.Args) (*hooks.Result, error) {
	ctx, span := tracer.Start(ctx, "Product deactivation")
	defer span.End()

	s, err := p.settings(args.EffectiveTime)
	if err != nil {
		return nil, logAndRecordError(span, "deactivation failed:", err)
	}
	engine, err := p.applicationEngine(s, args.AccountID)
	if err != nil {
		return nil, err
	}
	result, err := engine.Reverse(ctx, args.Balances, args.EffectiveTime)
	if err != nil {
		return nil, err
	}
	return &hooks.Result{Instructions: result.Instructions}, nil
}

// AccrueWithOffset runs the daily accrual of a mortgage whose base is reduced by the
// positive balances of its linked savings accounts. Fetch is only called for linked accounts
// in the mortgage's denomination.
func (p *Product) AccrueWithOffset(ctx context.Context, args hooks.Args, linked []LinkedAccount) (*hooks.Result, error) {
	ctx, span := tracer.Start(ctx, "Product offset accrual")
	defer span.End()

	s, err := p.settings(args.EffectiveTime)
	if err != nil {
		return nil, logAndRecordError(span, "offset accrual failed:", err)
	}
	engine, err := p.accrualEngine(s, args.AccountID)
	if err != nil {
		return nil, err
	}
	days, err := accrualDays(args)
	if err != nil {
		return nil, logAndRecordError(span, "offset accrual failed:", err)
	}
	return p.accrueWithOffset(ctx, s, engine, AccrualInput{
		Balances:      args.Balances,
		EffectiveTime: args.EffectiveTime,
		AccountFlags:  args.AccountFlags,
		Days:          days,
	}, linked)
}

func (p *Product) accrueWithOffset(ctx context.Context, s *settings, engine *AccrualEngine, in AccrualInput, linked []LinkedAccount) (*hooks.Result, error) {
	aggregator, err := NewOffsetAggregator(s.denomination, model.DefaultAddress)
	if err != nil {
		return nil, err
	}
	result, err := aggregator.Accrue(ctx, engine, in, linked)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"account_id": engine.Config().AccountID,
		"offset":     result.Offset.String(),
		"amount":     result.Amount.String(),
	}).Debug("offset accrual computed")
	return &hooks.Result{Instructions: result.Instructions}, nil
}

// accrualDays is one, or on the first accrual every day owed since the account was created.
func accrualDays(args hooks.Args) (int, error) {
	if !args.FirstAccrual {
		return 1, nil
	}
	if args.CreationTime.IsZero() {
		return 0, hookerror.InvalidInput("first accrual of account %s has no creation time", args.AccountID)
	}
	if args.CreationTime.After(args.EffectiveTime) {
		return 0, hookerror.InvalidInput("first accrual of account %s at %s is before its creation at %s",
			args.AccountID, args.EffectiveTime.Format(time.RFC3339), args.CreationTime.Format(time.RFC3339))
	}
	return schedule.CatchUpDays(args.CreationTime, args.EffectiveTime), nil
}

// linkedAccounts serves host-supplied linked balances to the offset aggregator.
func linkedAccounts(linked []hooks.LinkedBalances) []LinkedAccount {
	accounts := make([]LinkedAccount, 0, len(linked))
	for _, l := range linked {
		balances := l.Balances
		accounts = append(accounts, LinkedAccount{
			AccountID:    l.AccountID,
			Denomination: l.Denomination,
			Fetch:        func() (model.BalanceSnapshot, error) { return balances, nil },
		})
	}
	return accounts
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}
