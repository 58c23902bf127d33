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

package limits

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/blnkfinance/accrual/model"
	"github.com/blnkfinance/accrual/schedule"
)

// Input is everything a limit check reads.
type Input struct {
	AccountID     string
	Proposed      []model.PostingInstruction
	History       map[model.ClientTransactionKey]*model.ClientTransaction
	Balances      model.BalanceSnapshot
	EffectiveTime time.Time
	CreationTime  time.Time
}

// Aggregator checks proposed batches against a product's limits.
type Aggregator struct {
	cfg Config
}

// NewAggregator validates cfg and returns an aggregator for it.
func NewAggregator(cfg Config) (*Aggregator, error) {
	if cfg.Tside == "" {
		cfg.Tside = model.TsideLiability
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid limit configuration: %w", err)
	}
	return &Aggregator{cfg: cfg}, nil
}

// chainChange is a client transaction before and after the proposed batch.
type chainChange struct {
	before *model.ClientTransaction
	after  *model.ClientTransaction
}

// Check returns a rejection when the batch breaks a limit, nil when it is accepted.
// Errors are reserved for inputs that cannot be evaluated.
func (a *Aggregator) Check(ctx context.Context, in Input) (*model.Rejection, error) {
	_, span := otel.Tracer("Limits").Start(ctx, "Checking transaction limits")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", in.AccountID), attribute.Int("batch.size", len(in.Proposed)))

	if len(in.Proposed) == 0 || releasesOnly(in.Proposed) {
		return nil, nil
	}

	checks := []func(Input, map[model.ClientTransactionKey]chainChange) *model.Rejection{
		a.checkDenomination,
		a.checkSingleAmounts,
		a.checkBalances,
		a.checkWindows,
		a.checkCounts,
	}

	changes := a.changes(in)
	for _, check := range checks {
		if rejection := check(in, changes); rejection != nil {
			logrus.WithFields(logrus.Fields{
				"account_id": in.AccountID,
				"reason":     rejection.Reason,
			}).Debug(rejection.Message)
			span.SetAttributes(attribute.String("rejection.reason", string(rejection.Reason)))
			return rejection, nil
		}
	}
	return nil, nil
}

func releasesOnly(instructions []model.PostingInstruction) bool {
	for _, instruction := range instructions {
		if instruction.Type != model.Release {
			return false
		}
	}
	return true
}

func (a *Aggregator) changes(in Input) map[model.ClientTransactionKey]chainChange {
	grouped := model.GroupByClientTransaction(in.AccountID, in.History, in.Proposed)
	changes := make(map[model.ClientTransactionKey]chainChange, len(grouped))
	for key, after := range grouped {
		changes[key] = chainChange{before: in.History[key], after: after}
	}
	return changes
}

func (a *Aggregator) checkDenomination(in Input, _ map[model.ClientTransactionKey]chainChange) *model.Rejection {
	permitted := a.cfg.permitted()
	for _, instruction := range in.Proposed {
		if instruction.Type == model.Release || contains(permitted, instruction.Denomination) {
			continue
		}
		return model.NewRejection(model.ReasonWrongDenomination,
			"Cannot make transactions in the given denomination, transactions must be one of [%s]",
			strings.Join(permitted, ", "))
	}
	return nil
}

func (a *Aggregator) checkSingleAmounts(in Input, changes map[model.ClientTransactionKey]chainChange) *model.Rejection {
	denomination := a.cfg.Denomination
	for _, instruction := range in.Proposed {
		amount := instruction.Amount
		switch {
		case instruction.Type.Inbound():
			if a.cfg.MinimumDeposit != nil && amount.LessThan(*a.cfg.MinimumDeposit) {
				return model.NewRejection(model.ReasonAgainstTermsAndConditions,
					"Transaction amount %s %s is less than the minimum deposit amount %s %s.",
					amount, denomination, a.cfg.MinimumDeposit, denomination)
			}
			if rejection := a.checkMaximumAmount(model.DirectionInbound, amount); rejection != nil {
				return rejection
			}
		case instruction.Type.Outbound():
			if a.cfg.MinimumWithdrawal != nil && amount.LessThan(*a.cfg.MinimumWithdrawal) {
				return model.NewRejection(model.ReasonAgainstTermsAndConditions,
					"Transaction amount %s %s is less than the minimum withdrawal amount %s %s.",
					amount, denomination, a.cfg.MinimumWithdrawal, denomination)
			}
			if rejection := a.checkMaximumAmount(model.DirectionOutbound, amount); rejection != nil {
				return rejection
			}
		case instruction.Type == model.AuthorisationAdjustment && amount.IsPositive():
			// an increased authorisation is capped at the size of a single transaction
			change, ok := changes[model.ClientTransactionKey{ClientID: instruction.ClientID, ID: instruction.ClientTransactionID}]
			if !ok {
				continue
			}
			authorised := change.after.Effects(nil).Authorised
			if rejection := a.checkMaximumAmount(change.after.Direction(), authorised); rejection != nil {
				return rejection
			}
		}
	}
	return nil
}

func (a *Aggregator) checkMaximumAmount(direction model.Direction, amount decimal.Decimal) *model.Rejection {
	denomination := a.cfg.Denomination
	switch direction {
	case model.DirectionInbound:
		if a.cfg.MaximumDeposit != nil && amount.GreaterThan(*a.cfg.MaximumDeposit) {
			return model.NewRejection(model.ReasonAgainstTermsAndConditions,
				"Transaction amount %s %s is more than the maximum permitted deposit amount %s %s.",
				amount, denomination, a.cfg.MaximumDeposit, denomination)
		}
	case model.DirectionOutbound:
		if a.cfg.MaximumWithdrawal != nil && amount.GreaterThan(*a.cfg.MaximumWithdrawal) {
			return model.NewRejection(model.ReasonAgainstTermsAndConditions,
				"Transaction amount %s %s is more than the maximum withdrawal amount %s %s.",
				amount, denomination, a.cfg.MaximumWithdrawal, denomination)
		}
	}
	return nil
}

// checkBalances folds the postings the batch adds into the current balances and checks
// the maximum balance and the available balance. Only a batch that moves a balance towards
// its limit is rejected.
func (a *Aggregator) checkBalances(in Input, changes map[model.ClientTransactionKey]chainChange) *model.Rejection {
	if a.cfg.MaximumBalance == nil && !a.cfg.CheckAvailableBalance {
		return nil
	}

	var added []model.Posting
	for _, key := range sortedKeys(changes) {
		change := changes[key]
		after := change.after.Postings(nil)
		seen := 0
		if change.before != nil {
			seen = len(change.before.Postings(nil))
		}
		if seen < len(after) {
			added = append(added, after[seen:]...)
		}
	}

	before := in.Balances
	after := before.Apply(in.AccountID, added...)
	denomination := a.cfg.Denomination

	if a.cfg.MaximumBalance != nil {
		phases := []model.Phase{model.PhaseCommitted, model.PhasePendingIncoming}
		was := before.Net(model.DefaultAddress, denomination, phases...)
		now := after.Net(model.DefaultAddress, denomination, phases...)
		if now.GreaterThan(was) && now.GreaterThan(*a.cfg.MaximumBalance) {
			return model.NewRejection(model.ReasonAgainstTermsAndConditions,
				"Posting would exceed maximum permitted balance %s %s.", a.cfg.MaximumBalance, denomination)
		}
	}

	if a.cfg.CheckAvailableBalance && a.cfg.Tside == model.TsideLiability {
		phases := []model.Phase{model.PhaseCommitted, model.PhasePendingOutgoing}
		was := before.Net(model.DefaultAddress, denomination, phases...)
		now := after.Net(model.DefaultAddress, denomination, phases...)
		if now.LessThan(was) && now.LessThan(a.cfg.OverdraftLimit.Neg()) {
			return model.NewRejection(model.ReasonInsufficientFunds, "Insufficient funds for transaction.")
		}
	}
	return nil
}

func (a *Aggregator) checkWindows(in Input, changes map[model.ClientTransactionKey]chainChange) *model.Rejection {
	cutoff := in.EffectiveTime
	for _, limit := range a.cfg.WindowLimits {
		start := a.windowStart(limit.Window, in)
		inWindow := func(chain *model.ClientTransaction) bool {
			s := chain.Start()
			return !s.Before(start) && !s.After(cutoff)
		}

		prior := decimal.Zero
		for key, chain := range in.History {
			if _, proposed := changes[key]; proposed {
				continue
			}
			if inWindow(chain) {
				prior = prior.Add(contribution(limit, chain, &cutoff))
			}
		}

		delta := decimal.Zero
		for _, change := range changes {
			before := decimal.Zero
			if change.before != nil {
				before = contribution(limit, change.before, &cutoff)
				if inWindow(change.before) {
					prior = prior.Add(before)
				}
			}
			delta = delta.Add(contribution(limit, change.after, nil).Sub(before))
		}

		if !delta.IsPositive() {
			continue
		}
		if prior.Add(delta).GreaterThan(limit.Limit) {
			return model.NewRejection(model.ReasonAgainstTermsAndConditions,
				"PIB would cause the maximum %s limit of %s %s to be exceeded.",
				limit.label(), limit.Limit, a.cfg.Denomination)
		}
	}
	return nil
}

func (a *Aggregator) checkCounts(in Input, changes map[model.ClientTransactionKey]chainChange) *model.Rejection {
	cutoff := in.EffectiveTime
	for _, limit := range a.cfg.CountLimits {
		start := a.windowStart(limit.Window, in)
		direction := directionOf(limit.Kind)

		count := 0
		for _, chain := range in.History {
			s := chain.Start()
			if chain.Direction() == direction && !s.Before(start) && !s.After(cutoff) {
				count++
			}
		}

		opened := 0
		for _, change := range changes {
			if change.before == nil && change.after.Direction() == direction {
				opened++
			}
		}
		if opened > 0 && count+opened > limit.Maximum {
			return model.NewRejection(model.ReasonAgainstTermsAndConditions,
				"PIB would cause the maximum number of %s %ss of %d to be exceeded.",
				limit.Window, limit.Kind, limit.Maximum)
		}
	}
	return nil
}

func (a *Aggregator) windowStart(window Window, in Input) time.Time {
	if window == Monthly {
		creation := in.CreationTime
		if creation.IsZero() {
			creation = time.Date(in.EffectiveTime.Year(), in.EffectiveTime.Month(), 1, 0, 0, 0, 0, in.EffectiveTime.Location())
		}
		return schedule.MonthlyWindowStart(in.EffectiveTime, creation)
	}
	return schedule.DailyWindowStart(in.EffectiveTime, a.cfg.PeriodEndHour)
}

// contribution is what a chain adds to a window limit. Outside net mode only chains in
// the limit's direction count. In net mode every chain counts, signed so that the limit's
// direction is positive.
func contribution(limit WindowLimit, chain *model.ClientTransaction, cutoff *time.Time) decimal.Decimal {
	if !matchesCategory(limit, chain) {
		return decimal.Zero
	}
	direction := chain.Direction()
	if direction == model.DirectionUnknown {
		return decimal.Zero
	}

	exposure := chain.Exposure(cutoff)
	if direction == directionOf(limit.Kind) {
		return exposure
	}
	if limit.Net {
		return exposure.Neg()
	}
	return decimal.Zero
}

func matchesCategory(limit WindowLimit, chain *model.ClientTransaction) bool {
	if limit.CategoryKey == "" {
		return true
	}
	for _, instruction := range chain.Instructions {
		if instruction.Detail(limit.CategoryKey) == limit.Category {
			return true
		}
	}
	return false
}

func directionOf(kind Kind) model.Direction {
	if kind == Deposit {
		return model.DirectionInbound
	}
	return model.DirectionOutbound
}

func sortedKeys(changes map[model.ClientTransactionKey]chainChange) []model.ClientTransactionKey {
	keys := make([]model.ClientTransactionKey, 0, len(changes))
	for key := range changes {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ClientID != keys[j].ClientID {
			return keys[i].ClientID < keys[j].ClientID
		}
		return keys[i].ID < keys[j].ID
	})
	return keys
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
