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

package hooks

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/blnkfinance/accrual/model"
	"github.com/blnkfinance/accrual/schedule"
)

type HookType string

const (
	Activation       HookType = "ACTIVATION"
	PrePosting       HookType = "PRE_POSTING"
	PostPosting      HookType = "POST_POSTING"
	ScheduledEvent   HookType = "SCHEDULED_EVENT"
	DerivedParameter HookType = "DERIVED_PARAMETER"
	Deactivation     HookType = "DEACTIVATION"
)

// Requirement declares the data the host must supply when it calls a hook.
type Requirement struct {
	Hook                    HookType      `json:"hook"`                                // Hook the requirement applies to
	EventType               string        `json:"event_type,omitempty"`                // Scheduled event name, for SCHEDULED_EVENT
	Parameters              []string      `json:"parameters,omitempty"`                // Parameters read by the hook
	BalanceFetchers         []string      `json:"balance_fetchers,omitempty"`          // Named balance reads
	ClientTransactionWindow time.Duration `json:"client_transaction_window,omitempty"` // How far back client transactions are needed
	Calendars               []string      `json:"calendars,omitempty"`                 // Calendars whose events shift schedules
	LinkedAccounts          bool          `json:"linked_accounts,omitempty"`           // Whether supervisee balances are needed
}

// LinkedBalances are the balances of an account linked to the one a hook runs for, such as
// the savings accounts that offset a mortgage.
type LinkedBalances struct {
	AccountID    string                `json:"account_id"`
	Denomination string                `json:"denomination"`
	Balances     model.BalanceSnapshot `json:"balances"`
}

// Args is the data the host passes into a hook call.
type Args struct {
	AccountID          string                                                 `json:"account_id"`
	EffectiveTime      time.Time                                              `json:"effective_time"`
	CreationTime       time.Time                                              `json:"creation_time"`
	EventType          string                                                 `json:"event_type,omitempty"`
	Balances           model.BalanceSnapshot                                  `json:"balances"`
	Proposed           []model.PostingInstruction                             `json:"proposed,omitempty"`
	ClientTransactions map[model.ClientTransactionKey]*model.ClientTransaction `json:"-"`
	CalendarEvents     []schedule.CalendarEvent                               `json:"calendar_events,omitempty"`
	AccountFlags       []string                                               `json:"account_flags,omitempty"`
	FirstAccrual       bool                                                   `json:"first_accrual,omitempty"`
	AverageBalance     *decimal.Decimal                                       `json:"average_balance,omitempty"`
	LinkedAccounts     []LinkedBalances                                       `json:"linked_accounts,omitempty"`
}

// Result is what a hook returns to the host. The host commits instructions and schedules;
// this library never writes anywhere.
type Result struct {
	Instructions      []model.PostingInstruction `json:"instructions,omitempty"`
	Rejection         *model.Rejection           `json:"rejection,omitempty"`
	Schedules         []schedule.EventSchedule   `json:"schedules,omitempty"`
	DerivedParameters map[string]string          `json:"derived_parameters,omitempty"`
}

// Contract is implemented by products that expose hooks to the host.
type Contract interface {
	Requirements() []Requirement
	Activation(ctx context.Context, args Args) (*Result, error)
	PrePosting(ctx context.Context, args Args) (*Result, error)
	PostPosting(ctx context.Context, args Args) (*Result, error)
	ScheduledEvent(ctx context.Context, args Args) (*Result, error)
	DerivedParameters(ctx context.Context, args Args) (*Result, error)
	Deactivation(ctx context.Context, args Args) (*Result, error)
}
