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

package model

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// Phase is the lifecycle stage of a balance.
type Phase string

const (
	PhaseCommitted       Phase = "POSTING_PHASE_COMMITTED"
	PhasePendingIncoming Phase = "POSTING_PHASE_PENDING_INCOMING"
	PhasePendingOutgoing Phase = "POSTING_PHASE_PENDING_OUTGOING"
)

// Tside fixes which side of a posting increases an account's net balance.
type Tside string

const (
	TsideAsset     Tside = "ASSET"
	TsideLiability Tside = "LIABILITY"
)

// IncreaseIsCredit reports whether a credit raises the net balance.
func (t Tside) IncreaseIsCredit() bool {
	return t != TsideAsset
}

const (
	DefaultAddress = "DEFAULT"
	DefaultAsset   = "COMMERCIAL_BANK_MONEY"
)

// BalanceCoordinate identifies one balance of an account.
type BalanceCoordinate struct {
	Address      string `json:"address"`
	Asset        string `json:"asset"`
	Denomination string `json:"denomination"`
	Phase        Phase  `json:"phase"`
}

// NewCoordinate returns the coordinate for address in denomination using the default asset.
func NewCoordinate(address, denomination string, phase Phase) BalanceCoordinate {
	return BalanceCoordinate{Address: address, Asset: DefaultAsset, Denomination: denomination, Phase: phase}
}

func (c BalanceCoordinate) less(o BalanceCoordinate) bool {
	if c.Address != o.Address {
		return c.Address < o.Address
	}
	if c.Asset != o.Asset {
		return c.Asset < o.Asset
	}
	if c.Denomination != o.Denomination {
		return c.Denomination < o.Denomination
	}
	return c.Phase < o.Phase
}

// Balance holds the credit and debit totals of a coordinate and the net derived from them.
type Balance struct {
	Credit decimal.Decimal `json:"credit"`
	Debit  decimal.Decimal `json:"debit"`
	Net    decimal.Decimal `json:"net"`
}

// BalanceEntry is a single coordinate and its balance.
type BalanceEntry struct {
	BalanceCoordinate
	Balance
}

// BalanceSnapshot is an immutable view of an account's balances at one point in time.
// Folding postings into a snapshot returns a new snapshot.
type BalanceSnapshot struct {
	tside    Tside
	balances map[BalanceCoordinate]Balance
}

// NewBalanceSnapshot builds a snapshot from entries. Net is recomputed from credit and debit
// unless both are zero, in which case the supplied net is kept.
func NewBalanceSnapshot(tside Tside, entries ...BalanceEntry) BalanceSnapshot {
	balances := make(map[BalanceCoordinate]Balance, len(entries))
	for _, entry := range entries {
		b := entry.Balance
		if !b.Credit.IsZero() || !b.Debit.IsZero() {
			b.Net = netOf(tside, b.Credit, b.Debit)
		}
		existing, ok := balances[entry.BalanceCoordinate]
		if ok {
			b = Balance{
				Credit: existing.Credit.Add(b.Credit),
				Debit:  existing.Debit.Add(b.Debit),
				Net:    existing.Net.Add(b.Net),
			}
		}
		balances[entry.BalanceCoordinate] = b
	}
	return BalanceSnapshot{tside: tside, balances: balances}
}

// NetEntry is a shorthand for an entry that only carries a net amount.
func NetEntry(address, denomination string, phase Phase, net decimal.Decimal) BalanceEntry {
	return BalanceEntry{
		BalanceCoordinate: NewCoordinate(address, denomination, phase),
		Balance:           Balance{Net: net},
	}
}

func netOf(tside Tside, credit, debit decimal.Decimal) decimal.Decimal {
	if tside == TsideAsset {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// Tside returns the snapshot's accounting side.
func (s BalanceSnapshot) Tside() Tside {
	if s.tside == "" {
		return TsideLiability
	}
	return s.tside
}

// Get returns the balance at coordinate, zero when absent.
func (s BalanceSnapshot) Get(coordinate BalanceCoordinate) Balance {
	if b, ok := s.balances[coordinate]; ok {
		return b
	}
	return Balance{}
}

// Net sums the net balance of address in denomination across phases.
// With no phases given, only the committed phase is read.
func (s BalanceSnapshot) Net(address, denomination string, phases ...Phase) decimal.Decimal {
	if len(phases) == 0 {
		phases = []Phase{PhaseCommitted}
	}
	total := decimal.Zero
	for _, phase := range phases {
		total = total.Add(s.Get(NewCoordinate(address, denomination, phase)).Net)
	}
	return total
}

// Entries returns every balance in a stable order.
func (s BalanceSnapshot) Entries() []BalanceEntry {
	entries := make([]BalanceEntry, 0, len(s.balances))
	for coordinate, balance := range s.balances {
		entries = append(entries, BalanceEntry{BalanceCoordinate: coordinate, Balance: balance})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].BalanceCoordinate.less(entries[j].BalanceCoordinate)
	})
	return entries
}

// Apply folds the postings that target accountID into a new snapshot.
// The receiver is left untouched.
func (s BalanceSnapshot) Apply(accountID string, postings ...Posting) BalanceSnapshot {
	next := make(map[BalanceCoordinate]Balance, len(s.balances)+len(postings))
	for coordinate, balance := range s.balances {
		next[coordinate] = balance
	}

	tside := s.Tside()
	for _, posting := range postings {
		if posting.AccountID != accountID {
			continue
		}
		coordinate := posting.Coordinate()
		b := next[coordinate]
		if posting.Credit {
			b.Credit = b.Credit.Add(posting.Amount)
		} else {
			b.Debit = b.Debit.Add(posting.Amount)
		}
		b.Net = b.Net.Add(posting.NetEffect(tside))
		next[coordinate] = b
	}
	return BalanceSnapshot{tside: tside, balances: next}
}

// Fold applies a sequence of posting batches in order, returning the final snapshot.
func Fold(initial BalanceSnapshot, accountID string, batches ...[]Posting) BalanceSnapshot {
	snapshot := initial
	for _, batch := range batches {
		snapshot = snapshot.Apply(accountID, batch...)
	}
	return snapshot
}

// NetBalances sums the nets of several snapshots into one, coordinate by coordinate.
// The result carries nets only.
func NetBalances(tside Tside, snapshots ...BalanceSnapshot) BalanceSnapshot {
	var entries []BalanceEntry
	for _, snapshot := range snapshots {
		for _, entry := range snapshot.Entries() {
			entry.Credit, entry.Debit = decimal.Zero, decimal.Zero
			entries = append(entries, entry)
		}
	}
	return NewBalanceSnapshot(tside, entries...)
}

type snapshotJSON struct {
	Tside    Tside          `json:"tside"`
	Balances []BalanceEntry `json:"balances"`
}

// MarshalJSON encodes the snapshot with its entries in stable order.
func (s BalanceSnapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{Tside: s.Tside(), Balances: s.Entries()})
}

// UnmarshalJSON decodes a snapshot written by MarshalJSON.
func (s *BalanceSnapshot) UnmarshalJSON(data []byte) error {
	var raw snapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Tside == "" {
		raw.Tside = TsideLiability
	}
	*s = NewBalanceSnapshot(raw.Tside, raw.Balances...)
	return nil
}
