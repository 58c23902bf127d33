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
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side a client transaction moves money on, seen from the account.
type Direction string

const (
	DirectionUnknown  Direction = ""
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

// Sign returns +1 for inbound, -1 for outbound and 0 otherwise.
func (d Direction) Sign() decimal.Decimal {
	switch d {
	case DirectionInbound:
		return decimal.NewFromInt(1)
	case DirectionOutbound:
		return decimal.NewFromInt(-1)
	}
	return decimal.Zero
}

// ClientTransactionKey identifies a client transaction.
type ClientTransactionKey struct {
	ClientID string
	ID       string
}

// ClientTransaction is the ordered chain of instructions sharing a client transaction id:
// an authorisation, adjustments, partial settlements and a final settlement or release.
type ClientTransaction struct {
	ID           string               `json:"id"`
	ClientID     string               `json:"client_id,omitempty"`
	AccountID    string               `json:"account_id"`
	Denomination string               `json:"denomination"`
	Instructions []PostingInstruction `json:"instructions"`
}

// TransactionEffects is the folded state of a client transaction.
type TransactionEffects struct {
	Authorised decimal.Decimal
	Settled    decimal.Decimal
	Released   decimal.Decimal
	Unsettled  decimal.Decimal
	Closed     bool
}

// Key returns the identifier of the chain.
func (c *ClientTransaction) Key() ClientTransactionKey {
	return ClientTransactionKey{ClientID: c.ClientID, ID: c.ID}
}

// Start is the value timestamp of the first instruction.
func (c *ClientTransaction) Start() time.Time {
	if len(c.Instructions) == 0 {
		return time.Time{}
	}
	return c.Instructions[0].ValueTimestamp
}

// Direction is taken from the first instruction that opens the chain.
func (c *ClientTransaction) Direction() Direction {
	for _, instruction := range c.Instructions {
		switch {
		case instruction.Type.Inbound():
			return DirectionInbound
		case instruction.Type.Outbound():
			return DirectionOutbound
		}
	}
	return DirectionUnknown
}

// With returns a new chain with proposed appended. The receiver is not modified.
func (c *ClientTransaction) With(proposed ...PostingInstruction) *ClientTransaction {
	instructions := make([]PostingInstruction, 0, len(c.Instructions)+len(proposed))
	instructions = append(instructions, c.Instructions...)
	instructions = append(instructions, proposed...)
	return &ClientTransaction{
		ID:           c.ID,
		ClientID:     c.ClientID,
		AccountID:    c.AccountID,
		Denomination: c.Denomination,
		Instructions: instructions,
	}
}

// Effects folds the chain up to cutoff. A nil cutoff folds every instruction.
func (c *ClientTransaction) Effects(cutoff *time.Time) TransactionEffects {
	effects, _ := c.fold(cutoff)
	return effects
}

// Postings returns the balance postings the chain implies up to cutoff.
func (c *ClientTransaction) Postings(cutoff *time.Time) []Posting {
	_, postings := c.fold(cutoff)
	return postings
}

// Exposure is the amount the chain counts towards a limit: the larger of the authorised
// amount net of releases and the settled amount.
func (c *ClientTransaction) Exposure(cutoff *time.Time) decimal.Decimal {
	effects := c.Effects(cutoff)
	authorised := effects.Authorised.Sub(effects.Released).Abs()
	return decimal.Max(authorised, effects.Settled.Abs())
}

func (c *ClientTransaction) fold(cutoff *time.Time) (TransactionEffects, []Posting) {
	effects := TransactionEffects{}
	var postings []Posting

	direction := c.Direction()
	inbound := direction == DirectionInbound
	pendingPhase := PhasePendingOutgoing
	if inbound {
		pendingPhase = PhasePendingIncoming
	}

	move := func(phase Phase, amount decimal.Decimal) {
		if amount.IsZero() {
			return
		}
		credit := inbound
		if amount.IsNegative() {
			credit = !credit
		}
		postings = append(postings, Posting{
			Credit:         credit,
			Amount:         amount.Abs(),
			Denomination:   c.Denomination,
			AccountID:      c.AccountID,
			AccountAddress: DefaultAddress,
			Asset:          DefaultAsset,
			Phase:          phase,
		})
	}

	pending := decimal.Zero
	for _, instruction := range c.Instructions {
		if cutoff != nil && instruction.ValueTimestamp.After(*cutoff) {
			continue
		}
		if effects.Closed {
			break
		}

		switch instruction.Type {
		case InboundAuthorisation, OutboundAuthorisation:
			effects.Authorised = effects.Authorised.Add(instruction.Amount)
			pending = pending.Add(instruction.Amount)
			move(pendingPhase, instruction.Amount)

		case AuthorisationAdjustment:
			delta := instruction.Amount
			if pending.Add(delta).IsNegative() {
				delta = pending.Neg()
			}
			effects.Authorised = effects.Authorised.Add(delta)
			pending = pending.Add(delta)
			move(pendingPhase, delta)

		case Settlement:
			amount := instruction.Amount
			if amount.IsZero() && instruction.Final {
				amount = pending
			}
			consumed := decimal.Min(amount, pending)
			effects.Settled = effects.Settled.Add(amount)
			pending = pending.Sub(consumed)
			move(pendingPhase, consumed.Neg())
			move(PhaseCommitted, amount)
			if instruction.Final {
				effects.Released = effects.Released.Add(pending)
				move(pendingPhase, pending.Neg())
				pending = decimal.Zero
				effects.Closed = true
			}

		case Release:
			effects.Released = effects.Released.Add(pending)
			move(pendingPhase, pending.Neg())
			pending = decimal.Zero
			effects.Closed = true

		case InboundHardSettlement, OutboundHardSettlement:
			effects.Settled = effects.Settled.Add(instruction.Amount)
			move(PhaseCommitted, instruction.Amount)
			effects.Closed = true

		case CustomInstruction:
			for _, posting := range instruction.Postings {
				if posting.AccountID == c.AccountID {
					postings = append(postings, posting)
				}
			}
		}
	}

	effects.Unsettled = pending
	return effects, postings
}

// GroupByClientTransaction splits instructions into chains keyed by client transaction,
// extending the chains found in history. History is never modified.
func GroupByClientTransaction(accountID string, history map[ClientTransactionKey]*ClientTransaction, instructions []PostingInstruction) map[ClientTransactionKey]*ClientTransaction {
	grouped := make(map[ClientTransactionKey]*ClientTransaction)
	for _, instruction := range instructions {
		key := ClientTransactionKey{ClientID: instruction.ClientID, ID: instruction.ClientTransactionID}
		chain, ok := grouped[key]
		if !ok {
			if existing, found := history[key]; found {
				chain = existing.With()
			} else {
				chain = &ClientTransaction{
					ID:           instruction.ClientTransactionID,
					ClientID:     instruction.ClientID,
					AccountID:    accountID,
					Denomination: instruction.Denomination,
				}
			}
		}
		grouped[key] = chain.With(instruction)
	}
	return grouped
}
