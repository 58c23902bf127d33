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

// Posting is a single credit or debit against one balance coordinate of an account.
type Posting struct {
	Credit         bool            `json:"credit"`
	Amount         decimal.Decimal `json:"amount"`
	Denomination   string          `json:"denomination"`
	AccountID      string          `json:"account_id"`
	AccountAddress string          `json:"account_address"`
	Asset          string          `json:"asset"`
	Phase          Phase           `json:"phase"`
}

// Coordinate returns the balance coordinate the posting affects.
func (p Posting) Coordinate() BalanceCoordinate {
	c := BalanceCoordinate{
		Address:      p.AccountAddress,
		Asset:        p.Asset,
		Denomination: p.Denomination,
		Phase:        p.Phase,
	}
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	if c.Asset == "" {
		c.Asset = DefaultAsset
	}
	if c.Phase == "" {
		c.Phase = PhaseCommitted
	}
	return c
}

// NetEffect is the signed change the posting makes to the net balance of an account on tside.
func (p Posting) NetEffect(tside Tside) decimal.Decimal {
	if p.Credit == tside.IncreaseIsCredit() {
		return p.Amount
	}
	return p.Amount.Neg()
}

// InstructionType is the kind of a posting instruction.
type InstructionType string

const (
	InboundAuthorisation    InstructionType = "INBOUND_AUTHORISATION"
	OutboundAuthorisation   InstructionType = "OUTBOUND_AUTHORISATION"
	AuthorisationAdjustment InstructionType = "AUTHORISATION_ADJUSTMENT"
	Settlement              InstructionType = "SETTLEMENT"
	Release                 InstructionType = "RELEASE"
	InboundHardSettlement   InstructionType = "INBOUND_HARD_SETTLEMENT"
	OutboundHardSettlement  InstructionType = "OUTBOUND_HARD_SETTLEMENT"
	CustomInstruction       InstructionType = "CUSTOM_INSTRUCTION"
)

// Inbound reports whether the type opens an inbound client transaction.
func (t InstructionType) Inbound() bool {
	return t == InboundAuthorisation || t == InboundHardSettlement
}

// Outbound reports whether the type opens an outbound client transaction.
func (t InstructionType) Outbound() bool {
	return t == OutboundAuthorisation || t == OutboundHardSettlement
}

// PostingInstruction is one step of a client transaction, or a custom instruction
// carrying explicit postings.
//
// Amount is the authorised amount for authorisations and hard settlements, the signed
// delta for adjustments, and the settled amount for settlements. A final settlement with a
// zero amount settles whatever is still pending. Releases ignore Amount.
type PostingInstruction struct {
	ID                  string            `json:"id"`
	Type                InstructionType   `json:"type"`
	ClientID            string            `json:"client_id,omitempty"`
	ClientTransactionID string            `json:"client_transaction_id"`
	AccountID           string            `json:"account_id"`
	Amount              decimal.Decimal   `json:"amount"`
	Denomination        string            `json:"denomination"`
	Final               bool              `json:"final,omitempty"`
	ValueTimestamp      time.Time         `json:"value_timestamp"`
	InstructionDetails  map[string]string `json:"instruction_details,omitempty"`
	Postings            []Posting         `json:"postings,omitempty"`
}

// Detail returns an instruction detail value.
func (pi PostingInstruction) Detail(key string) string {
	if pi.InstructionDetails == nil {
		return ""
	}
	return pi.InstructionDetails[key]
}

// Batch is a set of instructions proposed or committed together.
type Batch struct {
	ID             string               `json:"id"`
	ValueTimestamp time.Time            `json:"value_timestamp"`
	Instructions   []PostingInstruction `json:"instructions"`
}
