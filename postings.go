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
	"time"

	"github.com/shopspring/decimal"

	"github.com/blnkfinance/accrual/model"
)

// increase returns a posting that raises (or, when up is false, lowers) the net of address
// on an account of side tside.
func increase(tside model.Tside, accountID, address, denomination string, amount decimal.Decimal, up bool) model.Posting {
	return model.Posting{
		Credit:         up == tside.IncreaseIsCredit(),
		Amount:         amount,
		Denomination:   denomination,
		AccountID:      accountID,
		AccountAddress: address,
		Asset:          model.DefaultAsset,
		Phase:          model.PhaseCommitted,
	}
}

// counter returns the opposite leg of p against accountID's address.
func counter(p model.Posting, accountID, address string) model.Posting {
	p.Credit = !p.Credit
	p.AccountID = accountID
	p.AccountAddress = address
	return p
}

// transfer moves amount out of from on the customer account into an internal account's
// default address. A negative amount moves the other way.
func transfer(tside model.Tside, accountID, from, internalAccount, denomination string, amount decimal.Decimal) []model.Posting {
	customer := increase(tside, accountID, from, denomination, amount.Abs(), amount.IsNegative())
	return []model.Posting{customer, counter(customer, internalAccount, model.DefaultAddress)}
}

// move shifts amount between two addresses of the same account.
func move(tside model.Tside, accountID, from, to, denomination string, amount decimal.Decimal) []model.Posting {
	return []model.Posting{
		increase(tside, accountID, from, denomination, amount, false),
		increase(tside, accountID, to, denomination, amount, true),
	}
}

func customInstruction(id, clientTransactionID, accountID, denomination string, amount decimal.Decimal, effective time.Time, details map[string]string, postings []model.Posting) model.PostingInstruction {
	return model.PostingInstruction{
		ID:                  id,
		Type:                model.CustomInstruction,
		ClientTransactionID: clientTransactionID,
		AccountID:           accountID,
		Amount:              amount,
		Denomination:        denomination,
		ValueTimestamp:      effective,
		InstructionDetails:  details,
		Postings:            postings,
	}
}

func clientTransactionID(event, accountID string, effective time.Time, suffix ...string) string {
	id := event + "_" + accountID + "_" + effective.UTC().Format("20060102T150405Z")
	for _, s := range suffix {
		id += "_" + s
	}
	return id
}
