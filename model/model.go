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
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// instructionNamespace seeds the name-based UUIDs of generated instructions.
var instructionNamespace = uuid.MustParse("6f0c7a3e-2b1d-5c4e-9a8f-1d2e3f4a5b6c")

// GenerateIDWithSuffix derives a stable identifier from parts and prefixes it with module.
// The same parts always produce the same identifier, so replayed hooks emit identical
// instructions.
func GenerateIDWithSuffix(module string, parts ...string) string {
	id := uuid.NewSHA1(instructionNamespace, []byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%s_%s", module, id.String())
}

// RejectionReason categorises a rejected posting.
type RejectionReason string

const (
	ReasonAgainstTermsAndConditions RejectionReason = "AGAINST_TNC"
	ReasonInsufficientFunds         RejectionReason = "INSUFFICIENT_FUNDS"
	ReasonWrongDenomination         RejectionReason = "WRONG_DENOMINATION"
	ReasonAccountDormant            RejectionReason = "ACCOUNT_DORMANT"
	ReasonClientCustomReason        RejectionReason = "CLIENT_CUSTOM_REASON"
)

// Rejection is the expected, customer-facing outcome of a posting that breaks a product rule.
type Rejection struct {
	Message string          `json:"message"`
	Reason  RejectionReason `json:"reason_code"`
}

func (r *Rejection) Error() string {
	return r.Message
}

// NewRejection builds a Rejection from a message template.
func NewRejection(reason RejectionReason, format string, args ...interface{}) *Rejection {
	return &Rejection{Message: fmt.Sprintf(format, args...), Reason: reason}
}
