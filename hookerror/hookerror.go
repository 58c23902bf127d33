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

// Package hookerror defines the fatal errors a hook can return. Expected customer-facing
// outcomes are model.Rejection values, not errors.
package hookerror

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

type ErrorCode string

const (
	ErrInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"
	ErrInvalidInput         ErrorCode = "INVALID_INPUT"
	ErrInternal             ErrorCode = "INTERNAL"
)

type HookError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e HookError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewHookError builds a HookError and logs its details when present.
func NewHookError(code ErrorCode, message string, details interface{}) HookError {
	if details != nil {
		logrus.WithField("code", code).Error(details)
	}
	return HookError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// InvalidConfiguration reports a product set-up defect.
func InvalidConfiguration(format string, args ...interface{}) HookError {
	return NewHookError(ErrInvalidConfiguration, fmt.Sprintf(format, args...), nil)
}

// InvalidInput reports malformed data supplied by the host.
func InvalidInput(format string, args ...interface{}) HookError {
	return NewHookError(ErrInvalidInput, fmt.Sprintf(format, args...), nil)
}

// CodeOf returns the code of a HookError in err's chain, or ErrInternal.
func CodeOf(err error) ErrorCode {
	var hookErr HookError
	if errors.As(err, &hookErr) {
		return hookErr.Code
	}
	return ErrInternal
}

// MapErrorToExitCode maps an error to a process exit status for the CLI.
func MapErrorToExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CodeOf(err) {
	case ErrInvalidConfiguration:
		return 78
	case ErrInvalidInput:
		return 65
	default:
		return 1
	}
}
