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
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Registry stores contracts and their declared requirements by product name.
type Registry struct {
	mu        sync.RWMutex
	contracts map[string]Contract
	declared  map[string][]Requirement
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		contracts: make(map[string]Contract),
		declared:  make(map[string][]Requirement),
	}
}

// Register validates the contract's requirements and stores it under name.
func (r *Registry) Register(name string, contract Contract) error {
	if name == "" {
		return fmt.Errorf("contract name is required")
	}
	requirements := contract.Requirements()
	if err := Validate(requirements); err != nil {
		return fmt.Errorf("contract %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.contracts[name]; exists {
		return fmt.Errorf("contract %s already registered", name)
	}
	r.contracts[name] = contract
	r.declared[name] = requirements

	logrus.WithFields(logrus.Fields{"contract": name, "requirements": len(requirements)}).Debug("contract registered")
	return nil
}

// Get returns the contract registered under name.
func (r *Registry) Get(name string) (Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	contract, ok := r.contracts[name]
	if !ok {
		return nil, fmt.Errorf("contract not found: %s", name)
	}
	return contract, nil
}

// List returns the registered contract names in order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.contracts))
	for name := range r.contracts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Requirements returns the requirements name declared for hook.
func (r *Registry) Requirements(name string, hook HookType) []Requirement {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []Requirement
	for _, requirement := range r.declared[name] {
		if requirement.Hook == hook {
			matched = append(matched, requirement)
		}
	}
	return matched
}

// Dispatch calls the hook of the named contract.
func (r *Registry) Dispatch(ctx context.Context, name string, hook HookType, args Args) (*Result, error) {
	contract, err := r.Get(name)
	if err != nil {
		return nil, err
	}

	switch hook {
	case Activation:
		return contract.Activation(ctx, args)
	case PrePosting:
		return contract.PrePosting(ctx, args)
	case PostPosting:
		return contract.PostPosting(ctx, args)
	case ScheduledEvent:
		return contract.ScheduledEvent(ctx, args)
	case DerivedParameter:
		return contract.DerivedParameters(ctx, args)
	case Deactivation:
		return contract.Deactivation(ctx, args)
	}
	return nil, fmt.Errorf("unsupported hook type %s", hook)
}

// Validate checks every requirement names a known hook and is consistent with it.
func Validate(requirements []Requirement) error {
	for _, requirement := range requirements {
		if err := validateRequirement(requirement); err != nil {
			return err
		}
	}
	return nil
}

func validateRequirement(requirement Requirement) error {
	switch requirement.Hook {
	case Activation, PrePosting, PostPosting, DerivedParameter, Deactivation:
		if requirement.EventType != "" {
			return fmt.Errorf("event type %s set on %s hook", requirement.EventType, requirement.Hook)
		}
	case ScheduledEvent:
		if requirement.EventType == "" {
			return fmt.Errorf("scheduled event requirement without event type")
		}
	default:
		return fmt.Errorf("invalid hook type %q", requirement.Hook)
	}
	if requirement.ClientTransactionWindow < 0 {
		return fmt.Errorf("negative client transaction window on %s hook", requirement.Hook)
	}
	return nil
}
