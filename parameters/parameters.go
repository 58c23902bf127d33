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

// Package parameters declares product parameters and reads their typed values.
//
// Parameters are declared once as Specs and passed into a Set. Values are stored as a time
// series so that a hook can read the value that was in force at any effective time.
package parameters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/blnkfinance/accrual/hookerror"
)

type Kind string

const (
	KindDecimal Kind = "DECIMAL"
	KindString  Kind = "STRING"
	KindUnion   Kind = "UNION"
	KindBool    Kind = "BOOL"
	KindDate    Kind = "DATE"
	KindInt     Kind = "INT"
	KindJSON    Kind = "JSON"
)

// Level is where a parameter value lives: on each account or on the product template.
type Level string

const (
	LevelInstance Level = "INSTANCE"
	LevelTemplate Level = "TEMPLATE"
)

// UpdatePermission governs who may change a parameter after creation.
type UpdatePermission string

const (
	Fixed        UpdatePermission = "FIXED"
	OpsEditable  UpdatePermission = "OPS_EDITABLE"
	UserEditable UpdatePermission = "USER_EDITABLE"
)

// Actor is the party requesting a parameter change.
type Actor string

const (
	ActorOps  Actor = "OPS"
	ActorUser Actor = "USER"
)

const dateLayout = "2006-01-02"

// maxSuggestionDistance bounds how different a name may be and still be suggested.
const maxSuggestionDistance = 4

// Spec declares a parameter.
type Spec struct {
	Name             string           `json:"name"`
	Kind             Kind             `json:"kind"`
	Level            Level            `json:"level"`
	UpdatePermission UpdatePermission `json:"update_permission"`
	Description      string           `json:"description,omitempty"`
	Default          string           `json:"default,omitempty"`
	Optional         bool             `json:"optional,omitempty"`
	UnionValues      []string         `json:"union_values,omitempty"`
}

// Value is a parameter value and the time it takes effect.
type Value struct {
	Value         string    `json:"value"`
	EffectiveFrom time.Time `json:"effective_from"`
}

// Set holds the declared parameters of a product and their values.
type Set struct {
	specs  map[string]Spec
	values map[string][]Value
}

// NewSet declares specs. Declaring the same name twice is a configuration error.
func NewSet(specs ...Spec) (*Set, error) {
	set := &Set{specs: make(map[string]Spec, len(specs)), values: make(map[string][]Value)}
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, hookerror.InvalidConfiguration("parameter declared without a name")
		}
		if _, exists := set.specs[spec.Name]; exists {
			return nil, hookerror.InvalidConfiguration("parameter %q declared twice", spec.Name)
		}
		if spec.Level == "" {
			spec.Level = LevelInstance
		}
		if spec.UpdatePermission == "" {
			spec.UpdatePermission = Fixed
		}
		if spec.Default != "" {
			if err := validateValue(spec, spec.Default); err != nil {
				return nil, hookerror.InvalidConfiguration("default of %q: %v", spec.Name, err)
			}
		}
		set.specs[spec.Name] = spec
	}
	return set, nil
}

// Specs returns the declarations sorted by name.
func (s *Set) Specs() []Spec {
	specs := make([]Spec, 0, len(s.specs))
	for _, spec := range s.specs {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Spec returns the declaration of name.
func (s *Set) Spec(name string) (Spec, error) {
	spec, ok := s.specs[name]
	if !ok {
		return Spec{}, s.unknown(name)
	}
	return spec, nil
}

// Set records value for name from effectiveFrom onwards.
func (s *Set) Set(name, value string, effectiveFrom time.Time) error {
	spec, err := s.Spec(name)
	if err != nil {
		return err
	}
	if err := validateValue(spec, value); err != nil {
		return hookerror.InvalidInput("parameter %q: %v", name, err)
	}

	series := append(s.values[name], Value{Value: value, EffectiveFrom: effectiveFrom})
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].EffectiveFrom.Before(series[j].EffectiveFrom)
	})
	s.values[name] = series
	return nil
}

// CanUpdate reports whether actor may change name.
func (s *Set) CanUpdate(name string, actor Actor) bool {
	spec, ok := s.specs[name]
	if !ok {
		return false
	}
	switch spec.UpdatePermission {
	case UserEditable:
		return actor == ActorUser || actor == ActorOps
	case OpsEditable:
		return actor == ActorOps
	default:
		return false
	}
}

// raw returns the value effective at at, falling back to the declared default.
// A nil at reads the latest value.
func (s *Set) raw(name string, at *time.Time) (string, bool, error) {
	spec, err := s.Spec(name)
	if err != nil {
		return "", false, err
	}

	series := s.values[name]
	for i := len(series) - 1; i >= 0; i-- {
		if at == nil || !series[i].EffectiveFrom.After(*at) {
			return series[i].Value, true, nil
		}
	}

	if spec.Default != "" {
		return spec.Default, true, nil
	}
	if spec.Optional {
		return "", false, nil
	}
	return "", false, hookerror.InvalidConfiguration("parameter %q has no value", name)
}

func (s *Set) typed(name string, kind Kind, at *time.Time) (string, bool, error) {
	spec, err := s.Spec(name)
	if err != nil {
		return "", false, err
	}
	if spec.Kind != kind && !(kind == KindString && spec.Kind == KindUnion) {
		return "", false, hookerror.InvalidConfiguration("parameter %q is %s, not %s", name, spec.Kind, kind)
	}
	return s.raw(name, at)
}

// Decimal reads a mandatory decimal parameter.
func (s *Set) Decimal(name string, at *time.Time) (decimal.Decimal, error) {
	value, ok, err := s.OptionalDecimal(name, at)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, hookerror.InvalidConfiguration("parameter %q has no value", name)
	}
	return value, nil
}

// OptionalDecimal reads a decimal parameter that may be unset.
func (s *Set) OptionalDecimal(name string, at *time.Time) (decimal.Decimal, bool, error) {
	raw, ok, err := s.typed(name, KindDecimal, at)
	if err != nil || !ok {
		return decimal.Zero, false, err
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, hookerror.InvalidInput("parameter %q: %v", name, err)
	}
	return value, true, nil
}

// String reads a string or union parameter. Unset optional parameters read as "".
func (s *Set) String(name string, at *time.Time) (string, error) {
	raw, _, err := s.typed(name, KindString, at)
	return raw, err
}

// Union reads a union parameter.
func (s *Set) Union(name string, at *time.Time) (string, error) {
	raw, _, err := s.typed(name, KindUnion, at)
	return raw, err
}

// Bool reads a boolean parameter. Unset optional parameters read as false.
func (s *Set) Bool(name string, at *time.Time) (bool, error) {
	raw, ok, err := s.typed(name, KindBool, at)
	if err != nil || !ok {
		return false, err
	}
	return strconv.ParseBool(raw)
}

// Int reads an integer parameter.
func (s *Set) Int(name string, at *time.Time) (int, bool, error) {
	raw, ok, err := s.typed(name, KindInt, at)
	if err != nil || !ok {
		return 0, false, err
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, hookerror.InvalidInput("parameter %q: %v", name, err)
	}
	return value, true, nil
}

// Date reads a date parameter.
func (s *Set) Date(name string, at *time.Time) (*time.Time, error) {
	raw, ok, err := s.typed(name, KindDate, at)
	if err != nil || !ok {
		return nil, err
	}
	value, err := parseDate(raw)
	if err != nil {
		return nil, hookerror.InvalidInput("parameter %q: %v", name, err)
	}
	return &value, nil
}

// JSON decodes a json parameter into out. It reports false when the parameter is unset.
func (s *Set) JSON(name string, at *time.Time, out interface{}) (bool, error) {
	raw, ok, err := s.typed(name, KindJSON, at)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, hookerror.InvalidInput("parameter %q: %v", name, err)
	}
	return true, nil
}

func (s *Set) unknown(name string) error {
	if suggestion := s.suggest(name); suggestion != "" {
		return hookerror.InvalidConfiguration("unknown parameter %q, did you mean %q?", name, suggestion)
	}
	return hookerror.InvalidConfiguration("unknown parameter %q", name)
}

// suggest returns the closest declared name, or "" when nothing is close enough.
func (s *Set) suggest(name string) string {
	best, bestDistance := "", maxSuggestionDistance+1
	for _, spec := range s.Specs() {
		distance := levenshtein.DistanceForStrings([]rune(name), []rune(spec.Name), levenshtein.DefaultOptions)
		if distance < bestDistance {
			best, bestDistance = spec.Name, distance
		}
	}
	return best
}

func validateValue(spec Spec, value string) error {
	switch spec.Kind {
	case KindDecimal:
		_, err := decimal.NewFromString(value)
		return err
	case KindBool:
		_, err := strconv.ParseBool(value)
		return err
	case KindInt:
		_, err := strconv.Atoi(value)
		return err
	case KindDate:
		_, err := parseDate(value)
		return err
	case KindJSON:
		if !json.Valid([]byte(value)) {
			return fmt.Errorf("invalid json")
		}
	case KindUnion:
		for _, allowed := range spec.UnionValues {
			if value == allowed {
				return nil
			}
		}
		return fmt.Errorf("%q is not one of [%s]", value, strings.Join(spec.UnionValues, ", "))
	}
	return nil
}

func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse(dateLayout, value)
}
