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

package parameters

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Load reads a JSON object of parameter values into set.
//
// A value may be a scalar, which takes effect from the zero time, or a list of
// {"value", "effective_from"} objects forming a time series. JSON parameters may be given
// as an object or array and are stored as their encoded text.
func Load(r io.Reader, set *Set) error {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return errors.Wrap(err, "decoding parameter file")
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec, err := set.Spec(name)
		if err != nil {
			return err
		}

		values, err := decodeValues(spec, raw[name])
		if err != nil {
			return errors.Wrapf(err, "decoding parameter %s", name)
		}
		for _, value := range values {
			if err := set.Set(name, value.Value, value.EffectiveFrom); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadFile opens path and calls Load.
func LoadFile(path string, set *Set) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening parameter file %s", path)
	}
	defer f.Close()
	return Load(f, set)
}

func decodeValues(spec Spec, raw json.RawMessage) ([]Value, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty value")
	}

	if trimmed[0] == '[' && spec.Kind != KindJSON {
		var series []struct {
			Value         json.RawMessage `json:"value"`
			EffectiveFrom time.Time       `json:"effective_from"`
		}
		if err := json.Unmarshal(trimmed, &series); err != nil {
			return nil, err
		}
		values := make([]Value, 0, len(series))
		for _, entry := range series {
			value, err := scalar(spec, entry.Value)
			if err != nil {
				return nil, err
			}
			values = append(values, Value{Value: value, EffectiveFrom: entry.EffectiveFrom})
		}
		return values, nil
	}

	value, err := scalar(spec, trimmed)
	if err != nil {
		return nil, err
	}
	return []Value{{Value: value}}, nil
}

func scalar(spec Spec, raw json.RawMessage) (string, error) {
	if spec.Kind == KindJSON {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, nil
		}
		return string(raw), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	// numbers and booleans keep their literal text so decimals are never parsed as floats
	return strings.TrimSpace(string(raw)), nil
}
