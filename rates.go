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
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/blnkfinance/accrual/hookerror"
)

// RateTable resolves the annual rate that applies to an accrual base. The set of tables is
// closed: FlatRate, AccountTierRates, BalanceTierRates and BandedRates.
type RateTable interface {
	resolve(base decimal.Decimal, flags []string) ([]ratedPortion, error)
}

// ratedPortion is a slice of the base and the annual rate it accrues at.
type ratedPortion struct {
	Amount decimal.Decimal
	Rate   decimal.Decimal
	Tier   string
}

// FlatRate accrues the whole base at one rate.
type FlatRate struct {
	Rate decimal.Decimal `json:"rate"`
}

func (r FlatRate) resolve(base decimal.Decimal, _ []string) ([]ratedPortion, error) {
	return []ratedPortion{{Amount: base, Rate: r.Rate}}, nil
}

type AccountTier struct {
	Name string          `json:"tier"`
	Rate decimal.Decimal `json:"rate"`
}

// AccountTierRates picks the rate of the first tier whose name is among the account's
// flags. The last tier is the default.
type AccountTierRates struct {
	Tiers []AccountTier `json:"tiers"`
}

func (r AccountTierRates) resolve(base decimal.Decimal, flags []string) ([]ratedPortion, error) {
	if len(r.Tiers) == 0 {
		return nil, hookerror.InvalidConfiguration("account tier table is empty")
	}
	for _, tier := range r.Tiers {
		for _, flag := range flags {
			if flag == tier.Name {
				return []ratedPortion{{Amount: base, Rate: tier.Rate, Tier: tier.Name}}, nil
			}
		}
	}
	last := r.Tiers[len(r.Tiers)-1]
	return []ratedPortion{{Amount: base, Rate: last.Rate, Tier: last.Name}}, nil
}

type BalanceTier struct {
	Name           string          `json:"tier"`
	MinimumBalance decimal.Decimal `json:"min_balance"`
	Rate           decimal.Decimal `json:"rate"`
}

// BalanceTierRates picks the rate of the first tier whose minimum the base reaches and
// accrues the whole base at it. The last tier is the default.
type BalanceTierRates struct {
	Tiers []BalanceTier `json:"tiers"`
}

func (r BalanceTierRates) resolve(base decimal.Decimal, _ []string) ([]ratedPortion, error) {
	if len(r.Tiers) == 0 {
		return nil, hookerror.InvalidConfiguration("balance tier table is empty")
	}
	for _, tier := range r.Tiers {
		if base.GreaterThanOrEqual(tier.MinimumBalance) {
			return []ratedPortion{{Amount: base, Rate: tier.Rate, Tier: tier.Name}}, nil
		}
	}
	last := r.Tiers[len(r.Tiers)-1]
	return []ratedPortion{{Amount: base, Rate: last.Rate, Tier: last.Name}}, nil
}

// RateBand covers the base up to UpTo. A nil UpTo is unbounded.
type RateBand struct {
	UpTo *decimal.Decimal `json:"up_to,omitempty"`
	Rate decimal.Decimal  `json:"rate"`
}

// BandedRates splits the base across ascending bands, each portion accruing at its band's
// rate. The last band must be unbounded.
type BandedRates struct {
	Bands []RateBand `json:"bands"`
}

func (r BandedRates) resolve(base decimal.Decimal, _ []string) ([]ratedPortion, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	var portions []ratedPortion
	lower := decimal.Zero
	for i, band := range r.Bands {
		if !base.GreaterThan(lower) {
			break
		}
		upper := base
		if band.UpTo != nil && band.UpTo.LessThan(base) {
			upper = *band.UpTo
		}
		portions = append(portions, ratedPortion{Amount: upper.Sub(lower), Rate: band.Rate, Tier: fmt.Sprintf("band_%d", i+1)})
		if band.UpTo == nil {
			break
		}
		lower = *band.UpTo
	}
	return portions, nil
}

func (r BandedRates) validate() error {
	if len(r.Bands) == 0 {
		return hookerror.InvalidConfiguration("rate band table is empty")
	}
	lower := decimal.Zero
	for i, band := range r.Bands {
		last := i == len(r.Bands)-1
		switch {
		case band.UpTo == nil && !last:
			return hookerror.InvalidConfiguration("rate band %d is unbounded but is not the last band", i+1)
		case band.UpTo != nil && last:
			return hookerror.InvalidConfiguration("last rate band must be unbounded")
		case band.UpTo != nil && !band.UpTo.GreaterThan(lower):
			return hookerror.InvalidConfiguration("rate band %d upper bound %s is not above %s", i+1, band.UpTo, lower)
		}
		if band.UpTo != nil {
			lower = *band.UpTo
		}
	}
	return nil
}

// Rate table kinds accepted by ParseRateTable.
const (
	RateTypeFlat        = "flat"
	RateTypeAccountTier = "account_tier"
	RateTypeBalanceTier = "balance_tier"
	RateTypeBanded      = "banded"
)

// ParseRateTable builds a table of kind from its JSON definition. A flat table takes the
// rate as flatRate and ignores raw.
func ParseRateTable(kind string, flatRate decimal.Decimal, raw []byte) (RateTable, error) {
	switch kind {
	case RateTypeFlat, "":
		return FlatRate{Rate: flatRate}, nil
	case RateTypeAccountTier:
		var tiers []AccountTier
		if err := json.Unmarshal(raw, &tiers); err != nil {
			return nil, hookerror.InvalidConfiguration("invalid account tier table: %v", err)
		}
		return AccountTierRates{Tiers: tiers}, nil
	case RateTypeBalanceTier:
		var tiers []BalanceTier
		if err := json.Unmarshal(raw, &tiers); err != nil {
			return nil, hookerror.InvalidConfiguration("invalid balance tier table: %v", err)
		}
		return BalanceTierRates{Tiers: tiers}, nil
	case RateTypeBanded:
		var bands []RateBand
		if err := json.Unmarshal(raw, &bands); err != nil {
			return nil, hookerror.InvalidConfiguration("invalid rate band table: %v", err)
		}
		table := BandedRates{Bands: bands}
		if err := table.validate(); err != nil {
			return nil, err
		}
		return table, nil
	}
	return nil, hookerror.InvalidConfiguration("unsupported rate type %q", kind)
}

// annualRate is the rate the whole base accrues at: the single resolved rate, or the
// amount-weighted rate across bands. An empty base reads the first rate.
func annualRate(table RateTable, base decimal.Decimal, flags []string) (decimal.Decimal, error) {
	portions, err := table.resolve(base, flags)
	if err != nil {
		return decimal.Zero, err
	}
	if len(portions) == 0 {
		if banded, ok := table.(BandedRates); ok && len(banded.Bands) > 0 {
			return banded.Bands[0].Rate, nil
		}
		return decimal.Zero, nil
	}
	if len(portions) == 1 || !base.IsPositive() {
		return portions[0].Rate, nil
	}
	weighted := decimal.Zero
	for _, portion := range portions {
		weighted = weighted.Add(portion.Amount.Mul(portion.Rate))
	}
	return weighted.Div(base), nil
}
