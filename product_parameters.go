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
	"strconv"

	"github.com/blnkfinance/accrual/config"
	"github.com/blnkfinance/accrual/parameters"
)

const (
	ParamDenomination           = "denomination"
	ParamPermittedDenominations = "permitted_denominations"
	ParamTside                  = "tside"
	ParamInterestRateType       = "interest_rate_type"
	ParamInterestRate           = "interest_rate"
	ParamInterestRateTiers      = "interest_rate_tiers"
	ParamProfitSharingRatio     = "profit_sharing_ratio"
	ParamDaysInYear             = "days_in_year"
	ParamAccrualPrecision       = "accrual_precision"
	ParamApplicationPrecision   = "application_precision"
	ParamRoundingMode           = "rounding_mode"
	ParamAccruedAddress         = "accrued_interest_address"
	ParamAccrualInternalAccount = "accrued_interest_internal_account"
	ParamRoundingAccount        = "residual_rounding_account"
	ParamZakatRate              = "zakat_rate"
	ParamZakatAccount           = "zakat_payable_account"
	ParamTaxRate                = "withholding_tax_rate"
	ParamTaxAccount             = "withholding_tax_payable_account"
	ParamAccrualHour            = "interest_accrual_hour"
	ParamApplicationDay         = "interest_application_day"
	ParamApplicationHour        = "interest_application_hour"
	ParamMinimumDeposit         = "minimum_deposit"
	ParamMaximumDeposit         = "maximum_deposit"
	ParamMinimumWithdrawal      = "minimum_withdrawal"
	ParamMaximumWithdrawal      = "maximum_withdrawal"
	ParamMaximumBalance         = "maximum_balance"
	ParamMaximumDailyDeposit    = "maximum_daily_deposit"
	ParamMaximumDailyWithdrawal = "maximum_daily_withdrawal"
	ParamDailyWithdrawalByType  = "maximum_daily_withdrawal_by_transaction_type"
	ParamMaximumMonthlyCount    = "maximum_monthly_withdrawals"
	ParamNetBatchLimits         = "net_batch_limits"
	ParamOverdraftLimit         = "arranged_overdraft_limit"
	ParamCheckAvailableBalance  = "check_available_balance"
	ParamMaturityDate           = "maturity_date"
	ParamDormancyFlag           = "dormancy_flag"
	ParamMaintenanceFee         = "monthly_maintenance_fee"
	ParamMaintenanceFeeWaiver   = "maintenance_fee_waiver_balance"
	ParamMinimumBalanceFee      = "minimum_balance_fee"
	ParamMinimumBalanceLimit    = "minimum_balance_threshold"
	ParamInactivityFee          = "inactivity_fee"
	ParamAnnualFee              = "annual_fee"
	ParamFeeIncomeAccount       = "fee_income_account"
)

// CategoryDetailKey is the instruction detail that carries a withdrawal's transaction type.
const CategoryDetailKey = "TRANSACTION_TYPE"

// ParameterSpecs declares the parameters a Product reads. Template defaults come from cnf.
func ParameterSpecs(cnf *config.Configuration) []parameters.Spec {
	itoa := func(v int) string { return strconv.Itoa(v) }
	decimalParam := func(name, description string, permission parameters.UpdatePermission) parameters.Spec {
		return parameters.Spec{Name: name, Kind: parameters.KindDecimal, Level: parameters.LevelInstance,
			UpdatePermission: permission, Description: description, Optional: true}
	}
	templateString := func(name, description, def string) parameters.Spec {
		return parameters.Spec{Name: name, Kind: parameters.KindString, Level: parameters.LevelTemplate,
			UpdatePermission: parameters.Fixed, Description: description, Default: def}
	}

	return []parameters.Spec{
		templateString(ParamDenomination, "Denomination of the account", cnf.Denomination),
		{Name: ParamPermittedDenominations, Kind: parameters.KindJSON, Level: parameters.LevelTemplate,
			Description: "Denominations the account accepts, as a JSON list", Optional: true},
		{Name: ParamTside, Kind: parameters.KindUnion, Level: parameters.LevelTemplate,
			Description: "Accounting side of the account", Default: "LIABILITY", UnionValues: []string{"ASSET", "LIABILITY"}},

		{Name: ParamInterestRateType, Kind: parameters.KindUnion, Level: parameters.LevelTemplate,
			Description: "How the annual rate is chosen", Default: RateTypeFlat,
			UnionValues: []string{RateTypeFlat, RateTypeAccountTier, RateTypeBalanceTier, RateTypeBanded}},
		decimalParam(ParamInterestRate, "Gross annual interest rate, or the gross distribution rate", parameters.OpsEditable),
		{Name: ParamInterestRateTiers, Kind: parameters.KindJSON, Level: parameters.LevelTemplate,
			UpdatePermission: parameters.OpsEditable, Description: "Tier or band table for tiered rate types", Optional: true},
		decimalParam(ParamProfitSharingRatio, "Customer share of the distribution rate (nisbah)", parameters.Fixed),
		{Name: ParamDaysInYear, Kind: parameters.KindUnion, Level: parameters.LevelTemplate,
			Description: "Day-count convention", Default: cnf.Accrual.DayCount, UnionValues: []string{"360", "365", "366", "actual"}},
		{Name: ParamAccrualPrecision, Kind: parameters.KindInt, Level: parameters.LevelTemplate,
			Description: "Decimal places kept on accruals", Default: itoa(int(cnf.Accrual.Precision))},
		{Name: ParamApplicationPrecision, Kind: parameters.KindInt, Level: parameters.LevelTemplate,
			Description: "Decimal places of applied interest", Default: itoa(int(cnf.Application.Precision))},
		{Name: ParamRoundingMode, Kind: parameters.KindUnion, Level: parameters.LevelTemplate,
			Description: "Rounding of accrued and applied amounts", Default: cnf.Accrual.RoundingMode,
			UnionValues: []string{"ROUND_HALF_UP", "ROUND_HALF_EVEN", "ROUND_DOWN", "ROUND_UP", "ROUND_FLOOR", "ROUND_CEILING"}},

		templateString(ParamAccruedAddress, "Address accrued interest is held on", cnf.Accrual.Address),
		templateString(ParamAccrualInternalAccount, "Internal account accruals are booked against", cnf.Accrual.InternalAccount),
		templateString(ParamRoundingAccount, "Internal account rounding residue is swept to", cnf.Application.RoundingAccount),
		{Name: ParamZakatRate, Kind: parameters.KindDecimal, Level: parameters.LevelTemplate, Description: "Zakat rate", Optional: true},
		{Name: ParamZakatAccount, Kind: parameters.KindString, Level: parameters.LevelTemplate, Description: "Zakat payable account", Optional: true},
		{Name: ParamTaxRate, Kind: parameters.KindDecimal, Level: parameters.LevelTemplate, Description: "Withholding tax rate", Optional: true},
		{Name: ParamTaxAccount, Kind: parameters.KindString, Level: parameters.LevelTemplate, Description: "Withholding tax payable account", Optional: true},

		{Name: ParamAccrualHour, Kind: parameters.KindInt, Level: parameters.LevelTemplate,
			Description: "Hour the daily accrual runs", Default: itoa(cnf.Accrual.Hour)},
		{Name: ParamApplicationDay, Kind: parameters.KindInt, Level: parameters.LevelInstance,
			UpdatePermission: parameters.UserEditable, Description: "Day of month interest is applied", Default: itoa(cnf.Application.Day)},
		{Name: ParamApplicationHour, Kind: parameters.KindInt, Level: parameters.LevelTemplate,
			Description: "Hour interest is applied", Default: itoa(cnf.Application.Hour)},

		decimalParam(ParamMinimumDeposit, "Minimum single deposit", parameters.Fixed),
		decimalParam(ParamMaximumDeposit, "Maximum single deposit", parameters.Fixed),
		decimalParam(ParamMinimumWithdrawal, "Minimum single withdrawal", parameters.Fixed),
		decimalParam(ParamMaximumWithdrawal, "Maximum single withdrawal", parameters.Fixed),
		decimalParam(ParamMaximumBalance, "Maximum balance", parameters.Fixed),
		decimalParam(ParamMaximumDailyDeposit, "Maximum deposited per day", parameters.UserEditable),
		decimalParam(ParamMaximumDailyWithdrawal, "Maximum withdrawn per day", parameters.UserEditable),
		{Name: ParamDailyWithdrawalByType, Kind: parameters.KindJSON, Level: parameters.LevelInstance,
			UpdatePermission: parameters.UserEditable, Description: "Daily withdrawal limit per transaction type", Optional: true},
		{Name: ParamMaximumMonthlyCount, Kind: parameters.KindInt, Level: parameters.LevelTemplate,
			Description: "Maximum number of withdrawals per month", Optional: true},
		{Name: ParamNetBatchLimits, Kind: parameters.KindBool, Level: parameters.LevelTemplate,
			Description: "Net deposits and withdrawals within a batch for window limits", Default: "false"},
		decimalParam(ParamOverdraftLimit, "Arranged overdraft", parameters.OpsEditable),
		{Name: ParamCheckAvailableBalance, Kind: parameters.KindBool, Level: parameters.LevelTemplate,
			Description: "Reject withdrawals beyond the available balance", Default: "true"},
		{Name: ParamMaturityDate, Kind: parameters.KindDate, Level: parameters.LevelInstance,
			Description: "Date after which only withdrawals are accepted", Optional: true},
		templateString(ParamDormancyFlag, "Account flag that marks the account dormant", "ACCOUNT_DORMANT"),

		decimalParam(ParamMaintenanceFee, "Monthly maintenance fee", parameters.OpsEditable),
		decimalParam(ParamMaintenanceFeeWaiver, "Balance at which the maintenance fee is waived", parameters.OpsEditable),
		decimalParam(ParamMinimumBalanceFee, "Fee charged below the minimum mean balance", parameters.OpsEditable),
		decimalParam(ParamMinimumBalanceLimit, "Minimum mean balance", parameters.OpsEditable),
		decimalParam(ParamInactivityFee, "Monthly fee while dormant", parameters.OpsEditable),
		decimalParam(ParamAnnualFee, "Annual fee", parameters.OpsEditable),
		templateString(ParamFeeIncomeAccount, "Internal account fees are paid to", cnf.Fees.IncomeAccount),
	}
}
