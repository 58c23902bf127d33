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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_DENOMINATION      = "GBP"
	DEFAULT_ACCRUAL_PRECISION = 5
	DEFAULT_APPLY_PRECISION   = 2
)

var ConfigStore atomic.Value

type AccrualConfig struct {
	DayCount        string `json:"day_count" envconfig:"ACCRUAL_DAY_COUNT"`
	Precision       int32  `json:"precision" envconfig:"ACCRUAL_PRECISION"`
	RoundingMode    string `json:"rounding_mode" envconfig:"ACCRUAL_ROUNDING_MODE"`
	Address         string `json:"address" envconfig:"ACCRUAL_ADDRESS"`
	InternalAccount string `json:"internal_account" envconfig:"ACCRUAL_INTERNAL_ACCOUNT"`
	Hour            int    `json:"hour" envconfig:"ACCRUAL_HOUR"`
	Minute          int    `json:"minute" envconfig:"ACCRUAL_MINUTE"`
	Second          int    `json:"second" envconfig:"ACCRUAL_SECOND"`
}

type ApplicationConfig struct {
	Precision       int32  `json:"precision" envconfig:"ACCRUAL_APPLICATION_PRECISION"`
	RoundingMode    string `json:"rounding_mode" envconfig:"ACCRUAL_APPLICATION_ROUNDING_MODE"`
	Day             int    `json:"day" envconfig:"ACCRUAL_APPLICATION_DAY"`
	Hour            int    `json:"hour" envconfig:"ACCRUAL_APPLICATION_HOUR"`
	Minute          int    `json:"minute" envconfig:"ACCRUAL_APPLICATION_MINUTE"`
	Second          int    `json:"second" envconfig:"ACCRUAL_APPLICATION_SECOND"`
	AppliedAddress  string `json:"applied_address" envconfig:"ACCRUAL_APPLIED_ADDRESS"`
	RoundingAccount string `json:"rounding_account" envconfig:"ACCRUAL_ROUNDING_ACCOUNT"`
}

type LimitsConfig struct {
	PeriodEndHour     int `json:"period_end_hour" envconfig:"ACCRUAL_LIMITS_PERIOD_END_HOUR"`
	HistoryWindowDays int `json:"history_window_days" envconfig:"ACCRUAL_LIMITS_HISTORY_WINDOW_DAYS"`
}

type FeesConfig struct {
	IncomeAccount string `json:"income_account" envconfig:"ACCRUAL_FEES_INCOME_ACCOUNT"`
	Day           int    `json:"day" envconfig:"ACCRUAL_FEES_DAY"`
}

type Configuration struct {
	ProjectName  string            `json:"project_name" envconfig:"ACCRUAL_PROJECT_NAME"`
	LogLevel     string            `json:"log_level" envconfig:"ACCRUAL_LOG_LEVEL"`
	Denomination string            `json:"denomination" envconfig:"ACCRUAL_DENOMINATION"`
	Calendars    []string          `json:"calendars" envconfig:"ACCRUAL_CALENDARS"`
	Accrual      AccrualConfig     `json:"accrual"`
	Application  ApplicationConfig `json:"application"`
	Limits       LimitsConfig      `json:"limits"`
	Fees         FeesConfig        `json:"fees"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("accrual", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return nil
}

func InitConfig(configFile string) error {
	logger()
	err := loadConfigFromFile(configFile)
	if err != nil {
		return err
	}
	cnf, _ := Fetch()
	setLogLevel(cnf.LogLevel)
	return nil
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called accrual.json with your config ❌")
	}
	return c, nil
}

// Default returns a configuration with every default applied and nothing read from disk.
func Default() *Configuration {
	cnf := &Configuration{}
	_ = cnf.validateAndAddDefaults()
	return cnf
}

func (cnf *Configuration) validateAndAddDefaults() error {
	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Denomination = strings.ToUpper(strings.TrimSpace(cnf.Denomination))
	cnf.Accrual.Address = strings.TrimSpace(cnf.Accrual.Address)
	cnf.Accrual.InternalAccount = strings.TrimSpace(cnf.Accrual.InternalAccount)

	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Blnk Accrual"
	}

	if cnf.Denomination == "" {
		cnf.Denomination = DEFAULT_DENOMINATION
		log.Printf("Warning: Denomination not specified in config. Setting default denomination: %s", DEFAULT_DENOMINATION)
	}

	if cnf.Accrual.DayCount == "" {
		cnf.Accrual.DayCount = "actual"
	}
	if cnf.Accrual.Precision == 0 {
		cnf.Accrual.Precision = DEFAULT_ACCRUAL_PRECISION
	}
	if cnf.Accrual.RoundingMode == "" {
		cnf.Accrual.RoundingMode = "ROUND_HALF_UP"
	}
	if cnf.Accrual.Address == "" {
		cnf.Accrual.Address = "ACCRUED_INTEREST"
	}
	if cnf.Accrual.InternalAccount == "" {
		cnf.Accrual.InternalAccount = "INTEREST_EXPENSE"
	}

	if cnf.Application.Precision == 0 {
		cnf.Application.Precision = DEFAULT_APPLY_PRECISION
	}
	if cnf.Application.RoundingMode == "" {
		cnf.Application.RoundingMode = "ROUND_HALF_UP"
	}
	if cnf.Application.Day == 0 {
		cnf.Application.Day = 1
	}
	if cnf.Application.AppliedAddress == "" {
		cnf.Application.AppliedAddress = "DEFAULT"
	}
	if cnf.Application.RoundingAccount == "" {
		cnf.Application.RoundingAccount = "ROUNDING_RESIDUE"
	}

	if cnf.Limits.HistoryWindowDays == 0 {
		cnf.Limits.HistoryWindowDays = 31
	}

	if cnf.Fees.IncomeAccount == "" {
		cnf.Fees.IncomeAccount = "FEE_INCOME"
	}
	if cnf.Fees.Day == 0 {
		cnf.Fees.Day = 1
	}

	if cnf.LogLevel == "" {
		cnf.LogLevel = logrus.InfoLevel.String()
	}

	return cnf.validate()
}

func (cnf *Configuration) validate() error {
	if _, err := logrus.ParseLevel(cnf.LogLevel); err != nil {
		log.Printf("Error: invalid log level %s", cnf.LogLevel)
		return err
	}

	modes := []interface{}{"ROUND_HALF_UP", "ROUND_HALF_EVEN", "ROUND_DOWN", "ROUND_UP", "ROUND_FLOOR", "ROUND_CEILING"}
	err := validation.ValidateStruct(&cnf.Accrual,
		validation.Field(&cnf.Accrual.DayCount, validation.In("360", "365", "366", "actual")),
		validation.Field(&cnf.Accrual.Precision, validation.Min(0), validation.Max(15)),
		validation.Field(&cnf.Accrual.RoundingMode, validation.In(modes...)),
		validation.Field(&cnf.Accrual.Hour, validation.Min(0), validation.Max(23)),
		validation.Field(&cnf.Accrual.Minute, validation.Min(0), validation.Max(59)),
		validation.Field(&cnf.Accrual.Second, validation.Min(0), validation.Max(59)),
	)
	if err != nil {
		return errors.New("invalid accrual config: " + err.Error())
	}

	err = validation.ValidateStruct(&cnf.Application,
		validation.Field(&cnf.Application.Precision, validation.Min(0), validation.Max(15)),
		validation.Field(&cnf.Application.RoundingMode, validation.In(modes...)),
		validation.Field(&cnf.Application.Day, validation.Min(1), validation.Max(31)),
		validation.Field(&cnf.Application.Hour, validation.Min(0), validation.Max(23)),
		validation.Field(&cnf.Application.Minute, validation.Min(0), validation.Max(59)),
		validation.Field(&cnf.Application.Second, validation.Min(0), validation.Max(59)),
	)
	if err != nil {
		return errors.New("invalid application config: " + err.Error())
	}

	err = validation.ValidateStruct(&cnf.Limits,
		validation.Field(&cnf.Limits.PeriodEndHour, validation.Min(0), validation.Max(23)),
		validation.Field(&cnf.Limits.HistoryWindowDays, validation.Min(1)),
	)
	if err != nil {
		return errors.New("invalid limits config: " + err.Error())
	}

	err = validation.ValidateStruct(&cnf.Fees,
		validation.Field(&cnf.Fees.Day, validation.Min(1), validation.Max(31)),
	)
	if err != nil {
		return errors.New("invalid fees config: " + err.Error())
	}
	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}

func setLogLevel(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return
	}
	logrus.SetLevel(parsed)
}
