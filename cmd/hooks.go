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

package main

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/blnkfinance/accrual/hookerror"
	"github.com/blnkfinance/accrual/hooks"
	"github.com/blnkfinance/accrual/model"
)

// scenario is the hook input read from disk. History is grouped into client transactions
// before the hook runs.
type scenario struct {
	hooks.Args
	History []model.PostingInstruction `json:"history,omitempty"`
}

func readScenario(path string) (hooks.Args, error) {
	f, err := os.Open(path)
	if err != nil {
		return hooks.Args{}, errors.Wrapf(err, "opening scenario %s", path)
	}
	defer f.Close()

	var s scenario
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return hooks.Args{}, hookerror.InvalidInput("decoding scenario %s: %v", path, err)
	}
	if len(s.History) > 0 {
		s.Args.ClientTransactions = model.GroupByClientTransaction(s.Args.AccountID, nil, s.History)
	}
	return s.Args, nil
}

// hookCommands creates one subcommand per hook, each reading a scenario file.
func hookCommands(app *accrualInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "run a product hook against a scenario file",
	}

	commands := []struct {
		use   string
		short string
		hook  hooks.HookType
	}{
		{"activation", "schedule the recurring events of a new account", hooks.Activation},
		{"pre-posting", "accept or reject a proposed batch", hooks.PrePosting},
		{"post-posting", "run the post-posting hook", hooks.PostPosting},
		{"scheduled", "run a scheduled event such as ACCRUE_INTEREST", hooks.ScheduledEvent},
		{"derived", "compute derived parameters", hooks.DerivedParameter},
		{"deactivation", "reverse outstanding accruals on closure", hooks.Deactivation},
	}
	for _, c := range commands {
		cmd.AddCommand(hookCommand(app, c.use, c.short, c.hook))
	}
	return cmd
}

func hookCommand(app *accrualInstance, use, short string, hook hooks.HookType) *cobra.Command {
	var scenarioFile, event string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			hookArgs, err := readScenario(scenarioFile)
			if err != nil {
				return err
			}
			if event != "" {
				hookArgs.EventType = event
			}

			result, err := app.registry.Dispatch(cmd.Context(), app.product, hook, hookArgs)
			if err != nil {
				return errors.Wrapf(err, "running %s hook", hook)
			}
			if app.table {
				return renderResult(result)
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&scenarioFile, "scenario", "scenario.json", "Scenario file holding the hook arguments")
	if hook == hooks.ScheduledEvent {
		cmd.Flags().StringVar(&event, "event", "", "Event type, overriding the scenario's")
	}
	return cmd
}
