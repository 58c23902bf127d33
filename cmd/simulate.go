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
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blnkfinance/accrual/hookerror"
	"github.com/blnkfinance/accrual/hooks"
	"github.com/blnkfinance/accrual/model"
	"github.com/blnkfinance/accrual/schedule"
)

// simulationStep is one scheduled event run during a simulation.
type simulationStep struct {
	EffectiveTime time.Time       `json:"effective_time"`
	EventType     string          `json:"event_type"`
	Amount        decimal.Decimal `json:"amount"`
	Balance       decimal.Decimal `json:"balance"`
}

// simulation is the outcome of running an account's scheduled events over a period.
type simulation struct {
	Steps    []simulationStep      `json:"steps"`
	Balances model.BalanceSnapshot `json:"balances"`
}

// simulate activates the account at start and runs every scheduled event due before end in
// time order, folding the emitted instructions into the balances between events.
func simulate(ctx context.Context, registry *hooks.Registry, product string, args hooks.Args, end time.Time) (*simulation, error) {
	if end.Before(args.EffectiveTime) {
		return nil, hookerror.InvalidInput("simulation ends before it starts")
	}
	if args.CreationTime.IsZero() {
		args.CreationTime = args.EffectiveTime
	}

	activation, err := registry.Dispatch(ctx, product, hooks.Activation, args)
	if err != nil {
		return nil, err
	}

	pending := make(map[string]schedule.EventSchedule, len(activation.Schedules))
	order := make([]string, 0, len(activation.Schedules))
	for _, s := range activation.Schedules {
		pending[s.EventType] = s
		order = append(order, s.EventType)
	}

	out := &simulation{Balances: args.Balances}
	for {
		var due *schedule.EventSchedule
		for _, eventType := range order {
			candidate := pending[eventType]
			if !candidate.Next.Before(end) {
				continue
			}
			if due == nil || candidate.Next.Before(due.Next) {
				due = &candidate
			}
		}
		if due == nil {
			break
		}

		eventArgs := args
		eventArgs.EventType = due.EventType
		eventArgs.EffectiveTime = due.Next
		eventArgs.Balances = out.Balances
		result, err := registry.Dispatch(ctx, product, hooks.ScheduledEvent, eventArgs)
		if err != nil {
			return nil, errors.Wrapf(err, "running %s at %s", due.EventType, due.Next)
		}

		amount := decimal.Zero
		for _, instruction := range result.Instructions {
			amount = amount.Add(instruction.Amount)
			out.Balances = out.Balances.Apply(args.AccountID, instruction.Postings...)
		}
		out.Steps = append(out.Steps, simulationStep{
			EffectiveTime: due.Next,
			EventType:     due.EventType,
			Amount:        amount,
			Balance:       out.Balances.Net(model.DefaultAddress, denominationOf(result.Instructions, out.Balances)),
		})

		next, err := nextRun(*due, result.Schedules)
		if err != nil {
			return nil, err
		}
		pending[due.EventType] = next
	}

	logrus.WithFields(logrus.Fields{
		"account_id": args.AccountID,
		"steps":      len(out.Steps),
	}).Debug("simulation complete")
	return out, nil
}

// nextRun uses the rescheduled event a hook returned, or the schedule's own expression.
func nextRun(current schedule.EventSchedule, returned []schedule.EventSchedule) (schedule.EventSchedule, error) {
	for _, s := range returned {
		if s.EventType == current.EventType && s.Next.After(current.Next) {
			return s, nil
		}
	}
	next, err := schedule.Next(current.Expression, current.Next)
	if err != nil {
		return schedule.EventSchedule{}, hookerror.InvalidConfiguration("%v", err)
	}
	current.Next = next
	return current, nil
}

func denominationOf(instructions []model.PostingInstruction, balances model.BalanceSnapshot) string {
	for _, instruction := range instructions {
		if instruction.Denomination != "" {
			return instruction.Denomination
		}
	}
	for _, entry := range balances.Entries() {
		if entry.Address == model.DefaultAddress {
			return entry.Denomination
		}
	}
	return ""
}

// endOfDay returns the instant the day named by date ends, so that every event due on that
// day is simulated.
func endOfDay(date string) (time.Time, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, hookerror.InvalidInput("invalid --until date %q", date)
	}
	return day.AddDate(0, 0, 1), nil
}

func simulateCommands(app *accrualInstance) *cobra.Command {
	var scenarioFile, until string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "run an account's accrual, application and fee events over a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			hookArgs, err := readScenario(scenarioFile)
			if err != nil {
				return err
			}
			end, err := endOfDay(until)
			if err != nil {
				return err
			}

			result, err := simulate(cmd.Context(), app.registry, app.product, hookArgs, end)
			if err != nil {
				return err
			}
			if !app.table {
				return writeJSON(cmd.OutOrStdout(), result)
			}

			data := pterm.TableData{{"Effective", "Event", "Amount", "Balance"}}
			for _, step := range result.Steps {
				data = append(data, []string{
					step.EffectiveTime.Format("2006-01-02 15:04:05"), step.EventType, step.Amount.String(), step.Balance.String(),
				})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		},
	}
	cmd.Flags().StringVar(&scenarioFile, "scenario", "scenario.json", "Scenario file holding the account's opening state")
	cmd.Flags().StringVar(&until, "until", time.Now().UTC().AddDate(0, 1, 0).Format("2006-01-02"), "Last day to simulate, inclusive")
	return cmd
}
