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
	"fmt"
	"io"
	"sort"

	"github.com/pterm/pterm"

	"github.com/blnkfinance/accrual/hooks"
	"github.com/blnkfinance/accrual/parameters"
)

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// renderResult prints a hook result as tables, one per populated section.
func renderResult(result *hooks.Result) error {
	if result.Rejection != nil {
		pterm.Error.Printf("%s (%s)\n", result.Rejection.Message, result.Rejection.Reason)
		return nil
	}

	if len(result.Instructions) > 0 {
		data := pterm.TableData{{"Client transaction", "Type", "Amount", "Account", "Address", "Side"}}
		for _, instruction := range result.Instructions {
			for _, posting := range instruction.Postings {
				side := "DEBIT"
				if posting.Credit {
					side = "CREDIT"
				}
				data = append(data, []string{
					instruction.ClientTransactionID, string(instruction.Type), posting.Amount.String(),
					posting.AccountID, posting.AccountAddress, side,
				})
			}
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}
	}

	if len(result.Schedules) > 0 {
		data := pterm.TableData{{"Event", "Expression", "Next"}}
		for _, s := range result.Schedules {
			data = append(data, []string{s.EventType, s.Expression, s.Next.Format("2006-01-02 15:04:05")})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}
	}

	if len(result.DerivedParameters) > 0 {
		names := make([]string, 0, len(result.DerivedParameters))
		for name := range result.DerivedParameters {
			names = append(names, name)
		}
		sort.Strings(names)
		data := pterm.TableData{{"Parameter", "Value"}}
		for _, name := range names {
			data = append(data, []string{name, result.DerivedParameters[name]})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}
	}

	if len(result.Instructions) == 0 && len(result.Schedules) == 0 && len(result.DerivedParameters) == 0 {
		pterm.Success.Println("Accepted")
	}
	return nil
}

func renderSpecs(specs []parameters.Spec) error {
	data := pterm.TableData{{"Name", "Kind", "Level", "Update", "Default", "Description"}}
	for _, spec := range specs {
		data = append(data, []string{
			spec.Name, string(spec.Kind), string(spec.Level), string(spec.UpdatePermission), spec.Default, spec.Description,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
