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
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blnkfinance/accrual/hookerror"
	"github.com/blnkfinance/accrual/parameters"
)

// parameterCommands creates the commands that describe the product's parameters.
func parameterCommands(app *accrualInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parameters",
		Short: "list the parameters the product declares",
		RunE: func(cmd *cobra.Command, args []string) error {
			specs := app.params.Specs()
			if app.table {
				return renderSpecs(specs)
			}
			return writeJSON(cmd.OutOrStdout(), specs)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "can-update <name> <OPS|USER>",
		Short: "report whether an actor may change a parameter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.params.Spec(args[0]); err != nil {
				return err
			}
			actor := parameters.Actor(strings.ToUpper(args[1]))
			if actor != parameters.ActorOps && actor != parameters.ActorUser {
				return hookerror.InvalidInput("unknown actor %q", args[1])
			}
			fmt.Fprintln(cmd.OutOrStdout(), app.params.CanUpdate(args[0], actor))
			return nil
		},
	})
	return cmd
}
