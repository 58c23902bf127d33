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
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blnkfinance/accrual"
	"github.com/blnkfinance/accrual/config"
	"github.com/blnkfinance/accrual/hookerror"
	"github.com/blnkfinance/accrual/hooks"
	"github.com/blnkfinance/accrual/parameters"
)

// Accrual represents the CLI application, encapsulating the root Cobra command.
type Accrual struct {
	cmd *cobra.Command
}

// accrualInstance holds what every command needs once configuration is loaded.
type accrualInstance struct {
	cnf        *config.Configuration
	registry   *hooks.Registry
	params     *parameters.Set
	product    string
	configFile string
	paramsFile string
	table      bool
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads configuration and registers the product described by the parameter file.
func preRun(app *accrualInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(app.configFile); err != nil {
			return errors.Wrap(err, "error loading config")
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}
		app.cnf = cnf

		registry, params, err := setupRegistry(cnf, app.product, app.paramsFile)
		if err != nil {
			return err
		}
		app.registry, app.params = registry, params
		return nil
	}
}

// setupRegistry builds the product from its parameter file and registers it.
func setupRegistry(cnf *config.Configuration, name, paramsFile string) (*hooks.Registry, *parameters.Set, error) {
	set, err := parameters.NewSet(accrual.ParameterSpecs(cnf)...)
	if err != nil {
		return nil, nil, err
	}
	if paramsFile != "" {
		if err := parameters.LoadFile(paramsFile, set); err != nil {
			return nil, nil, err
		}
	}

	product, err := accrual.NewProduct(name, set, cnf)
	if err != nil {
		return nil, nil, err
	}

	registry := hooks.NewRegistry()
	if err := registry.Register(name, product); err != nil {
		return nil, nil, errors.Wrapf(err, "registering product %s", name)
	}
	return registry, set, nil
}

// NewCLI creates the command-line interface with the hook, simulation and inspection commands.
func NewCLI() *Accrual {
	app := &accrualInstance{}

	var rootCmd = &cobra.Command{
		Use:           "accrual",
		Short:         "Run interest accrual, application and limit hooks against account scenarios",
		SilenceUsage:  true,
		SilenceErrors: true,
		Run:           func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&app.configFile, "config", "./accrual.json", "Configuration file")
	rootCmd.PersistentFlags().StringVar(&app.paramsFile, "params", "", "Product parameter file")
	rootCmd.PersistentFlags().StringVar(&app.product, "product", "savings", "Name the product is registered under")
	rootCmd.PersistentFlags().BoolVar(&app.table, "table", false, "Render results as tables instead of JSON")

	rootCmd.PersistentPreRunE = preRun(app)

	rootCmd.AddCommand(configCommands(app))
	rootCmd.AddCommand(parameterCommands(app))
	rootCmd.AddCommand(hookCommands(app))
	rootCmd.AddCommand(simulateCommands(app))

	return &Accrual{cmd: rootCmd}
}

// executeCLI runs the root command and exits with a status derived from the error.
func (a Accrual) executeCLI() {
	if err := a.cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(hookerror.MapErrorToExitCode(errors.Cause(err)))
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
