/*
Copyright 2025 Contaops Authors.

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
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	contaops "github.com/contaops/contaops"
	"github.com/contaops/contaops/config"
	"github.com/contaops/contaops/database"
	"github.com/contaops/contaops/internal/notification"
)

// contaopsInstance holds the engine, datasource, and configuration shared
// by every CLI command.
type contaopsInstance struct {
	service *contaops.Contaops
	db      database.IDataSource
	cnf     *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and wires the engine before any command
// runs.
func preRun(app *contaopsInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("contaops.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		service, db, err := setupService(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.service = service
		app.db = db
		app.cnf = cnf
		return nil
	}
}

func setupService(cfg *config.Configuration) (*contaops.Contaops, database.IDataSource, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("error getting datasource: %v", err)
	}
	service, err := contaops.NewContaops(db)
	if err != nil {
		return nil, nil, err
	}
	return service, db, nil
}

func rootCommands(app *contaopsInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "contaops",
		Short:             "reconciliation and matching core",
		PersistentPreRunE: preRun(app),
	}

	cmd.AddCommand(serverCommands(app))
	cmd.AddCommand(workerCommands(app))
	cmd.AddCommand(migrateCommands(app))
	return cmd
}

func main() {
	defer recoverPanic()

	app := &contaopsInstance{}
	if err := rootCommands(app).Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
