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
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/contaops/contaops/api"
	trace "github.com/contaops/contaops/internal/traces"
)

func initializeRouter(app *contaopsInstance) *gin.Engine {
	return api.NewAPI(app.service, app.db).Router()
}

// serverCommands starts the HTTP API.
func serverCommands(app *contaopsInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start contaops server",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			shutdown, err := trace.SetupOTelSDK(ctx, app.cnf.ProjectName)
			if err != nil {
				log.Printf("Error setting up OTel SDK: %v", err)
			} else {
				defer func() {
					if err := shutdown(ctx); err != nil {
						log.Printf("Error shutting down tracer: %v", err)
					}
				}()
			}

			router := initializeRouter(app)

			server := &http.Server{
				Addr:    ":" + app.cnf.Server.Port,
				Handler: router,
			}

			log.Printf("Starting server on %s", app.cnf.Server.Port)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		},
	}

	return cmd
}
