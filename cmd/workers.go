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
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	contaops "github.com/contaops/contaops"
	"github.com/contaops/contaops/internal/redisdb"
	"github.com/contaops/contaops/model"
)

const staleSweepInterval = 5 * time.Minute

// processContinuation re-enters a paused company sync run from the queue.
func (app *contaopsInstance) processContinuation(ctx context.Context, t *asynq.Task) error {
	ctx, span := otel.Tracer("contaops.sync.worker").Start(ctx, "Process Sync Continuation From Queue")
	defer span.End()

	var cont model.Continuation
	if err := json.Unmarshal(t.Payload(), &cont); err != nil {
		logrus.Error(err)
		return err
	}

	result, err := app.service.ResumeCompanySync(ctx, cont)
	if err != nil {
		logrus.Errorf("continuation for run %s failed: %v", cont.SyncRunID, err)
		return err
	}

	log.Printf(" [*] Continuation processed: %s (%s)", cont.SyncRunID, result.Status)
	return nil
}

// processDrain reacts to a finished run. The current downstream consumer
// only logs; the task exists so future consumers have a hook.
func (app *contaopsInstance) processDrain(_ context.Context, t *asynq.Task) error {
	var payload map[string]string
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.Error(err)
		return err
	}
	log.Printf(" [*] Run %s drained for tenant %s", payload["sync_run_id"], payload["tenant_id"])
	return nil
}

// workerCommands starts the queue worker process.
func workerCommands(app *contaopsInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start contaops queue workers",
		Run: func(cmd *cobra.Command, args []string) {
			redisOption, err := redisdb.ParseRedisURL(app.cnf.Redis.Dns)
			if err != nil {
				log.Fatalf("Error parsing Redis URL: %v", err)
			}

			queues := map[string]int{
				app.cnf.Queue.ContinuationQueue: 3,
				app.cnf.Queue.DrainQueue:        1,
			}

			srv := asynq.NewServer(
				asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB},
				asynq.Config{Concurrency: 1, Queues: queues},
			)

			mux := asynq.NewServeMux()
			mux.HandleFunc(contaops.TaskSyncContinuation, app.processContinuation)
			mux.HandleFunc(contaops.TaskQueueDrain, app.processDrain)

			go app.sweepStaleRunsLoop(cmd.Context())

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run worker server: %v", err)
			}
		},
	}

	return cmd
}

// sweepStaleRunsLoop periodically reclaims runs whose invocation died, so a
// crashed worker cannot hold a tenant's sync lock forever.
func (app *contaopsInstance) sweepStaleRunsLoop(ctx context.Context) {
	ticker := time.NewTicker(staleSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.service.SweepStaleRuns(ctx); err != nil {
				logrus.Warnf("periodic stale sweep failed: %v", err)
			}
		}
	}
}
