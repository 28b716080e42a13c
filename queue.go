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

package contaops

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/contaops/contaops/config"
	"github.com/contaops/contaops/internal/redisdb"
	"github.com/contaops/contaops/model"
)

// Task type names. The continuation task re-enters the sync engine; the
// drain task lets downstream consumers react to a finished run.
const (
	TaskSyncContinuation = "sync:continuation"
	TaskQueueDrain       = "sync:drain"
)

// Queue wraps the asynq client used to hand work between invocations.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redisdb.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// queueContinuation enqueues the next invocation of a paused run. The task
// ID is the run ID plus the next page, so a duplicate enqueue of the same
// handoff is dropped by asynq instead of doubling the work.
func (q *Queue) queueContinuation(ctx context.Context, cont model.Continuation) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(cont)
	if err != nil {
		return err
	}

	taskOptions := []asynq.Option{
		asynq.TaskID(fmt.Sprintf("%s:%d", cont.SyncRunID, cont.NextPage)),
		asynq.Queue(cfg.Queue.ContinuationQueue),
	}
	task := asynq.NewTask(TaskSyncContinuation, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued continuation: %s page %d", cont.SyncRunID, cont.NextPage)
	return nil
}

// queueDrain signals that a run finished so downstream consumers can pick
// up the fresh data. Best effort; the caller only logs failures.
func (q *Queue) queueDrain(ctx context.Context, syncRunID, tenantID string) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]string{
		"sync_run_id": syncRunID,
		"tenant_id":   tenantID,
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskQueueDrain, payload, asynq.Queue(cfg.Queue.DrainQueue))
	_, err = q.Client.EnqueueContext(ctx, task)
	return err
}
