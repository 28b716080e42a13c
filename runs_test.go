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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/contaops/contaops/config"
	"github.com/contaops/contaops/model"
)

func TestSweepStaleRunsUsesConfiguredThresholds(t *testing.T) {
	engine, ds := newTestEngine(t, config.SyncConfig{RunningStaleMinutes: 30, PendingStaleMinutes: 10})

	now := time.Now()
	ds.On("SweepStaleRuns", mock.Anything,
		mock.MatchedBy(func(runningBefore time.Time) bool {
			return now.Sub(runningBefore) > 29*time.Minute && now.Sub(runningBefore) < 31*time.Minute
		}),
		mock.MatchedBy(func(pendingBefore time.Time) bool {
			return now.Sub(pendingBefore) > 9*time.Minute && now.Sub(pendingBefore) < 11*time.Minute
		}),
	).Return(int64(2), nil)

	swept, err := engine.SweepStaleRuns(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), swept)
	ds.AssertExpectations(t)
}

func TestClaimRunSurvivesSweepFailure(t *testing.T) {
	engine, ds := newTestEngine(t, config.SyncConfig{})

	ds.On("SweepStaleRuns", mock.Anything, mock.Anything, mock.Anything).
		Return(int64(0), assert.AnError)
	ds.On("ClaimSyncRun", mock.Anything, mock.MatchedBy(func(run *model.SyncRun) bool {
		return run.TenantID == "tenant_1" && run.Provider == model.ProviderRegistry &&
			run.Status == model.StatusRunning && run.SyncRunID != ""
	})).Return(true, nil)

	run, claimed, err := engine.claimRun(context.Background(), "tenant_1", model.ProviderRegistry, nil)
	require.NoError(t, err)

	assert.True(t, claimed)
	assert.Contains(t, run.SyncRunID, "run_")
	ds.AssertExpectations(t)
}
