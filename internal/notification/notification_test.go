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

package notification

import (
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/contaops/contaops/config"
)

func TestSlackNotificationPostsToWebhook(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	config.MockConfig(&config.Configuration{
		DataSource:   config.DataSourceConfig{Dns: "postgres://localhost:5432/contaops"},
		Redis:        config.RedisConfig{Dns: "localhost:6379"},
		Notification: config.Notification{Slack: config.SlackWebhook{WebhookUrl: "http://slack.test/hook"}},
	})

	var posted string
	httpmock.RegisterResponder("POST", "http://slack.test/hook",
		func(req *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(req.Body)
			posted = string(body)
			return httpmock.NewStringResponse(200, `{"ok": true}`), nil
		})

	SlackNotification(errors.New("registry page 3: status 503"))

	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.Contains(t, posted, "registry page 3: status 503")
}

func TestNotifyErrorWithoutWebhookOnlyLogs(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	config.MockConfig(&config.Configuration{
		DataSource: config.DataSourceConfig{Dns: "postgres://localhost:5432/contaops"},
		Redis:      config.RedisConfig{Dns: "localhost:6379"},
	})

	NotifyError(errors.New("boom"))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestNotifyErrorReportsAsync(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	config.MockConfig(&config.Configuration{
		DataSource:   config.DataSourceConfig{Dns: "postgres://localhost:5432/contaops"},
		Redis:        config.RedisConfig{Dns: "localhost:6379"},
		Notification: config.Notification{Slack: config.SlackWebhook{WebhookUrl: "http://slack.test/hook"}},
	})

	httpmock.RegisterResponder("POST", "http://slack.test/hook",
		httpmock.NewStringResponder(200, `{"ok": true}`))

	NotifyError(errors.New("boom"))

	assert.Eventually(t, func() bool {
		return httpmock.GetTotalCallCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}
