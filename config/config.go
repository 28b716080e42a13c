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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5002"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Secure     bool   `json:"secure" envconfig:"CONTAOPS_SERVER_SECURE"`
	ServiceKey string `json:"service_key" envconfig:"CONTAOPS_SERVER_SERVICE_KEY"`
	Port       string `json:"port" envconfig:"CONTAOPS_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"CONTAOPS_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"CONTAOPS_REDIS_DNS"`
}

// ProviderEndpoints are the base URLs of the three upstream systems. Tokens
// are per tenant and live in the tenant_integrations table, not here.
type ProviderEndpoints struct {
	RegistryBaseURL string `json:"registry_base_url" envconfig:"CONTAOPS_PROVIDER_REGISTRY_URL"`
	BillingBaseURL  string `json:"billing_base_url" envconfig:"CONTAOPS_PROVIDER_BILLING_URL"`
	ContactsBaseURL string `json:"contacts_base_url" envconfig:"CONTAOPS_PROVIDER_CONTACTS_URL"`
}

// SyncConfig tunes the reconciliation engine: how many pages one invocation
// may process before handing off, page size requested from the remote, the
// inter-page throttle, and the staleness thresholds for the sweep.
type SyncConfig struct {
	PageBudget          int `json:"page_budget" envconfig:"CONTAOPS_SYNC_PAGE_BUDGET"`
	PageSize            int `json:"page_size" envconfig:"CONTAOPS_SYNC_PAGE_SIZE"`
	InterPageDelayMs    int `json:"inter_page_delay_ms" envconfig:"CONTAOPS_SYNC_INTER_PAGE_DELAY_MS"`
	RunningStaleMinutes int `json:"running_stale_minutes" envconfig:"CONTAOPS_SYNC_RUNNING_STALE_MINUTES"`
	PendingStaleMinutes int `json:"pending_stale_minutes" envconfig:"CONTAOPS_SYNC_PENDING_STALE_MINUTES"`
}

type QueueConfig struct {
	ContinuationQueue string `json:"continuation_queue" envconfig:"CONTAOPS_QUEUE_CONTINUATION"`
	DrainQueue        string `json:"drain_queue" envconfig:"CONTAOPS_QUEUE_DRAIN"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"CONTAOPS_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"CONTAOPS_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"CONTAOPS_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName  string            `json:"project_name" envconfig:"CONTAOPS_PROJECT_NAME"`
	Server       ServerConfig      `json:"server"`
	DataSource   DataSourceConfig  `json:"data_source"`
	Redis        RedisConfig       `json:"redis"`
	Providers    ProviderEndpoints `json:"providers"`
	Sync         SyncConfig        `json:"sync"`
	Queue        QueueConfig       `json:"queue"`
	Notification Notification      `json:"notification"`
	RateLimit    RateLimitConfig   `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("contaops", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called contaops.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Contaops Server"
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Sync.PageBudget <= 0 {
		cnf.Sync.PageBudget = 5
	}
	if cnf.Sync.PageSize <= 0 {
		cnf.Sync.PageSize = 100
	}
	if cnf.Sync.InterPageDelayMs <= 0 {
		cnf.Sync.InterPageDelayMs = 300
	}
	if cnf.Sync.RunningStaleMinutes <= 0 {
		cnf.Sync.RunningStaleMinutes = 30
	}
	if cnf.Sync.PendingStaleMinutes <= 0 {
		cnf.Sync.PendingStaleMinutes = 10
	}

	if cnf.Queue.ContinuationQueue == "" {
		cnf.Queue.ContinuationQueue = "sync:continuation"
	}
	if cnf.Queue.DrainQueue == "" {
		cnf.Queue.DrainQueue = "sync:drain"
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	_ = mockConfig.validateAndAddDefaults()
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
