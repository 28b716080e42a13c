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

package redisdb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Redis wraps a universal client so callers do not care whether the DNS
// pointed at a bare host:port or a full redis:// URL.
type Redis struct {
	client redis.UniversalClient
}

// ParseRedisURL turns the configured redis DNS into client options. Bare
// docker-style addresses (redis:6379) are accepted as-is; anything else goes
// through redis.ParseURL, with a password-only fallback for URLs of the form
// redis://password@host.
func ParseRedisURL(rawURL string) (*redis.Options, error) {
	if strings.Count(rawURL, ":") == 1 && !strings.Contains(rawURL, "@") && !strings.Contains(rawURL, "//") {
		return &redis.Options{Addr: rawURL}, nil
	}

	if strings.HasPrefix(rawURL, "redis://") && strings.Contains(rawURL, "@") {
		parts := strings.Split(strings.TrimPrefix(rawURL, "redis://"), "@")
		if len(parts) == 2 && !strings.Contains(parts[0], ":") {
			rawURL = fmt.Sprintf("redis://:%s@%s", parts[0], parts[1])
		}
	}

	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis DNS %q: %w", rawURL, err)
	}
	return opts, nil
}

// NewRedisClient creates a standalone Redis client from the configured DNS.
func NewRedisClient(rawURL string) (*Redis, error) {
	if rawURL == "" {
		return nil, errors.New("redis DNS cannot be empty")
	}

	opts, err := ParseRedisURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

// Client returns the underlying universal client.
func (r *Redis) Client() redis.UniversalClient {
	return r.client
}
