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

// Package cache is a Redis-backed marshaled cache with a small local TinyLFU
// layer. The contact matcher uses it to hold per-tenant company snapshots so
// a contacts page does not re-read the companies table for every record.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/cache/v9"

	"github.com/contaops/contaops/internal/redisdb"
)

// Cache is the minimal cache surface the engine needs.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, data interface{}) error
	Delete(ctx context.Context, key string) error
}

// RedisCache implements Cache on top of go-redis/cache.
type RedisCache struct {
	cache *cache.Cache
}

// localCacheSize is the entry budget for the in-process TinyLFU layer.
const localCacheSize = 16000

// NewCache connects to the given redis DNS and returns a Cache.
func NewCache(redisDNS string) (Cache, error) {
	client, err := redisdb.NewRedisClient(redisDNS)
	if err != nil {
		return nil, err
	}

	c := cache.New(&cache.Options{
		Redis:      client.Client(),
		LocalCache: cache.NewTinyLFU(localCacheSize, time.Minute),
	})
	return &RedisCache{cache: c}, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, data interface{}, ttl time.Duration) error {
	return r.cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   key,
		Value: data,
		TTL:   ttl,
	})
}

// Get fills data from the cache. A miss is not an error: data is left
// untouched and nil is returned, so callers always fall through to the
// database on a cold key.
func (r *RedisCache) Get(ctx context.Context, key string, data interface{}) error {
	err := r.cache.Get(ctx, key, data)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.cache.Delete(ctx, key)
}
