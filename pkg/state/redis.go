/*
Copyright 2026.

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

package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/telekom/email-sender/pkg/config"
)

const backendRedis = "redis"

// redisClient is the subset of redis.UniversalClient used by RedisStore.
type redisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Close() error
}

// RedisStore keeps one string key per state key, prefixed with KeyPrefix.
type RedisStore struct {
	client      redisClient
	prefix      string
	integration string
	log         *zap.SugaredLogger
}

// NewRedisStore connects to the Redis server at cfg.URL (redis:// or rediss://)
// and verifies the connection with a PING.
func NewRedisStore(ctx context.Context, cfg config.RedisState, integration string, log *zap.SugaredLogger) (*RedisStore, error) {
	if cfg.URL == "" {
		return nil, errors.New("state: redis url is required")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("state: invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("state: failed to connect to redis at %s: %w", opts.Addr, err)
	}

	log.Infow("Using Redis state store", "addr", opts.Addr, "db", opts.DB, "keyPrefix", cfg.KeyPrefix)
	return newRedisStore(client, cfg.KeyPrefix, integration, log), nil
}

func newRedisStore(client redisClient, prefix, integration string, log *zap.SugaredLogger) *RedisStore {
	return &RedisStore{
		client:      client,
		prefix:      prefix,
		integration: integration,
		log:         log,
	}
}

func (s *RedisStore) redisKey(key string) (string, error) {
	objKey, err := objectKey(s.integration, key)
	if err != nil {
		return "", err
	}
	return s.prefix + objKey, nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	rkey, err := s.redisKey(key)
	if err != nil {
		return false, err
	}
	n, err := s.client.Exists(ctx, rkey).Result()
	observe(backendRedis, "exists", err)
	if err != nil {
		return false, fmt.Errorf("state: failed to check %s: %w", rkey, err)
	}
	return n > 0, nil
}

// Add sets the key with SETNX, so it never overwrites an existing entry.
func (s *RedisStore) Add(ctx context.Context, key string) error {
	rkey, err := s.redisKey(key)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, rkey, sentMarker(), 0).Result()
	if err != nil {
		observe(backendRedis, "add", err)
		return fmt.Errorf("state: failed to add %s: %w", rkey, err)
	}
	if !ok {
		observe(backendRedis, "add", ErrKeyExists)
		return fmt.Errorf("%w: %s", ErrKeyExists, rkey)
	}
	observe(backendRedis, "add", nil)
	s.log.Debugw("Recorded state key", "key", rkey)
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
