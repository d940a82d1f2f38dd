// Copyright (C) 2026 Meridian Systems
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/meridian-ai/meridian/services/orchestrator/datatypes"
	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces gateway entries inside a shared Redis.
const redisKeyPrefix = "meridian:cache:"

// RedisAdapter stores cache entries as JSON values in Redis. Redis-side
// expiry is set slightly past the entry's own ExpiresAt so the semantic
// layer's expiry filter remains authoritative while Redis still reclaims
// memory on its own.
type RedisAdapter struct {
	client *redis.Client
}

// NewRedisAdapter connects to addr (host:port) and verifies the
// connection with a ping.
func NewRedisAdapter(ctx context.Context, addr, password string, db int) (*RedisAdapter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisAdapter{client: client}, nil
}

func (r *RedisAdapter) Get(ctx context.Context, key string) (datatypes.CacheEntry, bool, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return datatypes.CacheEntry{}, false, nil
	}
	if err != nil {
		return datatypes.CacheEntry{}, false, fmt.Errorf("redis get: %w", err)
	}
	var entry datatypes.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return datatypes.CacheEntry{}, false, fmt.Errorf("redis entry decode: %w", err)
	}
	return entry, true, nil
}

func (r *RedisAdapter) Set(ctx context.Context, key string, entry datatypes.CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis entry encode: %w", err)
	}
	ttl := time.Until(entry.ExpiresAt) + time.Minute
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *RedisAdapter) Clear(ctx context.Context) error {
	keys, err := r.scanKeys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	return nil
}

func (r *RedisAdapter) Size(ctx context.Context) (int, error) {
	keys, err := r.scanKeys(ctx)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

func (r *RedisAdapter) Entries(ctx context.Context) ([]datatypes.CacheEntry, error) {
	keys, err := r.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	raws, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w", err)
	}

	entries := make([]datatypes.CacheEntry, 0, len(raws))
	for _, raw := range raws {
		s, ok := raw.(string)
		if !ok {
			continue // key expired between scan and mget
		}
		var entry datatypes.CacheEntry
		if err := json.Unmarshal([]byte(s), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *RedisAdapter) scanKeys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}

var _ Adapter = (*RedisAdapter)(nil)
