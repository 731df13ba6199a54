// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"bytes"
	"context"
	"io"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pierrec/lz4/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Short-TTL cache for live quotes. Values are lz4 compressed and held in a
// local LRU; when cache.redis is enabled they are shared through Redis so
// multiple instances serve the same quote.

var ctx = context.Background()
var rdb *redis.Client
var cache *lru.Cache

// SetupCache initializes the local LRU and, when configured, the Redis
// client
func SetupCache() {
	var err error
	if viper.GetBool("cache.redis") {
		opt, err := redis.ParseURL(viper.GetString("cache.redis_url"))
		if err != nil {
			log.Error().Err(err).Msg("could not parse redis URL")
			os.Exit(1)
		}
		rdb = redis.NewClient(opt)
	}

	size := viper.GetInt("cache.local_size")
	if size == 0 {
		size = 1024
	}

	cache, err = lru.New(size)
	if err != nil {
		log.Error().Err(err).Msg("could not create LRU cache")
		os.Exit(1)
	}
}

// CacheSet stores a compressed value under key with the configured TTL
func CacheSet(key string, val []byte) error {
	compressed, err := compress(val)
	if err != nil {
		return err
	}
	cache.Add(key, cacheEntry{bytes: compressed, expires: time.Now().Add(cacheTTL())})

	if viper.GetBool("cache.redis") {
		return rdb.Set(ctx, key, compressed, cacheTTL()).Err()
	}
	return nil
}

// CacheGet returns the value stored under key, or an error when the key is
// missing or expired
func CacheGet(key string) ([]byte, error) {
	if v, ok := cache.Get(key); ok {
		entry := v.(cacheEntry)
		if time.Now().Before(entry.expires) {
			return decompress(entry.bytes)
		}
		cache.Remove(key)
	}

	if viper.GetBool("cache.redis") {
		val, err := rdb.Get(ctx, key).Bytes()
		if err != nil {
			return nil, err
		}
		return decompress(val)
	}

	return nil, redis.Nil
}

type cacheEntry struct {
	bytes   []byte
	expires time.Time
}

func cacheTTL() time.Duration {
	ttl := viper.GetInt("cache.ttl")
	if ttl == 0 {
		ttl = 60
	}
	return time.Duration(ttl) * time.Second
}

func compress(in []byte) ([]byte, error) {
	w := &bytes.Buffer{}
	zw := lz4.NewWriter(w)
	if _, err := io.Copy(zw, bytes.NewReader(in)); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func decompress(in []byte) ([]byte, error) {
	w := &bytes.Buffer{}
	zr := lz4.NewReader(bytes.NewReader(in))
	if _, err := io.Copy(w, zr); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
