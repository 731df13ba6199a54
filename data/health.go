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

package data

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type providerHealth struct {
	mutex       sync.RWMutex
	healthy     bool
	lastChecked time.Time
	lastError   string
}

var health = &providerHealth{}

// CheckProvider probes the data provider with a one-symbol quote request
// and records the result. Scheduled periodically from serve.
func CheckProvider(ctx context.Context, provider Provider, symbol string) {
	_, err := provider.Quote(ctx, symbol)

	health.mutex.Lock()
	defer health.mutex.Unlock()

	health.lastChecked = time.Now()
	if err != nil {
		health.healthy = false
		health.lastError = err.Error()
		log.Warn().Err(err).Str("Symbol", symbol).Msg("data provider health check failed")
		return
	}

	health.healthy = true
	health.lastError = ""
}

// ProviderHealthy reports the result of the most recent provider probe. It
// returns false with a zero time when no probe has run yet.
func ProviderHealthy() (bool, time.Time, string) {
	health.mutex.RLock()
	defer health.mutex.RUnlock()
	return health.healthy, health.lastChecked, health.lastError
}
