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
	"strings"
	"time"

	"github.com/risk-pulse/rp-api/dataframe"
)

// Quote is the live price subset exposed to clients
type Quote struct {
	Symbol        string  `json:"symbol"`
	CurrentPrice  float64 `json:"currentPrice"`
	PreviousClose float64 `json:"previousClose"`
	Open          float64 `json:"open"`
	DayHigh       float64 `json:"dayHigh"`
	DayLow        float64 `json:"dayLow"`
}

// Provider retrieves market data from an external source. FetchDailyCloses
// is a blocking network call; callers are expected to run it through the
// worker pool rather than inline on a request handler.
type Provider interface {
	// FetchDailyCloses returns one column-keyed table of daily closing
	// prices over [begin, end], one column per requested symbol and one
	// row per trading date. The shape is uniform regardless of how many
	// symbols are requested. Dates missing for a symbol are NaN.
	FetchDailyCloses(ctx context.Context, symbols []string, begin time.Time, end time.Time) (*dataframe.DataFrame, error)

	// Quote returns the latest intraday quote for a single symbol
	Quote(ctx context.Context, symbol string) (*Quote, error)
}

// NormalizeSymbols uppercases tickers and removes duplicates while keeping
// first-occurrence order
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	res := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		ticker := strings.ToUpper(strings.TrimSpace(symbol))
		if ticker == "" || seen[ticker] {
			continue
		}
		seen[ticker] = true
		res = append(res, ticker)
	}
	return res
}
