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
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/risk-pulse/rp-api/dataframe"
	"github.com/risk-pulse/rp-api/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type tiingo struct {
	apikey string
	client *http.Client
}

type tiingoEODResponse struct {
	Date        string  `json:"date"`
	Close       float64 `json:"close"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Open        float64 `json:"open"`
	Volume      int64   `json:"volume"`
	AdjClose    float64 `json:"adjClose"`
	DivCash     float64 `json:"divCash"`
	SplitFactor float64 `json:"splitFactor"`
}

type tiingoIEXResponse struct {
	Ticker    string  `json:"ticker"`
	TngoLast  float64 `json:"tngoLast"`
	PrevClose float64 `json:"prevClose"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
}

var tiingoAPI = "https://api.tiingo.com"

// NewTiingo creates a new Tiingo data provider
func NewTiingo(key string) Provider {
	return &tiingo{
		apikey: key,
		client: http.DefaultClient,
	}
}

// FetchDailyCloses downloads adjusted closing prices for each symbol and
// merges them into a single column-keyed dataframe over the union of
// trading dates. Dates missing for a symbol are filled with NaN so the
// return builder can intersect valid rows downstream.
func (t *tiingo) FetchDailyCloses(ctx context.Context, symbols []string, begin time.Time, end time.Time) (*dataframe.DataFrame, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "tiingo.FetchDailyCloses")
	defer span.End()

	symbols = NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}
	if begin.After(end) {
		return nil, ErrInvalidTimeRange
	}

	span.SetAttributes(
		attribute.StringSlice("Symbols", symbols),
		attribute.String("Begin", begin.Format("2006-01-02")),
		attribute.String("End", end.Format("2006-01-02")),
	)

	series := make(map[string]map[time.Time]float64, len(symbols))
	dateSet := make(map[time.Time]bool)

	for _, symbol := range symbols {
		closes, err := t.fetchSymbol(ctx, symbol, begin, end)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "fetch failed")
			return nil, err
		}
		series[symbol] = closes
		for dt := range closes {
			dateSet[dt] = true
		}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for dt := range dateSet {
		dates = append(dates, dt)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	df := &dataframe.DataFrame{
		Dates:    dates,
		ColNames: symbols,
		Vals:     make([][]float64, len(symbols)),
	}

	for colIdx, symbol := range symbols {
		col := make([]float64, len(dates))
		for rowIdx, dt := range dates {
			if price, ok := series[symbol][dt]; ok {
				col[rowIdx] = price
			} else {
				col[rowIdx] = math.NaN()
			}
		}
		df.Vals[colIdx] = col
	}

	return df, nil
}

// Quote returns the latest IEX quote for a single symbol
func (t *tiingo) Quote(ctx context.Context, symbol string) (*Quote, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "tiingo.Quote")
	defer span.End()

	symbols := NormalizeSymbols([]string{symbol})
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}
	symbol = symbols[0]

	subLog := log.With().Str("Symbol", symbol).Logger()
	url := fmt.Sprintf("%s/iex/%s?token=%s", tiingoAPI, symbol, t.apikey)

	body, err := t.get(ctx, url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tiingo http request failed")
		subLog.Error().Err(err).Msg("tiingo quote request failed")
		return nil, fmt.Errorf("%w: %s", ErrDataUnavailable, err)
	}

	jsonResp := []tiingoIEXResponse{}
	if err := json.Unmarshal(body, &jsonResp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not unmarshal json")
		subLog.Error().Err(err).Bytes("Body", body).Msg("could not unmarshal json")
		return nil, fmt.Errorf("%w: %s", ErrDataUnavailable, err)
	}

	if len(jsonResp) == 0 {
		subLog.Warn().Msg("tiingo returned no quote")
		return nil, fmt.Errorf("%w: no quote for %s", ErrDataUnavailable, symbol)
	}

	q := jsonResp[0]
	return &Quote{
		Symbol:        symbol,
		CurrentPrice:  q.TngoLast,
		PreviousClose: q.PrevClose,
		Open:          q.Open,
		DayHigh:       q.High,
		DayLow:        q.Low,
	}, nil
}

func (t *tiingo) fetchSymbol(ctx context.Context, symbol string, begin time.Time, end time.Time) (map[time.Time]float64, error) {
	subLog := log.With().Str("Symbol", symbol).Time("Begin", begin).Time("End", end).Logger()

	url := fmt.Sprintf("%s/tiingo/daily/%s/prices?startDate=%s&endDate=%s&token=%s",
		tiingoAPI, symbol, begin.Format("2006-01-02"), end.Format("2006-01-02"), t.apikey)

	body, err := t.get(ctx, url)
	if err != nil {
		subLog.Error().Err(err).Msg("tiingo eod request failed")
		return nil, fmt.Errorf("%w: %s", ErrDataUnavailable, err)
	}

	jsonResp := []tiingoEODResponse{}
	if err := json.Unmarshal(body, &jsonResp); err != nil {
		subLog.Error().Err(err).Bytes("Body", body).Msg("could not unmarshal json")
		return nil, fmt.Errorf("%w: %s", ErrDataUnavailable, err)
	}

	if len(jsonResp) == 0 {
		subLog.Warn().Msg("tiingo returned no eod data")
		return nil, fmt.Errorf("%w: no data for %s", ErrDataUnavailable, symbol)
	}

	closes := make(map[time.Time]float64, len(jsonResp))
	for _, row := range jsonResp {
		dt, err := time.Parse(time.RFC3339, row.Date)
		if err != nil {
			subLog.Error().Err(err).Str("Date", row.Date).Msg("could not parse date")
			return nil, fmt.Errorf("%w: %s", ErrDataUnavailable, err)
		}
		day := time.Date(dt.Year(), dt.Month(), dt.Day(), 0, 0, 0, 0, time.UTC)
		closes[day] = row.AdjClose
	}

	return closes, nil
}

func (t *tiingo) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP request returned invalid status code: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
