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

// Package risk computes point-estimate risk statistics for a portfolio of
// weighted ticker positions from historical daily close prices.
//
// All operations share the same pipeline: fetch closing prices, build
// date-aligned simple returns (rows survive only when every symbol has a
// defined return), aggregate per-symbol returns into a single portfolio
// return series by allocation weight, then compute the statistic.
package risk

import (
	"context"
	"math"
	"time"

	"github.com/risk-pulse/rp-api/data"
	"github.com/risk-pulse/rp-api/observability/opentelemetry"
	"github.com/risk-pulse/rp-api/pool"
	"github.com/risk-pulse/rp-api/portfolio"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultBenchmark is the market index beta is computed against when
	// no benchmark is configured
	DefaultBenchmark = "SPY"

	// DefaultConfidence is the VaR confidence level applied by callers
	// that do not specify one
	DefaultConfidence = 0.95
)

// Engine computes risk metrics. It holds no per-request state; a single
// engine serves concurrent requests, bounded only by its worker pool.
type Engine struct {
	provider  data.Provider
	workers   *pool.Pool
	benchmark string
}

// NewEngine creates a risk engine backed by the given market data provider
// and worker pool
func NewEngine(provider data.Provider, workers *pool.Pool, benchmark string) *Engine {
	if benchmark == "" {
		benchmark = DefaultBenchmark
	}
	return &Engine{
		provider:  provider,
		workers:   workers,
		benchmark: benchmark,
	}
}

// Benchmark returns the configured market benchmark ticker
func (e *Engine) Benchmark() string {
	return e.benchmark
}

// HistoricalVaR computes the historical Value-at-Risk of the portfolio at
// the given confidence level over [begin, end]. The result is a positive
// magnitude: the (1-confidence) quantile of the daily portfolio return
// distribution, negated.
func (e *Engine) HistoricalVaR(ctx context.Context, p *portfolio.Portfolio, confidence float64, begin time.Time, end time.Time) (float64, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "risk.HistoricalVaR")
	defer span.End()
	span.SetAttributes(attribute.Float64("Confidence", confidence))

	if math.IsNaN(confidence) || confidence <= 0 || confidence >= 1 {
		return 0, ErrInvalidConfidence
	}

	portReturns, _, err := e.portfolioReturns(ctx, p, begin, end, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not build portfolio returns")
		return 0, err
	}

	return -Quantile(portReturns, 1-confidence), nil
}

// DailyReturnVolatility computes the sample standard deviation of the
// portfolio's daily returns over [begin, end]. No annualization is
// applied; the unit is fractional daily return.
func (e *Engine) DailyReturnVolatility(ctx context.Context, p *portfolio.Portfolio, begin time.Time, end time.Time) (float64, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "risk.DailyReturnVolatility")
	defer span.End()

	portReturns, _, err := e.portfolioReturns(ctx, p, begin, end, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not build portfolio returns")
		return 0, err
	}

	return stat.StdDev(portReturns, nil), nil
}

// Beta computes the sensitivity of the portfolio's returns to the market
// benchmark: Cov(portfolio, benchmark) / Var(benchmark), with sample
// statistics over dates where every symbol and the benchmark have a
// defined return.
func (e *Engine) Beta(ctx context.Context, p *portfolio.Portfolio, begin time.Time, end time.Time) (float64, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "risk.Beta")
	defer span.End()

	portReturns, benchReturns, err := e.portfolioReturns(ctx, p, begin, end, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not build portfolio returns")
		return 0, err
	}

	benchVariance := stat.Variance(benchReturns, nil)
	if benchVariance == 0 || math.IsNaN(benchVariance) {
		return 0, ErrDegenerateSeries
	}

	covariance := stat.Covariance(portReturns, benchReturns, nil)
	return covariance / benchVariance, nil
}

// portfolioReturns runs the shared pipeline. The provider fetch and the
// aggregation both execute on the worker pool so the calling goroutine's
// concurrency domain is never blocked by network I/O. When withBenchmark
// is set, the benchmark ticker joins the download and its aligned return
// series is returned alongside the portfolio series.
func (e *Engine) portfolioReturns(ctx context.Context, p *portfolio.Portfolio, begin time.Time, end time.Time, withBenchmark bool) ([]float64, []float64, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}

	symbols := p.Symbols()
	if withBenchmark {
		found := false
		for _, symbol := range symbols {
			if symbol == e.benchmark {
				found = true
				break
			}
		}
		if !found {
			symbols = append(symbols, e.benchmark)
		}
	}

	var portReturns, benchReturns []float64
	err := e.workers.Do(ctx, func() error {
		prices, err := e.provider.FetchDailyCloses(ctx, symbols, begin, end)
		if err != nil {
			return err
		}

		// only dates where every symbol (and the benchmark, when
		// fetched) has a defined return survive
		returns := prices.PctChange().DropNA()
		if returns.Len() < 2 {
			log.Warn().Strs("Symbols", symbols).Int("Rows", returns.Len()).Msg("aligned return series too short")
			return ErrInsufficientData
		}
		log.Debug().
			Time("Start", returns.Start()).
			Time("End", returns.End()).
			Int("Rows", returns.Len()).
			Int("Columns", returns.ColCount()).
			Msg("built aligned return series")

		weights := p.ColumnWeights(returns.ColNames)
		portReturns, err = returns.Dot(weights)
		if err != nil {
			return err
		}

		if withBenchmark {
			benchReturns, err = returns.Col(e.benchmark)
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return portReturns, benchReturns, nil
}
