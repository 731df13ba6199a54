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

package risk_test

import (
	"context"
	"fmt"
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/risk-pulse/rp-api/data"
	"github.com/risk-pulse/rp-api/dataframe"
	"github.com/risk-pulse/rp-api/pool"
	"github.com/risk-pulse/rp-api/portfolio"
	"github.com/risk-pulse/rp-api/risk"
)

// stubProvider serves fixed close price series from memory
type stubProvider struct {
	prices map[string][]float64
}

func (s *stubProvider) FetchDailyCloses(_ context.Context, symbols []string, _ time.Time, _ time.Time) (*dataframe.DataFrame, error) {
	symbols = data.NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		return nil, data.ErrNoSymbols
	}

	nRows := 0
	df := &dataframe.DataFrame{
		ColNames: symbols,
		Vals:     make([][]float64, len(symbols)),
	}
	for colIdx, symbol := range symbols {
		series, ok := s.prices[symbol]
		if !ok {
			return nil, fmt.Errorf("%w: no data for %s", data.ErrDataUnavailable, symbol)
		}
		df.Vals[colIdx] = series
		if len(series) > nRows {
			nRows = len(series)
		}
	}

	dates := make([]time.Time, nRows)
	dt := time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
	for idx := range dates {
		dates[idx] = dt
		dt = dt.AddDate(0, 0, 1)
	}
	df.Dates = dates

	return df, nil
}

func (s *stubProvider) Quote(_ context.Context, symbol string) (*data.Quote, error) {
	return nil, fmt.Errorf("%w: no quote for %s", data.ErrDataUnavailable, symbol)
}

var _ = Describe("Engine", func() {
	var (
		ctx     context.Context
		workers *pool.Pool
		begin   time.Time
		end     time.Time
	)

	newEngine := func(prices map[string][]float64) *risk.Engine {
		return risk.NewEngine(&stubProvider{prices: prices}, workers, "SPY")
	}

	BeforeEach(func() {
		ctx = context.Background()
		workers = pool.New(2)
		begin = time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)
		end = time.Date(2022, 12, 30, 0, 0, 0, 0, time.UTC)
	})

	AfterEach(func() {
		workers.Close()
	})

	Context("with a constant price series", func() {
		var engine *risk.Engine
		var p *portfolio.Portfolio

		BeforeEach(func() {
			engine = newEngine(map[string][]float64{
				"AAPL": {100, 100, 100, 100, 100},
				"MSFT": {50, 50, 50, 50, 50},
			})
			p = &portfolio.Portfolio{Positions: []portfolio.Position{
				{Symbol: "AAPL", Allocation: 0.6},
				{Symbol: "MSFT", Allocation: 0.4},
			}}
		})

		It("computes zero VaR", func() {
			value, err := engine.HistoricalVaR(ctx, p, 0.95, begin, end)
			Expect(err).To(BeNil())
			Expect(value).To(BeNumerically("==", 0))
		})

		It("computes zero volatility", func() {
			value, err := engine.DailyReturnVolatility(ctx, p, begin, end)
			Expect(err).To(BeNil())
			Expect(value).To(BeNumerically("==", 0))
		})
	})

	Context("with a single-symbol synthetic return series", func() {
		var engine *risk.Engine
		var p *portfolio.Portfolio

		BeforeEach(func() {
			// prices generating returns -0.05, -0.02, 0.01, 0.03, 0.07
			prices := make([]float64, 6)
			prices[0] = 100
			returns := []float64{-0.05, -0.02, 0.01, 0.03, 0.07}
			for idx, r := range returns {
				prices[idx+1] = prices[idx] * (1 + r)
			}
			engine = newEngine(map[string][]float64{"AAPL": prices})
			p = &portfolio.Portfolio{Positions: []portfolio.Position{
				{Symbol: "AAPL", Allocation: 1.0},
			}}
		})

		It("negates the loss-tail quantile", func() {
			value, err := engine.HistoricalVaR(ctx, p, 0.95, begin, end)
			Expect(err).To(BeNil())
			// -quantile([-0.05,-0.02,0.01,0.03,0.07], 0.05) = 0.044
			Expect(value).To(BeNumerically("~", 0.044, 1e-12))
		})

		It("does not decrease VaR when confidence increases", func() {
			var95, err := engine.HistoricalVaR(ctx, p, 0.95, begin, end)
			Expect(err).To(BeNil())
			var99, err := engine.HistoricalVaR(ctx, p, 0.99, begin, end)
			Expect(err).To(BeNil())
			Expect(var99).To(BeNumerically(">=", var95))
		})

		It("rejects a confidence level outside (0,1)", func() {
			for _, conf := range []float64{0, 1, -0.5, 1.5, math.NaN()} {
				_, err := engine.HistoricalVaR(ctx, p, conf, begin, end)
				Expect(err).To(MatchError(risk.ErrInvalidConfidence))
			}
		})
	})

	Context("with the AAPL/MSFT three-day scenario", func() {
		var engine *risk.Engine
		var p *portfolio.Portfolio

		BeforeEach(func() {
			engine = newEngine(map[string][]float64{
				"AAPL": {100, 110, 105},
				"MSFT": {200, 202, 204},
			})
			p = &portfolio.Portfolio{Positions: []portfolio.Position{
				{Symbol: "AAPL", Allocation: 0.6},
				{Symbol: "MSFT", Allocation: 0.4},
			}}
		})

		It("matches the hand-computed sample standard deviation", func() {
			r1 := 0.6*(110.0/100.0-1) + 0.4*(202.0/200.0-1)
			r2 := 0.6*(105.0/110.0-1) + 0.4*(204.0/202.0-1)
			mean := (r1 + r2) / 2
			expected := math.Sqrt((r1-mean)*(r1-mean) + (r2-mean)*(r2-mean)) // n-1 = 1

			value, err := engine.DailyReturnVolatility(ctx, p, begin, end)
			Expect(err).To(BeNil())
			Expect(value).To(BeNumerically("~", expected, 1e-12))
		})

		It("is invariant under position reordering", func() {
			reversed := &portfolio.Portfolio{Positions: []portfolio.Position{
				{Symbol: "MSFT", Allocation: 0.4},
				{Symbol: "AAPL", Allocation: 0.6},
			}}

			v1, err := engine.DailyReturnVolatility(ctx, p, begin, end)
			Expect(err).To(BeNil())
			v2, err := engine.DailyReturnVolatility(ctx, reversed, begin, end)
			Expect(err).To(BeNil())
			Expect(v2).To(BeNumerically("~", v1, 1e-15))

			var1, err := engine.HistoricalVaR(ctx, p, 0.95, begin, end)
			Expect(err).To(BeNil())
			var2, err := engine.HistoricalVaR(ctx, reversed, 0.95, begin, end)
			Expect(err).To(BeNil())
			Expect(var2).To(BeNumerically("~", var1, 1e-15))
		})

		It("treats a split position the same as its summed weight", func() {
			split := &portfolio.Portfolio{Positions: []portfolio.Position{
				{Symbol: "AAPL", Allocation: 0.3},
				{Symbol: "AAPL", Allocation: 0.3},
				{Symbol: "MSFT", Allocation: 0.4},
			}}

			v1, err := engine.DailyReturnVolatility(ctx, p, begin, end)
			Expect(err).To(BeNil())
			v2, err := engine.DailyReturnVolatility(ctx, split, begin, end)
			Expect(err).To(BeNil())
			Expect(v2).To(BeNumerically("~", v1, 1e-12))
		})
	})

	Context("beta", func() {
		var engine *risk.Engine

		BeforeEach(func() {
			engine = newEngine(map[string][]float64{
				"SPY":  {400, 404, 396, 412, 408},
				"AAPL": {100, 102, 97, 105, 104},
			})
		})

		It("is 1.0 for the benchmark against itself", func() {
			p := &portfolio.Portfolio{Positions: []portfolio.Position{
				{Symbol: "SPY", Allocation: 1.0},
			}}
			value, err := engine.Beta(ctx, p, begin, end)
			Expect(err).To(BeNil())
			Expect(value).To(BeNumerically("~", 1.0, 1e-12))
		})

		It("scales linearly with leverage on the benchmark", func() {
			p := &portfolio.Portfolio{Positions: []portfolio.Position{
				{Symbol: "SPY", Allocation: 2.0},
			}}
			value, err := engine.Beta(ctx, p, begin, end)
			Expect(err).To(BeNil())
			Expect(value).To(BeNumerically("~", 2.0, 1e-12))
		})

		It("is invariant under position reordering", func() {
			p := &portfolio.Portfolio{Positions: []portfolio.Position{
				{Symbol: "AAPL", Allocation: 0.7},
				{Symbol: "SPY", Allocation: 0.3},
			}}
			reversed := &portfolio.Portfolio{Positions: []portfolio.Position{
				{Symbol: "SPY", Allocation: 0.3},
				{Symbol: "AAPL", Allocation: 0.7},
			}}

			v1, err := engine.Beta(ctx, p, begin, end)
			Expect(err).To(BeNil())
			v2, err := engine.Beta(ctx, reversed, begin, end)
			Expect(err).To(BeNil())
			Expect(v2).To(BeNumerically("~", v1, 1e-15))
		})

		It("reports degenerate math when the benchmark does not move", func() {
			flat := newEngine(map[string][]float64{
				"SPY":  {400, 400, 400, 400},
				"AAPL": {100, 102, 97, 105},
			})
			p := &portfolio.Portfolio{Positions: []portfolio.Position{
				{Symbol: "AAPL", Allocation: 1.0},
			}}
			_, err := flat.Beta(ctx, p, begin, end)
			Expect(err).To(MatchError(risk.ErrDegenerateSeries))
		})
	})

	Context("error conditions", func() {
		It("rejects an empty portfolio before any fetch", func() {
			engine := newEngine(map[string][]float64{})
			p := &portfolio.Portfolio{}

			_, err := engine.HistoricalVaR(ctx, p, 0.95, begin, end)
			Expect(err).To(MatchError(portfolio.ErrNoPositions))
			_, err = engine.DailyReturnVolatility(ctx, p, begin, end)
			Expect(err).To(MatchError(portfolio.ErrNoPositions))
			_, err = engine.Beta(ctx, p, begin, end)
			Expect(err).To(MatchError(portfolio.ErrNoPositions))
		})

		It("fails with insufficient data when fewer than 2 aligned returns exist", func() {
			engine := newEngine(map[string][]float64{
				"AAPL": {100, 105},
				"SPY":  {400, 404},
			})
			p := &portfolio.Portfolio{Positions: []portfolio.Position{
				{Symbol: "AAPL", Allocation: 1.0},
			}}

			_, err := engine.HistoricalVaR(ctx, p, 0.95, begin, end)
			Expect(err).To(MatchError(risk.ErrInsufficientData))
			_, err = engine.DailyReturnVolatility(ctx, p, begin, end)
			Expect(err).To(MatchError(risk.ErrInsufficientData))
			_, err = engine.Beta(ctx, p, begin, end)
			Expect(err).To(MatchError(risk.ErrInsufficientData))
		})

		It("propagates provider failures", func() {
			engine := newEngine(map[string][]float64{})
			p := &portfolio.Portfolio{Positions: []portfolio.Position{
				{Symbol: "AAPL", Allocation: 1.0},
			}}

			_, err := engine.DailyReturnVolatility(ctx, p, begin, end)
			Expect(err).To(MatchError(data.ErrDataUnavailable))
		})

		It("uppercases symbols before lookup", func() {
			engine := newEngine(map[string][]float64{
				"AAPL": {100, 110, 105, 108},
			})
			p := &portfolio.Portfolio{Positions: []portfolio.Position{
				{Symbol: "aapl", Allocation: 1.0},
			}}

			_, err := engine.DailyReturnVolatility(ctx, p, begin, end)
			Expect(err).To(BeNil())
		})
	})
})
