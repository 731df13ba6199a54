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

package handler_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock"
	"github.com/risk-pulse/rp-api/data"
	"github.com/risk-pulse/rp-api/database"
	"github.com/risk-pulse/rp-api/dataframe"
	"github.com/risk-pulse/rp-api/handler"
	"github.com/risk-pulse/rp-api/pool"
	"github.com/risk-pulse/rp-api/risk"
)

// fixedProvider serves canned price series keyed by symbol
type fixedProvider struct {
	prices map[string][]float64
	dates  []time.Time
}

func (f *fixedProvider) FetchDailyCloses(_ context.Context, symbols []string, _ time.Time, _ time.Time) (*dataframe.DataFrame, error) {
	symbols = data.NormalizeSymbols(symbols)
	df := &dataframe.DataFrame{
		Dates:    f.dates,
		ColNames: symbols,
		Vals:     make([][]float64, len(symbols)),
	}
	for idx, symbol := range symbols {
		series, ok := f.prices[symbol]
		if !ok {
			return nil, fmt.Errorf("%w: no data for %s", data.ErrDataUnavailable, symbol)
		}
		df.Vals[idx] = series
	}
	return df, nil
}

func (f *fixedProvider) Quote(_ context.Context, symbol string) (*data.Quote, error) {
	return nil, fmt.Errorf("%w: no quote for %s", data.ErrDataUnavailable, symbol)
}

var _ = Describe("Risk handlers", func() {
	var (
		app         *fiber.App
		dbPool      pgxmock.PgxConnIface
		workers     *pool.Pool
		userID      string
		portfolioID string
	)

	expectPortfolio := func(positions string) {
		dbPool.ExpectQuery("SELECT name, positions FROM portfolios").
			WithArgs(portfolioID, userID).
			WillReturnRows(pgxmock.NewRows([]string{"name", "positions"}).
				AddRow("retirement", []byte(positions)))
	}

	BeforeEach(func() {
		var err error
		dbPool, err = pgxmock.NewConn()
		Expect(err).To(BeNil())
		database.SetPool(dbPool)

		dates := []time.Time{
			time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC),
			time.Date(2021, 1, 5, 0, 0, 0, 0, time.UTC),
			time.Date(2021, 1, 6, 0, 0, 0, 0, time.UTC),
			time.Date(2021, 1, 7, 0, 0, 0, 0, time.UTC),
		}
		provider := &fixedProvider{
			dates: dates,
			prices: map[string][]float64{
				"AAPL": {100, 100, 100, 100},
				"MSFT": {50, 55, 52.25, 57.475},
				"SPY":  {300, 300, 300, 300},
			},
		}

		workers = pool.New(2)
		handler.SetRiskEngine(risk.NewEngine(provider, workers, "SPY"))

		userID = uuid.New().String()
		portfolioID = uuid.New().String()

		withUser := func(c *fiber.Ctx) error {
			c.Locals("userID", userID)
			return c.Next()
		}

		app = fiber.New()
		app.Get("/portfolio/:id/var", withUser, handler.HistoricalVaR)
		app.Get("/portfolio/:id/volatility", withUser, handler.Volatility)
		app.Get("/portfolio/:id/beta", withUser, handler.Beta)
	})

	AfterEach(func() {
		workers.Close()
	})

	It("computes zero value at risk for a flat price series", func() {
		expectPortfolio(`[{"symbol": "AAPL", "allocation": 1.0}]`)

		resp, err := app.Test(httptest.NewRequest("GET",
			"/portfolio/"+portfolioID+"/var?startDate=2021-01-01&endDate=2021-01-31", nil), -1)
		Expect(err).To(BeNil())
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		body, err := io.ReadAll(resp.Body)
		Expect(err).To(BeNil())
		result := struct {
			PortfolioID string  `json:"portfolioId"`
			Metric      string  `json:"metric"`
			Value       float64 `json:"value"`
			Confidence  float64 `json:"confidence"`
		}{}
		Expect(json.Unmarshal(body, &result)).To(BeNil())
		Expect(result.PortfolioID).To(Equal(portfolioID))
		Expect(result.Metric).To(Equal("historicalVar"))
		Expect(result.Value).To(BeNumerically("==", 0))
		Expect(result.Confidence).To(Equal(0.95))
	})

	It("computes the sample volatility of daily returns", func() {
		expectPortfolio(`[{"symbol": "MSFT", "allocation": 1.0}]`)

		resp, err := app.Test(httptest.NewRequest("GET",
			"/portfolio/"+portfolioID+"/volatility?startDate=2021-01-01&endDate=2021-01-31", nil), -1)
		Expect(err).To(BeNil())
		Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

		body, err := io.ReadAll(resp.Body)
		Expect(err).To(BeNil())
		result := struct {
			Metric string  `json:"metric"`
			Value  float64 `json:"value"`
		}{}
		Expect(json.Unmarshal(body, &result)).To(BeNil())
		Expect(result.Metric).To(Equal("dailyReturnVolatility"))
		// returns are +10%, -5%, +10%; sample stddev of {0.1, -0.05, 0.1}
		Expect(result.Value).To(BeNumerically("~", 0.08660254037844387, 1e-12))
	})

	It("rejects a malformed confidence before touching anything", func() {
		resp, err := app.Test(httptest.NewRequest("GET",
			"/portfolio/"+portfolioID+"/var?confidence=abc", nil), -1)
		Expect(err).To(BeNil())
		Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
	})

	It("rejects an out of range confidence", func() {
		expectPortfolio(`[{"symbol": "AAPL", "allocation": 1.0}]`)

		resp, err := app.Test(httptest.NewRequest("GET",
			"/portfolio/"+portfolioID+"/var?confidence=1.5&startDate=2021-01-01&endDate=2021-01-31", nil), -1)
		Expect(err).To(BeNil())
		Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
	})

	It("maps unavailable market data to a bad gateway", func() {
		expectPortfolio(`[{"symbol": "ZZZZ", "allocation": 1.0}]`)

		resp, err := app.Test(httptest.NewRequest("GET",
			"/portfolio/"+portfolioID+"/var?startDate=2021-01-01&endDate=2021-01-31", nil), -1)
		Expect(err).To(BeNil())
		Expect(resp.StatusCode).To(Equal(fiber.StatusBadGateway))
	})

	It("maps a flat benchmark to an unprocessable entity", func() {
		expectPortfolio(`[{"symbol": "MSFT", "allocation": 1.0}]`)

		resp, err := app.Test(httptest.NewRequest("GET",
			"/portfolio/"+portfolioID+"/beta?startDate=2021-01-01&endDate=2021-01-31", nil), -1)
		Expect(err).To(BeNil())
		Expect(resp.StatusCode).To(Equal(fiber.StatusUnprocessableEntity))
	})

	It("returns 404 for an unknown portfolio", func() {
		dbPool.ExpectQuery("SELECT name, positions FROM portfolios").
			WithArgs(portfolioID, userID).
			WillReturnError(pgx.ErrNoRows)

		resp, err := app.Test(httptest.NewRequest("GET",
			"/portfolio/"+portfolioID+"/var?startDate=2021-01-01&endDate=2021-01-31", nil), -1)
		Expect(err).To(BeNil())
		Expect(resp.StatusCode).To(Equal(fiber.StatusNotFound))
	})

	It("returns 500 when the portfolio lookup fails", func() {
		dbPool.ExpectQuery("SELECT name, positions FROM portfolios").
			WithArgs(portfolioID, userID).
			WillReturnError(errors.New("connection refused"))

		resp, err := app.Test(httptest.NewRequest("GET",
			"/portfolio/"+portfolioID+"/var?startDate=2021-01-01&endDate=2021-01-31", nil), -1)
		Expect(err).To(BeNil())
		Expect(resp.StatusCode).To(Equal(fiber.StatusInternalServerError))
	})
})
