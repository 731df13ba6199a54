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

package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/risk-pulse/rp-api/data"
	"github.com/risk-pulse/rp-api/portfolio"
	"github.com/risk-pulse/rp-api/risk"
	"github.com/rs/zerolog/log"
)

// DefaultStartDate is the start of the historical window when the caller
// does not provide one
const DefaultStartDate = "2020-01-01"

type riskParams struct {
	confidence float64
	begin      time.Time
	end        time.Time
}

type riskResponse struct {
	PortfolioID string  `json:"portfolioId"`
	Metric      string  `json:"metric"`
	Value       float64 `json:"value"`
	Confidence  float64 `json:"confidence,omitempty"`
	StartDate   string  `json:"startDate"`
	EndDate     string  `json:"endDate"`
}

// HistoricalVaR computes historical Value-at-Risk for a saved portfolio
func HistoricalVaR(c *fiber.Ctx) error {
	params, err := parseRiskParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	portfolioID := c.Params("id")
	_, p, err := loadPortfolio(c, portfolioID, c.Locals("userID").(string))
	if err != nil {
		return portfolioError(err)
	}

	value, err := riskEngine.HistoricalVaR(c.Context(), p, params.confidence, params.begin, params.end)
	if err != nil {
		return riskError(c, err)
	}

	return c.JSON(riskResponse{
		PortfolioID: portfolioID,
		Metric:      "historicalVar",
		Value:       value,
		Confidence:  params.confidence,
		StartDate:   params.begin.Format("2006-01-02"),
		EndDate:     params.end.Format("2006-01-02"),
	})
}

// Volatility computes the sample standard deviation of daily portfolio
// returns for a saved portfolio
func Volatility(c *fiber.Ctx) error {
	params, err := parseRiskParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	portfolioID := c.Params("id")
	_, p, err := loadPortfolio(c, portfolioID, c.Locals("userID").(string))
	if err != nil {
		return portfolioError(err)
	}

	value, err := riskEngine.DailyReturnVolatility(c.Context(), p, params.begin, params.end)
	if err != nil {
		return riskError(c, err)
	}

	return c.JSON(riskResponse{
		PortfolioID: portfolioID,
		Metric:      "dailyReturnVolatility",
		Value:       value,
		StartDate:   params.begin.Format("2006-01-02"),
		EndDate:     params.end.Format("2006-01-02"),
	})
}

// Beta computes the portfolio's beta against the configured market
// benchmark
func Beta(c *fiber.Ctx) error {
	params, err := parseRiskParams(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	portfolioID := c.Params("id")
	_, p, err := loadPortfolio(c, portfolioID, c.Locals("userID").(string))
	if err != nil {
		return portfolioError(err)
	}

	value, err := riskEngine.Beta(c.Context(), p, params.begin, params.end)
	if err != nil {
		return riskError(c, err)
	}

	return c.JSON(riskResponse{
		PortfolioID: portfolioID,
		Metric:      "beta",
		Value:       value,
		StartDate:   params.begin.Format("2006-01-02"),
		EndDate:     params.end.Format("2006-01-02"),
	})
}

// parseRiskParams resolves the confidence / startDate / endDate query
// parameters and their documented defaults. The end date defaults to the
// current date at call time; the engine itself never consults a clock.
func parseRiskParams(c *fiber.Ctx) (riskParams, error) {
	params := riskParams{confidence: risk.DefaultConfidence}

	if confStr := c.Query("confidence"); confStr != "" {
		conf, err := strconv.ParseFloat(confStr, 64)
		if err != nil {
			return params, risk.ErrInvalidConfidence
		}
		params.confidence = conf
	}

	begin, err := time.Parse("2006-01-02", c.Query("startDate", DefaultStartDate))
	if err != nil {
		return params, err
	}
	params.begin = begin

	endStr := c.Query("endDate", time.Now().Format("2006-01-02"))
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return params, err
	}
	params.end = end

	return params, nil
}

// riskError maps engine failures onto HTTP statuses: invalid input 400,
// unavailable or insufficient data 502, undefined math 422
func riskError(c *fiber.Ctx, err error) error {
	log.Warn().Err(err).Str("Path", c.Path()).Msg("risk computation failed")

	switch {
	case errors.Is(err, risk.ErrInvalidConfidence),
		errors.Is(err, portfolio.ErrNoPositions),
		errors.Is(err, portfolio.ErrEmptySymbol),
		errors.Is(err, portfolio.ErrInvalidAllocation),
		errors.Is(err, data.ErrNoSymbols),
		errors.Is(err, data.ErrInvalidTimeRange):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, data.ErrDataUnavailable),
		errors.Is(err, risk.ErrInsufficientData):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, risk.ErrDegenerateSeries):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	return fiber.ErrInternalServerError
}
