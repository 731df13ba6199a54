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
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/risk-pulse/rp-api/data"
	"github.com/risk-pulse/rp-api/database"
	"github.com/risk-pulse/rp-api/risk"
	"github.com/rs/zerolog/log"
)

var (
	riskEngine   *risk.Engine
	dataProvider data.Provider
)

// SetRiskEngine installs the engine used by the risk metric handlers
func SetRiskEngine(e *risk.Engine) {
	riskEngine = e
}

// SetProvider installs the market data provider used by the quote handler
func SetProvider(p data.Provider) {
	dataProvider = p
}

type PingResponse struct {
	Status  string `json:"status" example:"success"`
	Message string `json:"message" example:"API is alive"`
	Time    string `json:"time" example:"2022-06-19T08:09:10.115924-05:00"`
}

// Ping responds to a liveness check
func Ping(c *fiber.Ctx) error {
	now, err := time.Now().MarshalText()
	if err != nil {
		log.Error().Err(err).Msg("error while getting time in ping")
		return c.JSON(PingResponse{
			Status:  "error",
			Message: err.Error(),
		})
	}

	return c.JSON(PingResponse{
		Status:  "success",
		Message: "API is alive",
		Time:    string(now),
	})
}

// DBHealth reports database connectivity
func DBHealth(c *fiber.Ctx) error {
	if err := database.Pool().Ping(c.Context()); err != nil {
		log.Warn().Err(err).Msg("database health check failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "error",
			"database": "not reachable",
		})
	}

	return c.JSON(fiber.Map{
		"status":   "ok",
		"database": "connected",
	})
}

// Health reports database connectivity plus the most recent data provider
// probe result
func Health(c *fiber.Ctx) error {
	status := fiber.StatusOK
	dbStatus := "connected"
	if err := database.Pool().Ping(c.Context()); err != nil {
		dbStatus = "not reachable"
		status = fiber.StatusServiceUnavailable
	}

	providerStatus := "ok"
	healthy, lastChecked, lastErr := data.ProviderHealthy()
	switch {
	case lastChecked.IsZero():
		providerStatus = "unknown"
	case !healthy:
		providerStatus = lastErr
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"database":            dbStatus,
		"dataProvider":        providerStatus,
		"dataProviderChecked": lastChecked,
	})
}
