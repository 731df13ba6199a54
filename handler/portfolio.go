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

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/risk-pulse/rp-api/database"
	"github.com/risk-pulse/rp-api/portfolio"
	"github.com/rs/zerolog/log"
)

type portfolioRequest struct {
	Name      string               `json:"name"`
	Positions []portfolio.Position `json:"positions"`
}

type portfolioResponse struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Positions []portfolio.Position `json:"positions"`
}

// CreatePortfolio saves a new portfolio for the logged in user and returns
// its ID
func CreatePortfolio(c *fiber.Ctx) error {
	userID := c.Locals("userID").(string)

	params := portfolioRequest{}
	if err := json.Unmarshal(c.Body(), &params); err != nil {
		log.Warn().Err(err).Msg("create portfolio bad request")
		return fiber.ErrBadRequest
	}

	p := portfolio.Portfolio{Positions: params.Positions}
	if err := p.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	positionsJSON, err := json.Marshal(params.Positions)
	if err != nil {
		log.Error().Err(err).Msg("could not marshal positions")
		return fiber.ErrInternalServerError
	}

	portfolioID := uuid.New()
	insertSQL := `INSERT INTO portfolios ("id", "userid", "name", "positions") VALUES ($1, $2, $3, $4)`
	if _, err := database.Pool().Exec(c.Context(), insertSQL, portfolioID, userID, params.Name, positionsJSON); err != nil {
		log.Error().Err(err).Str("UserID", userID).Msg("could not create portfolio")
		return fiber.ErrBadRequest
	}

	return c.Status(fiber.StatusCreated).JSON(portfolioID.String())
}

// GetPortfolio retrieves a saved portfolio by its ID
func GetPortfolio(c *fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	portfolioID := c.Params("id")

	resp, _, err := loadPortfolio(c, portfolioID, userID)
	if err != nil {
		return portfolioError(err)
	}

	return c.JSON(resp)
}

// UpdatePortfolio replaces the name and positions of a saved portfolio
func UpdatePortfolio(c *fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	portfolioID := c.Params("id")

	params := portfolioRequest{}
	if err := json.Unmarshal(c.Body(), &params); err != nil {
		log.Warn().Err(err).Str("PortfolioID", portfolioID).Msg("update portfolio bad request")
		return fiber.ErrBadRequest
	}

	p := portfolio.Portfolio{Positions: params.Positions}
	if err := p.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	positionsJSON, err := json.Marshal(params.Positions)
	if err != nil {
		log.Error().Err(err).Msg("could not marshal positions")
		return fiber.ErrInternalServerError
	}

	updateSQL := `UPDATE portfolios SET name=$1, positions=$2, lastchanged=now() WHERE id=$3 AND userid=$4`
	tag, err := database.Pool().Exec(c.Context(), updateSQL, params.Name, positionsJSON, portfolioID, userID)
	if err != nil {
		log.Error().Err(err).Str("PortfolioID", portfolioID).Msg("could not update portfolio")
		return fiber.ErrInternalServerError
	}
	if tag.RowsAffected() == 0 {
		return fiber.ErrNotFound
	}

	return c.JSON(portfolioResponse{
		ID:        portfolioID,
		Name:      params.Name,
		Positions: params.Positions,
	})
}

// DeletePortfolio removes a portfolio by its ID. Returns true when exactly
// one portfolio was removed.
func DeletePortfolio(c *fiber.Ctx) error {
	userID := c.Locals("userID").(string)
	portfolioID := c.Params("id")

	deleteSQL := `DELETE FROM portfolios WHERE id=$1 AND userid=$2`
	tag, err := database.Pool().Exec(c.Context(), deleteSQL, portfolioID, userID)
	if err != nil {
		log.Error().Err(err).Str("PortfolioID", portfolioID).Msg("could not delete portfolio")
		return fiber.ErrInternalServerError
	}

	return c.JSON(tag.RowsAffected() == 1)
}

// portfolioError maps a loadPortfolio failure onto an HTTP status: a
// missing or foreign portfolio is 404, anything else is a server fault
func portfolioError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fiber.ErrNotFound
	}
	return fiber.ErrInternalServerError
}

// loadPortfolio fetches a portfolio owned by userID and unmarshals its
// positions
func loadPortfolio(c *fiber.Ctx, portfolioID string, userID string) (*portfolioResponse, *portfolio.Portfolio, error) {
	var name string
	var positionsJSON []byte

	portfolioSQL := `SELECT name, positions FROM portfolios WHERE id=$1 AND userid=$2`
	if err := database.Pool().QueryRow(c.Context(), portfolioSQL, portfolioID, userID).Scan(&name, &positionsJSON); err != nil {
		log.Warn().Err(err).Str("PortfolioID", portfolioID).Msg("portfolio not found")
		return nil, nil, err
	}

	positions := []portfolio.Position{}
	if err := json.Unmarshal(positionsJSON, &positions); err != nil {
		log.Error().Err(err).Str("PortfolioID", portfolioID).Msg("could not unmarshal positions")
		return nil, nil, err
	}

	resp := &portfolioResponse{
		ID:        portfolioID,
		Name:      name,
		Positions: positions,
	}
	return resp, &portfolio.Portfolio{Positions: positions}, nil
}
