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
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/risk-pulse/rp-api/common"
	"github.com/risk-pulse/rp-api/data"
	"github.com/rs/zerolog/log"
)

// Quote returns the live quote for a ticker. Quotes are cached with a
// short TTL; this is intraday data, not the historical price series the
// risk engine consumes.
func Quote(c *fiber.Ctx) error {
	symbol := strings.ToUpper(c.Params("symbol"))
	cacheKey := "quote:" + symbol

	if cached, err := common.CacheGet(cacheKey); err == nil {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(cached)
	}

	quote, err := dataProvider.Quote(c.Context(), symbol)
	if err != nil {
		log.Warn().Err(err).Str("Symbol", symbol).Msg("quote fetch failed")
		if errors.Is(err, data.ErrNoSymbols) {
			return fiber.ErrBadRequest
		}
		return fiber.ErrBadGateway
	}

	body, err := json.Marshal(quote)
	if err != nil {
		return fiber.ErrInternalServerError
	}

	if err := common.CacheSet(cacheKey, body); err != nil {
		log.Warn().Err(err).Str("Symbol", symbol).Msg("could not cache quote")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}
