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

package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/risk-pulse/rp-api/handler"
	"github.com/risk-pulse/rp-api/middleware"
)

// SetupRoutes setup router api
func SetupRoutes(app *fiber.App) {
	app.Get("/", handler.Ping)
	app.Get("/health", handler.Health)
	app.Get("/health/db", handler.DBHealth)

	// User registration and login
	user := app.Group("/user")
	user.Post("/signup", handler.Signup)
	user.Post("/login", handler.Login)

	// User management
	users := app.Group("/users", middleware.Auth())
	users.Get("/:id", handler.GetUser)
	users.Put("/:id", handler.UpdateUser)
	users.Delete("/:id", handler.DeleteUser)

	// Portfolio CRUD and risk metrics
	portfolio := app.Group("/portfolio", middleware.Auth())
	portfolio.Post("/", handler.CreatePortfolio)
	portfolio.Get("/:id", handler.GetPortfolio)
	portfolio.Put("/:id", handler.UpdatePortfolio)
	portfolio.Delete("/:id", handler.DeletePortfolio)
	portfolio.Get("/:id/var", handler.HistoricalVaR)
	portfolio.Get("/:id/volatility", handler.Volatility)
	portfolio.Get("/:id/beta", handler.Beta)

	// Market data
	market := app.Group("/market")
	market.Get("/quote/:symbol", handler.Quote)
}
