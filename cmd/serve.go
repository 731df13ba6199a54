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

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/risk-pulse/rp-api/common"
	"github.com/risk-pulse/rp-api/data"
	"github.com/risk-pulse/rp-api/database"
	"github.com/risk-pulse/rp-api/handler"
	"github.com/risk-pulse/rp-api/middleware"
	"github.com/risk-pulse/rp-api/observability/opentelemetry"
	"github.com/risk-pulse/rp-api/pool"
	"github.com/risk-pulse/rp-api/risk"
	"github.com/risk-pulse/rp-api/router"
)

func init() {
	viper.BindEnv("server.port", "PORT")
	serveCmd.Flags().IntP("port", "p", 3000, "Port to run application server on")
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the rp-api server",
	Long:  `Run HTTP server that implements the RiskPulse API`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		common.SetupLogging()
		common.SetupCache()
		log.Info().Msg("initialized logging")

		otelShutdown, err := opentelemetry.Setup()
		if err != nil {
			log.Warn().Err(err).Msg("could not setup opentelemetry")
		}

		// setup database
		if err := database.Connect(ctx); err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}

		// initialize data framework and risk engine
		provider := data.NewTiingo(viper.GetString("tiingo.token"))
		workers := pool.New(viper.GetInt("risk.pool_size"))
		engine := risk.NewEngine(provider, workers, viper.GetString("risk.benchmark"))

		handler.SetProvider(provider)
		handler.SetRiskEngine(engine)
		log.Info().Str("Benchmark", engine.Benchmark()).Msg("initialized risk engine")

		// Create new Fiber instance
		app := fiber.New()

		// shutdown cleanly on interrupt
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		go func() {
			sig := <-c // block until signal is read
			fmt.Printf("Received signal: '%s'; shutting down...\n", sig.String())
			workers.Close()
			if otelShutdown != nil {
				if err := otelShutdown(ctx); err != nil {
					log.Error().Err(err).Msg("otel shutdown failed")
				}
			}
			if err := app.Shutdown(); err != nil {
				log.Fatal().Err(err).Msg("app shutdown failed")
			}
		}()

		// Configure CORS
		corsConfig := cors.Config{
			AllowOrigins: "http://localhost:8080",
			AllowHeaders: "*",
			AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		}
		app.Use(cors.New(corsConfig))

		// Setup logging middleware
		app.Use(middleware.NewLogger())

		// Setup routes
		router.SetupRoutes(app)

		// Periodically probe the data provider; result feeds /health
		tz, _ := time.LoadLocation("America/New_York") // New York is the reference time
		scheduler := gocron.NewScheduler(tz)
		scheduler.Every(1).Hours().Do(func() {
			data.CheckProvider(ctx, provider, engine.Benchmark())
		})
		scheduler.StartAsync()

		// Start server
		if err := app.Listen(fmt.Sprintf(":%d", viper.GetInt("server.port"))); err != nil {
			log.Fatal().Err(err).Msg("server exited")
		}
	},
}
