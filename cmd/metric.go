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
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/risk-pulse/rp-api/common"
	"github.com/risk-pulse/rp-api/data"
	"github.com/risk-pulse/rp-api/pool"
	"github.com/risk-pulse/rp-api/portfolio"
	"github.com/risk-pulse/rp-api/risk"
)

var (
	metricConfidence float64
	metricStartDate  string
	metricEndDate    string
)

func init() {
	metricCmd.Flags().Float64Var(&metricConfidence, "confidence", risk.DefaultConfidence, "VaR confidence level")
	metricCmd.Flags().StringVar(&metricStartDate, "start-date", "2020-01-01", "start of the historical window (YYYY-MM-DD)")
	metricCmd.Flags().StringVar(&metricEndDate, "end-date", "", "end of the historical window (YYYY-MM-DD); default today")

	rootCmd.AddCommand(metricCmd)
}

var metricCmd = &cobra.Command{
	Use:   "metric {var|volatility|beta} SYMBOL:WEIGHT [SYMBOL:WEIGHT ...]",
	Short: "calculate a risk metric for an ad-hoc portfolio (mostly useful for debugging)",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		common.SetupLogging()

		p := &portfolio.Portfolio{}
		for _, arg := range args[1:] {
			parts := strings.SplitN(arg, ":", 2)
			if len(parts) != 2 {
				log.Fatal().Str("Position", arg).Msg("positions must be SYMBOL:WEIGHT")
			}
			weight, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				log.Fatal().Err(err).Str("Position", arg).Msg("could not parse weight")
			}
			p.Positions = append(p.Positions, portfolio.Position{
				Symbol:     parts[0],
				Allocation: weight,
			})
		}

		begin, err := time.Parse("2006-01-02", metricStartDate)
		if err != nil {
			log.Fatal().Err(err).Msg("could not parse start date")
		}

		end := time.Now()
		if metricEndDate != "" {
			if end, err = time.Parse("2006-01-02", metricEndDate); err != nil {
				log.Fatal().Err(err).Msg("could not parse end date")
			}
		}

		provider := data.NewTiingo(viper.GetString("tiingo.token"))
		workers := pool.New(viper.GetInt("risk.pool_size"))
		defer workers.Close()
		engine := risk.NewEngine(provider, workers, viper.GetString("risk.benchmark"))

		var value float64
		switch args[0] {
		case "var":
			value, err = engine.HistoricalVaR(ctx, p, metricConfidence, begin, end)
		case "volatility":
			value, err = engine.DailyReturnVolatility(ctx, p, begin, end)
		case "beta":
			value, err = engine.Beta(ctx, p, begin, end)
		default:
			log.Fatal().Str("Metric", args[0]).Msg("unknown metric; expected var, volatility, or beta")
		}
		if err != nil {
			log.Fatal().Err(err).Str("Metric", args[0]).Msg("computation failed")
		}

		log.Info().Str("Metric", args[0]).Float64("Value", value).Send()
	},
}
