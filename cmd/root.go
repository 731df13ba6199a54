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
	"fmt"
	"os"

	"github.com/risk-pulse/rp-api/common"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// JWT signing secret
	viper.BindEnv("auth.secret", "RP_SECRET")
	rootCmd.PersistentFlags().String("secret", "", "JWT signing secret")
	viper.BindPFlag("auth.secret", rootCmd.PersistentFlags().Lookup("secret"))

	// Database
	viper.BindEnv("database.url", "DATABASE_URL")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	viper.BindPFlag("database.url", rootCmd.PersistentFlags().Lookup("database-url"))

	// Market data provider
	viper.BindEnv("tiingo.token", "TIINGO_TOKEN")
	rootCmd.PersistentFlags().String("tiingo-token", "", "Tiingo API token")
	viper.BindPFlag("tiingo.token", rootCmd.PersistentFlags().Lookup("tiingo-token"))

	// Risk engine
	viper.BindEnv("risk.benchmark", "RP_BENCHMARK")
	rootCmd.PersistentFlags().String("benchmark", "SPY", "Market benchmark ticker used for beta")
	viper.BindPFlag("risk.benchmark", rootCmd.PersistentFlags().Lookup("benchmark"))

	viper.BindEnv("risk.pool_size", "RP_POOL_SIZE")
	rootCmd.PersistentFlags().Int("pool-size", 0, "Worker pool size for blocking fetch/compute work (0 = NumCPU)")
	viper.BindPFlag("risk.pool_size", rootCmd.PersistentFlags().Lookup("pool-size"))

	// Logging configuration
	viper.BindEnv("log.level", "RP_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-level", "warning", "Logging level")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	viper.BindEnv("log.report_caller", "RP_LOG_REPORT_CALLER")
	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	viper.BindPFlag("log.report_caller", rootCmd.PersistentFlags().Lookup("log-report-caller"))

	viper.BindEnv("log.output", "RP_LOG_OUTPUT")
	rootCmd.PersistentFlags().String("log-output", "stdout", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	viper.BindPFlag("log.output", rootCmd.PersistentFlags().Lookup("log-output"))
}

var rootCmd = &cobra.Command{
	Use:     "rpapi",
	Version: common.CurrentVersion.String(),
	Short:   "RiskPulse portfolio risk analytics API",
	Long:    `RiskPulse computes historical Value-at-Risk, return volatility, and market beta for user portfolios over an HTTP API.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
