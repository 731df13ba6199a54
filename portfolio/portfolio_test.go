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

package portfolio_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/risk-pulse/rp-api/portfolio"
)

var _ = Describe("Portfolio", func() {
	Describe("Validate", func() {
		It("rejects an empty portfolio", func() {
			p := &portfolio.Portfolio{}
			Expect(p.Validate()).To(MatchError(portfolio.ErrNoPositions))
		})

		It("rejects a blank symbol", func() {
			p := &portfolio.Portfolio{Positions: []portfolio.Position{
				{Symbol: "  ", Allocation: 1.0},
			}}
			Expect(p.Validate()).To(MatchError(portfolio.ErrEmptySymbol))
		})

		It("rejects non-finite allocations", func() {
			for _, weight := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
				p := &portfolio.Portfolio{Positions: []portfolio.Position{
					{Symbol: "AAPL", Allocation: weight},
				}}
				Expect(p.Validate()).To(MatchError(portfolio.ErrInvalidAllocation))
			}
		})

		It("accepts weights that do not sum to 1", func() {
			p := &portfolio.Portfolio{Positions: []portfolio.Position{
				{Symbol: "AAPL", Allocation: 2.5},
				{Symbol: "MSFT", Allocation: -0.5},
			}}
			Expect(p.Validate()).To(BeNil())
		})
	})

	Describe("Symbols", func() {
		It("uppercases and de-duplicates preserving order", func() {
			p := &portfolio.Portfolio{Positions: []portfolio.Position{
				{Symbol: "msft", Allocation: 0.25},
				{Symbol: "AAPL", Allocation: 0.5},
				{Symbol: "MSFT", Allocation: 0.25},
			}}
			Expect(p.Symbols()).To(Equal([]string{"MSFT", "AAPL"}))
		})
	})

	Describe("ColumnWeights", func() {
		It("folds duplicate positions into the shared column", func() {
			p := &portfolio.Portfolio{Positions: []portfolio.Position{
				{Symbol: "AAPL", Allocation: 0.3},
				{Symbol: "aapl", Allocation: 0.3},
				{Symbol: "MSFT", Allocation: 0.4},
			}}
			Expect(p.ColumnWeights([]string{"AAPL", "MSFT"})).To(Equal([]float64{0.6, 0.4}))
		})

		It("leaves unrelated columns at zero weight", func() {
			p := &portfolio.Portfolio{Positions: []portfolio.Position{
				{Symbol: "AAPL", Allocation: 1.0},
			}}
			Expect(p.ColumnWeights([]string{"AAPL", "SPY"})).To(Equal([]float64{1.0, 0}))
		})
	})
})
