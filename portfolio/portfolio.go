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

package portfolio

import (
	"errors"
	"math"
	"strings"
)

var (
	ErrNoPositions       = errors.New("portfolio has no positions")
	ErrEmptySymbol       = errors.New("position symbol may not be empty")
	ErrInvalidAllocation = errors.New("position allocation must be finite")
)

// Position is a single weighted holding. Allocation is the fractional
// contribution of the position to portfolio returns; weights are used
// verbatim and are not required to sum to 1.
type Position struct {
	Symbol     string  `json:"symbol"`
	Allocation float64 `json:"allocation"`
}

// Portfolio is an ordered sequence of positions. Symbols may repeat; each
// occurrence contributes its own weighted term.
type Portfolio struct {
	Positions []Position `json:"positions"`
}

// Validate checks the portfolio once at the boundary: at least one
// position, no empty symbols, finite allocations.
func (p *Portfolio) Validate() error {
	if len(p.Positions) == 0 {
		return ErrNoPositions
	}

	for _, pos := range p.Positions {
		if strings.TrimSpace(pos.Symbol) == "" {
			return ErrEmptySymbol
		}
		if math.IsNaN(pos.Allocation) || math.IsInf(pos.Allocation, 0) {
			return ErrInvalidAllocation
		}
	}

	return nil
}

// Symbols returns the uppercased ticker of every position, de-duplicated
// and in first-occurrence order.
func (p *Portfolio) Symbols() []string {
	seen := make(map[string]bool, len(p.Positions))
	symbols := make([]string, 0, len(p.Positions))
	for _, pos := range p.Positions {
		ticker := strings.ToUpper(pos.Symbol)
		if !seen[ticker] {
			seen[ticker] = true
			symbols = append(symbols, ticker)
		}
	}
	return symbols
}

// ColumnWeights folds position allocations onto the given column ordering.
// Duplicate positions of the same symbol sum into the shared column, which
// is numerically identical to separate weighted terms because the
// aggregation is linear.
func (p *Portfolio) ColumnWeights(colNames []string) []float64 {
	colMap := make(map[string]int, len(colNames))
	for idx, name := range colNames {
		colMap[name] = idx
	}

	weights := make([]float64, len(colNames))
	for _, pos := range p.Positions {
		if idx, ok := colMap[strings.ToUpper(pos.Symbol)]; ok {
			weights[idx] += pos.Allocation
		}
	}
	return weights
}
