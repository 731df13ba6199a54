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

package dataframe

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// PctChange computes the simple percentage change of each column:
// vals[t]/vals[t-1] - 1. The first row has no predecessor and is set to
// NaN; a change involving a NaN price is NaN.
func (df *DataFrame) PctChange() *DataFrame {
	df2 := &DataFrame{
		Dates:    df.Dates,
		ColNames: df.ColNames,
		Vals:     make([][]float64, len(df.Vals)),
	}

	for colIdx, col := range df.Vals {
		changes := make([]float64, len(col))
		if len(col) > 0 {
			changes[0] = math.NaN()
		}
		for rowIdx := 1; rowIdx < len(col); rowIdx++ {
			changes[rowIdx] = col[rowIdx]/col[rowIdx-1] - 1
		}
		df2.Vals[colIdx] = changes
	}

	return df2
}

// Dot computes the weighted sum of the columns for each row. Weights must
// have one entry per column, ordered to match ColNames.
func (df *DataFrame) Dot(weights []float64) ([]float64, error) {
	if len(weights) != len(df.Vals) {
		return nil, ErrWeightLenMismatch
	}

	res := make([]float64, df.Len())
	for colIdx, col := range df.Vals {
		floats.AddScaled(res, weights[colIdx], col)
	}
	return res, nil
}
