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
	"time"
)

// Len returns the number of rows in the dataframe
func (df *DataFrame) Len() int {
	return len(df.Dates)
}

// ColCount returns the number of columns in the dataframe
func (df *DataFrame) ColCount() int {
	return len(df.ColNames)
}

// ColIndex returns the index of the specified column; -1 if the column
// doesn't exist
func (df *DataFrame) ColIndex(colName string) int {
	for idx, val := range df.ColNames {
		if colName == val {
			return idx
		}
	}

	return -1
}

// Col returns the values of the named column. Returns
// ErrColumnNotFound if no column with that name exists.
func (df *DataFrame) Col(colName string) ([]float64, error) {
	colIdx := df.ColIndex(colName)
	if colIdx == -1 {
		return nil, ErrColumnNotFound
	}
	return df.Vals[colIdx], nil
}

// DropNA removes all rows where any column is NaN. Rows survive only when
// every column holds a defined value for that date.
func (df *DataFrame) DropNA() *DataFrame {
	newDates := make([]time.Time, 0, len(df.Dates))
	newVals := make([][]float64, len(df.Vals))
	for colIdx := range df.Vals {
		newVals[colIdx] = make([]float64, 0, len(df.Dates))
	}

	for rowIdx, dt := range df.Dates {
		keep := true
		for _, col := range df.Vals {
			if math.IsNaN(col[rowIdx]) {
				keep = false
				break
			}
		}
		if keep {
			newDates = append(newDates, dt)
			for colIdx, col := range df.Vals {
				newVals[colIdx] = append(newVals[colIdx], col[rowIdx])
			}
		}
	}

	return &DataFrame{
		Dates:    newDates,
		ColNames: df.ColNames,
		Vals:     newVals,
	}
}

// Start returns the first date of the dataframe
func (df *DataFrame) Start() time.Time {
	if len(df.Dates) == 0 {
		return time.Time{}
	}
	return df.Dates[0]
}

// End returns the last date of the dataframe
func (df *DataFrame) End() time.Time {
	if len(df.Dates) == 0 {
		return time.Time{}
	}
	return df.Dates[len(df.Dates)-1]
}
