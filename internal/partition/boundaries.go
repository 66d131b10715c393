// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package partition computes and publishes total-order partition boundaries
// and maps sort keys onto partition indexes.
//
// A job's boundaries are built once from a sorted sample, written to a
// manifest next to the input file, and then loaded read-only by every worker.
// They are never recomputed while the job runs.
package partition

import (
	"fmt"
	"slices"
)

// DefaultPartitions is the number of output shards per input file.
const DefaultPartitions = 4

// BuildBoundaries reduces a sorted sample to r-1 boundary keys dividing the
// key space into r ranges of roughly equal population. Boundary i (1-based)
// is the sample value at rank i*len(sample)/r. A sample with fewer than r
// distinct values yields duplicate boundaries, which is fine: the
// corresponding partitions are simply empty.
func BuildBoundaries(sample []int64, r int) ([]int64, error) {
	if r < 1 {
		return nil, fmt.Errorf("partition count must be >= 1, got %d", r)
	}
	if len(sample) == 0 {
		return nil, fmt.Errorf("cannot build boundaries from an empty sample")
	}
	if !slices.IsSorted(sample) {
		return nil, fmt.Errorf("sample must be sorted ascending")
	}

	bounds := make([]int64, 0, r-1)
	for i := 1; i < r; i++ {
		rank := i * len(sample) / r
		bounds = append(bounds, sample[rank])
	}
	return bounds, nil
}
