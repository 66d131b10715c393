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

package partition

import "sort"

// Partitioner routes a key to one of len(boundaries)+1 contiguous,
// non-overlapping key ranges. Partition p holds keys k with
// boundaries[p-1] <= k < boundaries[p], with implicit -inf and +inf
// sentinels at the ends. It is deterministic and safe for concurrent use.
type Partitioner struct {
	bounds []int64
}

// NewPartitioner wraps an already-loaded boundary list.
func NewPartitioner(bounds []int64) *Partitioner {
	return &Partitioner{bounds: bounds}
}

// LoadPartitioner reads a published manifest and returns a Partitioner over
// its boundaries. Workers on separate processes each load their own copy.
func LoadPartitioner(manifestPath string) (*Partitioner, error) {
	m, err := ReadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	return NewPartitioner(m.Boundaries), nil
}

// Partitions returns the number of partitions, boundaries plus one.
func (p *Partitioner) Partitions() int {
	return len(p.bounds) + 1
}

// Partition returns the index of the range containing key: the count of
// boundaries <= key, found by binary search.
func (p *Partitioner) Partition(key int64) int {
	return sort.Search(len(p.bounds), func(i int) bool { return key < p.bounds[i] })
}
