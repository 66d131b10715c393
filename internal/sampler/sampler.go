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

// Package sampler draws a small, ordered set of sort keys from an input so
// that partition boundaries can be estimated without reading the whole file.
package sampler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/cardinalhq/shardsort/internal/sortkey"
)

const (
	// DefaultProbability is the fraction of records sampled.
	DefaultProbability = 0.01
	// DefaultMaxSamples caps the sample size; the cap wins over the
	// probability, so sampling stops once this many keys are collected.
	DefaultMaxSamples = 100

	// scanBufSize bounds the longest record we will accept.
	scanBufSize = 4 * 1024 * 1024
)

// Sampler produces a sorted SampleSet of keys from one record stream.
type Sampler interface {
	Sample(ctx context.Context, r io.Reader) ([]int64, error)
}

// IntervalSampler walks the input in order and accepts keys at a fixed record
// interval derived from the sampling probability. The stepping is
// deterministic: record i is sampled iff i is a multiple of the interval.
type IntervalSampler struct {
	Probability float64
	MaxSamples  int
	KeyColumn   int
}

// NewIntervalSampler returns an IntervalSampler with the default probability
// and cap, keyed on the given 1-based column.
func NewIntervalSampler(keyColumn int) *IntervalSampler {
	return &IntervalSampler{
		Probability: DefaultProbability,
		MaxSamples:  DefaultMaxSamples,
		KeyColumn:   keyColumn,
	}
}

// Sample reads the stream once and returns the collected keys sorted
// ascending. A record that fails key extraction aborts the pass: the same
// record would abort the sort pass anyway, and sampling around it would
// publish boundaries for a job that cannot succeed.
func (s *IntervalSampler) Sample(ctx context.Context, r io.Reader) ([]int64, error) {
	if s.Probability <= 0 || s.Probability > 1 {
		return nil, fmt.Errorf("sampling probability must be in (0, 1], got %g", s.Probability)
	}
	if s.MaxSamples < 1 {
		return nil, fmt.Errorf("max samples must be >= 1, got %d", s.MaxSamples)
	}

	interval := int64(math.Ceil(1 / s.Probability))
	keys := make([]int64, 0, s.MaxSamples)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), scanBufSize)

	var rec int64
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if rec%interval == 0 {
			k, err := sortkey.Key(scanner.Bytes(), s.KeyColumn)
			if err != nil {
				return nil, fmt.Errorf("sampling record %d: %w", rec, err)
			}
			keys = append(keys, k)
			if len(keys) >= s.MaxSamples {
				break
			}
		}
		rec++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no records sampled: input is empty")
	}

	slices.Sort(keys)
	return keys, nil
}
