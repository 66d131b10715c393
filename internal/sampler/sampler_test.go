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

package sampler

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// line builds a record whose second column holds the key.
func line(key int64) string {
	return fmt.Sprintf("x\t%d\t\n", key)
}

func input(keys ...int64) string {
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(line(k))
	}
	return sb.String()
}

func TestSampleIsSortedAscending(t *testing.T) {
	s := &IntervalSampler{Probability: 1, MaxSamples: 100, KeyColumn: 2}
	got, err := s.Sample(context.Background(), strings.NewReader(input(5, 3, 9, 1, 7)))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 5, 7, 9}, got)
}

func TestSampleIntervalStepping(t *testing.T) {
	// p=0.25 gives an interval of 4: records 0, 4, 8 are taken.
	s := &IntervalSampler{Probability: 0.25, MaxSamples: 100, KeyColumn: 2}
	got, err := s.Sample(context.Background(), strings.NewReader(input(0, 1, 2, 3, 4, 5, 6, 7, 8, 9)))
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 4, 8}, got)
}

func TestSampleCapWinsOverProbability(t *testing.T) {
	var sb strings.Builder
	for i := range 10000 {
		sb.WriteString(line(int64(i)))
	}
	s := &IntervalSampler{Probability: 0.01, MaxSamples: 100, KeyColumn: 2}
	got, err := s.Sample(context.Background(), strings.NewReader(sb.String()))
	require.NoError(t, err)
	assert.Len(t, got, 100)
	assert.True(t, slices.IsSorted(got))
}

func TestSampleStopsAtCapEarly(t *testing.T) {
	var sb strings.Builder
	for i := range 1000 {
		sb.WriteString(line(int64(i)))
	}
	s := &IntervalSampler{Probability: 1, MaxSamples: 10, KeyColumn: 2}
	got, err := s.Sample(context.Background(), strings.NewReader(sb.String()))
	require.NoError(t, err)
	// With p=1 the first 10 records are the sample.
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestSampleMalformedRecordAborts(t *testing.T) {
	in := line(1) + "x\tnotakey\t\n" + line(3)
	s := &IntervalSampler{Probability: 1, MaxSamples: 100, KeyColumn: 2}
	_, err := s.Sample(context.Background(), strings.NewReader(in))
	assert.Error(t, err)
}

func TestSampleEmptyInput(t *testing.T) {
	s := &IntervalSampler{Probability: 1, MaxSamples: 100, KeyColumn: 2}
	_, err := s.Sample(context.Background(), strings.NewReader(""))
	assert.Error(t, err)
}

func TestSampleBadConfig(t *testing.T) {
	ctx := context.Background()
	for _, s := range []*IntervalSampler{
		{Probability: 0, MaxSamples: 10, KeyColumn: 2},
		{Probability: 1.5, MaxSamples: 10, KeyColumn: 2},
		{Probability: 0.5, MaxSamples: 0, KeyColumn: 2},
	} {
		_, err := s.Sample(ctx, strings.NewReader(input(1)))
		assert.Error(t, err)
	}
}

func TestSampleCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewIntervalSampler(2)
	_, err := s.Sample(ctx, strings.NewReader(input(1, 2, 3)))
	assert.Error(t, err)
}
