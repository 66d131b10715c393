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

package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/cardinalhq/shardsort/internal/partition"
	"github.com/cardinalhq/shardsort/internal/sampler"
	"github.com/cardinalhq/shardsort/internal/sortkey"
)

// Config aggregates the tunables of a sort run.
type Config struct {
	Sort SortConfig `mapstructure:"sort"`
}

// SortConfig controls key extraction, sampling, and sharding.
type SortConfig struct {
	// KeyColumn is the 1-based tab-delimited column holding the int64 key.
	KeyColumn int `mapstructure:"key_column"`
	// SampleProbability is the fraction of records sampled per input.
	SampleProbability float64 `mapstructure:"sample_probability"`
	// MaxSamples caps the sample size; it wins over the probability.
	MaxSamples int `mapstructure:"max_samples"`
	// Partitions is the number of output shards per input file.
	Partitions int `mapstructure:"partitions"`
	// MapWorkers is the per-job map pool size; zero means GOMAXPROCS.
	MapWorkers int `mapstructure:"map_workers"`
}

func defaultConfig() *Config {
	return &Config{
		Sort: SortConfig{
			KeyColumn:         sortkey.DefaultColumn,
			SampleProbability: sampler.DefaultProbability,
			MaxSamples:        sampler.DefaultMaxSamples,
			Partitions:        partition.DefaultPartitions,
		},
	}
}

// Load reads configuration from an optional config file and environment
// variables. Environment variables use the prefix "SHARDSORT" and the dot
// character in keys is replaced by an underscore, so "sort.partitions"
// becomes "SHARDSORT_SORT_PARTITIONS".
func Load() (*Config, error) {
	cfg := defaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("SHARDSORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	_ = v.ReadInConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values that would make a job misbehave silently.
func (c *Config) Validate() error {
	s := c.Sort
	if s.KeyColumn < 1 {
		return fmt.Errorf("sort.key_column must be >= 1, got %d", s.KeyColumn)
	}
	if s.SampleProbability <= 0 || s.SampleProbability > 1 {
		return fmt.Errorf("sort.sample_probability must be in (0, 1], got %g", s.SampleProbability)
	}
	if s.MaxSamples < 1 {
		return fmt.Errorf("sort.max_samples must be >= 1, got %d", s.MaxSamples)
	}
	if s.Partitions < 1 {
		return fmt.Errorf("sort.partitions must be >= 1, got %d", s.Partitions)
	}
	if s.MapWorkers < 0 {
		return fmt.Errorf("sort.map_workers must be >= 0, got %d", s.MapWorkers)
	}
	return nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
