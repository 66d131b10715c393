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

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/fxamacker/cbor/v2"
)

// ManifestName is the boundary manifest filename, written as a sibling of
// the input file so that every worker of a job can find it.
const ManifestName = "_partitioning"

const manifestVersion = 1

// Manifest is the persisted form of one job's partition boundaries.
type Manifest struct {
	Version    int     `cbor:"version"`
	InputName  string  `cbor:"input_name"`
	Boundaries []int64 `cbor:"boundaries"`
}

// ManifestPath returns the manifest location for an input file: the
// ManifestName sibling in the input's parent directory.
func ManifestPath(inputPath string) string {
	return filepath.Join(filepath.Dir(inputPath), ManifestName)
}

// WriteManifest publishes boundaries for one job. The write is atomic
// (temp file plus rename) so a worker never observes a partial manifest.
func WriteManifest(path string, inputName string, bounds []int64) error {
	m := Manifest{
		Version:    manifestVersion,
		InputName:  inputName,
		Boundaries: bounds,
	}
	data, err := cbor.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding partition manifest: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ManifestName+"-*")
	if err != nil {
		return fmt.Errorf("creating partition manifest: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing partition manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing partition manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing partition manifest: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publishing partition manifest: %w", err)
	}
	return nil
}

// ReadManifest loads published boundaries and validates them.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading partition manifest: %w", err)
	}
	var m Manifest
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding partition manifest %s: %w", path, err)
	}
	if m.Version != manifestVersion {
		return nil, fmt.Errorf("partition manifest %s has unsupported version %d", path, m.Version)
	}
	if !slices.IsSorted(m.Boundaries) {
		return nil, fmt.Errorf("partition manifest %s has unsorted boundaries", path)
	}
	return &m, nil
}
