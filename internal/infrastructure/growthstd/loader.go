// Package growthstd loads versioned growth standard tables from YAML files.
//
// File layout:
//
//	version: who-2006-district-a
//	entries:
//	  male:
//	    - {age_months: 0, weight_median_kg: 3.3, weight_spread_kg: 0.4, height_median_cm: 49.9, height_spread_cm: 1.9}
//	  female:
//	    - ...
//	  unknown:
//	    - ...
package growthstd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
	"github.com/cradlecare/cradlecare-hub/internal/domain/shared"
)

// File is the YAML document shape.
type File struct {
	Version     string                                `yaml:"version"`
	Description string                                `yaml:"description,omitempty"`
	Entries     map[growth.Sex][]growth.StandardEntry `yaml:"entries"`
}

// Parse decodes and validates a table document. Unknown keys are rejected.
func Parse(data []byte) (*growth.SliceTable, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, growth.ErrEmptyTable
		}
		return nil, shared.WrapError("growthstd", "Parse", shared.ErrConfiguration, "malformed growth standard file", err)
	}

	if f.Version == "" {
		return nil, shared.NewDomainError("growthstd", "Parse", shared.ErrConfiguration, "version is required")
	}

	return growth.NewSliceTable(f.Version, f.Entries)
}

// LoadFile reads and parses a table file.
func LoadFile(path string) (*growth.SliceTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, shared.WrapError("growthstd", "LoadFile", shared.ErrConfiguration,
			fmt.Sprintf("cannot read %s", path), err)
	}
	return Parse(data)
}

// Export encodes a table in the file layout Parse reads.
func Export(t *growth.SliceTable, description string) ([]byte, error) {
	f := File{Version: t.Version(), Description: description, Entries: t.Entries()}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("encode growth standard: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode growth standard: %w", err)
	}
	return buf.Bytes(), nil
}
