package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/okian/riskprofiler/internal/domain/model"
	"gopkg.in/yaml.v3"
)

// Dataset is the on-disk layout of a cohort file.
type Dataset struct {
	Cohorts []*model.Cohort `json:"cohorts" yaml:"cohorts"`
}

// Dataset encodings.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// FormatOf maps a file extension to a dataset encoding.
func FormatOf(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s: unsupported extension %q", ErrDataset, path, ext)
	}
}

// LoadFile reads a .yaml, .yml or .json dataset.
func LoadFile(path string) ([]*model.Cohort, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataset, err)
	}
	return Decode(raw, format)
}

// Decode parses a dataset document in the given format.
func Decode(raw []byte, format string) ([]*model.Cohort, error) {
	var (
		ds  Dataset
		err error
	)
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(raw, &ds)
	case FormatJSON:
		err = json.Unmarshal(raw, &ds)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrDataset, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrDataset, err)
	}
	return ds.Cohorts, nil
}

// Encode renders cohorts in the given format.
func Encode(cohorts []*model.Cohort, format string) ([]byte, error) {
	ds := Dataset{Cohorts: cohorts}
	var (
		raw []byte
		err error
	)
	switch format {
	case FormatYAML:
		raw, err = yaml.Marshal(ds)
	case FormatJSON:
		raw, err = json.MarshalIndent(ds, "", "  ")
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrDataset, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrDataset, err)
	}
	return raw, nil
}

// SaveFile writes cohorts to path, choosing the encoding from its extension.
func SaveFile(path string, cohorts []*model.Cohort) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	raw, err := Encode(cohorts, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrDataset, err)
	}
	return nil
}
