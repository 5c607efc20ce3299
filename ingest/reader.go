package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrMissingFile is returned when a required dataset file does not exist
var ErrMissingFile = errors.New("required dataset file not found")

// BatchReader reads a complete batch from a source directory
type BatchReader interface {
	Read(ctx context.Context, dir string) (*Batch, error)
	Extension() string
}

// NewBatchReader creates a reader by format (csv, parquet).
// Returns nil if the format is not supported.
func NewBatchReader(format string) BatchReader {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVReader{}
	case "parquet":
		return ParquetReader{}
	default:
		return nil
	}
}

// optionalDatasets may be absent from a source directory
var optionalDatasets = map[Dataset]bool{
	DatasetNews:   true,
	DatasetYields: true,
}

// datasetPath resolves the file for a dataset, returning "" for an absent optional file
func datasetPath(dir string, ds Dataset, ext string) (string, error) {
	path := filepath.Join(dir, string(ds)+"."+ext)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if optionalDatasets[ds] {
				return "", nil
			}
			return "", fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	return path, nil
}
