package dataset

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
)

// EmbeddedSource serves the dataset compiled into the binary.
type EmbeddedSource struct{}

// Name implements Source.
func (EmbeddedSource) Name() string { return "embedded" }

// Load implements Source.
func (EmbeddedSource) Load(context.Context) (Dataset, error) {
	return Embedded()
}

// FileSource reads a YAML dataset from the local filesystem.
type FileSource struct {
	Path string
}

// Name implements Source.
func (s FileSource) Name() string { return "file:" + s.Path }

// Load implements Source.
func (s FileSource) Load(ctx context.Context) (Dataset, error) {
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}
	path := strings.TrimSpace(s.Path)
	if path == "" {
		return Dataset{}, fmt.Errorf("dataset: file path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("dataset: read %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data))
}

// ObjectReader is satisfied by the Cloud Storage reader.
type ObjectReader interface {
	ReadObject(ctx context.Context, bucket, object string) ([]byte, error)
}

// ObjectSource reads a YAML dataset from a Cloud Storage object.
type ObjectSource struct {
	Reader ObjectReader
	Bucket string
	Object string
}

// Name implements Source.
func (s ObjectSource) Name() string { return fmt.Sprintf("gs://%s/%s", s.Bucket, s.Object) }

// Load implements Source.
func (s ObjectSource) Load(ctx context.Context) (Dataset, error) {
	if s.Reader == nil {
		return Dataset{}, fmt.Errorf("dataset: object reader is required")
	}
	data, err := s.Reader.ReadObject(ctx, s.Bucket, s.Object)
	if err != nil {
		return Dataset{}, err
	}
	return Parse(bytes.NewReader(data))
}
