package repositories

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BradenHooton/customs/internal/limits"
	"github.com/BradenHooton/customs/internal/models"
)

// FileLimitsRepository reads limits from a YAML file that operators edit in
// place (or that a config-management tool rewrites).
type FileLimitsRepository struct {
	path string
}

// NewFileLimitsRepository creates a new FileLimitsRepository
func NewFileLimitsRepository(path string) *FileLimitsRepository {
	return &FileLimitsRepository{path: path}
}

// Load parses the file into a generic value for validation.
func (r *FileLimitsRepository) Load(ctx context.Context) (any, error) {
	candidate, err := limits.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return candidate, nil
}

// Save rewrites the file atomically via a temp file and rename.
func (r *FileLimitsRepository) Save(ctx context.Context, settings limits.Settings) error {
	data, err := limits.MarshalYAML(settings)
	if err != nil {
		return fmt.Errorf("failed to encode limits: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".limits-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write limits file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write limits file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write limits file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace limits file: %w", err)
	}
	return nil
}
