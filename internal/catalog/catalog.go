// Package catalog supplies the read-only crop schedule templates the
// calendar materializes events from. The default catalog ships inside the
// binary; deployments can point CATALOG_PATH at their own JSON file with the
// same shape.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kritika1265/AgriDirect-sub000/internal/domain"
)

//go:embed crops.json
var defaultCatalog []byte

// Catalog is the template source the schedule service loads from.
type Catalog interface {
	CropSchedules(ctx context.Context) ([]domain.CropSchedule, error)
}

// FileCatalog reads crop schedules from a JSON file, or from the embedded
// default catalog when no path is configured.
type FileCatalog struct {
	path string
}

// New creates a catalog backed by the file at path. An empty path selects
// the embedded default catalog.
func New(path string) *FileCatalog {
	return &FileCatalog{path: path}
}

// CropSchedules loads and validates the full template set. The caller is
// expected to hold on to the result for the session; the catalog itself
// keeps no state.
func (c *FileCatalog) CropSchedules(_ context.Context) ([]domain.CropSchedule, error) {
	data := defaultCatalog
	if c.path != "" {
		var err error
		data, err = os.ReadFile(c.path)
		if err != nil {
			return nil, fmt.Errorf("read catalog file: %w", err)
		}
	}

	var schedules []domain.CropSchedule
	if err := json.Unmarshal(data, &schedules); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	for i := range schedules {
		if err := schedules[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid catalog entry: %w", err)
		}
	}

	return schedules, nil
}
