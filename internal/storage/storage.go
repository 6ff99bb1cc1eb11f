package storage

import (
	"context"

	"github.com/savegress/odcv/pkg/models"
)

// Store is the interface for dataset storage backends. A dataset is one
// uploaded or imported event log; events are stored sorted by time.
type Store interface {
	// SaveDataset persists a dataset and its events.
	SaveDataset(ctx context.Context, ds *models.Dataset, events []models.Event) error

	// ListDatasets returns all dataset descriptors, newest first.
	ListDatasets(ctx context.Context) ([]*models.Dataset, error)

	// GetDataset returns one dataset descriptor.
	GetDataset(ctx context.Context, id string) (*models.Dataset, error)

	// Events returns a dataset's events sorted by time.
	Events(ctx context.Context, id string) ([]models.Event, error)

	// DeleteDataset removes a dataset and its events.
	DeleteDataset(ctx context.Context, id string) error

	// ActiveDataset returns the most recently saved dataset, or nil when
	// the store is empty.
	ActiveDataset(ctx context.Context) (*models.Dataset, error)

	// Close closes the storage.
	Close() error
}

// Errors
var (
	ErrDatasetNotFound = &Error{Code: "DATASET_NOT_FOUND", Message: "Dataset not found"}
)

// Error represents a storage error
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
