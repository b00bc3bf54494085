package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Epistemic-Technology/casebrief/models"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Sink receives completed runs. Failed documents are never saved.
type Sink interface {
	Save(ctx context.Context, run *models.Run) error
}

// Store persists runs and reads them back for the MCP resources.
type Store interface {
	Sink

	// GetRun retrieves a run with its records, memory log and batches
	GetRun(ctx context.Context, runID string) (*models.Run, error)

	// GetRecords retrieves the records of a run in emission order
	GetRecords(ctx context.Context, runID string) ([]models.SummaryRecord, error)

	// ListRuns returns every stored run, newest first
	ListRuns(ctx context.Context) ([]models.RunInfo, error)

	// DeleteRun removes a run and all associated data
	DeleteRun(ctx context.Context, runID string) error

	// Close closes the database connection
	Close() error
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// MultiSink saves to every sink in order and stops at the first error.
type MultiSink []Sink

func (m MultiSink) Save(ctx context.Context, run *models.Run) error {
	for _, s := range m {
		if err := s.Save(ctx, run); err != nil {
			return err
		}
	}
	return nil
}
