package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/fabriq-ai/chatcore/models"
)

// CompletionRecordRepository stores dispatch outcomes for auditing.
type CompletionRecordRepository interface {
	// Create persists one completion record
	Create(ctx context.Context, rec *models.CompletionRecord) error

	// GetByID retrieves a record by its id
	GetByID(ctx context.Context, id uuid.UUID) (*models.CompletionRecord, error)

	// ListRecent returns the most recent records, newest first
	ListRecent(ctx context.Context, limit int) ([]*models.CompletionRecord, error)
}
