package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fabriq-ai/chatcore/models"
	"github.com/fabriq-ai/chatcore/repositories"
)

// ErrRecordNotFound is returned when a completion record does not exist
var ErrRecordNotFound = errors.New("completion record not found")

// CompletionRecordRepository implements
// repositories.CompletionRecordRepository on PostgreSQL.
type CompletionRecordRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewCompletionRecordRepository creates a new completion record repository
func NewCompletionRecordRepository(db *DB, logger *zap.Logger) repositories.CompletionRecordRepository {
	return &CompletionRecordRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists one completion record
func (r *CompletionRecordRepository) Create(ctx context.Context, rec *models.CompletionRecord) error {
	query := `
		INSERT INTO completion_records (
			id, provider, model, status,
			prompt_tokens, completion_tokens, total_tokens, latency_ms,
			error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Provider, rec.Model, rec.Status,
		rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens, rec.LatencyMs,
		rec.ErrorMessage, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create completion record: %w", err)
	}

	return nil
}

// GetByID retrieves a record by its id
func (r *CompletionRecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CompletionRecord, error) {
	query := `
		SELECT id, provider, model, status,
			prompt_tokens, completion_tokens, total_tokens, latency_ms,
			error_message, created_at
		FROM completion_records
		WHERE id = $1
	`

	rec := &models.CompletionRecord{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.Provider, &rec.Model, &rec.Status,
		&rec.PromptTokens, &rec.CompletionTokens, &rec.TotalTokens, &rec.LatencyMs,
		&rec.ErrorMessage, &rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get completion record: %w", err)
	}

	return rec, nil
}

// ListRecent returns the most recent records, newest first
func (r *CompletionRecordRepository) ListRecent(ctx context.Context, limit int) ([]*models.CompletionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, provider, model, status,
			prompt_tokens, completion_tokens, total_tokens, latency_ms,
			error_message, created_at
		FROM completion_records
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list completion records: %w", err)
	}
	defer rows.Close()

	var records []*models.CompletionRecord
	for rows.Next() {
		rec := &models.CompletionRecord{}
		if err := rows.Scan(
			&rec.ID, &rec.Provider, &rec.Model, &rec.Status,
			&rec.PromptTokens, &rec.CompletionTokens, &rec.TotalTokens, &rec.LatencyMs,
			&rec.ErrorMessage, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan completion record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate completion records: %w", err)
	}

	return records, nil
}
