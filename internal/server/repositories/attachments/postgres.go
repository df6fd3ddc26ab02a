// Package attachments provides a PostgreSQL-backed repository for record
// attachment metadata. Attachment bytes live in object storage; only the
// storage key and upload status are kept here.
package attachments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/recordhub/internal/common"
	"github.com/dmitrijs2005/recordhub/internal/dbx"
	"github.com/dmitrijs2005/recordhub/internal/server/models"
)

// PostgresRepository implements attachment storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts attachment metadata with status "pending".
func (r *PostgresRepository) Create(ctx context.Context, attachment *models.Attachment) error {
	query := `
		INSERT INTO attachments (id, record_id, storage_key, upload_status)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query,
		attachment.ID, attachment.RecordID, attachment.StorageKey, attachment.UploadStatus)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns the attachment with the given id.
// If not found, it returns common.ErrNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Attachment, error) {
	query := `
		SELECT id, record_id, storage_key, upload_status, created_at FROM attachments
		WHERE id = $1
	`
	a := &models.Attachment{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&a.ID, &a.RecordID, &a.StorageKey, &a.UploadStatus, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

// MarkUploaded flips the upload status to "uploaded".
// If the attachment does not exist, it returns common.ErrNotFound.
func (r *PostgresRepository) MarkUploaded(ctx context.Context, id string) error {
	query := `
		UPDATE attachments SET upload_status = $2
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, models.UploadStatusUploaded)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// DeleteByRecordID removes all attachment metadata for a record.
func (r *PostgresRepository) DeleteByRecordID(ctx context.Context, recordID string) error {
	query := `
		DELETE FROM attachments
		WHERE record_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, recordID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
