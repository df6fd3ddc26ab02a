// Package credentials provides a PostgreSQL-backed repository for the
// one-way-hashed secrets bound to records.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/recordhub/internal/common"
	"github.com/dmitrijs2005/recordhub/internal/dbx"
	"github.com/dmitrijs2005/recordhub/internal/server/models"
)

// PostgresRepository implements credential storage over a dbx.DBTX
// (*sql.DB or *sql.Tx). Only digests are stored, never plaintext.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert stores or replaces the digest for recordID.
func (r *PostgresRepository) Upsert(ctx context.Context, recordID, secretHash string) error {
	query := `
		INSERT INTO credentials (record_id, secret_hash)
		VALUES ($1, $2)
		ON CONFLICT (record_id)
		DO UPDATE SET secret_hash = EXCLUDED.secret_hash
	`
	if _, err := r.db.ExecContext(ctx, query, recordID, secretHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByRecordID returns the credential for recordID.
// If not found, it returns common.ErrNotFound.
func (r *PostgresRepository) GetByRecordID(ctx context.Context, recordID string) (*models.Credential, error) {
	query := `
		SELECT record_id, secret_hash, created_at FROM credentials
		WHERE record_id = $1
	`
	cred := &models.Credential{}
	err := r.db.QueryRowContext(ctx, query, recordID).
		Scan(&cred.RecordID, &cred.SecretHash, &cred.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return cred, nil
}

// Delete removes the credential for recordID, if any.
func (r *PostgresRepository) Delete(ctx context.Context, recordID string) error {
	query := `
		DELETE FROM credentials
		WHERE record_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, recordID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
