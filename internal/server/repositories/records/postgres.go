// Package records provides the PostgreSQL-backed repository for record
// persistence: CRUD plus deterministic, paginated listing over a JSONB
// field bag.
package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dmitrijs2005/recordhub/internal/common"
	"github.com/dmitrijs2005/recordhub/internal/dbx"
	"github.com/dmitrijs2005/recordhub/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the PostgreSQL error code for unique_violation.
const pgUniqueViolation = "23505"

// writeErr wraps a driver error, translating a unique-index violation to
// common.ErrAlreadyExists so concurrent writers racing past the service
// pre-check still surface a conflict.
func writeErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return common.ErrAlreadyExists
	}
	return fmt.Errorf("db error: %w", err)
}

// PostgresRepository implements record storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// fieldNameRe guards field names interpolated into JSONB accessors. Callers
// validate names against the schema first; this is the repository's own
// invariant check.
var fieldNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// builtinColumns maps sortable record columns to SQL expressions.
var builtinColumns = map[string]string{
	"id":         "id::text",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func fieldExpr(name string) (string, error) {
	if col, ok := builtinColumns[name]; ok {
		return col, nil
	}
	if !fieldNameRe.MatchString(name) {
		return "", fmt.Errorf("invalid field name %q", name)
	}
	return fmt.Sprintf("fields->>'%s'", name), nil
}

// Create inserts a new record and returns it with the server-assigned
// timestamps.
func (r *PostgresRepository) Create(ctx context.Context, record *models.Record) (*models.Record, error) {
	fieldsJSON, err := json.Marshal(record.Fields)
	if err != nil {
		return nil, fmt.Errorf("error encoding fields: %w", err)
	}

	query := `
		INSERT INTO records (id, fields)
		VALUES ($1, $2)
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRowContext(ctx, query, record.ID, fieldsJSON).
		Scan(&record.CreatedAt, &record.UpdatedAt); err != nil {
		return nil, writeErr(err)
	}

	return record, nil
}

// GetByID returns the record with the given key.
// If not found, it returns common.ErrNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Record, error) {
	query := `
		SELECT id, fields, created_at, updated_at FROM records
		WHERE id = $1
	`
	record := &models.Record{}
	var fieldsJSON []byte
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&record.ID, &fieldsJSON, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := json.Unmarshal(fieldsJSON, &record.Fields); err != nil {
		return nil, fmt.Errorf("error decoding fields: %w", err)
	}

	return record, nil
}

// List returns one page of records plus the total match count. Ordering is
// built from opts.Sort with an "id ASC" tiebreak, so the same page request
// with no intervening writes always returns identical results.
func (r *PostgresRepository) List(ctx context.Context, opts ListOptions) ([]*models.Record, int64, error) {
	where, args, err := buildFilter(opts.Filter)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM records" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	orderBy, err := buildOrderBy(opts.Sort)
	if err != nil {
		return nil, 0, err
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(
		"SELECT id, fields, created_at, updated_at FROM records%s%s LIMIT $%d OFFSET $%d",
		where, orderBy, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Record
	for rows.Next() {
		record := &models.Record{}
		var fieldsJSON []byte
		if err := rows.Scan(&record.ID, &fieldsJSON, &record.CreatedAt, &record.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		if err := json.Unmarshal(fieldsJSON, &record.Fields); err != nil {
			return nil, 0, fmt.Errorf("error decoding fields: %w", err)
		}
		result = append(result, record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	return result, total, nil
}

// Update replaces the field bag of an existing record, preserving its key.
// If the record does not exist, it returns common.ErrNotFound.
func (r *PostgresRepository) Update(ctx context.Context, id string, fields map[string]any) (*models.Record, error) {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("error encoding fields: %w", err)
	}

	query := `
		UPDATE records SET fields = $2, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	record := &models.Record{ID: id, Fields: fields}
	err = r.db.QueryRowContext(ctx, query, id, fieldsJSON).
		Scan(&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, writeErr(err)
	}

	return record, nil
}

// Delete removes a record by its key.
// If the record does not exist, it returns common.ErrNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM records
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id)
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

// CountByField counts records whose field equals value, optionally excluding
// one record key. Used for unique-field checks.
func (r *PostgresRepository) CountByField(ctx context.Context, field, value, excludeID string) (int64, error) {
	expr, err := fieldExpr(field)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM records WHERE %s = $1", expr)
	args := []any{value}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}

	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// EnsureUniqueIndex creates an expression unique index on a schema field so
// uniqueness holds under concurrent writes, not just at the service
// pre-check. Safe to run on every startup.
func (r *PostgresRepository) EnsureUniqueIndex(ctx context.Context, field string) error {
	if !fieldNameRe.MatchString(field) {
		return fmt.Errorf("invalid field name %q", field)
	}
	query := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS records_%s_uniq ON records ((fields->>'%s'))",
		field, field)
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func buildFilter(filter map[string]string) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	// Deterministic clause order keeps queries testable.
	names := make([]string, 0, len(filter))
	for name := range filter {
		names = append(names, name)
	}
	sort.Strings(names)

	var clauses []string
	var args []any
	for _, name := range names {
		expr, err := fieldExpr(name)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, fmt.Sprintf("%s = $%d", expr, len(args)+1))
		args = append(args, filter[name])
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func buildOrderBy(sort []SortKey) (string, error) {
	terms := make([]string, 0, len(sort)+1)
	for _, key := range sort {
		expr, err := fieldExpr(key.Field)
		if err != nil {
			return "", err
		}
		dir := "ASC"
		if key.Desc {
			dir = "DESC"
		}
		terms = append(terms, expr+" "+dir)
	}
	// Tiebreak so pagination is fully ordered even on duplicate sort values.
	terms = append(terms, "id ASC")
	return " ORDER BY " + strings.Join(terms, ", "), nil
}
