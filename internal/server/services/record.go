// Package services implements the application services sitting between the
// HTTP layer and the repositories: schema validation, credential handling,
// caching, store timeouts, and token issuance.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/recordhub/internal/common"
	"github.com/dmitrijs2005/recordhub/internal/dbx"
	"github.com/dmitrijs2005/recordhub/internal/server/auth"
	"github.com/dmitrijs2005/recordhub/internal/server/cache"
	sc "github.com/dmitrijs2005/recordhub/internal/server/config"
	"github.com/dmitrijs2005/recordhub/internal/server/models"
	"github.com/dmitrijs2005/recordhub/internal/server/repositories/records"
	"github.com/dmitrijs2005/recordhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/recordhub/internal/server/schema"
	"github.com/google/uuid"
)

// RecordService implements the record store contract: validated CRUD with
// unique-field checks, credential extraction, read caching, and per-call
// store timeouts.
type RecordService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	schema       *schema.Schema
	cache        cache.Cache
	cacheTTL     time.Duration
	storeTimeout time.Duration
}

func NewRecordService(db *sql.DB, rm repomanager.RepositoryManager, s *schema.Schema, c cache.Cache, cfg *sc.Config) *RecordService {
	return &RecordService{
		db:           db,
		repomanager:  rm,
		schema:       s,
		cache:        c,
		cacheTTL:     cfg.CacheTTL,
		storeTimeout: cfg.StoreTimeout,
	}
}

// Schema returns the schema the service validates against.
func (s *RecordService) Schema() *schema.Schema {
	return s.schema
}

func (s *RecordService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// translateStoreErr maps a deadline overrun to the timeout sentinel so the
// boundary can distinguish "store too slow" from "store broken".
func translateStoreErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return common.ErrTimeout
	}
	return err
}

func cacheKey(id string) string {
	return "record:" + id
}

// Create validates raw input, extracts and hashes the credential field, and
// inserts the record (and credential) in one transaction. Unique fields are
// checked first; duplicates fail with common.ErrAlreadyExists.
func (s *RecordService) Create(ctx context.Context, raw map[string]any) (*models.Record, error) {
	fields, secret, err := s.schema.ValidateCreate(raw)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if err := s.checkUniqueFields(ctx, fields, ""); err != nil {
		return nil, err
	}

	var secretHash string
	if secret != "" {
		secretHash, err = auth.HashSecret(secret)
		if err != nil {
			return nil, fmt.Errorf("error hashing secret: %w", err)
		}
	}

	record := &models.Record{
		ID:     uuid.New().String(),
		Fields: fields,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Records(tx).Create(ctx, record)
		if err != nil {
			return err
		}
		record = created

		if secretHash != "" {
			if err := s.repomanager.Credentials(tx).Upsert(ctx, record.ID, secretHash); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, translateStoreErr(err)
	}

	return record, nil
}

// GetByID returns a record, read-through cached.
func (s *RecordService) GetByID(ctx context.Context, id string) (*models.Record, error) {
	if b, err := s.cache.Get(ctx, cacheKey(id)); err == nil && b != nil {
		record := &models.Record{}
		if err := json.Unmarshal(b, record); err == nil {
			return record, nil
		}
		// Undecodable entry: drop it and fall through to the store.
		_ = s.cache.Delete(ctx, cacheKey(id))
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	record, err := s.repomanager.Records(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	if b, err := json.Marshal(record); err == nil {
		_ = s.cache.Set(ctx, cacheKey(id), b, s.cacheTTL)
	}

	return record, nil
}

// List returns one page of records plus the total count. Filter and sort
// keys are validated against the schema before reaching the store.
func (s *RecordService) List(ctx context.Context, opts records.ListOptions) ([]*models.Record, int64, error) {
	var errs []schema.FieldError
	for name := range opts.Filter {
		if !s.listable(name) {
			errs = append(errs, schema.FieldError{Field: name, Message: "is not filterable"})
		}
	}
	for _, key := range opts.Sort {
		if !s.listable(key.Field) {
			errs = append(errs, schema.FieldError{Field: key.Field, Message: "is not sortable"})
		}
	}
	if len(errs) > 0 {
		return nil, 0, &schema.ValidationError{Fields: errs}
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	result, total, err := s.repomanager.Records(s.db).List(ctx, opts)
	if err != nil {
		return nil, 0, translateStoreErr(err)
	}
	return result, total, nil
}

func (s *RecordService) listable(name string) bool {
	switch name {
	case "id", "created_at", "updated_at":
		return true
	}
	return s.schema.HasField(name)
}

// Update validates raw input and replaces the record's field bag, preserving
// its key. A credential field in the input rotates the stored digest.
func (s *RecordService) Update(ctx context.Context, id string, raw map[string]any) (*models.Record, error) {
	fields, secret, err := s.schema.ValidateUpdate(raw)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if err := s.checkUniqueFields(ctx, fields, id); err != nil {
		return nil, err
	}

	var secretHash string
	if secret != "" {
		secretHash, err = auth.HashSecret(secret)
		if err != nil {
			return nil, fmt.Errorf("error hashing secret: %w", err)
		}
	}

	var record *models.Record
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		updated, err := s.repomanager.Records(tx).Update(ctx, id, fields)
		if err != nil {
			return err
		}
		record = updated

		if secretHash != "" {
			if err := s.repomanager.Credentials(tx).Upsert(ctx, id, secretHash); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, translateStoreErr(err)
	}

	_ = s.cache.Delete(ctx, cacheKey(id))

	return record, nil
}

// Delete removes a record together with its credential and attachment
// metadata in one transaction; the key is never reused.
func (s *RecordService) Delete(ctx context.Context, id string) error {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Attachments(tx).DeleteByRecordID(ctx, id); err != nil {
			return err
		}
		if err := s.repomanager.Credentials(tx).Delete(ctx, id); err != nil {
			return err
		}
		return s.repomanager.Records(tx).Delete(ctx, id)
	})
	if err != nil {
		return translateStoreErr(err)
	}

	_ = s.cache.Delete(ctx, cacheKey(id))

	return nil
}

// checkUniqueFields fails with common.ErrAlreadyExists when another live
// record holds the same value in a unique field.
func (s *RecordService) checkUniqueFields(ctx context.Context, fields map[string]any, excludeID string) error {
	repo := s.repomanager.Records(s.db)
	for _, name := range s.schema.UniqueFields() {
		value, ok := fields[name].(string)
		if !ok || value == "" {
			continue
		}
		n, err := repo.CountByField(ctx, name, value, excludeID)
		if err != nil {
			return translateStoreErr(err)
		}
		if n > 0 {
			return fmt.Errorf("duplicate value for field %q: %w", name, common.ErrAlreadyExists)
		}
	}
	return nil
}
