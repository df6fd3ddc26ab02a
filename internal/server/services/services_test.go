package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/recordhub/internal/dbx"
	"github.com/dmitrijs2005/recordhub/internal/server/models"
	attachmentsrepo "github.com/dmitrijs2005/recordhub/internal/server/repositories/attachments"
	credentialsrepo "github.com/dmitrijs2005/recordhub/internal/server/repositories/credentials"
	recordsrepo "github.com/dmitrijs2005/recordhub/internal/server/repositories/records"
	refreshtokensrepo "github.com/dmitrijs2005/recordhub/internal/server/repositories/refreshtokens"
)

// --- shared helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

type fakeRecordsRepo struct {
	createOut *models.Record
	createErr error

	getOut *models.Record
	getErr error

	listOut   []*models.Record
	listTotal int64
	listErr   error

	updateOut *models.Record
	updateErr error

	deleteErr error

	countOut int64
	countErr error
}

func (f *fakeRecordsRepo) Create(ctx context.Context, record *models.Record) (*models.Record, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.createOut != nil {
		return f.createOut, nil
	}
	return record, nil
}

func (f *fakeRecordsRepo) GetByID(ctx context.Context, id string) (*models.Record, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeRecordsRepo) List(ctx context.Context, opts recordsrepo.ListOptions) ([]*models.Record, int64, error) {
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	return f.listOut, f.listTotal, nil
}

func (f *fakeRecordsRepo) Update(ctx context.Context, id string, fields map[string]any) (*models.Record, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.updateOut, nil
}

func (f *fakeRecordsRepo) Delete(ctx context.Context, id string) error {
	return f.deleteErr
}

func (f *fakeRecordsRepo) CountByField(ctx context.Context, field, value, excludeID string) (int64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.countOut, nil
}

type fakeCredentialsRepo struct {
	upsertErr error

	getOut *models.Credential
	getErr error

	delErr          error
	deletedRecordID string
}

func (f *fakeCredentialsRepo) Upsert(ctx context.Context, recordID, secretHash string) error {
	return f.upsertErr
}

func (f *fakeCredentialsRepo) GetByRecordID(ctx context.Context, recordID string) (*models.Credential, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeCredentialsRepo) Delete(ctx context.Context, recordID string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deletedRecordID = recordID
	return nil
}

type fakeRefreshRepo struct {
	createErr error

	findOut *models.RefreshToken
	findErr error

	delErr error
}

func (f *fakeRefreshRepo) Create(ctx context.Context, recordID string, token string, validity time.Duration) error {
	return f.createErr
}

func (f *fakeRefreshRepo) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findOut, nil
}

func (f *fakeRefreshRepo) Delete(ctx context.Context, token string) error {
	return f.delErr
}

type fakeAttachmentsRepo struct {
	createErr error

	getOut *models.Attachment
	getErr error

	markErr error

	delErr            error
	deletedByRecordID string
}

func (f *fakeAttachmentsRepo) Create(ctx context.Context, attachment *models.Attachment) error {
	return f.createErr
}

func (f *fakeAttachmentsRepo) GetByID(ctx context.Context, id string) (*models.Attachment, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeAttachmentsRepo) MarkUploaded(ctx context.Context, id string) error {
	return f.markErr
}

func (f *fakeAttachmentsRepo) DeleteByRecordID(ctx context.Context, recordID string) error {
	if f.delErr != nil {
		return f.delErr
	}
	f.deletedByRecordID = recordID
	return nil
}

type fakeRepoManager struct {
	r *fakeRecordsRepo
	c *fakeCredentialsRepo
	t *fakeRefreshRepo
	a *fakeAttachmentsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) EnsureUniqueIndexes(context.Context, *sql.DB, []string) error {
	return nil
}
func (m *fakeRepoManager) Records(db dbx.DBTX) recordsrepo.Repository   { return m.r }
func (m *fakeRepoManager) Credentials(db dbx.DBTX) credentialsrepo.Repository {
	return m.c
}
func (m *fakeRepoManager) RefreshTokens(db dbx.DBTX) refreshtokensrepo.Repository {
	return m.t
}
func (m *fakeRepoManager) Attachments(db dbx.DBTX) attachmentsrepo.Repository {
	return m.a
}

// memCache is an in-process Cache used to observe reads and invalidations.
type memCache struct {
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	return c.data[key], nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}
