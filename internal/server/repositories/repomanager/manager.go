package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/recordhub/internal/dbx"
	"github.com/dmitrijs2005/recordhub/internal/server/repositories/attachments"
	"github.com/dmitrijs2005/recordhub/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/recordhub/internal/server/repositories/records"
	"github.com/dmitrijs2005/recordhub/internal/server/repositories/refreshtokens"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	EnsureUniqueIndexes(ctx context.Context, db *sql.DB, fields []string) error
	Records(db dbx.DBTX) records.Repository
	Credentials(db dbx.DBTX) credentials.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Attachments(db dbx.DBTX) attachments.Repository
}
