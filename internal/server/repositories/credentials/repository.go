package credentials

import (
	"context"

	"github.com/dmitrijs2005/recordhub/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, recordID, secretHash string) error
	GetByRecordID(ctx context.Context, recordID string) (*models.Credential, error)
	Delete(ctx context.Context, recordID string) error
}
