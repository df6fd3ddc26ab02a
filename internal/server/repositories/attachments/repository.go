package attachments

import (
	"context"

	"github.com/dmitrijs2005/recordhub/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, attachment *models.Attachment) error
	GetByID(ctx context.Context, id string) (*models.Attachment, error)
	MarkUploaded(ctx context.Context, id string) error
	DeleteByRecordID(ctx context.Context, recordID string) error
}
