package records

import (
	"context"

	"github.com/dmitrijs2005/recordhub/internal/server/models"
)

// SortKey is a single ordering term. Field must be a schema-declared field
// or one of the built-in columns ("id", "created_at", "updated_at").
type SortKey struct {
	Field string
	Desc  bool
}

// ListOptions describes a paginated list query. Page is 1-indexed; the
// offset is (Page-1)*PageSize. Filter holds field→value equality pairs.
type ListOptions struct {
	Filter   map[string]string
	Sort     []SortKey
	Page     int
	PageSize int
}

type Repository interface {
	Create(ctx context.Context, record *models.Record) (*models.Record, error)
	GetByID(ctx context.Context, id string) (*models.Record, error)
	List(ctx context.Context, opts ListOptions) ([]*models.Record, int64, error)
	Update(ctx context.Context, id string, fields map[string]any) (*models.Record, error)
	Delete(ctx context.Context, id string) error
	CountByField(ctx context.Context, field, value, excludeID string) (int64, error)
}
