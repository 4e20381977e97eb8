package visual

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("visual not found")

type Repository interface {
	Create(ctx context.Context, v *Visual) error
	GetByID(ctx context.Context, id string) (*Visual, error)
	ListByCampaign(ctx context.Context, campaignID string, limit int) ([]Visual, error)
}
