package sharelink

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the main interface for the simple-sharelink library
type Service interface {
	// Link lifecycle
	CreateLink(ctx context.Context, req CreateLinkRequest) (*LinkStatus, error)
	GetLink(ctx context.Context, id uuid.UUID) (*LinkStatus, error)
	ListLinks(ctx context.Context, limit, offset int) ([]*LinkStatus, error)
	DeleteLink(ctx context.Context, id uuid.UUID) error

	// Redemption. Returns the signed storage URL for the caller to
	// redirect to.
	Redeem(ctx context.Context, id uuid.UUID) (string, error)

	// Maintenance
	CleanupExpired(ctx context.Context) (int64, error)

	// Object store browsing (management surface)
	ListBuckets(ctx context.Context) ([]BucketInfo, error)
	ListObjects(ctx context.Context, req ListObjectsRequest) (*ObjectPage, error)
}
