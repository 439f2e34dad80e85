package sharelink

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the storage interface for link records. It is the
// single shared mutable resource of the system; all counter mutation goes
// through TryRedeem.
type Repository interface {
	// CreateLink persists a new link. Returns ErrDuplicateID if the id
	// is already taken.
	CreateLink(ctx context.Context, link *Link) error

	// GetLink returns the link or ErrLinkNotFound.
	GetLink(ctx context.Context, id uuid.UUID) (*Link, error)

	// ListLinks returns links ordered by creation time descending.
	ListLinks(ctx context.Context, limit, offset int) ([]*Link, error)

	// DeleteLink removes the link or returns ErrLinkNotFound.
	DeleteLink(ctx context.Context, id uuid.UUID) error

	// TryRedeem atomically checks eligibility at the given instant and
	// increments the download counter. Concurrent calls for the same id
	// serialize here: with one slot left, two racers get exactly one
	// success and one ErrLinkExhausted. Returns ErrLinkNotFound,
	// ErrLinkExpired or ErrLinkExhausted on ineligibility.
	TryRedeem(ctx context.Context, id uuid.UUID, now time.Time) (*RedeemedLink, error)

	// ReleaseRedemption undoes one counted redemption, flooring at zero.
	// Only used when the service is configured to roll back the counter
	// on signer failure.
	ReleaseRedemption(ctx context.Context, id uuid.UUID) error

	// DeleteExpired removes links that are expired or exhausted at the
	// given instant and reports how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Signer is the external capability that turns an object reference into a
// retrievable URL. filename, when non-empty, is surfaced to the browser as
// the download file name.
type Signer interface {
	SignDownloadURL(ctx context.Context, bucket, objectKey, filename string) (string, error)
}

// Browser lists buckets and objects for the management UI. Optional; a
// service without one rejects browse calls.
type Browser interface {
	ListBuckets(ctx context.Context) ([]BucketInfo, error)
	ListObjects(ctx context.Context, req ListObjectsRequest) (*ObjectPage, error)
}
