package sharelink

import (
	"time"

	"github.com/google/uuid"
)

// Link represents a share link for an object in the configured object store.
//
// A link is immutable after creation except for DownloadsServed, which is
// incremented only through Repository.TryRedeem.
type Link struct {
	ID               uuid.UUID `json:"id"`
	ObjectKey        string    `json:"object_key"`
	Bucket           string    `json:"bucket,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
	MaxDownloads     *int64    `json:"max_downloads,omitempty"`
	DownloadsServed  int64     `json:"downloads_served"`
	CreatedAt        time.Time `json:"created_at"`
	DownloadFilename string    `json:"download_filename,omitempty"`
}

// ExpiredAt reports whether the link's time window has closed at the given
// instant. The boundary itself counts as expired.
func (l *Link) ExpiredAt(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// Exhausted reports whether the link's download budget is used up. A link
// without MaxDownloads never exhausts.
func (l *Link) Exhausted() bool {
	return l.MaxDownloads != nil && l.DownloadsServed >= *l.MaxDownloads
}

// Redeemable reports whether a redemption at the given instant would be
// eligible. The status projection and the stores use the same predicate so
// that a link shown as usable does not spuriously fail redemption.
func (l *Link) Redeemable(now time.Time) bool {
	return !l.ExpiredAt(now) && !l.Exhausted()
}

// LinkStatus is the read-only projection of a Link for listing and
// management. DownloadURL is the public indirection URL, not a signed
// storage URL.
type LinkStatus struct {
	Link
	IsExpired   bool   `json:"is_expired"`
	Remaining   *int64 `json:"remaining,omitempty"`
	Usable      bool   `json:"usable"`
	DownloadURL string `json:"download_url"`
}

// RedeemedLink carries the fields a successful redemption needs to build
// the signed storage URL.
type RedeemedLink struct {
	ObjectKey        string
	Bucket           string
	DownloadFilename string
}

// BucketInfo describes a bucket visible to the configured credentials.
type BucketInfo struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ObjectInfo describes a single object in a bucket listing.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// ObjectPage is one page of an object listing.
type ObjectPage struct {
	Objects               []ObjectInfo `json:"objects"`
	IsTruncated           bool         `json:"is_truncated"`
	NextContinuationToken string       `json:"next_continuation_token,omitempty"`
}
