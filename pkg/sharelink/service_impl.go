package sharelink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// createAttempts bounds id regeneration on ErrDuplicateID. uuid.New makes
// a collision effectively impossible, so one retry is already generous.
const createAttempts = 3

// service implements the Service interface
type service struct {
	repository     Repository
	signer         Signer
	browser        Browser
	defaultExpiry  time.Duration
	publicBaseURL  string
	downloadPrefix string
	now            func() time.Time
	rollbackOnSign bool
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the link repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithSigner sets the external URL signer for the service
func WithSigner(signer Signer) Option {
	return func(s *service) {
		s.signer = signer
	}
}

// WithBrowser sets the optional object store browser
func WithBrowser(browser Browser) Option {
	return func(s *service) {
		s.browser = browser
	}
}

// WithDefaultExpiry sets the expiry applied when a creation request does
// not specify one
func WithDefaultExpiry(d time.Duration) Option {
	return func(s *service) {
		s.defaultExpiry = d
	}
}

// WithPublicURL sets the base URL and path prefix used to build the public
// download URL for a link
func WithPublicURL(baseURL, prefix string) Option {
	return func(s *service) {
		s.publicBaseURL = strings.TrimRight(baseURL, "/")
		s.downloadPrefix = strings.Trim(prefix, "/")
	}
}

// WithClock overrides the time source. Used by tests to exercise expiry
// without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithSignerFailureRollback controls the counter policy when the signer
// fails after a redemption slot was consumed. The default (false) keeps
// the increment: the redemption intent was genuine and a client retry is
// cheap. Enabling rollback releases the slot best-effort instead.
func WithSignerFailureRollback(rollback bool) Option {
	return func(s *service) {
		s.rollbackOnSign = rollback
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		defaultExpiry:  time.Hour,
		publicBaseURL:  "http://localhost:8080",
		downloadPrefix: "download",
		now:            time.Now,
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.signer == nil {
		return nil, fmt.Errorf("signer is required")
	}

	return s, nil
}

// Link lifecycle

func (s *service) CreateLink(ctx context.Context, req CreateLinkRequest) (*LinkStatus, error) {
	objectKey := strings.TrimSpace(req.ObjectKey)
	if objectKey == "" {
		return nil, fmt.Errorf("%w: object key must not be empty", ErrInvalidInput)
	}
	if req.ExpiresIn < 0 {
		return nil, fmt.Errorf("%w: expires_in_seconds must not be negative", ErrInvalidInput)
	}
	if req.MaxDownloads != nil && *req.MaxDownloads <= 0 {
		return nil, fmt.Errorf("%w: max_downloads must be positive", ErrInvalidInput)
	}

	expiry := s.defaultExpiry
	if req.ExpiresIn > 0 {
		expiry = time.Duration(req.ExpiresIn) * time.Second
	}

	now := s.now().UTC()
	link := &Link{
		ObjectKey:        objectKey,
		Bucket:           req.Bucket,
		ExpiresAt:        now.Add(expiry),
		MaxDownloads:     req.MaxDownloads,
		CreatedAt:        now,
		DownloadFilename: req.DownloadFilename,
	}

	// ErrDuplicateID never reaches the caller; a collision just gets a
	// fresh id.
	var err error
	for attempt := 0; attempt < createAttempts; attempt++ {
		link.ID = uuid.New()
		err = s.repository.CreateLink(ctx, link)
		if err == nil {
			return s.project(link, now), nil
		}
		if !errors.Is(err, ErrDuplicateID) {
			break
		}
	}

	return nil, &LinkError{LinkID: link.ID, Op: "create", Err: err}
}

func (s *service) GetLink(ctx context.Context, id uuid.UUID) (*LinkStatus, error) {
	link, err := s.repository.GetLink(ctx, id)
	if err != nil {
		return nil, &LinkError{LinkID: id, Op: "get", Err: err}
	}
	return s.project(link, s.now().UTC()), nil
}

func (s *service) ListLinks(ctx context.Context, limit, offset int) ([]*LinkStatus, error) {
	links, err := s.repository.ListLinks(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	now := s.now().UTC()
	statuses := make([]*LinkStatus, 0, len(links))
	for _, link := range links {
		statuses = append(statuses, s.project(link, now))
	}
	return statuses, nil
}

func (s *service) DeleteLink(ctx context.Context, id uuid.UUID) error {
	if err := s.repository.DeleteLink(ctx, id); err != nil {
		return &LinkError{LinkID: id, Op: "delete", Err: err}
	}
	return nil
}

// Redemption

func (s *service) Redeem(ctx context.Context, id uuid.UUID) (string, error) {
	redeemed, err := s.repository.TryRedeem(ctx, id, s.now().UTC())
	if err != nil {
		return "", &LinkError{LinkID: id, Op: "redeem", Err: err}
	}

	url, err := s.signer.SignDownloadURL(ctx, redeemed.Bucket, redeemed.ObjectKey, redeemed.DownloadFilename)
	if err != nil {
		// The slot consumed by TryRedeem is already committed. Release
		// it only when the rollback policy is enabled; the release is
		// best-effort and its own failure is not surfaced.
		if s.rollbackOnSign {
			_ = s.repository.ReleaseRedemption(ctx, id)
		}
		return "", &LinkError{
			LinkID: id,
			Op:     "redeem",
			Err:    &SignerError{Bucket: redeemed.Bucket, Key: redeemed.ObjectKey, Err: err},
		}
	}

	return url, nil
}

// Maintenance

func (s *service) CleanupExpired(ctx context.Context) (int64, error) {
	deleted, err := s.repository.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup expired links: %w", err)
	}
	return deleted, nil
}

// Object store browsing

func (s *service) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	if s.browser == nil {
		return nil, fmt.Errorf("object store browsing is not configured")
	}
	return s.browser.ListBuckets(ctx)
}

func (s *service) ListObjects(ctx context.Context, req ListObjectsRequest) (*ObjectPage, error) {
	if s.browser == nil {
		return nil, fmt.Errorf("object store browsing is not configured")
	}
	if strings.TrimSpace(req.Bucket) == "" {
		return nil, fmt.Errorf("%w: bucket is required", ErrInvalidInput)
	}
	return s.browser.ListObjects(ctx, req)
}

func (s *service) project(link *Link, now time.Time) *LinkStatus {
	return ProjectStatus(link, now, s.downloadURL(link.ID))
}

func (s *service) downloadURL(id uuid.UUID) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.downloadPrefix, id)
}
