package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-sharelink/pkg/sharelink"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements sharelink.Repository using PostgreSQL. Redemption
// atomicity comes from a single conditional UPDATE; the database
// serializes concurrent redeemers of the same id at row level without
// blocking redeemers of other ids.
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// EnsureSchema creates the share_links table and its indexes if they do
// not exist yet. Called once at startup.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS share_links (
			id UUID PRIMARY KEY,
			object_key TEXT NOT NULL,
			bucket TEXT NOT NULL DEFAULT '',
			expires_at TIMESTAMPTZ NOT NULL,
			max_downloads BIGINT,
			downloads_served BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			download_filename TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_share_links_expires_at ON share_links (expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_share_links_created_at ON share_links (created_at)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (r *Repository) CreateLink(ctx context.Context, link *sharelink.Link) error {
	query := `
		INSERT INTO share_links (
			id, object_key, bucket, expires_at, max_downloads,
			downloads_served, created_at, download_filename
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		link.ID, link.ObjectKey, link.Bucket, link.ExpiresAt,
		link.MaxDownloads, link.DownloadsServed, link.CreatedAt,
		link.DownloadFilename)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sharelink.ErrDuplicateID
		}
		return fmt.Errorf("create link: %w", err)
	}

	return nil
}

func (r *Repository) GetLink(ctx context.Context, id uuid.UUID) (*sharelink.Link, error) {
	query := `
		SELECT id, object_key, bucket, expires_at, max_downloads,
		       downloads_served, created_at, download_filename
		FROM share_links WHERE id = $1`

	var link sharelink.Link
	err := r.db.QueryRow(ctx, query, id).Scan(
		&link.ID, &link.ObjectKey, &link.Bucket, &link.ExpiresAt,
		&link.MaxDownloads, &link.DownloadsServed, &link.CreatedAt,
		&link.DownloadFilename)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sharelink.ErrLinkNotFound
		}
		return nil, fmt.Errorf("get link: %w", err)
	}

	return &link, nil
}

func (r *Repository) ListLinks(ctx context.Context, limit, offset int) ([]*sharelink.Link, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, object_key, bucket, expires_at, max_downloads,
		       downloads_served, created_at, download_filename
		FROM share_links
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var links []*sharelink.Link
	for rows.Next() {
		var link sharelink.Link
		if err := rows.Scan(
			&link.ID, &link.ObjectKey, &link.Bucket, &link.ExpiresAt,
			&link.MaxDownloads, &link.DownloadsServed, &link.CreatedAt,
			&link.DownloadFilename); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, &link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	return links, nil
}

func (r *Repository) DeleteLink(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM share_links WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sharelink.ErrLinkNotFound
	}
	return nil
}

func (r *Repository) TryRedeem(ctx context.Context, id uuid.UUID, now time.Time) (*sharelink.RedeemedLink, error) {
	// The conditional UPDATE is the whole check-and-increment: the row
	// lock taken by UPDATE serializes racers, and the WHERE clause makes
	// the last slot go to exactly one of them.
	query := `
		UPDATE share_links
		SET downloads_served = downloads_served + 1
		WHERE id = $1
		  AND expires_at > $2
		  AND (max_downloads IS NULL OR downloads_served < max_downloads)
		RETURNING object_key, bucket, download_filename`

	var redeemed sharelink.RedeemedLink
	err := r.db.QueryRow(ctx, query, id, now).Scan(
		&redeemed.ObjectKey, &redeemed.Bucket, &redeemed.DownloadFilename)
	if err == nil {
		return &redeemed, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("redeem link: %w", err)
	}

	return nil, r.classifyRejection(ctx, id, now)
}

// classifyRejection turns a zero-row redeem into the matching domain
// error. Expiry and exhaustion are monotonic, so reading the row after
// the failed UPDATE cannot mislabel the rejection.
func (r *Repository) classifyRejection(ctx context.Context, id uuid.UUID, now time.Time) error {
	link, err := r.GetLink(ctx, id)
	if err != nil {
		if errors.Is(err, sharelink.ErrLinkNotFound) {
			return sharelink.ErrLinkNotFound
		}
		return err
	}
	if link.ExpiredAt(now) {
		return sharelink.ErrLinkExpired
	}
	if link.Exhausted() {
		return sharelink.ErrLinkExhausted
	}
	// The row appeared between the UPDATE and this read; report the
	// state that held at the redemption instant.
	return sharelink.ErrLinkNotFound
}

func (r *Repository) ReleaseRedemption(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE share_links
		SET downloads_served = downloads_served - 1
		WHERE id = $1 AND downloads_served > 0`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("release redemption: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the link is gone or the counter is already zero; only
		// the former is an error.
		if _, err := r.GetLink(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		DELETE FROM share_links
		WHERE expires_at <= $1
		   OR (max_downloads IS NOT NULL AND downloads_served >= max_downloads)`

	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired links: %w", err)
	}
	return tag.RowsAffected(), nil
}
