package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-sharelink/pkg/sharelink"
)

// Repository implements sharelink.Repository using in-memory storage.
// TryRedeem holds the write lock across its check and increment, which
// gives the per-id atomicity the redemption path requires.
type Repository struct {
	mu    sync.RWMutex
	links map[uuid.UUID]*sharelink.Link
}

// New creates a new in-memory repository
func New() sharelink.Repository {
	return &Repository{
		links: make(map[uuid.UUID]*sharelink.Link),
	}
}

func (r *Repository) CreateLink(ctx context.Context, link *sharelink.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.links[link.ID]; exists {
		return sharelink.ErrDuplicateID
	}

	// Store a copy to avoid external modifications
	linkCopy := *link
	r.links[link.ID] = &linkCopy

	return nil
}

func (r *Repository) GetLink(ctx context.Context, id uuid.UUID) (*sharelink.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, exists := r.links[id]
	if !exists {
		return nil, sharelink.ErrLinkNotFound
	}

	// Return a copy to prevent external modifications
	linkCopy := *link
	return &linkCopy, nil
}

func (r *Repository) ListLinks(ctx context.Context, limit, offset int) ([]*sharelink.Link, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*sharelink.Link, 0, len(r.links))
	for _, link := range r.links {
		linkCopy := *link
		all = append(all, &linkCopy)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []*sharelink.Link{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}

	return all, nil
}

func (r *Repository) DeleteLink(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.links[id]; !exists {
		return sharelink.ErrLinkNotFound
	}

	delete(r.links, id)
	return nil
}

func (r *Repository) TryRedeem(ctx context.Context, id uuid.UUID, now time.Time) (*sharelink.RedeemedLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, exists := r.links[id]
	if !exists {
		return nil, sharelink.ErrLinkNotFound
	}
	if link.ExpiredAt(now) {
		return nil, sharelink.ErrLinkExpired
	}
	if link.Exhausted() {
		return nil, sharelink.ErrLinkExhausted
	}

	link.DownloadsServed++

	return &sharelink.RedeemedLink{
		ObjectKey:        link.ObjectKey,
		Bucket:           link.Bucket,
		DownloadFilename: link.DownloadFilename,
	}, nil
}

func (r *Repository) ReleaseRedemption(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, exists := r.links[id]
	if !exists {
		return sharelink.ErrLinkNotFound
	}
	if link.DownloadsServed > 0 {
		link.DownloadsServed--
	}
	return nil
}

func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, link := range r.links {
		if link.ExpiredAt(now) || link.Exhausted() {
			delete(r.links, id)
			deleted++
		}
	}

	return deleted, nil
}
