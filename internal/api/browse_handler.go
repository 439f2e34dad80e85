package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-sharelink/pkg/sharelink"
)

// BrowseHandler exposes bucket and object listings so the management UI
// can pick an object to share.
type BrowseHandler struct {
	service sharelink.Service
}

// NewBrowseHandler creates a new browse handler
func NewBrowseHandler(service sharelink.Service) *BrowseHandler {
	return &BrowseHandler{service: service}
}

// ListBucketsResponse is the response body for a bucket listing
type ListBucketsResponse struct {
	Buckets []sharelink.BucketInfo `json:"buckets"`
}

// ListBuckets lists the buckets visible to the configured credentials
func (h *BrowseHandler) ListBuckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.service.ListBuckets(r.Context())
	if err != nil {
		slog.Error("Failed to list buckets", "error", err)
		http.Error(w, "failed to list buckets", http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, ListBucketsResponse{Buckets: buckets})
}

// ListObjects lists one page of objects in a bucket
func (h *BrowseHandler) ListObjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.service.ListObjects(r.Context(), sharelink.ListObjectsRequest{
		Bucket:            q.Get("bucket"),
		Prefix:            q.Get("prefix"),
		ContinuationToken: q.Get("continuation-token"),
	})
	if err != nil {
		if errors.Is(err, sharelink.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Failed to list objects", "bucket", q.Get("bucket"), "error", err)
		http.Error(w, "failed to list objects", http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, page)
}
