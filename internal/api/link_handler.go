package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-sharelink/pkg/sharelink"
)

// LinkHandler handles the authenticated link management endpoints
type LinkHandler struct {
	service sharelink.Service
}

// NewLinkHandler creates a new link handler
func NewLinkHandler(service sharelink.Service) *LinkHandler {
	return &LinkHandler{service: service}
}

// Routes returns the routes for link management
func (h *LinkHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateLink)
	r.Get("/", h.ListLinks)
	r.Get("/{id}", h.GetLink)
	r.Delete("/{id}", h.DeleteLink)

	return r
}

// CreateLinkRequest is the request body for creating a share link
type CreateLinkRequest struct {
	ObjectKey        string `json:"object_key"`
	Bucket           string `json:"bucket,omitempty"`
	ExpiresInSeconds int64  `json:"expires_in_seconds,omitempty"`
	MaxDownloads     *int64 `json:"max_downloads,omitempty"`
	DownloadFilename string `json:"download_filename,omitempty"`
}

// LinkResponse is the response body for a share link
type LinkResponse struct {
	ID               string    `json:"id"`
	ObjectKey        string    `json:"object_key"`
	Bucket           string    `json:"bucket,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
	MaxDownloads     *int64    `json:"max_downloads,omitempty"`
	DownloadsServed  int64     `json:"downloads_served"`
	CreatedAt        time.Time `json:"created_at"`
	DownloadFilename string    `json:"download_filename,omitempty"`
	IsExpired        bool      `json:"is_expired"`
	Remaining        *int64    `json:"remaining,omitempty"`
	Usable           bool      `json:"usable"`
	DownloadURL      string    `json:"download_url"`
}

// ListLinksResponse is the response body for a link listing
type ListLinksResponse struct {
	Links []LinkResponse `json:"links"`
	Total int            `json:"total"`
}

func toLinkResponse(status *sharelink.LinkStatus) LinkResponse {
	return LinkResponse{
		ID:               status.ID.String(),
		ObjectKey:        status.ObjectKey,
		Bucket:           status.Bucket,
		ExpiresAt:        status.ExpiresAt,
		MaxDownloads:     status.MaxDownloads,
		DownloadsServed:  status.DownloadsServed,
		CreatedAt:        status.CreatedAt,
		DownloadFilename: status.DownloadFilename,
		IsExpired:        status.IsExpired,
		Remaining:        status.Remaining,
		Usable:           status.Usable,
		DownloadURL:      status.DownloadURL,
	}
}

// CreateLink creates a new share link
func (h *LinkHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	status, err := h.service.CreateLink(r.Context(), sharelink.CreateLinkRequest{
		ObjectKey:        req.ObjectKey,
		Bucket:           req.Bucket,
		ExpiresIn:        req.ExpiresInSeconds,
		MaxDownloads:     req.MaxDownloads,
		DownloadFilename: req.DownloadFilename,
	})
	if err != nil {
		if errors.Is(err, sharelink.ErrInvalidInput) {
			slog.Warn("Invalid link creation request", "object_key", req.ObjectKey, "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Failed to create link", "error", err)
		http.Error(w, "failed to create link", http.StatusInternalServerError)
		return
	}

	slog.Info("Link created", "link_id", status.ID.String(), "object_key", status.ObjectKey)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toLinkResponse(status))
}

// ListLinks lists share links, most recent first
func (h *LinkHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	statuses, err := h.service.ListLinks(r.Context(), limit, offset)
	if err != nil {
		slog.Error("Failed to list links", "error", err)
		http.Error(w, "failed to list links", http.StatusInternalServerError)
		return
	}

	resp := ListLinksResponse{Links: make([]LinkResponse, 0, len(statuses))}
	for _, status := range statuses {
		resp.Links = append(resp.Links, toLinkResponse(status))
	}
	resp.Total = len(resp.Links)

	render.JSON(w, r, resp)
}

// GetLink returns a single link's status
func (h *LinkHandler) GetLink(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		slog.Warn("Invalid link ID", "id", idStr)
		http.Error(w, "invalid link ID", http.StatusBadRequest)
		return
	}

	status, err := h.service.GetLink(r.Context(), id)
	if err != nil {
		if errors.Is(err, sharelink.ErrLinkNotFound) {
			http.Error(w, "link not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get link", "link_id", idStr, "error", err)
		http.Error(w, "failed to get link", http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, toLinkResponse(status))
}

// DeleteLink removes a link
func (h *LinkHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		slog.Warn("Invalid link ID", "id", idStr)
		http.Error(w, "invalid link ID", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteLink(r.Context(), id); err != nil {
		if errors.Is(err, sharelink.ErrLinkNotFound) {
			http.Error(w, "link not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to delete link", "link_id", idStr, "error", err)
		http.Error(w, "failed to delete link", http.StatusInternalServerError)
		return
	}

	slog.Info("Link deleted", "link_id", idStr)
	render.JSON(w, r, map[string]string{"status": "deleted"})
}

// CleanupResponse is the response body for a cleanup run
type CleanupResponse struct {
	DeletedCount int64 `json:"deleted_count"`
}

// Cleanup removes expired and exhausted links
func (h *LinkHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.CleanupExpired(r.Context())
	if err != nil {
		slog.Error("Failed to clean up links", "error", err)
		http.Error(w, "failed to clean up links", http.StatusInternalServerError)
		return
	}

	slog.Info("Cleanup completed", "deleted_count", deleted)
	render.JSON(w, r, CleanupResponse{DeletedCount: deleted})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
