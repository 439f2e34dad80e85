package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tendant/simple-sharelink/pkg/sharelink"
)

// DownloadHandler serves the public redemption endpoint. It is the only
// unauthenticated surface besides /health: the link id is the credential.
type DownloadHandler struct {
	service sharelink.Service
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(service sharelink.Service) *DownloadHandler {
	return &DownloadHandler{service: service}
}

// Routes returns the routes for public downloads
func (h *DownloadHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}", h.Resolve)
	return r
}

// Resolve redeems a link and redirects to the signed storage URL. The
// distinct failure kinds map to distinct statuses so a caller can tell a
// dead token from a spent one.
func (h *DownloadHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		// An unparseable token is indistinguishable from an unknown one.
		http.Error(w, "download link not found", http.StatusNotFound)
		return
	}

	url, err := h.service.Redeem(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, sharelink.ErrLinkNotFound):
			http.Error(w, "download link not found", http.StatusNotFound)
		case errors.Is(err, sharelink.ErrLinkExpired):
			http.Error(w, "download link has expired", http.StatusGone)
		case errors.Is(err, sharelink.ErrLinkExhausted):
			http.Error(w, "download limit exceeded", http.StatusTooManyRequests)
		case errors.Is(err, sharelink.ErrSignerFailure):
			slog.Error("Signer failed during redemption", "link_id", idStr, "error", err)
			http.Error(w, "failed to generate download URL", http.StatusBadGateway)
		default:
			slog.Error("Failed to redeem link", "link_id", idStr, "error", err)
			http.Error(w, "failed to redeem link", http.StatusInternalServerError)
		}
		return
	}

	slog.Info("Link redeemed", "link_id", idStr)
	http.Redirect(w, r, url, http.StatusFound)
}
