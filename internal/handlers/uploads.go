package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/velora-shop/api/internal/platform/httpx"
	"github.com/velora-shop/api/internal/platform/storage"
)

const maxUploadBodySize = 16 << 20

// ImageStore persists browser-submitted images and returns their public URLs.
type ImageStore interface {
	Upload(ctx context.Context, payload string) (string, error)
}

type uploadImageRequest struct {
	Image string `json:"image"`
}

// UploadHandlers exposes the image upload endpoint.
type UploadHandlers struct {
	images ImageStore
}

// NewUploadHandlers constructs a new UploadHandlers instance.
func NewUploadHandlers(images ImageStore) *UploadHandlers {
	return &UploadHandlers{images: images}
}

// UploadImage accepts a base64 data URL and answers with the public object URL.
func (h *UploadHandlers) UploadImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.images == nil {
		httpx.WriteError(ctx, w, httpx.NewError("uploads unavailable", http.StatusServiceUnavailable))
		return
	}

	var req uploadImageRequest
	if !decodeBodyLimit(ctx, w, r, &req, maxUploadBodySize) {
		return
	}

	url, err := h.images.Upload(ctx, req.Image)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrImageInvalid):
			httpx.WriteError(ctx, w, httpx.NewError("image payload invalid", http.StatusBadRequest))
		case errors.Is(err, storage.ErrImageTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("image payload too large", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("could not store image", http.StatusInternalServerError))
		}
		return
	}

	httpx.WriteSuccess(w, http.StatusCreated, "image uploaded", map[string]string{"url": url})
}
