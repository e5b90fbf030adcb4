package pets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/google/uuid"

	"github.com/ayush/pawpal-api/internal/httpx"
	"github.com/ayush/pawpal-api/internal/store"
)

// MaxPhotoSize is the largest accepted photo upload.
const MaxPhotoSize = 5 << 20

const msgPhotoMissing = "Photo not available"

var photoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

func photoKey(userID, petID int64) string {
	return fmt.Sprintf("pets/%d/%d/%s", userID, petID, uuid.NewString())
}

// UploadPhoto handles PUT /pets/{id}/photo. The body is the raw image; its
// Content-Type must be an allowed image type and agree with the sniffed
// bytes. A previous photo is removed once the new key is recorded.
func (h *Handler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pet, ok := h.ownedPet(w, r)
	if !ok {
		return
	}

	contentType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !photoTypes[contentType] {
		httpx.WriteError(ctx, w, h.log, httpx.Validation("Photo must be a JPEG, PNG or WebP image"))
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, MaxPhotoSize+1))
	if err != nil {
		httpx.WriteError(ctx, w, h.log, httpx.Validation("Invalid request body"))
		return
	}
	switch {
	case len(data) == 0:
		httpx.WriteError(ctx, w, h.log, httpx.Validation("Photo is empty"))
		return
	case len(data) > MaxPhotoSize:
		httpx.WriteError(ctx, w, h.log, httpx.Validation("Photo must be at most 5 MiB"))
		return
	case http.DetectContentType(data) != contentType:
		httpx.WriteError(ctx, w, h.log, httpx.Validation("Photo content does not match its Content-Type"))
		return
	}

	key := photoKey(pet.UserID, pet.ID)
	if err := h.photos.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}

	previous, err := h.store.SetPetPhoto(ctx, pet.UserID, pet.ID, key)
	if err != nil {
		if rmErr := h.photos.Remove(ctx, key); rmErr != nil {
			h.log.Warn(ctx, "orphaned pet photo", "key", key, "err", rmErr)
		}
		if errors.Is(err, store.ErrNotFound) {
			err = httpx.NotFound(msgPetNotFound)
		}
		httpx.WriteError(ctx, w, h.log, err)
		return
	}
	if previous != "" && previous != key {
		if err := h.photos.Remove(ctx, previous); err != nil {
			h.log.Warn(ctx, "old pet photo cleanup failed", "key", previous, "err", err)
		}
	}

	pet.PhotoKey = key
	pet.HasPhoto = true
	h.log.Info(ctx, "pet photo stored", "pet_id", pet.ID, "bytes", len(data))
	httpx.WriteJSON(w, http.StatusOK, petResponse{Message: "Photo uploaded successfully", Pet: pet})
}

// Photo handles GET /pets/{id}/photo by streaming the stored object.
func (h *Handler) Photo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pet, ok := h.ownedPet(w, r)
	if !ok {
		return
	}
	if pet.PhotoKey == "" {
		httpx.WriteError(ctx, w, h.log, httpx.NotFound(msgPhotoMissing))
		return
	}

	obj, contentType, err := h.photos.Get(ctx, pet.PhotoKey)
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(ctx, w, h.log, httpx.NotFound(msgPhotoMissing))
		return
	}
	if err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}
	defer obj.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj); err != nil {
		h.log.Warn(ctx, "pet photo stream interrupted", "pet_id", pet.ID, "err", err)
	}
}
