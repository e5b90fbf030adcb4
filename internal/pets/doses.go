package pets

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ayush/pawpal-api/internal/httpx"
	"github.com/ayush/pawpal-api/internal/models"
	"github.com/ayush/pawpal-api/internal/store"
)

const (
	maxNoteLength    = 500
	defaultDoseLimit = 20
	maxDoseLimit     = 100
)

type doseResponse struct {
	Message string          `json:"message"`
	Dose    *models.DoseLog `json:"dose"`
}

// LogDose handles POST /pets/{id}/doses.
func (h *Handler) LogDose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pet, ok := h.ownedPet(w, r)
	if !ok {
		return
	}

	var req models.DoseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}

	note := strings.TrimSpace(req.Note)
	switch {
	case note == "":
		httpx.WriteError(ctx, w, h.log, httpx.Validation("Note is required"))
		return
	case utf8.RuneCountInString(note) > maxNoteLength:
		httpx.WriteError(ctx, w, h.log, httpx.Validation("Note must be at most 500 characters"))
		return
	}

	dose := &models.DoseLog{PetID: pet.ID, UserID: pet.UserID, Note: note}

	if s := trimmed(req.GivenAt); s != "" {
		givenAt, err := time.Parse(time.RFC3339, s)
		if err != nil {
			httpx.WriteError(ctx, w, h.log, httpx.Validation("givenAt must be an RFC 3339 timestamp"))
			return
		}
		dose.GivenAt = givenAt.UTC()
	}

	if req.MedicationID != nil {
		_, err := h.store.GetMedication(ctx, pet.ID, *req.MedicationID)
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(ctx, w, h.log, httpx.NotFound(msgMedicationNotFound))
			return
		}
		if err != nil {
			httpx.WriteError(ctx, w, h.log, err)
			return
		}
		dose.MedicationID = req.MedicationID
	}

	saved, err := h.doses.InsertDose(ctx, dose)
	if err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}

	h.log.Info(ctx, "dose logged", "pet_id", pet.ID, "dose_id", saved.ID.Hex())
	httpx.WriteJSON(w, http.StatusCreated, doseResponse{Message: "Dose logged successfully", Dose: saved})
}

// ListDoses handles GET /pets/{id}/doses?limit=N, newest first.
func (h *Handler) ListDoses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pet, ok := h.ownedPet(w, r)
	if !ok {
		return
	}

	limit, err := doseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}

	doses, err := h.doses.ListDoses(ctx, pet.UserID, pet.ID, limit)
	if err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}
	if doses == nil {
		doses = []models.DoseLog{}
	}
	httpx.WriteJSON(w, http.StatusOK, doses)
}

func doseLimit(raw string) (int64, error) {
	if raw == "" {
		return defaultDoseLimit, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, httpx.Validation("limit must be a positive integer")
	}
	return min(n, maxDoseLimit), nil
}
