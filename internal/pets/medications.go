package pets

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ayush/pawpal-api/internal/httpx"
	"github.com/ayush/pawpal-api/internal/models"
	"github.com/ayush/pawpal-api/internal/store"
)

const (
	msgMedicationNotFound = "Medication not found"
	msgMedicationFields   = "Name, dosage, frequency and startTime are required"
	msgMedicationTimes    = "startTime and endTime must be RFC 3339 timestamps"
	msgMedicationOrder    = "endTime must not be before startTime"
	msgMedicationTooLong  = "Name, dosage and frequency must be at most 100 characters long"

	// name, dosage and frequency are VARCHAR(100)
	maxMedicationField = 100
)

type medicationResponse struct {
	Message    string             `json:"message"`
	Medication *models.Medication `json:"medication"`
}

// CreateMedication handles POST /pets/{id}/medications.
func (h *Handler) CreateMedication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pet, ok := h.ownedPet(w, r)
	if !ok {
		return
	}

	var req models.MedicationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}

	med := &models.Medication{
		PetID:     pet.ID,
		Name:      trimmed(req.Name),
		Dosage:    trimmed(req.Dosage),
		Frequency: trimmed(req.Frequency),
	}
	if med.Name == "" || med.Dosage == "" || med.Frequency == "" || trimmed(req.StartTime) == "" {
		httpx.WriteError(ctx, w, h.log, httpx.Validation(msgMedicationFields))
		return
	}
	if !medicationFits(med) {
		httpx.WriteError(ctx, w, h.log, httpx.Validation(msgMedicationTooLong))
		return
	}
	if err := applyTimes(med, req); err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}

	created, err := h.store.CreateMedication(ctx, med)
	if err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}

	h.log.Info(ctx, "medication created", "pet_id", pet.ID, "medication_id", created.ID)
	httpx.WriteJSON(w, http.StatusCreated, medicationResponse{
		Message:    itemMessage("Medication", "created"),
		Medication: created,
	})
}

// ListMedications handles GET /pets/{id}/medications.
func (h *Handler) ListMedications(w http.ResponseWriter, r *http.Request) {
	pet, ok := h.ownedPet(w, r)
	if !ok {
		return
	}

	meds, err := h.store.ListMedications(r.Context(), pet.ID)
	if err != nil {
		httpx.WriteError(r.Context(), w, h.log, err)
		return
	}
	if meds == nil {
		meds = []models.Medication{}
	}
	httpx.WriteJSON(w, http.StatusOK, meds)
}

// UpdateMedication handles PUT /pets/{id}/medications/{medID}. Absent fields
// keep their value; an empty endTime clears it.
func (h *Handler) UpdateMedication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	med, ok := h.ownedMedication(w, r)
	if !ok {
		return
	}

	var req models.MedicationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}

	if req.Name != nil {
		med.Name = trimmed(req.Name)
	}
	if req.Dosage != nil {
		med.Dosage = trimmed(req.Dosage)
	}
	if req.Frequency != nil {
		med.Frequency = trimmed(req.Frequency)
	}
	if med.Name == "" || med.Dosage == "" || med.Frequency == "" ||
		(req.StartTime != nil && trimmed(req.StartTime) == "") {
		httpx.WriteError(ctx, w, h.log, httpx.Validation(msgMedicationFields))
		return
	}
	if !medicationFits(med) {
		httpx.WriteError(ctx, w, h.log, httpx.Validation(msgMedicationTooLong))
		return
	}
	if err := applyTimes(med, req); err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}

	updated, err := h.store.UpdateMedication(ctx, med)
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(ctx, w, h.log, httpx.NotFound(msgMedicationNotFound))
		return
	}
	if err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, medicationResponse{
		Message:    itemMessage("Medication", "updated"),
		Medication: updated,
	})
}

// DeleteMedication handles DELETE /pets/{id}/medications/{medID}.
func (h *Handler) DeleteMedication(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pet, ok := h.ownedPet(w, r)
	if !ok {
		return
	}
	medID, ok := pathID(r, "medID")
	if !ok {
		httpx.WriteError(ctx, w, h.log, httpx.NotFound(msgMedicationNotFound))
		return
	}

	err := h.store.DeleteMedication(ctx, pet.ID, medID)
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(ctx, w, h.log, httpx.NotFound(msgMedicationNotFound))
		return
	}
	if err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}

	h.log.Info(ctx, "medication deleted", "pet_id", pet.ID, "medication_id", medID)
	httpx.WriteMessage(w, http.StatusOK, itemMessage("Medication", "deleted"))
}

// ownedMedication resolves {id}/{medID} through the caller's pet.
func (h *Handler) ownedMedication(w http.ResponseWriter, r *http.Request) (*models.Medication, bool) {
	ctx := r.Context()
	pet, ok := h.ownedPet(w, r)
	if !ok {
		return nil, false
	}
	medID, ok := pathID(r, "medID")
	if !ok {
		httpx.WriteError(ctx, w, h.log, httpx.NotFound(msgMedicationNotFound))
		return nil, false
	}

	med, err := h.store.GetMedication(ctx, pet.ID, medID)
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(ctx, w, h.log, httpx.NotFound(msgMedicationNotFound))
		return nil, false
	}
	if err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return nil, false
	}
	return med, true
}

func medicationFits(m *models.Medication) bool {
	for _, v := range []string{m.Name, m.Dosage, m.Frequency} {
		if utf8.RuneCountInString(v) > maxMedicationField {
			return false
		}
	}
	return true
}

// applyTimes parses the provided start/end times onto med and checks their
// order.
func applyTimes(med *models.Medication, req models.MedicationRequest) error {
	if s := trimmed(req.StartTime); s != "" {
		start, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return httpx.Validation(msgMedicationTimes)
		}
		med.StartTime = start.UTC()
	}
	if req.EndTime != nil {
		if s := strings.TrimSpace(*req.EndTime); s == "" {
			med.EndTime = nil
		} else {
			end, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return httpx.Validation(msgMedicationTimes)
			}
			end = end.UTC()
			med.EndTime = &end
		}
	}
	if med.EndTime != nil && med.EndTime.Before(med.StartTime) {
		return httpx.Validation(msgMedicationOrder)
	}
	return nil
}
