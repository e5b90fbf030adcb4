// Package pets serves the owned resources: pets and, per pet, medications,
// the dose log and a photo. Every lookup is scoped by the caller's user id,
// so a pet owned by someone else is indistinguishable from a missing one.
package pets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/pawpal-api/internal/httpx"
	"github.com/ayush/pawpal-api/internal/logging"
	"github.com/ayush/pawpal-api/internal/middleware"
	"github.com/ayush/pawpal-api/internal/models"
	"github.com/ayush/pawpal-api/internal/store"
)

// Store is the relational side: pets and their medications.
type Store interface {
	CreatePet(ctx context.Context, p *models.Pet) (*models.Pet, error)
	ListPets(ctx context.Context, userID int64) ([]models.Pet, error)
	GetPet(ctx context.Context, userID, petID int64) (*models.Pet, error)
	UpdatePet(ctx context.Context, p *models.Pet) (*models.Pet, error)
	SetPetPhoto(ctx context.Context, userID, petID int64, key string) (string, error)
	DeletePet(ctx context.Context, userID, petID int64) (*models.Pet, error)

	CreateMedication(ctx context.Context, m *models.Medication) (*models.Medication, error)
	ListMedications(ctx context.Context, petID int64) ([]models.Medication, error)
	GetMedication(ctx context.Context, petID, medID int64) (*models.Medication, error)
	UpdateMedication(ctx context.Context, m *models.Medication) (*models.Medication, error)
	DeleteMedication(ctx context.Context, petID, medID int64) error
}

// DoseStore persists dose log entries.
type DoseStore interface {
	InsertDose(ctx context.Context, dose *models.DoseLog) (*models.DoseLog, error)
	ListDoses(ctx context.Context, userID, petID int64, limit int64) ([]models.DoseLog, error)
	DeleteDosesForPet(ctx context.Context, userID, petID int64) error
}

// PhotoStore holds pet photo objects.
type PhotoStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Remove(ctx context.Context, key string) error
}

const (
	msgPetNotFound     = "Pet not found"
	msgPetFields       = "Name and species are required"
	msgAgeNotInteger   = "Age must be an integer"
	msgAgeOutOfRange   = "Age is out of range"
	msgUnauthenticated = "User not found or inactive"
)

// Column widths of the pets table; age is an INTEGER.
const (
	maxPetName    = 100
	maxPetSpecies = 50
	maxPetBreed   = 100
	maxPetAge     = math.MaxInt32
)

// Handler holds the pet HTTP handlers. doses and photos may be nil, in which
// case those routes are not served.
type Handler struct {
	store  Store
	doses  DoseStore
	photos PhotoStore
	log    logging.Logger
}

func NewHandler(s Store, doses DoseStore, photos PhotoStore, log logging.Logger) *Handler {
	return &Handler{store: s, doses: doses, photos: photos, log: log.With("component", "pets")}
}

func (h *Handler) DoseLogEnabled() bool { return h.doses != nil }

func (h *Handler) PhotosEnabled() bool { return h.photos != nil }

type petResponse struct {
	Message string      `json:"message"`
	Pet     *models.Pet `json:"pet"`
}

// Create handles POST /pets/create.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req models.PetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}

	name, species := trimmed(req.Name), trimmed(req.Species)
	if name == "" || species == "" {
		httpx.WriteError(ctx, w, h.log, httpx.Validation(msgPetFields))
		return
	}
	age, _, err := parseAge(req.Age)
	if err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}
	pet := &models.Pet{
		UserID:  user.ID,
		Name:    name,
		Species: species,
		Breed:   optional(req.Breed),
		Age:     age,
	}
	if err := checkPetLengths(pet); err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}

	pet, err = h.store.CreatePet(ctx, pet)
	if err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}

	h.log.Info(ctx, "pet created", "user_id", user.ID, "pet_id", pet.ID)
	httpx.WriteJSON(w, http.StatusCreated, petResponse{Message: "Pet created successfully", Pet: pet})
}

// List handles GET /pets. No pets is an empty array, not an error.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r)
	if !ok {
		return
	}

	pets, err := h.store.ListPets(r.Context(), user.ID)
	if err != nil {
		httpx.WriteError(r.Context(), w, h.log, err)
		return
	}
	if pets == nil {
		pets = []models.Pet{}
	}
	httpx.WriteJSON(w, http.StatusOK, pets)
}

// Update handles PUT /pets/{id}. Absent fields keep their value; an empty
// breed or a null age clears it.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pet, ok := h.ownedPet(w, r)
	if !ok {
		return
	}

	var req models.PetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}

	if req.Name != nil {
		pet.Name = strings.TrimSpace(*req.Name)
	}
	if req.Species != nil {
		pet.Species = strings.TrimSpace(*req.Species)
	}
	if pet.Name == "" || pet.Species == "" {
		httpx.WriteError(ctx, w, h.log, httpx.Validation(msgPetFields))
		return
	}
	if req.Breed != nil {
		pet.Breed = optional(req.Breed)
	}
	age, present, err := parseAge(req.Age)
	if err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}
	if present {
		pet.Age = age
	}
	if err := checkPetLengths(pet); err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}

	updated, err := h.store.UpdatePet(ctx, pet)
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(ctx, w, h.log, httpx.NotFound(msgPetNotFound))
		return
	}
	if err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, petResponse{Message: "Pet updated successfully", Pet: updated})
}

// Delete handles DELETE /pets/{id}. Medications go with the row; the photo
// object and dose log are removed best effort afterwards.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := h.caller(w, r)
	if !ok {
		return
	}
	petID, ok := pathID(r, "id")
	if !ok {
		httpx.WriteError(ctx, w, h.log, httpx.NotFound(msgPetNotFound))
		return
	}

	pet, err := h.store.DeletePet(ctx, user.ID, petID)
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(ctx, w, h.log, httpx.NotFound(msgPetNotFound))
		return
	}
	if err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return
	}

	if h.photos != nil && pet.PhotoKey != "" {
		if err := h.photos.Remove(ctx, pet.PhotoKey); err != nil {
			h.log.Warn(ctx, "pet photo cleanup failed", "pet_id", pet.ID, "key", pet.PhotoKey, "err", err)
		}
	}
	if h.doses != nil {
		if err := h.doses.DeleteDosesForPet(ctx, user.ID, pet.ID); err != nil {
			h.log.Warn(ctx, "dose log cleanup failed", "pet_id", pet.ID, "err", err)
		}
	}

	h.log.Info(ctx, "pet deleted", "user_id", user.ID, "pet_id", pet.ID)
	httpx.WriteMessage(w, http.StatusOK, "Pet deleted successfully")
}

// caller returns the user attached by the auth gate.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(r.Context(), w, h.log, httpx.Unauthorized(msgUnauthenticated))
	}
	return user, ok
}

// ownedPet resolves {id} to a pet owned by the caller or writes a 404.
func (h *Handler) ownedPet(w http.ResponseWriter, r *http.Request) (*models.Pet, bool) {
	ctx := r.Context()
	user, ok := h.caller(w, r)
	if !ok {
		return nil, false
	}
	petID, ok := pathID(r, "id")
	if !ok {
		httpx.WriteError(ctx, w, h.log, httpx.NotFound(msgPetNotFound))
		return nil, false
	}

	pet, err := h.store.GetPet(ctx, user.ID, petID)
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(ctx, w, h.log, httpx.NotFound(msgPetNotFound))
		return nil, false
	}
	if err != nil {
		httpx.WriteError(ctx, w, h.log, err)
		return nil, false
	}
	return pet, true
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseAge accepts a non-negative integer given as a JSON number or numeric
// string; integral numbers such as 3.0 count. present is false when the
// field was omitted; null and "" clear it.
func parseAge(raw json.RawMessage) (age *int, present bool, err error) {
	if len(raw) == 0 {
		return nil, false, nil
	}
	if string(raw) == "null" {
		return nil, true, nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return nil, true, httpx.Validation(msgAgeNotInteger)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, true, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if errors.Is(err, strconv.ErrRange) {
			return nil, true, httpx.Validation(msgAgeOutOfRange)
		}
		if err != nil {
			return nil, true, httpx.Validation(msgAgeNotInteger)
		}
		f = float64(n)
	}

	switch {
	case f != math.Trunc(f) || f < 0:
		return nil, true, httpx.Validation(msgAgeNotInteger)
	case f > maxPetAge:
		return nil, true, httpx.Validation(msgAgeOutOfRange)
	}
	n := int(f)
	return &n, true, nil
}

// checkPetLengths rejects values the pets columns cannot hold.
func checkPetLengths(p *models.Pet) error {
	switch {
	case utf8.RuneCountInString(p.Name) > maxPetName:
		return httpx.Validation("Name must be at most 100 characters long")
	case utf8.RuneCountInString(p.Species) > maxPetSpecies:
		return httpx.Validation("Species must be at most 50 characters long")
	case p.Breed != nil && utf8.RuneCountInString(*p.Breed) > maxPetBreed:
		return httpx.Validation("Breed must be at most 100 characters long")
	}
	return nil
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// optional maps a missing or blank string to nil.
func optional(s *string) *string {
	v := trimmed(s)
	if v == "" {
		return nil
	}
	return &v
}

func itemMessage(kind, verb string) string {
	return fmt.Sprintf("%s %s successfully", kind, verb)
}
