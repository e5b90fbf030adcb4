package pets

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/pawpal-api/internal/models"
	"github.com/ayush/pawpal-api/internal/store"
)

// memStore mirrors PostgresStore's ownership scoping in memory.
type memStore struct {
	mu      sync.Mutex
	nextPet int64
	nextMed int64
	pets    map[int64]*models.Pet
	meds    map[int64]*models.Medication
}

func newMemStore() *memStore {
	return &memStore{pets: map[int64]*models.Pet{}, meds: map[int64]*models.Medication{}}
}

func (s *memStore) CreatePet(_ context.Context, p *models.Pet) (*models.Pet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPet++
	cp := *p
	cp.ID = s.nextPet
	cp.CreatedAt = time.Now()
	s.pets[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) ListPets(_ context.Context, userID int64) ([]models.Pet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Pet
	for _, p := range s.pets {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) GetPet(_ context.Context, userID, petID int64) (*models.Pet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pets[petID]
	if !ok || p.UserID != userID {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) UpdatePet(_ context.Context, p *models.Pet) (*models.Pet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.pets[p.ID]
	if !ok || cur.UserID != p.UserID {
		return nil, store.ErrNotFound
	}
	cur.Name, cur.Species, cur.Breed, cur.Age = p.Name, p.Species, p.Breed, p.Age
	cp := *cur
	return &cp, nil
}

func (s *memStore) SetPetPhoto(_ context.Context, userID, petID int64, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pets[petID]
	if !ok || p.UserID != userID {
		return "", store.ErrNotFound
	}
	prev := p.PhotoKey
	p.PhotoKey = key
	p.HasPhoto = key != ""
	return prev, nil
}

func (s *memStore) DeletePet(_ context.Context, userID, petID int64) (*models.Pet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pets[petID]
	if !ok || p.UserID != userID {
		return nil, store.ErrNotFound
	}
	delete(s.pets, petID)
	for id, m := range s.meds {
		if m.PetID == petID {
			delete(s.meds, id)
		}
	}
	return p, nil
}

func (s *memStore) CreateMedication(_ context.Context, m *models.Medication) (*models.Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMed++
	cp := *m
	cp.ID = s.nextMed
	s.meds[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *memStore) ListMedications(_ context.Context, petID int64) ([]models.Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Medication
	for _, m := range s.meds {
		if m.PetID == petID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) GetMedication(_ context.Context, petID, medID int64) (*models.Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meds[medID]
	if !ok || m.PetID != petID {
		return nil, store.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) UpdateMedication(_ context.Context, m *models.Medication) (*models.Medication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.meds[m.ID]
	if !ok || cur.PetID != m.PetID {
		return nil, store.ErrNotFound
	}
	*cur = *m
	cp := *cur
	return &cp, nil
}

func (s *memStore) DeleteMedication(_ context.Context, petID, medID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meds[medID]
	if !ok || m.PetID != petID {
		return store.ErrNotFound
	}
	delete(s.meds, medID)
	return nil
}

type memDoses struct {
	mu      sync.Mutex
	entries []models.DoseLog
	deleted []int64
}

func (d *memDoses) InsertDose(_ context.Context, dose *models.DoseLog) (*models.DoseLog, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *dose
	cp.ID = primitive.NewObjectID()
	cp.CreatedAt = time.Now().UTC()
	if cp.GivenAt.IsZero() {
		cp.GivenAt = cp.CreatedAt
	}
	d.entries = append(d.entries, cp)
	return &cp, nil
}

func (d *memDoses) ListDoses(_ context.Context, userID, petID int64, limit int64) ([]models.DoseLog, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []models.DoseLog
	for _, e := range d.entries {
		if e.UserID == userID && e.PetID == petID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].GivenAt.After(out[j].GivenAt) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d *memDoses) DeleteDosesForPet(_ context.Context, userID, petID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := d.entries[:0]
	for _, e := range d.entries {
		if e.UserID != userID || e.PetID != petID {
			kept = append(kept, e)
		}
	}
	d.entries = kept
	d.deleted = append(d.deleted, petID)
	return nil
}

type storedObject struct {
	data        []byte
	contentType string
}

type memPhotos struct {
	mu      sync.Mutex
	objects map[string]storedObject
}

func newMemPhotos() *memPhotos {
	return &memPhotos{objects: map[string]storedObject{}}
}

func (p *memPhotos) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.objects[key] = storedObject{data: data, contentType: contentType}
	return nil
}

func (p *memPhotos) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	obj, ok := p.objects[key]
	if !ok {
		return nil, "", store.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.contentType, nil
}

func (p *memPhotos) Remove(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.objects, key)
	return nil
}
