package models

import (
	"encoding/json"
	"time"
)

// Pet is a row in the pets table. It is owned by exactly one user.
type Pet struct {
	ID        int64     `json:"pet_id"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Species   string    `json:"species"`
	Breed     *string   `json:"breed"`
	Age       *int      `json:"age"`
	PhotoKey  string    `json:"-"`
	HasPhoto  bool      `json:"has_photo"`
	CreatedAt time.Time `json:"created_at"`
}

// PetRequest is the JSON body for POST /pets/create and PUT /pets/{id}.
// Nil fields are left untouched on update. Age stays raw so that both
// numbers and numeric strings are accepted.
type PetRequest struct {
	Name    *string         `json:"name"`
	Species *string         `json:"species"`
	Breed   *string         `json:"breed"`
	Age     json.RawMessage `json:"age"`
}
