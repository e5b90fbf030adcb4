package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DoseLog is a single administered dose stored in MongoDB.
type DoseLog struct {
	ID           primitive.ObjectID `json:"id"                      bson:"_id,omitempty"`
	PetID        int64              `json:"pet_id"                  bson:"pet_id"`
	UserID       int64              `json:"user_id"                 bson:"user_id"`
	MedicationID *int64             `json:"medication_id,omitempty" bson:"medication_id,omitempty"`
	Note         string             `json:"note"                    bson:"note"`
	GivenAt      time.Time          `json:"given_at"                bson:"given_at"`
	CreatedAt    time.Time          `json:"created_at"              bson:"created_at"`
}

// DoseRequest is the JSON body for POST /pets/{id}/doses.
type DoseRequest struct {
	Note         string  `json:"note"`
	MedicationID *int64  `json:"medicationId"`
	GivenAt      *string `json:"givenAt"`
}
