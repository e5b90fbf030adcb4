package models

import "time"

// Medication is a row in the medications table, scoped to one pet.
type Medication struct {
	ID        int64      `json:"medication_id"`
	PetID     int64      `json:"pet_id"`
	Name      string     `json:"name"`
	Dosage    string     `json:"dosage"`
	Frequency string     `json:"frequency"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

// MedicationRequest is the JSON body for creating or updating a medication.
// Times are RFC 3339 strings; an empty endTime clears it on update.
type MedicationRequest struct {
	Name      *string `json:"name"`
	Dosage    *string `json:"dosage"`
	Frequency *string `json:"frequency"`
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime"`
}
