package model

import "github.com/google/uuid"

// TrackRecommendation is one ranked track suggestion for a student:
// a track their classmates completed that they have not.
type TrackRecommendation struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Completions int       `json:"completions"`
}
