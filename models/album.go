package models

import (
	"time"

	"github.com/google/uuid"
)

// Album is a bracket candidate. Albums are shared between users; ownership
// lives in saved_albums.
type Album struct {
	ID         uuid.UUID `json:"id" db:"id"`
	SpotifyID  string    `json:"spotify_id" db:"spotify_id"`
	Name       string    `json:"name" db:"name"`
	ArtistName string    `json:"artist_name" db:"artist_name"`
	ImageURL   *string   `json:"image_url,omitempty" db:"image_url"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
