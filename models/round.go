package models

import (
	"time"

	"github.com/google/uuid"
)

// Round is one node of a bracket. Leaves carry the album they represent,
// internal rounds carry the winner of their two previous rounds (or nothing
// while undecided). NextRoundID is nil only for the final.
type Round struct {
	ID           int64      `json:"id" db:"id"`
	TournamentID uuid.UUID  `json:"tournament_id" db:"tournament_id"`
	AlbumID      *uuid.UUID `json:"album_id" db:"album_id"`
	NextRoundID  *int64     `json:"next_round_id" db:"next_round_id"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`

	Album *Album `json:"album,omitempty" db:"-"`
}

func (r *Round) IsDecided() bool {
	return r.AlbumID != nil
}

func (r *Round) IsFinal() bool {
	return r.NextRoundID == nil
}
