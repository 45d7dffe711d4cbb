package models

import (
	"time"

	"github.com/google/uuid"
)

// Tournament owns exactly one bracket. RootRoundID stays nil until the last
// level of the bracket has been committed.
type Tournament struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	OwnerID     uuid.UUID `json:"owner_id" db:"owner_id"`
	RootRoundID *int64    `json:"root_round_id,omitempty" db:"root_round_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

func (t *Tournament) IsOwnedBy(userID uuid.UUID) bool {
	return t.OwnerID == userID
}

func (t *Tournament) BracketReady() bool {
	return t.RootRoundID != nil
}
