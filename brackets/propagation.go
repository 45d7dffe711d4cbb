package brackets

import (
	"context"
	"fmt"

	"github.com/Dosada05/album-bracket/models"
	"github.com/google/uuid"
)

// PropagationStore is what SetWinner needs from storage. Callers run it
// inside one transaction so the ancestor walk is never interleaved with
// another on the same bracket.
type PropagationStore interface {
	RoundReader
	UpdateRoundAlbum(ctx context.Context, id int64, albumID *uuid.UUID) error
}

// Outcome describes what SetWinner changed.
type Outcome struct {
	Round   *models.Round
	Changed bool
	// Invalidated holds the ancestors that were cleared, nearest first.
	Invalidated []int64
}

// SetWinner sets the result of a round to the result of winner, one of its
// two previous rounds, or clears it when winner is nil. Every decided
// ancestor above a changed round is cleared; the walk stops at the first
// ancestor that is already undecided.
func SetWinner(ctx context.Context, store PropagationStore, round, winner *models.Round) (*Outcome, error) {
	current, err := store.GetRound(ctx, round.ID)
	if err != nil {
		return nil, err
	}
	children, err := store.ListChildren(ctx, current.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous rounds of %d: %w", current.ID, err)
	}

	switch len(children) {
	case 0:
		return nil, ErrLeafImmutable
	case 2:
	default:
		return nil, fmt.Errorf("%w: round %d has %d previous rounds", ErrMalformedBracket, current.ID, len(children))
	}

	var picked *models.Round
	if winner != nil {
		for _, child := range children {
			if child.ID == winner.ID {
				picked = child
				break
			}
		}
		if picked == nil {
			return nil, ErrInvalidWinner
		}
		if !picked.IsDecided() {
			return nil, ErrUndecidedWinner
		}
	}

	var result *uuid.UUID
	var album *models.Album
	if picked != nil {
		id := *picked.AlbumID
		result = &id
		album = picked.Album
	}

	if sameAlbum(current.AlbumID, result) {
		return &Outcome{Round: current}, nil
	}

	if err := store.UpdateRoundAlbum(ctx, current.ID, result); err != nil {
		return nil, fmt.Errorf("failed to update round %d: %w", current.ID, err)
	}
	current.AlbumID = result
	current.Album = album

	outcome := &Outcome{Round: current, Changed: true}
	for parentID := current.NextRoundID; parentID != nil; {
		parent, err := store.GetRound(ctx, *parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load ancestor %d: %w", *parentID, err)
		}
		if !parent.IsDecided() {
			break
		}
		if err := store.UpdateRoundAlbum(ctx, parent.ID, nil); err != nil {
			return nil, fmt.Errorf("failed to clear ancestor %d: %w", parent.ID, err)
		}
		outcome.Invalidated = append(outcome.Invalidated, parent.ID)
		parentID = parent.NextRoundID
	}

	return outcome, nil
}

func sameAlbum(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
