// Package selection narrows a user's album pool down to the albums that
// make up a bracket.
package selection

import (
	"context"
	"fmt"
	"math"

	"github.com/Dosada05/album-bracket/models"
)

// Unbounded is the MaxAlbumCount of strategies without a hard cap.
const Unbounded = math.MaxInt

// Strategy picks exactly count distinct albums out of pool.
type Strategy interface {
	SelectAlbums(ctx context.Context, pool []*models.Album, count int) ([]*models.Album, error)
	MaxAlbumCount() int
	Name() string
}

// Generator is a single-shot text completion capability.
type Generator interface {
	Respond(ctx context.Context, prompt string) (string, error)
}

// InsufficientAlbumsError reports a pool smaller than the requested count.
type InsufficientAlbumsError struct {
	Requested int
	Available int
}

func (e *InsufficientAlbumsError) Error() string {
	return fmt.Sprintf("not enough albums: requested %d, available %d", e.Requested, e.Available)
}

// LimitExceededError reports a count above a strategy's hard cap.
type LimitExceededError struct {
	Requested int
	Limit     int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("album count %d exceeds the limit of %d", e.Requested, e.Limit)
}

// Validate applies the rules every strategy enforces. Callers run it before
// SelectAlbums to report the achievable bound without doing any work.
func Validate(available, count, limit int) error {
	if count > limit {
		return &LimitExceededError{Requested: count, Limit: limit}
	}
	if count < 1 || available < count {
		return &InsufficientAlbumsError{Requested: count, Available: available}
	}
	return nil
}
