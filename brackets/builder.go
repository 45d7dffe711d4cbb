package brackets

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/Dosada05/album-bracket/models"
	"github.com/Dosada05/album-bracket/selection"
	"github.com/google/uuid"
)

// Matchup is a pair of rounds whose winners meet in a new round.
type Matchup struct {
	First  *models.Round
	Second *models.Round
}

// LevelStore persists one bracket level at a time. Each call must be atomic:
// either every round of the level is stored and linked or none is.
type LevelStore interface {
	CreateLeaves(ctx context.Context, tournamentID uuid.UUID, albumIDs []uuid.UUID) ([]*models.Round, error)
	// CreateMatches creates one undecided round per matchup, in order, and
	// makes it the parent of both matchup rounds.
	CreateMatches(ctx context.Context, tournamentID uuid.UUID, matchups []Matchup) ([]*models.Round, error)
}

// Builder grows a single-elimination bracket from the leaves up.
type Builder struct {
	store   LevelStore
	pairing PairingStrategy
	logger  *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewBuilder(store LevelStore, pairing PairingStrategy, src rand.Source, logger *slog.Logger) *Builder {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	if pairing == nil {
		pairing = NewRandomPairing(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{store: store, pairing: pairing, logger: logger, rng: rand.New(src)}
}

// Build creates one leaf per album and pairs rounds level by level until a
// single root remains, which it returns. A round left over on an odd level
// is carried up as a bye and paired first on the next level.
func (b *Builder) Build(ctx context.Context, tournamentID uuid.UUID, albums []*models.Album) (*models.Round, error) {
	if len(albums) == 0 {
		return nil, &selection.InsufficientAlbumsError{Requested: 1, Available: 0}
	}

	albumIDs := make([]uuid.UUID, 0, len(albums))
	for _, album := range albums {
		albumIDs = append(albumIDs, album.ID)
	}

	current, err := b.store.CreateLeaves(ctx, tournamentID, albumIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create leaves: %w", err)
	}
	if len(current) != len(albums) {
		return nil, fmt.Errorf("%w: stored %d leaves for %d albums", ErrMalformedBracket, len(current), len(albums))
	}

	var leftover *models.Round
	for level := 1; len(current) != 1 || leftover != nil; level++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		matchups, carried, err := b.pairLevel(current, leftover)
		if err != nil {
			return nil, err
		}

		next, err := b.store.CreateMatches(ctx, tournamentID, matchups)
		if err != nil {
			return nil, fmt.Errorf("failed to create level %d: %w", level, err)
		}
		if len(next) != len(matchups) {
			return nil, fmt.Errorf("%w: stored %d rounds for %d matchups", ErrMalformedBracket, len(next), len(matchups))
		}

		b.logger.DebugContext(ctx, "bracket level created",
			slog.String("tournament_id", tournamentID.String()),
			slog.Int("level", level),
			slog.Int("matches", len(next)),
			slog.Bool("bye", carried != nil))

		current, leftover = next, carried
	}

	return current[0], nil
}

// pairLevel pairs every round of one level. The previous leftover is matched
// first against a random round of this level; a single unpaired round at
// the end becomes the new leftover.
func (b *Builder) pairLevel(level []*models.Round, leftover *models.Round) ([]Matchup, *models.Round, error) {
	remaining := slices.Clone(level)
	matchups := make([]Matchup, 0, (len(level)+1)/2)

	for len(remaining) >= 2 || (len(remaining) == 1 && leftover != nil) {
		if leftover != nil {
			i := b.intN(len(remaining))
			matchups = append(matchups, Matchup{First: leftover, Second: remaining[i]})
			remaining = removeRound(remaining, remaining[i])
			leftover = nil
			continue
		}

		first, second, err := b.pairing.CreateMatchup(remaining)
		if err != nil {
			return nil, nil, err
		}
		if first == second || !slices.Contains(remaining, first) || !slices.Contains(remaining, second) {
			return nil, nil, fmt.Errorf("%w: pairing returned an invalid matchup", ErrMalformedBracket)
		}
		matchups = append(matchups, Matchup{First: first, Second: second})
		remaining = removeRound(removeRound(remaining, first), second)
	}

	if len(matchups) == 0 {
		return nil, nil, ErrInsufficientRounds
	}
	if len(remaining) == 1 {
		leftover = remaining[0]
	}
	return matchups, leftover, nil
}

func (b *Builder) intN(n int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.IntN(n)
}

func removeRound(rounds []*models.Round, r *models.Round) []*models.Round {
	if i := slices.Index(rounds, r); i >= 0 {
		return slices.Delete(rounds, i, i+1)
	}
	return rounds
}
