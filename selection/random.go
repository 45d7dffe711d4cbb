package selection

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/Dosada05/album-bracket/metrics"
	"github.com/Dosada05/album-bracket/models"
)

const randomStrategyName = "random"

// RandomStrategy samples uniformly. It is safe for concurrent use.
type RandomStrategy struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomStrategy uses src for all randomness; a nil src gets a randomly
// seeded PCG.
func NewRandomStrategy(src rand.Source) *RandomStrategy {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &RandomStrategy{rng: rand.New(src)}
}

func (s *RandomStrategy) Name() string {
	return randomStrategyName
}

func (s *RandomStrategy) MaxAlbumCount() int {
	return Unbounded
}

func (s *RandomStrategy) SelectAlbums(ctx context.Context, pool []*models.Album, count int) ([]*models.Album, error) {
	if err := Validate(len(pool), count, s.MaxAlbumCount()); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	selected := s.Sample(pool, count)
	metrics.RecordSelectionAttempt(randomStrategyName, metrics.OutcomeSuccess)
	return selected, nil
}

// Sample returns min(n, len(pool)) distinct albums in random order. The
// pool itself is left untouched.
func (s *RandomStrategy) Sample(pool []*models.Album, n int) []*models.Album {
	shuffled := slices.Clone(pool)

	s.mu.Lock()
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	s.mu.Unlock()

	if n < 0 {
		n = 0
	}
	if n < len(shuffled) {
		shuffled = shuffled[:n]
	}
	return shuffled
}
