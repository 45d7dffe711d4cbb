package brackets

import (
	"math/rand/v2"
	"sync"

	"github.com/Dosada05/album-bracket/models"
)

// PairingStrategy picks the next two rounds to play each other. It must not
// modify the slice it is given; the caller removes the picked rounds.
type PairingStrategy interface {
	CreateMatchup(rounds []*models.Round) (*models.Round, *models.Round, error)
}

// RandomPairing picks two distinct rounds uniformly at random.
type RandomPairing struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomPairing(src rand.Source) *RandomPairing {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &RandomPairing{rng: rand.New(src)}
}

func (p *RandomPairing) CreateMatchup(rounds []*models.Round) (*models.Round, *models.Round, error) {
	if len(rounds) < 2 {
		return nil, nil, ErrInsufficientRounds
	}

	p.mu.Lock()
	first := p.rng.IntN(len(rounds))
	second := p.rng.IntN(len(rounds) - 1)
	p.mu.Unlock()

	if second >= first {
		second++
	}
	return rounds[first], rounds[second], nil
}
