package brackets

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Dosada05/album-bracket/models"
	"github.com/google/uuid"
)

var errNoRound = errors.New("round not found")

// memStore keeps rounds in memory and records every write.
type memStore struct {
	mu          sync.Mutex
	nextID      int64
	rounds      map[int64]*models.Round
	levels      [][]int64
	writes      []int64
	reads       []int64
	failAtLevel int
}

func newMemStore() *memStore {
	return &memStore{rounds: make(map[int64]*models.Round)}
}

func (s *memStore) create(tournamentID uuid.UUID, albumID *uuid.UUID) *models.Round {
	s.nextID++
	r := &models.Round{ID: s.nextID, TournamentID: tournamentID, AlbumID: albumID}
	s.rounds[r.ID] = r
	return r
}

func (s *memStore) CreateLeaves(_ context.Context, tournamentID uuid.UUID, albumIDs []uuid.UUID) ([]*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	leaves := make([]*models.Round, 0, len(albumIDs))
	for _, id := range albumIDs {
		albumID := id
		leaves = append(leaves, cloneRound(s.create(tournamentID, &albumID)))
	}
	return leaves, nil
}

func (s *memStore) CreateMatches(_ context.Context, tournamentID uuid.UUID, matchups []Matchup) ([]*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failAtLevel > 0 && len(s.levels)+1 == s.failAtLevel {
		return nil, fmt.Errorf("level %d: storage unavailable", s.failAtLevel)
	}

	created := make([]*models.Round, 0, len(matchups))
	ids := make([]int64, 0, len(matchups))
	for _, m := range matchups {
		first, second := s.rounds[m.First.ID], s.rounds[m.Second.ID]
		if first == nil || second == nil || first.NextRoundID != nil || second.NextRoundID != nil {
			return nil, fmt.Errorf("matchup %d vs %d cannot be attached", m.First.ID, m.Second.ID)
		}
		parent := s.create(tournamentID, nil)
		parentID := parent.ID
		first.NextRoundID = &parentID
		second.NextRoundID = &parentID
		created = append(created, cloneRound(parent))
		ids = append(ids, parent.ID)
	}
	s.levels = append(s.levels, ids)
	return created, nil
}

func (s *memStore) GetRound(_ context.Context, id int64) (*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reads = append(s.reads, id)
	r, ok := s.rounds[id]
	if !ok {
		return nil, errNoRound
	}
	return cloneRound(r), nil
}

func (s *memStore) ListChildren(_ context.Context, parentID int64) ([]*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var children []*models.Round
	for _, r := range s.rounds {
		if r.NextRoundID != nil && *r.NextRoundID == parentID {
			children = append(children, cloneRound(r))
		}
	}
	slices.SortFunc(children, func(a, b *models.Round) int {
		return int(a.ID - b.ID)
	})
	return children, nil
}

func (s *memStore) UpdateRoundAlbum(_ context.Context, id int64, albumID *uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[id]
	if !ok {
		return errNoRound
	}
	s.writes = append(s.writes, id)
	r.AlbumID = cloneID(albumID)
	return nil
}

// set changes a result directly, bypassing SetWinner.
func (s *memStore) set(id int64, albumID *uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[id].AlbumID = cloneID(albumID)
}

func (s *memStore) round(id int64) *models.Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRound(s.rounds[id])
}

func (s *memStore) resetLog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = nil
	s.reads = nil
}

func (s *memStore) writeLog() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.writes)
}

func cloneRound(r *models.Round) *models.Round {
	c := *r
	c.AlbumID = cloneID(r.AlbumID)
	if r.NextRoundID != nil {
		next := *r.NextRoundID
		c.NextRoundID = &next
	}
	return &c
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
