package services

import (
	"context"
	"database/sql"

	"github.com/Dosada05/album-bracket/brackets"
	"github.com/Dosada05/album-bracket/models"
	"github.com/Dosada05/album-bracket/repositories"
	"github.com/google/uuid"
)

// roundStore binds the round repository to one executor. A nil executor
// reads outside any transaction.
type roundStore struct {
	exec   repositories.SQLExecutor
	rounds repositories.RoundRepository
}

var _ brackets.PropagationStore = roundStore{}

func (s roundStore) GetRound(ctx context.Context, id int64) (*models.Round, error) {
	round, err := s.rounds.GetByID(ctx, s.exec, id)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return round, nil
}

func (s roundStore) ListChildren(ctx context.Context, parentID int64) ([]*models.Round, error) {
	return s.rounds.ListByParent(ctx, s.exec, parentID)
}

func (s roundStore) UpdateRoundAlbum(ctx context.Context, id int64, albumID *uuid.UUID) error {
	return mapRepositoryError(s.rounds.UpdateAlbum(ctx, s.exec, id, albumID))
}

// levelStore persists each bracket level in its own transaction.
type levelStore struct {
	db     *sql.DB
	rounds repositories.RoundRepository
}

var _ brackets.LevelStore = levelStore{}

func (s levelStore) CreateLeaves(ctx context.Context, tournamentID uuid.UUID, albumIDs []uuid.UUID) ([]*models.Round, error) {
	leaves := make([]*models.Round, 0, len(albumIDs))
	for _, id := range albumIDs {
		albumID := id
		leaves = append(leaves, &models.Round{TournamentID: tournamentID, AlbumID: &albumID})
	}

	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.rounds.CreateMany(ctx, tx, leaves)
	})
	if err != nil {
		return nil, err
	}
	return leaves, nil
}

func (s levelStore) CreateMatches(ctx context.Context, tournamentID uuid.UUID, matchups []brackets.Matchup) ([]*models.Round, error) {
	matches := make([]*models.Round, 0, len(matchups))

	err := runInTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, m := range matchups {
			match := &models.Round{TournamentID: tournamentID}
			if err := s.rounds.Create(ctx, tx, match); err != nil {
				return err
			}
			if err := s.rounds.AttachToParent(ctx, tx, match.ID, m.First.ID, m.Second.ID); err != nil {
				return err
			}
			matches = append(matches, match)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}
