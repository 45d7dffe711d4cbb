package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/album-bracket/brackets"
	"github.com/Dosada05/album-bracket/metrics"
	"github.com/Dosada05/album-bracket/models"
	"github.com/Dosada05/album-bracket/repositories"
	"github.com/Dosada05/album-bracket/storage"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// BracketNotifier pushes messages to clients watching a room.
type BracketNotifier interface {
	BroadcastToRoom(roomID string, message interface{})
}

type RoundUpdatedPayload struct {
	TournamentID uuid.UUID      `json:"tournament_id"`
	Round        *brackets.Node `json:"round"`
	Invalidated  []int64        `json:"invalidated_round_ids"`
}

// BracketSnapshot is the exported form of a bracket.
type BracketSnapshot struct {
	TournamentID uuid.UUID      `json:"tournament_id"`
	Name         string         `json:"name"`
	ExportedAt   time.Time      `json:"exported_at"`
	Bracket      *brackets.Node `json:"bracket"`
}

type BracketService interface {
	GetBracket(ctx context.Context, userID, tournamentID uuid.UUID) (*brackets.Node, error)
	GetRound(ctx context.Context, userID uuid.UUID, roundID int64) (*brackets.Node, error)
	// SetRoundWinner sets or, with a nil winnerID, clears the result of a
	// round and returns the round's subtree as stored afterwards.
	SetRoundWinner(ctx context.Context, userID uuid.UUID, roundID int64, winnerID *int64) (*brackets.Node, error)
	ExportBracket(ctx context.Context, userID, tournamentID uuid.UUID) (*storage.UploadResult, error)
}

type bracketService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	roundRepo      repositories.RoundRepository
	notifier       BracketNotifier
	uploader       storage.FileUploader
	logger         *slog.Logger
}

func NewBracketService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	roundRepo repositories.RoundRepository,
	notifier BracketNotifier,
	uploader storage.FileUploader,
	logger *slog.Logger,
) BracketService {
	if logger == nil {
		logger = slog.Default()
	}
	return &bracketService{
		db:             db,
		tournamentRepo: tournamentRepo,
		roundRepo:      roundRepo,
		notifier:       notifier,
		uploader:       uploader,
		logger:         logger,
	}
}

func (s *bracketService) reader() roundStore {
	return roundStore{rounds: s.roundRepo}
}

func (s *bracketService) GetBracket(ctx context.Context, userID, tournamentID uuid.UUID) (*brackets.Node, error) {
	tournament, err := loadOwnedTournament(ctx, s.tournamentRepo, userID, tournamentID)
	if err != nil {
		return nil, err
	}
	if !tournament.BracketReady() {
		return nil, ErrBracketNotReady
	}
	return brackets.LoadTreeByID(ctx, s.reader(), *tournament.RootRoundID)
}

func (s *bracketService) GetRound(ctx context.Context, userID uuid.UUID, roundID int64) (*brackets.Node, error) {
	round, err := s.loadOwnedRound(ctx, userID, roundID)
	if err != nil {
		return nil, err
	}
	return brackets.LoadTree(ctx, s.reader(), round)
}

func (s *bracketService) loadOwnedRound(ctx context.Context, userID uuid.UUID, roundID int64) (*models.Round, error) {
	round, err := s.roundRepo.GetByID(ctx, nil, roundID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	if _, err := loadOwnedTournament(ctx, s.tournamentRepo, userID, round.TournamentID); err != nil {
		return nil, err
	}
	return round, nil
}

func (s *bracketService) SetRoundWinner(ctx context.Context, userID uuid.UUID, roundID int64, winnerID *int64) (*brackets.Node, error) {
	round, err := s.loadOwnedRound(ctx, userID, roundID)
	if err != nil {
		return nil, err
	}

	var outcome *brackets.Outcome
	err = runInTx(ctx, s.db, func(tx *sql.Tx) error {
		// Блокируем турнир, чтобы обходы предков не пересекались
		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, tx, round.TournamentID)
		if err != nil {
			return mapRepositoryError(err)
		}
		if !tournament.BracketReady() {
			return ErrBracketNotReady
		}

		var winner *models.Round
		if winnerID != nil {
			winner, err = s.roundRepo.GetByID(ctx, tx, *winnerID)
			if errors.Is(err, repositories.ErrRoundNotFound) {
				return brackets.ErrInvalidWinner
			}
			if err != nil {
				return err
			}
		}

		outcome, err = brackets.SetWinner(ctx, roundStore{exec: tx, rounds: s.roundRepo}, round, winner)
		return err
	})
	if err != nil {
		return nil, err
	}

	action := metrics.ActionNoop
	switch {
	case outcome.Changed && outcome.Round.IsDecided():
		action = metrics.ActionSet
	case outcome.Changed:
		action = metrics.ActionCleared
	}
	metrics.RecordWinnerUpdate(action, len(outcome.Invalidated))

	tree, err := brackets.LoadTreeByID(ctx, s.reader(), roundID)
	if err != nil {
		return nil, err
	}

	if outcome.Changed {
		s.logger.InfoContext(ctx, "round winner updated",
			slog.String("tournament_id", round.TournamentID.String()),
			slog.Int64("round_id", roundID),
			slog.String("action", action),
			slog.Int("invalidated", len(outcome.Invalidated)))

		if s.notifier != nil {
			room := brackets.TournamentRoom(round.TournamentID)
			s.notifier.BroadcastToRoom(room, brackets.WebSocketMessage{
				Type: brackets.MessageRoundUpdated,
				Payload: RoundUpdatedPayload{
					TournamentID: round.TournamentID,
					Round:        tree,
					Invalidated:  outcome.Invalidated,
				},
				RoomID: room,
			})
		}
	}
	return tree, nil
}

func (s *bracketService) ExportBracket(ctx context.Context, userID, tournamentID uuid.UUID) (*storage.UploadResult, error) {
	tournament, err := loadOwnedTournament(ctx, s.tournamentRepo, userID, tournamentID)
	if err != nil {
		return nil, err
	}
	if s.uploader == nil {
		return nil, ErrExportDisabled
	}
	if !tournament.BracketReady() {
		return nil, ErrBracketNotReady
	}
	tree, err := brackets.LoadTreeByID(ctx, s.reader(), *tournament.RootRoundID)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(BracketSnapshot{
		TournamentID: tournament.ID,
		Name:         tournament.Name,
		ExportedAt:   time.Now().UTC(),
		Bracket:      tree,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode bracket snapshot: %w", err)
	}

	result, err := s.uploader.Upload(ctx, storage.BracketSnapshotKey(tournament.ID), "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	return result, nil
}
