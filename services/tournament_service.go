package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Dosada05/album-bracket/brackets"
	"github.com/Dosada05/album-bracket/metrics"
	"github.com/Dosada05/album-bracket/models"
	"github.com/Dosada05/album-bracket/repositories"
	"github.com/Dosada05/album-bracket/selection"
	"github.com/Dosada05/album-bracket/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const maxTournamentNameLength = 32

type CreateTournamentInput struct {
	Name       string
	AlbumCount int
	// Prompt steers AI selection; empty means random selection.
	Prompt string
}

// TournamentSummary is a tournament with its progress, read without
// loading the bracket.
type TournamentSummary struct {
	*models.Tournament
	AlbumCount        int           `json:"album_count"`
	MatchCount        int           `json:"match_count"`
	DecidedMatchCount int           `json:"decided_match_count"`
	Champion          *models.Album `json:"champion,omitempty"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, ownerID uuid.UUID, input CreateTournamentInput) (*models.Tournament, error)
	GetTournamentSummary(ctx context.Context, userID, tournamentID uuid.UUID) (*TournamentSummary, error)
	ListTournaments(ctx context.Context, ownerID uuid.UUID) ([]*models.Tournament, error)
	UpdateTournament(ctx context.Context, userID, tournamentID uuid.UUID, name string) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, userID, tournamentID uuid.UUID) error
}

// SelectionOptions wires album selection and pairing. A nil Generator
// disables AI selection.
type SelectionOptions struct {
	Random    *selection.RandomStrategy
	Generator selection.Generator
	AI        selection.AIConfig
	Pairing   brackets.PairingStrategy
}

type tournamentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	roundRepo      repositories.RoundRepository
	albumRepo      repositories.AlbumRepository
	selection      SelectionOptions
	builder        *brackets.Builder
	uploader       storage.FileUploader
	logger         *slog.Logger
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	roundRepo repositories.RoundRepository,
	albumRepo repositories.AlbumRepository,
	opts SelectionOptions,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	if opts.Random == nil {
		opts.Random = selection.NewRandomStrategy(nil)
	}
	if opts.Pairing == nil {
		opts.Pairing = brackets.NewRandomPairing(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &tournamentService{
		db:             db,
		tournamentRepo: tournamentRepo,
		roundRepo:      roundRepo,
		albumRepo:      albumRepo,
		selection:      opts,
		builder:        brackets.NewBuilder(levelStore{db: db, rounds: roundRepo}, opts.Pairing, nil, logger),
		uploader:       uploader,
		logger:         logger,
	}
}

func validateTournamentName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxTournamentNameLength {
		return "", fmt.Errorf("%w: name must be between 1 and %d characters", ErrValidationFailed, maxTournamentNameLength)
	}
	return name, nil
}

func (s *tournamentService) strategyFor(ctx context.Context, prompt string) selection.Strategy {
	if strings.TrimSpace(prompt) == "" {
		return s.selection.Random
	}
	if s.selection.Generator == nil {
		s.logger.WarnContext(ctx, "AI selection requested but no generator is configured, using random selection")
		return s.selection.Random
	}
	return selection.NewAIStrategy(s.selection.Generator, prompt, s.selection.Random, s.selection.AI, s.logger)
}

func (s *tournamentService) CreateTournament(ctx context.Context, ownerID uuid.UUID, input CreateTournamentInput) (*models.Tournament, error) {
	name, err := validateTournamentName(input.Name)
	if err != nil {
		return nil, err
	}

	strategy := s.strategyFor(ctx, input.Prompt)

	available, err := s.albumRepo.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count albums: %w", err)
	}
	if err := selection.Validate(available, input.AlbumCount, strategy.MaxAlbumCount()); err != nil {
		return nil, err
	}

	pool, err := s.albumRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load albums: %w", err)
	}
	albums, err := strategy.SelectAlbums(ctx, pool, input.AlbumCount)
	if err != nil {
		return nil, err
	}

	tournament := &models.Tournament{Name: name, OwnerID: ownerID}
	if err := s.tournamentRepo.Create(ctx, nil, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	start := time.Now()
	root, err := s.builder.Build(ctx, tournament.ID, albums)
	if err == nil {
		err = s.tournamentRepo.SetRootRound(ctx, nil, tournament.ID, root.ID)
	}
	if err != nil {
		metrics.RecordBracketBuild(false, len(albums), time.Since(start))
		// Без корня турнир бесполезен, удаляем его вместе с раундами
		if delErr := s.tournamentRepo.Delete(context.WithoutCancel(ctx), nil, tournament.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to remove tournament after bracket build failure",
				slog.String("tournament_id", tournament.ID.String()), slog.Any("error", delErr))
		}
		return nil, fmt.Errorf("failed to build bracket: %w", err)
	}
	metrics.RecordBracketBuild(true, len(albums), time.Since(start))

	rootID := root.ID
	tournament.RootRoundID = &rootID

	s.logger.InfoContext(ctx, "tournament created",
		slog.String("tournament_id", tournament.ID.String()),
		slog.String("strategy", strategy.Name()),
		slog.Int("albums", len(albums)))
	return tournament, nil
}

func (s *tournamentService) GetTournamentSummary(ctx context.Context, userID, tournamentID uuid.UUID) (*TournamentSummary, error) {
	tournament, err := loadOwnedTournament(ctx, s.tournamentRepo, userID, tournamentID)
	if err != nil {
		return nil, err
	}

	summary := &TournamentSummary{Tournament: tournament}
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.roundRepo.CountByTournament(gCtx, nil, tournamentID)
		if err != nil {
			return err
		}
		summary.AlbumCount = counts.Rounds - counts.Matches
		summary.MatchCount = counts.Matches
		summary.DecidedMatchCount = counts.DecidedMatches
		return nil
	})

	if tournament.BracketReady() {
		g.Go(func() error {
			root, err := s.roundRepo.GetByID(gCtx, nil, *tournament.RootRoundID)
			if err != nil {
				return mapRepositoryError(err)
			}
			summary.Champion = root.Album
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load tournament summary: %w", err)
	}
	return summary, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, ownerID uuid.UUID) ([]*models.Tournament, error) {
	return s.tournamentRepo.ListByOwner(ctx, ownerID)
}

func (s *tournamentService) UpdateTournament(ctx context.Context, userID, tournamentID uuid.UUID, name string) (*models.Tournament, error) {
	name, err := validateTournamentName(name)
	if err != nil {
		return nil, err
	}
	if _, err := loadOwnedTournament(ctx, s.tournamentRepo, userID, tournamentID); err != nil {
		return nil, err
	}
	if err := s.tournamentRepo.UpdateName(ctx, nil, tournamentID, name); err != nil {
		return nil, mapRepositoryError(err)
	}
	updated, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return updated, nil
}

func (s *tournamentService) DeleteTournament(ctx context.Context, userID, tournamentID uuid.UUID) error {
	if _, err := loadOwnedTournament(ctx, s.tournamentRepo, userID, tournamentID); err != nil {
		return err
	}
	if err := s.tournamentRepo.Delete(ctx, nil, tournamentID); err != nil {
		return mapRepositoryError(err)
	}

	if s.uploader != nil {
		key := storage.BracketSnapshotKey(tournamentID)
		if err := s.uploader.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "failed to delete bracket snapshot",
				slog.String("key", key), slog.Any("error", err))
		}
	}
	return nil
}

func loadOwnedTournament(ctx context.Context, repo repositories.TournamentRepository, userID, tournamentID uuid.UUID) (*models.Tournament, error) {
	tournament, err := repo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if !tournament.IsOwnedBy(userID) {
		return nil, ErrForbiddenOperation
	}
	return tournament, nil
}
