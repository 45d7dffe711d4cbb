package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/album-bracket/models"
	"github.com/google/uuid"
)

var (
	ErrRoundNotFound           = errors.New("round not found")
	ErrRoundInvalidAlbum       = errors.New("round references an unknown album")
	ErrRoundInvalidTournament  = errors.New("round references an unknown tournament")
	ErrRoundInvalidParent      = errors.New("round references an unknown parent round")
	ErrRoundAlreadyAttached    = errors.New("round is already attached to a parent")
	ErrRoundSelfParent         = errors.New("round cannot be its own parent")
	ErrRoundAttachMissingChild = errors.New("no child rounds given to attach")
)

// RoundCounts summarises a bracket without loading it.
type RoundCounts struct {
	Rounds         int `json:"rounds"`
	Matches        int `json:"matches"`
	DecidedMatches int `json:"decided_matches"`
}

type RoundRepository interface {
	Create(ctx context.Context, exec SQLExecutor, round *models.Round) error
	CreateMany(ctx context.Context, exec SQLExecutor, rounds []*models.Round) error
	AttachToParent(ctx context.Context, exec SQLExecutor, parentID int64, childIDs ...int64) error
	GetByID(ctx context.Context, exec SQLExecutor, id int64) (*models.Round, error)
	ListByParent(ctx context.Context, exec SQLExecutor, parentID int64) ([]*models.Round, error)
	UpdateAlbum(ctx context.Context, exec SQLExecutor, id int64, albumID *uuid.UUID) error
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) (RoundCounts, error)
}

type sqlRoundRepository struct {
	db *sql.DB
}

func NewRoundRepository(db *sql.DB) RoundRepository {
	return &sqlRoundRepository{db: db}
}

func (r *sqlRoundRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const roundSelectColumns = `
		SELECT
			r.id, r.tournament_id, r.album_id, r.next_round_id, r.created_at,
			a.id, a.spotify_id, a.name, a.artist_name, a.image_url, a.created_at
		FROM tournament_rounds r
		LEFT JOIN albums a ON a.id = r.album_id`

func (r *sqlRoundRepository) Create(ctx context.Context, exec SQLExecutor, round *models.Round) error {
	executor := r.getExecutor(exec)
	if round.CreatedAt.IsZero() {
		round.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO tournament_rounds (tournament_id, album_id, next_round_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := executor.QueryRowContext(ctx, query,
		round.TournamentID, round.AlbumID, round.NextRoundID, round.CreatedAt,
	).Scan(&round.ID)
	if err != nil {
		return r.handleRoundError(err)
	}
	return nil
}

// CreateMany inserts all rounds or none of them. Without an executor it
// runs in its own transaction.
func (r *sqlRoundRepository) CreateMany(ctx context.Context, exec SQLExecutor, rounds []*models.Round) (err error) {
	if len(rounds) == 0 {
		return nil
	}

	if exec == nil {
		tx, txErr := r.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}
		defer func() {
			if err != nil {
				_ = tx.Rollback()
				return
			}
			if commitErr := tx.Commit(); commitErr != nil {
				err = fmt.Errorf("failed to commit transaction: %w", commitErr)
			}
		}()
		exec = tx
	}

	for _, round := range rounds {
		if err = r.Create(ctx, exec, round); err != nil {
			return err
		}
	}
	return nil
}

// AttachToParent sets next_round_id on rounds that have no parent yet.
// Either every child gets attached or ErrRoundAlreadyAttached is returned
// and the caller is expected to roll back.
func (r *sqlRoundRepository) AttachToParent(ctx context.Context, exec SQLExecutor, parentID int64, childIDs ...int64) error {
	if len(childIDs) == 0 {
		return ErrRoundAttachMissingChild
	}
	args := make([]interface{}, 0, len(childIDs)+1)
	args = append(args, parentID)
	for _, id := range childIDs {
		if id == parentID {
			return ErrRoundSelfParent
		}
		args = append(args, id)
	}

	executor := r.getExecutor(exec)
	query := fmt.Sprintf(`
		UPDATE tournament_rounds SET next_round_id = $1
		WHERE id IN (%s) AND next_round_id IS NULL`, placeholders(2, len(childIDs)))

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return r.handleRoundError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if int(affected) != len(childIDs) {
		return fmt.Errorf("%w: attached %d of %d rounds to %d", ErrRoundAlreadyAttached, affected, len(childIDs), parentID)
	}
	return nil
}

func (r *sqlRoundRepository) GetByID(ctx context.Context, exec SQLExecutor, id int64) (*models.Round, error) {
	executor := r.getExecutor(exec)
	query := roundSelectColumns + ` WHERE r.id = $1`

	round, err := scanRound(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoundNotFound
		}
		return nil, fmt.Errorf("failed to get round %d: %w", id, err)
	}
	return round, nil
}

// ListByParent returns the direct children of a round in creation order.
func (r *sqlRoundRepository) ListByParent(ctx context.Context, exec SQLExecutor, parentID int64) ([]*models.Round, error) {
	executor := r.getExecutor(exec)
	query := roundSelectColumns + ` WHERE r.next_round_id = $1 ORDER BY r.id ASC`

	rows, err := executor.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children of round %d: %w", parentID, err)
	}
	defer rows.Close()

	rounds := make([]*models.Round, 0, 2)
	for rows.Next() {
		round, scanErr := scanRound(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan round: %w", scanErr)
		}
		rounds = append(rounds, round)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during round rows iteration: %w", err)
	}
	return rounds, nil
}

func (r *sqlRoundRepository) UpdateAlbum(ctx context.Context, exec SQLExecutor, id int64, albumID *uuid.UUID) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournament_rounds SET album_id = $1 WHERE id = $2`

	result, err := executor.ExecContext(ctx, query, albumID, id)
	if err != nil {
		return r.handleRoundError(err)
	}
	return checkAffectedRows(result, ErrRoundNotFound)
}

func (r *sqlRoundRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID uuid.UUID) (RoundCounts, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN EXISTS (
				SELECT 1 FROM tournament_rounds c WHERE c.next_round_id = r.id
			) THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN r.album_id IS NOT NULL AND EXISTS (
				SELECT 1 FROM tournament_rounds c WHERE c.next_round_id = r.id
			) THEN 1 ELSE 0 END), 0)
		FROM tournament_rounds r
		WHERE r.tournament_id = $1`

	var counts RoundCounts
	err := executor.QueryRowContext(ctx, query, tournamentID).Scan(
		&counts.Rounds, &counts.Matches, &counts.DecidedMatches,
	)
	if err != nil {
		return RoundCounts{}, fmt.Errorf("failed to count rounds of tournament %s: %w", tournamentID, err)
	}
	return counts, nil
}

func scanRound(row rowScanner) (*models.Round, error) {
	var (
		round       models.Round
		albumRef    uuid.NullUUID
		nextRoundID sql.NullInt64
		albumID     uuid.NullUUID
		spotifyID   sql.NullString
		name        sql.NullString
		artistName  sql.NullString
		imageURL    sql.NullString
		albumAdded  sql.NullTime
	)

	err := row.Scan(
		&round.ID, &round.TournamentID, &albumRef, &nextRoundID, &round.CreatedAt,
		&albumID, &spotifyID, &name, &artistName, &imageURL, &albumAdded,
	)
	if err != nil {
		return nil, err
	}

	if albumRef.Valid {
		id := albumRef.UUID
		round.AlbumID = &id
	}
	if nextRoundID.Valid {
		next := nextRoundID.Int64
		round.NextRoundID = &next
	}
	if albumID.Valid {
		round.Album = &models.Album{
			ID:         albumID.UUID,
			SpotifyID:  spotifyID.String,
			Name:       name.String,
			ArtistName: artistName.String,
			CreatedAt:  albumAdded.Time,
		}
		if imageURL.Valid {
			url := imageURL.String
			round.Album.ImageURL = &url
		}
	}
	return &round, nil
}

func (r *sqlRoundRepository) handleRoundError(err error) error {
	if err == nil {
		return nil
	}
	violation, ok := asConstraintViolation(err)
	if !ok || !violation.foreignKey {
		return err
	}
	switch violation.constraint {
	case "tournament_rounds_album_id_fkey":
		return ErrRoundInvalidAlbum
	case "tournament_rounds_tournament_id_fkey":
		return ErrRoundInvalidTournament
	case "tournament_rounds_next_round_id_fkey":
		return ErrRoundInvalidParent
	default:
		// SQLite does not name the failing constraint.
		return fmt.Errorf("round foreign key violation: %w", err)
	}
}
