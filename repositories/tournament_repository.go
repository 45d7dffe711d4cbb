package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/album-bracket/db"
	"github.com/Dosada05/album-bracket/models"
	"github.com/google/uuid"
)

var (
	ErrTournamentNotFound    = errors.New("tournament not found")
	ErrTournamentIDConflict  = errors.New("tournament id already exists")
	ErrTournamentInvalidRoot = errors.New("root round does not belong to tournament")
)

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error)
	// GetByIDForUpdate locks the tournament row for the rest of the
	// transaction where the driver supports row locks.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Tournament, error)
	UpdateName(ctx context.Context, exec SQLExecutor, id uuid.UUID, name string) error
	SetRootRound(ctx context.Context, exec SQLExecutor, id uuid.UUID, rootRoundID int64) error
	Delete(ctx context.Context, exec SQLExecutor, id uuid.UUID) error
}

type sqlTournamentRepository struct {
	db     *sql.DB
	driver db.Driver
}

func NewTournamentRepository(database *sql.DB, driver db.Driver) TournamentRepository {
	return &sqlTournamentRepository{db: database, driver: driver}
}

func (r *sqlTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentSelectColumns = `
		SELECT id, name, owner_id, root_round_id, created_at, updated_at
		FROM tournaments`

func (r *sqlTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	query := `
		INSERT INTO tournaments (id, name, owner_id, root_round_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := executor.ExecContext(ctx, query,
		t.ID, t.Name, t.OwnerID, t.RootRoundID, t.CreatedAt, t.UpdatedAt,
	)
	return r.handleTournamentError(err)
}

func (r *sqlTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error) {
	return r.get(ctx, exec, id, false)
}

func (r *sqlTournamentRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id uuid.UUID) (*models.Tournament, error) {
	return r.get(ctx, exec, id, true)
}

func (r *sqlTournamentRepository) get(ctx context.Context, exec SQLExecutor, id uuid.UUID, lock bool) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := tournamentSelectColumns + ` WHERE id = $1`
	if lock && r.driver.SupportsRowLocks() {
		query += ` FOR UPDATE`
	}

	t, err := scanTournament(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %s: %w", id, err)
	}
	return t, nil
}

func (r *sqlTournamentRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Tournament, error) {
	query := tournamentSelectColumns + ` WHERE owner_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		t, scanErr := scanTournament(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", scanErr)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

func (r *sqlTournamentRepository) UpdateName(ctx context.Context, exec SQLExecutor, id uuid.UUID, name string) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET name = $1, updated_at = $2 WHERE id = $3`

	result, err := executor.ExecContext(ctx, query, name, time.Now().UTC(), id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// SetRootRound marks the bracket as complete. The root must be a parentless
// round of the same tournament.
func (r *sqlTournamentRepository) SetRootRound(ctx context.Context, exec SQLExecutor, id uuid.UUID, rootRoundID int64) error {
	executor := r.getExecutor(exec)

	var owner uuid.UUID
	var parent sql.NullInt64
	err := executor.QueryRowContext(ctx,
		`SELECT tournament_id, next_round_id FROM tournament_rounds WHERE id = $1`, rootRoundID,
	).Scan(&owner, &parent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRoundNotFound
		}
		return fmt.Errorf("failed to check root round %d: %w", rootRoundID, err)
	}
	if owner != id || parent.Valid {
		return ErrTournamentInvalidRoot
	}

	query := `UPDATE tournaments SET root_round_id = $1, updated_at = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, rootRoundID, time.Now().UTC(), id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// Delete removes the tournament; its rounds go with it via ON DELETE CASCADE.
func (r *sqlTournamentRepository) Delete(ctx context.Context, exec SQLExecutor, id uuid.UUID) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func scanTournament(row rowScanner) (*models.Tournament, error) {
	var (
		t    models.Tournament
		root sql.NullInt64
	)
	if err := row.Scan(&t.ID, &t.Name, &t.OwnerID, &root, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if root.Valid {
		id := root.Int64
		t.RootRoundID = &id
	}
	return &t, nil
}

func (r *sqlTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if violation, ok := asConstraintViolation(err); ok && violation.unique {
		return ErrTournamentIDConflict
	}
	return err
}
