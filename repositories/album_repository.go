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
	ErrAlbumNotFound       = errors.New("album not found")
	ErrAlbumMissingSpotify = errors.New("album spotify id is required")
)

// AlbumRepository reads and writes a user's saved albums, the pool
// tournaments are drawn from.
type AlbumRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Album, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Album, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
	SaveForOwner(ctx context.Context, ownerID uuid.UUID, albums []*models.Album) error
	RemoveForOwner(ctx context.Context, ownerID, albumID uuid.UUID) error
}

type sqlAlbumRepository struct {
	db *sql.DB
}

func NewAlbumRepository(db *sql.DB) AlbumRepository {
	return &sqlAlbumRepository{db: db}
}

func (r *sqlAlbumRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Album, error) {
	query := `
		SELECT id, spotify_id, name, artist_name, image_url, created_at
		FROM albums
		WHERE id = $1`

	album, err := scanAlbum(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlbumNotFound
		}
		return nil, fmt.Errorf("failed to get album %s: %w", id, err)
	}
	return album, nil
}

func (r *sqlAlbumRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Album, error) {
	query := `
		SELECT a.id, a.spotify_id, a.name, a.artist_name, a.image_url, a.created_at
		FROM saved_albums s
		JOIN albums a ON a.id = s.album_id
		WHERE s.user_id = $1
		ORDER BY s.saved_at ASC, a.id ASC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved albums: %w", err)
	}
	defer rows.Close()

	albums := make([]*models.Album, 0)
	for rows.Next() {
		album, scanErr := scanAlbum(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan album: %w", scanErr)
		}
		albums = append(albums, album)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during album rows iteration: %w", err)
	}
	return albums, nil
}

func (r *sqlAlbumRepository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM saved_albums WHERE user_id = $1`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count saved albums: %w", err)
	}
	return n, nil
}

// SaveForOwner upserts albums by Spotify id and adds them to the owner's
// library. On return every album carries its stored id.
func (r *sqlAlbumRepository) SaveForOwner(ctx context.Context, ownerID uuid.UUID, albums []*models.Album) (err error) {
	if len(albums) == 0 {
		return nil
	}
	for _, album := range albums {
		if album.SpotifyID == "" {
			return ErrAlbumMissingSpotify
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
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

	upsert := `
		INSERT INTO albums (id, spotify_id, name, artist_name, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (spotify_id) DO UPDATE SET
			name = EXCLUDED.name,
			artist_name = EXCLUDED.artist_name,
			image_url = EXCLUDED.image_url
		RETURNING id, created_at`
	link := `
		INSERT INTO saved_albums (user_id, album_id, saved_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, album_id) DO NOTHING`

	now := time.Now().UTC()
	for i, album := range albums {
		if album.ID == uuid.Nil {
			album.ID = uuid.New()
		}
		if err = tx.QueryRowContext(ctx, upsert,
			album.ID, album.SpotifyID, album.Name, album.ArtistName, album.ImageURL, now,
		).Scan(&album.ID, &album.CreatedAt); err != nil {
			return fmt.Errorf("failed to upsert album %s: %w", album.SpotifyID, err)
		}
		// Keeps saved_at strictly increasing so import order is the list order.
		savedAt := now.Add(time.Duration(i) * time.Microsecond)
		if _, err = tx.ExecContext(ctx, link, ownerID, album.ID, savedAt); err != nil {
			return fmt.Errorf("failed to save album %s: %w", album.SpotifyID, err)
		}
	}
	return nil
}

func (r *sqlAlbumRepository) RemoveForOwner(ctx context.Context, ownerID, albumID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM saved_albums WHERE user_id = $1 AND album_id = $2`, ownerID, albumID)
	if err != nil {
		return fmt.Errorf("failed to remove saved album: %w", err)
	}
	return checkAffectedRows(result, ErrAlbumNotFound)
}

func scanAlbum(row rowScanner) (*models.Album, error) {
	var (
		album    models.Album
		imageURL sql.NullString
	)
	if err := row.Scan(&album.ID, &album.SpotifyID, &album.Name, &album.ArtistName, &imageURL, &album.CreatedAt); err != nil {
		return nil, err
	}
	if imageURL.Valid {
		url := imageURL.String
		album.ImageURL = &url
	}
	return &album, nil
}
