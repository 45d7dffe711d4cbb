package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dosada05/album-bracket/models"
	"github.com/Dosada05/album-bracket/repositories"
	"github.com/google/uuid"
)

type AlbumService interface {
	ListAlbums(ctx context.Context, ownerID uuid.UUID) ([]*models.Album, error)
	// ImportAlbums stores albums fetched from the catalog and adds them to
	// the owner's pool. Albums repeated within one import are stored once.
	ImportAlbums(ctx context.Context, ownerID uuid.UUID, albums []*models.Album) ([]*models.Album, error)
	RemoveAlbum(ctx context.Context, ownerID, albumID uuid.UUID) error
}

type albumService struct {
	albumRepo repositories.AlbumRepository
}

func NewAlbumService(albumRepo repositories.AlbumRepository) AlbumService {
	return &albumService{albumRepo: albumRepo}
}

func (s *albumService) ListAlbums(ctx context.Context, ownerID uuid.UUID) ([]*models.Album, error) {
	return s.albumRepo.ListByOwner(ctx, ownerID)
}

func (s *albumService) ImportAlbums(ctx context.Context, ownerID uuid.UUID, albums []*models.Album) ([]*models.Album, error) {
	unique := make([]*models.Album, 0, len(albums))
	seen := make(map[string]struct{}, len(albums))
	for i, album := range albums {
		album.SpotifyID = strings.TrimSpace(album.SpotifyID)
		album.Name = strings.TrimSpace(album.Name)
		album.ArtistName = strings.TrimSpace(album.ArtistName)
		if album.SpotifyID == "" || album.Name == "" || album.ArtistName == "" {
			return nil, fmt.Errorf("%w: album %d needs spotify_id, name and artist_name", ErrValidationFailed, i)
		}
		if _, dup := seen[album.SpotifyID]; dup {
			continue
		}
		seen[album.SpotifyID] = struct{}{}
		album.ID = uuid.Nil
		unique = append(unique, album)
	}

	if err := s.albumRepo.SaveForOwner(ctx, ownerID, unique); err != nil {
		return nil, err
	}
	return unique, nil
}

func (s *albumService) RemoveAlbum(ctx context.Context, ownerID, albumID uuid.UUID) error {
	return mapRepositoryError(s.albumRepo.RemoveForOwner(ctx, ownerID, albumID))
}
