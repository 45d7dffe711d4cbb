package handlers

import (
	"net/http"

	"github.com/Dosada05/album-bracket/middleware"
	"github.com/Dosada05/album-bracket/models"
	"github.com/Dosada05/album-bracket/services"
)

type AlbumHandler struct {
	albumService services.AlbumService
}

func NewAlbumHandler(as services.AlbumService) *AlbumHandler {
	return &AlbumHandler{albumService: as}
}

type albumInput struct {
	SpotifyID  string  `json:"spotify_id" validate:"required,max=64"`
	Name       string  `json:"name" validate:"required,max=512"`
	ArtistName string  `json:"artist_name" validate:"required,max=512"`
	ImageURL   *string `json:"image_url" validate:"omitempty,url"`
}

type importAlbumsRequest struct {
	Albums []albumInput `json:"albums" validate:"required,min=1,max=500,dive"`
}

// ListHandler обрабатывает GET /albums
func (h *AlbumHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	albums, err := h.albumService.ListAlbums(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if albums == nil {
		albums = []*models.Album{}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"albums": albums, "count": len(albums)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ImportHandler обрабатывает PUT /albums
func (h *AlbumHandler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input importAlbumsRequest
	if !readValidJSON(w, r, &input) {
		return
	}

	albums := make([]*models.Album, 0, len(input.Albums))
	for _, a := range input.Albums {
		albums = append(albums, &models.Album{
			SpotifyID:  a.SpotifyID,
			Name:       a.Name,
			ArtistName: a.ArtistName,
			ImageURL:   a.ImageURL,
		})
	}

	saved, err := h.albumService.ImportAlbums(r.Context(), currentUserID, albums)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"albums": saved, "count": len(saved)}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RemoveHandler обрабатывает DELETE /albums/{albumID}
func (h *AlbumHandler) RemoveHandler(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}
	albumID, err := getUUIDFromURL(r, "albumID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.albumService.RemoveAlbum(r.Context(), currentUserID, albumID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
