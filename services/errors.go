package services

import (
	"errors"

	"github.com/Dosada05/album-bracket/repositories"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrValidationFailed = errors.New("validation failed")

	ErrForbiddenOperation = errors.New("operation not allowed for the current user")

	ErrTournamentNotFound = errors.New("tournament not found")
	ErrRoundNotFound      = errors.New("round not found")
	ErrAlbumNotFound      = errors.New("album not found")

	// Сетка ещё строится: корень не записан
	ErrBracketNotReady = errors.New("bracket is not ready yet")
	ErrExportDisabled  = errors.New("bracket export is not configured")
)

// mapRepositoryError translates repository sentinels into service errors.
func mapRepositoryError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrRoundNotFound):
		return ErrRoundNotFound
	case errors.Is(err, repositories.ErrAlbumNotFound):
		return ErrAlbumNotFound
	default:
		return err
	}
}
