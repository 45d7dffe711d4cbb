package storage

import (
	"context"
	"io"

	"github.com/google/uuid"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// BracketSnapshotKey is the object key of a tournament's exported bracket.
func BracketSnapshotKey(tournamentID uuid.UUID) string {
	return "brackets/" + tournamentID.String() + ".json"
}
