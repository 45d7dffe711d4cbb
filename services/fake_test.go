package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/album-bracket/brackets"
	"github.com/Dosada05/album-bracket/db"
	"github.com/Dosada05/album-bracket/models"
	"github.com/Dosada05/album-bracket/repositories"
	"github.com/Dosada05/album-bracket/selection"
	"github.com/Dosada05/album-bracket/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type notification struct {
	room    string
	message brackets.WebSocketMessage
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *fakeNotifier) BroadcastToRoom(roomID string, message interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	msg, _ := message.(brackets.WebSocketMessage)
	n.sent = append(n.sent, notification{room: roomID, message: msg})
}

func (n *fakeNotifier) Sent() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: make(map[string][]byte)}
}

func (u *fakeUploader) Upload(_ context.Context, key string, _ string, reader io.Reader) (*storage.UploadResult, error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = body
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (u *fakeUploader) object(key string) ([]byte, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	body, ok := u.objects[key]
	return body, ok
}

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Respond(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type testEnv struct {
	db          *sql.DB
	tournaments repositories.TournamentRepository
	rounds      repositories.RoundRepository
	albums      repositories.AlbumRepository
	notifier    *fakeNotifier
	uploader    *fakeUploader

	tournamentService TournamentService
	bracketService    BracketService
	albumService      AlbumService
}

type envOptions struct {
	generator  selection.Generator
	ai         selection.AIConfig
	noUploader bool
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "services.db") + "?_foreign_keys=on"
	conn, err := db.Connect(db.DriverSQLite, dsn, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.InitSchema(context.Background(), conn, db.DriverSQLite))

	env := &testEnv{
		db:          conn,
		tournaments: repositories.NewTournamentRepository(conn, db.DriverSQLite),
		rounds:      repositories.NewRoundRepository(conn),
		albums:      repositories.NewAlbumRepository(conn),
		notifier:    &fakeNotifier{},
		uploader:    newFakeUploader(),
	}

	var uploader storage.FileUploader = env.uploader
	if opts.noUploader {
		uploader = nil
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	selectionOpts := SelectionOptions{
		Random:    selection.NewRandomStrategy(rand.NewPCG(7, 11)),
		Generator: opts.generator,
		AI:        opts.ai,
		Pairing:   brackets.NewRandomPairing(rand.NewPCG(3, 5)),
	}

	env.tournamentService = NewTournamentService(conn, env.tournaments, env.rounds, env.albums, selectionOpts, uploader, logger)
	env.bracketService = NewBracketService(conn, env.tournaments, env.rounds, env.notifier, uploader, logger)
	env.albumService = NewAlbumService(env.albums)
	return env
}

func (e *testEnv) seedAlbums(t *testing.T, owner uuid.UUID, n int) []*models.Album {
	t.Helper()

	albums := make([]*models.Album, 0, n)
	for i := 0; i < n; i++ {
		albums = append(albums, &models.Album{
			SpotifyID:  fmt.Sprintf("spotify-%02d", i),
			Name:       fmt.Sprintf("Album %02d", i),
			ArtistName: fmt.Sprintf("Artist %02d", i),
		})
	}
	saved, err := e.albumService.ImportAlbums(context.Background(), owner, albums)
	require.NoError(t, err)
	return saved
}

func (e *testEnv) createTournament(t *testing.T, owner uuid.UUID, count int) *models.Tournament {
	t.Helper()

	tournament, err := e.tournamentService.CreateTournament(context.Background(), owner, CreateTournamentInput{
		Name:       "Best of",
		AlbumCount: count,
	})
	require.NoError(t, err)
	return tournament
}

func idList(albums ...*models.Album) string {
	quoted := make([]string, 0, len(albums))
	for _, album := range albums {
		quoted = append(quoted, `"`+album.ID.String()+`"`)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func leafAlbumIDs(tree *brackets.Node) []uuid.UUID {
	var ids []uuid.UUID
	for _, leaf := range tree.Leaves() {
		ids = append(ids, *leaf.AlbumID)
	}
	return ids
}
