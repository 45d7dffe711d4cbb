package selection

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/Dosada05/album-bracket/models"
	"github.com/google/uuid"
)

// fakeGenerator records prompts and answers from RespondFunc.
type fakeGenerator struct {
	mu          sync.Mutex
	prompts     []string
	RespondFunc func(ctx context.Context, call int, prompt string) (string, error)
}

func (f *fakeGenerator) Respond(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	call := len(f.prompts)
	f.mu.Unlock()

	if f.RespondFunc == nil {
		return "", fmt.Errorf("no response scripted")
	}
	return f.RespondFunc(ctx, call, prompt)
}

func (f *fakeGenerator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeGenerator) Prompt(call int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompts[call-1]
}

// scripted answers call n with replies[n-1] and fails past the end.
func scripted(replies ...string) *fakeGenerator {
	return &fakeGenerator{
		RespondFunc: func(_ context.Context, call int, _ string) (string, error) {
			if call > len(replies) {
				return "", fmt.Errorf("unexpected call %d", call)
			}
			return replies[call-1], nil
		},
	}
}

func makePool(n int) []*models.Album {
	pool := make([]*models.Album, 0, n)
	for i := 0; i < n; i++ {
		pool = append(pool, &models.Album{
			ID:         uuid.New(),
			SpotifyID:  fmt.Sprintf("spotify-%d", i),
			Name:       fmt.Sprintf("Album %d", i),
			ArtistName: fmt.Sprintf("Artist %d", i),
		})
	}
	return pool
}

func idArray(albums ...*models.Album) string {
	quoted := make([]string, 0, len(albums))
	for _, album := range albums {
		quoted = append(quoted, `"`+album.ID.String()+`"`)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func seededRandom(seed uint64) *RandomStrategy {
	return NewRandomStrategy(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func assertDistinctFromPool(t *testing.T, got, pool []*models.Album) {
	t.Helper()

	inPool := make(map[uuid.UUID]bool, len(pool))
	for _, album := range pool {
		inPool[album.ID] = true
	}
	seen := make(map[uuid.UUID]bool, len(got))
	for _, album := range got {
		if !inPool[album.ID] {
			t.Fatalf("album %s is not part of the pool", album.ID)
		}
		if seen[album.ID] {
			t.Fatalf("album %s selected twice", album.ID)
		}
		seen[album.ID] = true
	}
}
