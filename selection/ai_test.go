package selection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Dosada05/album-bracket/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAIStrategy(gen Generator, cfg AIConfig) *AIStrategy {
	return NewAIStrategy(gen, "only jazz", seededRandom(11), cfg, discardLogger())
}

func TestAIStrategy_LimitExceededMakesNoCall(t *testing.T) {
	gen := scripted()
	strategy := newTestAIStrategy(gen, AIConfig{MaxAlbums: 4})

	_, err := strategy.SelectAlbums(context.Background(), makePool(10), 5)

	var limit *LimitExceededError
	require.True(t, errors.As(err, &limit), "got %v", err)
	assert.Equal(t, 4, limit.Limit)
	assert.Zero(t, gen.Calls())
}

func TestAIStrategy_InsufficientPool(t *testing.T) {
	gen := scripted()
	strategy := newTestAIStrategy(gen, DefaultAIConfig())

	_, err := strategy.SelectAlbums(context.Background(), makePool(2), 3)

	var insufficient *InsufficientAlbumsError
	require.True(t, errors.As(err, &insufficient))
	assert.Zero(t, gen.Calls())
}

func TestAIStrategy_ExactAnswer(t *testing.T) {
	pool := makePool(6)
	gen := scripted("```json\n" + idArray(pool[4], pool[1], pool[2]) + "\n```")
	strategy := newTestAIStrategy(gen, DefaultAIConfig())

	got, err := strategy.SelectAlbums(context.Background(), pool, 3)
	require.NoError(t, err)
	assert.Equal(t, []*models.Album{pool[4], pool[1], pool[2]}, got)
	assert.Equal(t, 1, gen.Calls())

	prompt := gen.Prompt(1)
	assert.Contains(t, prompt, "You must select 3 albums")
	assert.Contains(t, prompt, `"only jazz"`)
	for _, album := range pool {
		assert.Contains(t, prompt, album.ID.String())
	}
}

func TestAIStrategy_ShortfallIsRequested(t *testing.T) {
	pool := makePool(6)
	gen := scripted(
		idArray(pool[0], pool[1]),
		// repeats an accepted album, which is dropped
		idArray(pool[1], pool[3]),
		idArray(pool[5]),
	)
	strategy := newTestAIStrategy(gen, DefaultAIConfig())

	got, err := strategy.SelectAlbums(context.Background(), pool, 4)
	require.NoError(t, err)
	assert.Equal(t, []*models.Album{pool[0], pool[1], pool[3], pool[5]}, got)
	require.Equal(t, 3, gen.Calls())

	second := gen.Prompt(2)
	assert.Contains(t, second, "You must select 2 albums")
	assert.Contains(t, second, pool[0].ID.String()+", "+pool[1].ID.String())

	third := gen.Prompt(3)
	assert.Contains(t, third, "You must select 1 albums")
}

func TestAIStrategy_MalformedElementRejectsAttempt(t *testing.T) {
	pool := makePool(4)
	gen := scripted(
		`["`+pool[0].ID.String()+`", 42]`,
		`["`+pool[0].ID.String()+`", "not-a-uuid"]`,
		idArray(pool[0], pool[2]),
	)
	strategy := newTestAIStrategy(gen, DefaultAIConfig())

	got, err := strategy.SelectAlbums(context.Background(), pool, 2)
	require.NoError(t, err)
	assert.Equal(t, []*models.Album{pool[0], pool[2]}, got)
	assert.Contains(t, gen.Prompt(2), "not a JSON array of string UUIDs")
	// nothing was accepted from the rejected attempts
	assert.Contains(t, gen.Prompt(3), "You must select 2 albums")
}

func TestAIStrategy_TooManyIsRejected(t *testing.T) {
	pool := makePool(5)
	gen := scripted(
		idArray(pool[0], pool[1], pool[2]),
		idArray(pool[3], pool[4]),
	)
	strategy := newTestAIStrategy(gen, DefaultAIConfig())

	got, err := strategy.SelectAlbums(context.Background(), pool, 2)
	require.NoError(t, err)
	assert.Equal(t, []*models.Album{pool[3], pool[4]}, got)
	assert.Contains(t, gen.Prompt(2), "more than 2 album IDs")
}

func TestAIStrategy_UnknownIDsAreDropped(t *testing.T) {
	pool := makePool(3)
	stranger := uuid.New()
	gen := scripted(
		fmt.Sprintf(`["%s", "%s"]`, stranger, pool[2].ID),
		idArray(pool[0]),
	)
	strategy := newTestAIStrategy(gen, DefaultAIConfig())

	got, err := strategy.SelectAlbums(context.Background(), pool, 2)
	require.NoError(t, err)
	assert.Equal(t, []*models.Album{pool[2], pool[0]}, got)
}

func TestAIStrategy_FallsBackAfterAttempts(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{name: "garbage", gen: scripted("sure!", "no", "[1, 2]")},
		{name: "errors", gen: &fakeGenerator{
			RespondFunc: func(context.Context, int, string) (string, error) {
				return "", errors.New("upstream unavailable")
			},
		}},
		{name: "timeouts", gen: &fakeGenerator{
			RespondFunc: func(ctx context.Context, _ int, _ string) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := makePool(8)
			cfg := DefaultAIConfig()
			cfg.AttemptTimeout = 10 * time.Millisecond
			strategy := newTestAIStrategy(tt.gen, cfg)

			got, err := strategy.SelectAlbums(context.Background(), pool, 5)
			require.NoError(t, err)
			require.Len(t, got, 5)
			assertDistinctFromPool(t, got, pool)
			assert.Equal(t, 3, tt.gen.Calls())
		})
	}
}

func TestAIStrategy_WorkingSetIsBounded(t *testing.T) {
	pool := makePool(50)
	gen := scripted("[]", "[]", "[]")
	strategy := newTestAIStrategy(gen, AIConfig{MaxAlbums: 2, WorkingSetFactor: 4})

	got, err := strategy.SelectAlbums(context.Background(), pool, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	listed := strings.Count(gen.Prompt(1), "ID: ")
	assert.Equal(t, 8, listed)
}

func TestParseAlbumIDs(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name    string
		reply   string
		want    []uuid.UUID
		wantErr error
	}{
		{name: "plain", reply: `["` + id.String() + `"]`, want: []uuid.UUID{id}},
		{name: "fenced", reply: "```json\n[\"" + id.String() + "\"]\n```", want: []uuid.UUID{id}},
		{name: "prose around", reply: "Here you go: [\"" + id.String() + "\"] enjoy", want: []uuid.UUID{id}},
		{name: "empty array", reply: "[]", want: []uuid.UUID{}},
		{name: "no array", reply: "I cannot help", wantErr: ErrNoJSONArray},
		{name: "object", reply: `{"ids": 1}`, wantErr: ErrNoJSONArray},
		{name: "number element", reply: `[1]`, wantErr: ErrMalformedID},
		{name: "short string", reply: `["abc"]`, wantErr: ErrMalformedID},
		{name: "braced uuid", reply: `["{` + id.String() + `}"]`, wantErr: ErrMalformedID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAlbumIDs(tt.reply)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
