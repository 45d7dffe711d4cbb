package selection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/album-bracket/metrics"
	"github.com/Dosada05/album-bracket/models"
	"github.com/google/uuid"
)

const aiStrategyName = "ai"

const (
	notAnArrayNote = "Your previous response was not a JSON array of string UUIDs, please try again. Remember, no explanations or markdown."
	tooManyNote    = "Your previous response had more than %d album IDs, please try again. Remember, no explanations or markdown."
	tooFewNote     = "Your previous response only had %d usable album IDs. Select %d more albums that you have not picked yet."
)

type AIConfig struct {
	// MaxAlbums is the hard cap reported by MaxAlbumCount.
	MaxAlbums int
	// Attempts bounds the number of model requests per selection.
	Attempts       int
	AttemptTimeout time.Duration
	// WorkingSetFactor sizes the random pre-filter as a multiple of MaxAlbums.
	WorkingSetFactor int
}

func DefaultAIConfig() AIConfig {
	return AIConfig{
		MaxAlbums:        128,
		Attempts:         3,
		AttemptTimeout:   30 * time.Second,
		WorkingSetFactor: 4,
	}
}

// AIStrategy asks a generative model to pick albums matching a free-text
// hint. Bad model output is retried, and once the attempts run out the
// selection falls back to the random strategy, so it never fails for a
// valid request.
type AIStrategy struct {
	gen    Generator
	hint   string
	random *RandomStrategy
	cfg    AIConfig
	logger *slog.Logger
}

func NewAIStrategy(gen Generator, hint string, random *RandomStrategy, cfg AIConfig, logger *slog.Logger) *AIStrategy {
	defaults := DefaultAIConfig()
	if cfg.MaxAlbums <= 0 {
		cfg.MaxAlbums = defaults.MaxAlbums
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaults.Attempts
	}
	if cfg.WorkingSetFactor <= 0 {
		cfg.WorkingSetFactor = defaults.WorkingSetFactor
	}
	if random == nil {
		random = NewRandomStrategy(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AIStrategy{gen: gen, hint: hint, random: random, cfg: cfg, logger: logger}
}

func (s *AIStrategy) Name() string {
	return aiStrategyName
}

func (s *AIStrategy) MaxAlbumCount() int {
	return s.cfg.MaxAlbums
}

// aiSelection is the state carried between attempts.
type aiSelection struct {
	attempt  int
	need     int
	accepted []*models.Album
	seen     map[uuid.UUID]struct{}
	note     string
}

func (s *AIStrategy) SelectAlbums(ctx context.Context, pool []*models.Album, count int) ([]*models.Album, error) {
	if err := Validate(len(pool), count, s.MaxAlbumCount()); err != nil {
		return nil, err
	}

	workingSet := s.random.Sample(pool, s.cfg.WorkingSetFactor*s.cfg.MaxAlbums)
	byID := make(map[uuid.UUID]*models.Album, len(workingSet))
	for _, album := range workingSet {
		byID[album.ID] = album
	}

	state := aiSelection{
		need:     count,
		accepted: make([]*models.Album, 0, count),
		seen:     make(map[uuid.UUID]struct{}, count),
	}

	for state.attempt = 1; state.attempt <= s.cfg.Attempts; state.attempt++ {
		if ctx.Err() != nil {
			break
		}

		prompt := buildSelectionPrompt(workingSet, s.hint, state.need, state.accepted, state.note)
		reply, err := s.respond(ctx, prompt)
		if err != nil {
			s.logger.WarnContext(ctx, "album selection attempt failed",
				slog.Int("attempt", state.attempt), slog.Any("error", err))
			metrics.RecordSelectionAttempt(aiStrategyName, metrics.OutcomeError)
			continue
		}

		ids, err := parseAlbumIDs(reply)
		if err != nil {
			s.logger.WarnContext(ctx, "album selection response rejected",
				slog.Int("attempt", state.attempt), slog.Any("error", err))
			metrics.RecordSelectionAttempt(aiStrategyName, metrics.OutcomeRejected)
			state.note = notAnArrayNote
			continue
		}

		picked := resolveAlbums(ids, byID, state.seen)
		switch {
		case len(picked) == state.need:
			state.accepted = append(state.accepted, picked...)
			metrics.RecordSelectionAttempt(aiStrategyName, metrics.OutcomeSuccess)
			return state.accepted, nil

		case len(picked) < state.need:
			state.accepted = append(state.accepted, picked...)
			for _, album := range picked {
				state.seen[album.ID] = struct{}{}
			}
			s.logger.WarnContext(ctx, "album selection returned too few albums",
				slog.Int("attempt", state.attempt),
				slog.Int("expected", state.need),
				slog.Int("actual", len(picked)))
			state.note = fmt.Sprintf(tooFewNote, len(picked), state.need-len(picked))
			state.need -= len(picked)
			metrics.RecordSelectionAttempt(aiStrategyName, metrics.OutcomeShort)

		default:
			s.logger.WarnContext(ctx, "album selection returned too many albums",
				slog.Int("attempt", state.attempt),
				slog.Int("expected", state.need),
				slog.Int("actual", len(picked)))
			state.note = fmt.Sprintf(tooManyNote, state.need)
			metrics.RecordSelectionAttempt(aiStrategyName, metrics.OutcomeRejected)
		}
	}

	s.logger.WarnContext(ctx, "AI album selection failed, resorting to random selection",
		slog.Int("requested", count), slog.Int("accepted", len(state.accepted)))
	metrics.RecordSelectionFallback()
	return s.random.SelectAlbums(context.WithoutCancel(ctx), pool, count)
}

func (s *AIStrategy) respond(ctx context.Context, prompt string) (string, error) {
	if s.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.AttemptTimeout)
		defer cancel()
	}
	return s.gen.Respond(ctx, prompt)
}

// resolveAlbums maps ids to working set albums, dropping unknown ids and
// ids that were already accepted or repeat within the reply.
func resolveAlbums(ids []uuid.UUID, byID map[uuid.UUID]*models.Album, seen map[uuid.UUID]struct{}) []*models.Album {
	picked := make([]*models.Album, 0, len(ids))
	inReply := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		album, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		if _, dup := inReply[id]; dup {
			continue
		}
		inReply[id] = struct{}{}
		picked = append(picked, album)
	}
	return picked
}
