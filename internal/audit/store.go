package audit

import (
	"context"

	"github.com/google/uuid"

	"vodaudit/internal/vodstore"
	"vodaudit/internal/xtream"
)

// Store is the subset of vodstore.Store the diagnostics read from.
type Store interface {
	ActiveAccounts(ctx context.Context) ([]vodstore.Account, error)
	EpisodeByID(ctx context.Context, id int64) (vodstore.Episode, error)
	EpisodeByUUID(ctx context.Context, id uuid.UUID) (vodstore.Episode, error)
	RelationsForEpisode(ctx context.Context, episodeID int64, filter vodstore.RelationFilter) ([]vodstore.Relation, error)
	RelationsByStreamIDs(ctx context.Context, streamIDs []string) ([]vodstore.Relation, error)
	DuplicateEpisodeSets(ctx context.Context) ([]vodstore.DuplicateEpisodeSet, error)
	EpisodesWithMultipleStreams(ctx context.Context, accountID int64) ([]vodstore.EpisodeStreamCount, error)
	RelationPairs(ctx context.Context, accountID int64) ([]vodstore.RelationPair, error)
	CountRelations(ctx context.Context, accountID int64) (int, error)
	SeriesByName(ctx context.Context, substring string) ([]vodstore.Series, error)
	EpisodesBySlot(ctx context.Context, seriesID, season, episode int64) ([]vodstore.Episode, error)
}

// Feed is the subset of the Xtream client the provider scan uses.
type Feed interface {
	Series(ctx context.Context) ([]xtream.Series, error)
	SeriesInfo(ctx context.Context, seriesID string) (xtream.SeriesInfo, error)
}

var (
	_ Store = (*vodstore.Store)(nil)
	_ Feed  = (*xtream.Client)(nil)
)
