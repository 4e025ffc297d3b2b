package audit

import (
	"context"
	"fmt"

	"vodaudit/internal/vodstore"
)

// Default list sizes used by the CLI.
const (
	DefaultDuplicateLimit = 10
	DefaultExampleLimit   = 5
)

// EpisodeIntegrityReport lists Episode rows that share a slot.
type EpisodeIntegrityReport struct {
	Total int                            `json:"total"`
	Sets  []vodstore.DuplicateEpisodeSet `json:"sets"`
}

// Clean reports whether no duplicate Episode rows exist.
func (r EpisodeIntegrityReport) Clean() bool {
	return r.Total == 0
}

// DuplicateEpisodes finds Episode rows sharing series, season, and episode
// number. Sets holds at most limit groups, largest first; Total counts all.
func DuplicateEpisodes(ctx context.Context, store Store, limit int) (EpisodeIntegrityReport, error) {
	sets, err := store.DuplicateEpisodeSets(ctx)
	if err != nil {
		return EpisodeIntegrityReport{}, err
	}
	report := EpisodeIntegrityReport{Total: len(sets), Sets: sets}
	if limit > 0 && len(sets) > limit {
		report.Sets = sets[:limit]
	}
	return report, nil
}

// StreamExample is one stream of an episode that has several.
type StreamExample struct {
	StreamID  string `json:"stream_id"`
	Container string `json:"container"`
	InfoTitle string `json:"info_title,omitempty"`
}

// EpisodeExample is an episode with more than one stream on an account.
type EpisodeExample struct {
	Episode vodstore.Episode `json:"episode"`
	Streams []StreamExample  `json:"streams"`
}

// AccountDuplicates summarizes multi-stream episodes for one account.
type AccountDuplicates struct {
	Account  vodstore.Account `json:"account"`
	Episodes int              `json:"episodes"`
	Examples []EpisodeExample `json:"examples,omitempty"`
}

// DuplicateStreams reports, per active account, how many episodes carry more
// than one stream and shows up to examples of them.
func DuplicateStreams(ctx context.Context, store Store, examples int) ([]AccountDuplicates, error) {
	accounts, err := store.ActiveAccounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AccountDuplicates, 0, len(accounts))
	for _, account := range accounts {
		counts, err := store.EpisodesWithMultipleStreams(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		entry := AccountDuplicates{Account: account, Episodes: len(counts)}
		for i, count := range counts {
			if examples >= 0 && i >= examples {
				break
			}
			example, ok, err := episodeExample(ctx, store, account.ID, count.EpisodeID)
			if err != nil {
				return nil, err
			}
			if ok {
				entry.Examples = append(entry.Examples, example)
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

func episodeExample(ctx context.Context, store Store, accountID, episodeID int64) (EpisodeExample, bool, error) {
	episode, err := store.EpisodeByID(ctx, episodeID)
	if err != nil {
		if vodstore.IsNotFound(err) {
			return EpisodeExample{}, false, nil
		}
		return EpisodeExample{}, false, err
	}
	relations, err := store.RelationsForEpisode(ctx, episodeID, vodstore.RelationFilter{AccountID: accountID})
	if err != nil {
		return EpisodeExample{}, false, err
	}
	example := EpisodeExample{Episode: episode, Streams: make([]StreamExample, 0, len(relations))}
	for _, rel := range relations {
		example.Streams = append(example.Streams, StreamExample{
			StreamID:  rel.StreamID,
			Container: rel.ContainerExtension,
			InfoTitle: rel.InfoTitle(),
		})
	}
	return example, true, nil
}

// GroupingResult compares an in-process count of multi-stream episodes with
// the GROUP BY query for one account.
type GroupingResult struct {
	Account        vodstore.Account `json:"account"`
	TotalRelations int              `json:"total_relations"`
	ManualCount    int              `json:"manual_count"`
	QueryCount     int              `json:"query_count"`
}

// Mismatch is true when grouping in process finds duplicates the query misses.
func (g GroupingResult) Mismatch() bool {
	return g.ManualCount > 0 && g.QueryCount == 0
}

// GroupingCheck cross-checks the duplicate-stream query for every active
// account.
func GroupingCheck(ctx context.Context, store Store) ([]GroupingResult, error) {
	accounts, err := store.ActiveAccounts(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]GroupingResult, 0, len(accounts))
	for _, account := range accounts {
		total, err := store.CountRelations(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		pairs, err := store.RelationPairs(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		grouped, err := store.EpisodesWithMultipleStreams(ctx, account.ID)
		if err != nil {
			return nil, fmt.Errorf("grouping check for %s: %w", account.Name, err)
		}
		results = append(results, GroupingResult{
			Account:        account,
			TotalRelations: total,
			ManualCount:    countMultiStream(pairs),
			QueryCount:     len(grouped),
		})
	}
	return results, nil
}

func countMultiStream(pairs []vodstore.RelationPair) int {
	perEpisode := make(map[int64]int, len(pairs))
	for _, pair := range pairs {
		perEpisode[pair.EpisodeID]++
	}
	count := 0
	for _, n := range perEpisode {
		if n > 1 {
			count++
		}
	}
	return count
}
