package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vodaudit/internal/services"
	"vodaudit/internal/vodstore"
)

// ErrDedupFailed marks a completed dedup check whose assertions did not hold.
var ErrDedupFailed = errors.New("dedup check failed")

// DedupSpec names the episode slot and the stream ids expected to share it.
type DedupSpec struct {
	Series    string   `json:"series"`
	Season    int64    `json:"season"`
	Episode   int64    `json:"episode"`
	StreamIDs []string `json:"stream_ids"`
}

// DedupReport is the outcome of a DedupCheck.
type DedupReport struct {
	Spec              DedupSpec          `json:"spec"`
	Series            vodstore.Series    `json:"series"`
	Episodes          []vodstore.Episode `json:"episodes"`
	Relations         int                `json:"relations"`
	MissingStreamIDs  []string           `json:"missing_stream_ids"`
	DistinctEpisodes  []int64            `json:"distinct_episodes"`
	SingleEpisode     bool               `json:"single_episode"`
	AllStreamsPresent bool               `json:"all_streams_present"`
	SameEpisode       bool               `json:"same_episode"`
}

// Passed reports whether every check held.
func (r DedupReport) Passed() bool {
	return r.SingleEpisode && r.AllStreamsPresent && r.SameEpisode
}

// DedupCheck verifies that one Episode occupies the slot and that every
// listed stream id is attached to it. The first series whose name contains
// Spec.Series is used.
func DedupCheck(ctx context.Context, store Store, spec DedupSpec) (DedupReport, error) {
	spec.Series = strings.TrimSpace(spec.Series)
	spec.StreamIDs = normalizeIDs(spec.StreamIDs)
	if spec.Series == "" {
		return DedupReport{}, services.Wrap(services.ErrValidation, "audit", "dedup check", "series is required", nil)
	}
	if len(spec.StreamIDs) == 0 {
		return DedupReport{}, services.Wrap(services.ErrValidation, "audit", "dedup check", "at least one stream id is required", nil)
	}

	matches, err := store.SeriesByName(ctx, spec.Series)
	if err != nil {
		return DedupReport{}, err
	}
	if len(matches) == 0 {
		return DedupReport{}, fmt.Errorf("no series matching %q: %w", spec.Series, services.ErrNotFound)
	}
	report := DedupReport{Spec: spec, Series: matches[0]}

	report.Episodes, err = store.EpisodesBySlot(ctx, report.Series.ID, spec.Season, spec.Episode)
	if err != nil {
		return DedupReport{}, err
	}
	report.SingleEpisode = len(report.Episodes) == 1

	relations, err := store.RelationsByStreamIDs(ctx, spec.StreamIDs)
	if err != nil {
		return DedupReport{}, err
	}
	present := make(map[string]bool, len(relations))
	distinct := make(map[int64]bool)
	for _, rel := range relations {
		present[strings.TrimSpace(rel.StreamID)] = true
		if !distinct[rel.EpisodeID] {
			distinct[rel.EpisodeID] = true
			report.DistinctEpisodes = append(report.DistinctEpisodes, rel.EpisodeID)
		}
	}
	report.Relations = len(relations)
	report.MissingStreamIDs = []string{}
	for _, id := range spec.StreamIDs {
		if !present[id] {
			report.MissingStreamIDs = append(report.MissingStreamIDs, id)
		}
	}
	report.AllStreamsPresent = len(report.MissingStreamIDs) == 0
	report.SameEpisode = len(report.DistinctEpisodes) == 1
	if report.SameEpisode && report.SingleEpisode {
		report.SameEpisode = report.DistinctEpisodes[0] == report.Episodes[0].ID
	}
	return report, nil
}
