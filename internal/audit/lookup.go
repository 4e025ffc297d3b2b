package audit

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"vodaudit/internal/streamcompare"
	"vodaudit/internal/vodstore"
)

// FoundStream is a relation with the episode it points at.
type FoundStream struct {
	Relation vodstore.Relation `json:"relation"`
	Episode  *vodstore.Episode `json:"episode,omitempty"`
}

// StreamLookupReport is the result of looking up specific stream ids.
type StreamLookupReport struct {
	Requested []string      `json:"requested"`
	Found     []FoundStream `json:"found"`
	Missing   []string      `json:"missing"`
}

// StreamLookup finds the relations for the given stream ids and lists the
// ids no relation carries, sorted.
func StreamLookup(ctx context.Context, store Store, ids []string) (StreamLookupReport, error) {
	requested := normalizeIDs(ids)
	report := StreamLookupReport{Requested: requested, Found: []FoundStream{}, Missing: []string{}}
	if len(requested) == 0 {
		return report, nil
	}
	relations, err := store.RelationsByStreamIDs(ctx, requested)
	if err != nil {
		return StreamLookupReport{}, err
	}
	episodes := make(map[int64]*vodstore.Episode)
	present := make(map[string]bool, len(relations))
	for _, rel := range relations {
		present[strings.TrimSpace(rel.StreamID)] = true
		ep, seen := episodes[rel.EpisodeID]
		if !seen {
			loaded, err := store.EpisodeByID(ctx, rel.EpisodeID)
			switch {
			case err == nil:
				ep = &loaded
			case vodstore.IsNotFound(err):
			default:
				return StreamLookupReport{}, err
			}
			episodes[rel.EpisodeID] = ep
		}
		report.Found = append(report.Found, FoundStream{Relation: rel, Episode: ep})
	}
	for _, id := range requested {
		if !present[id] {
			report.Missing = append(report.Missing, id)
		}
	}
	slices.Sort(report.Missing)
	return report, nil
}

func normalizeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// AttachedStream is a relation shown by EpisodeInspection. StreamIDLength
// exposes padding or whitespace in stored ids.
type AttachedStream struct {
	StreamID       string `json:"stream_id"`
	StreamIDLength int    `json:"stream_id_length"`
	Provider       string `json:"provider"`
	Container      string `json:"container"`
	CreatedAt      string `json:"created_at"`
}

// EpisodeInspectionReport is an episode with every attached stream.
type EpisodeInspectionReport struct {
	Episode vodstore.Episode `json:"episode"`
	Streams []AttachedStream `json:"streams"`
}

// EpisodeInspection loads an episode by id with all of its relations,
// including those on inactive accounts.
func EpisodeInspection(ctx context.Context, store Store, id int64) (EpisodeInspectionReport, error) {
	episode, err := store.EpisodeByID(ctx, id)
	if err != nil {
		return EpisodeInspectionReport{}, err
	}
	relations, err := store.RelationsForEpisode(ctx, id, vodstore.RelationFilter{})
	if err != nil {
		return EpisodeInspectionReport{}, err
	}
	report := EpisodeInspectionReport{Episode: episode, Streams: make([]AttachedStream, 0, len(relations))}
	for _, rel := range relations {
		created := ""
		if !rel.CreatedAt.IsZero() {
			created = rel.CreatedAt.Format("2006-01-02 15:04:05")
		}
		report.Streams = append(report.Streams, AttachedStream{
			StreamID:       rel.StreamID,
			StreamIDLength: len([]rune(rel.StreamID)),
			Provider:       rel.Account.Name,
			Container:      rel.ContainerExtension,
			CreatedAt:      created,
		})
	}
	return report, nil
}

// SkippedRelation is a relation whose playback URL could not be derived.
type SkippedRelation struct {
	RelationID int64  `json:"relation_id"`
	StreamID   string `json:"stream_id"`
	Reason     string `json:"reason"`
}

// EpisodeStreamsReport holds probe targets for an episode's active streams.
type EpisodeStreamsReport struct {
	Episode   vodstore.Episode       `json:"episode"`
	Relations int                    `json:"relations"`
	Targets   []streamcompare.Target `json:"targets"`
	Skipped   []SkippedRelation      `json:"skipped,omitempty"`
}

// EpisodeStreams resolves an episode by uuid and builds a probe target for
// each relation on an active account, labelled "<stream id> (<account>)".
func EpisodeStreams(ctx context.Context, store Store, id uuid.UUID) (EpisodeStreamsReport, error) {
	episode, err := store.EpisodeByUUID(ctx, id)
	if err != nil {
		return EpisodeStreamsReport{}, err
	}
	relations, err := store.RelationsForEpisode(ctx, episode.ID, vodstore.RelationFilter{ActiveOnly: true})
	if err != nil {
		return EpisodeStreamsReport{}, err
	}
	report := EpisodeStreamsReport{Episode: episode, Relations: len(relations)}
	for _, rel := range relations {
		streamURL, err := rel.StreamURL()
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedRelation{
				RelationID: rel.ID,
				StreamID:   rel.StreamID,
				Reason:     err.Error(),
			})
			continue
		}
		report.Targets = append(report.Targets, streamcompare.Target{
			Label:   fmt.Sprintf("%s (%s)", rel.StreamID, rel.Account.Name),
			URL:     streamURL,
			Account: rel.Account.Name,
		})
	}
	return report, nil
}
