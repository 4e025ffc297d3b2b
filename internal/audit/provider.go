package audit

import (
	"context"
	"log/slog"
	"strings"

	"vodaudit/internal/logging"
	"vodaudit/internal/textutil"
	"vodaudit/internal/xtream"
)

// DefaultSeriesLimit bounds the provider scan when no limit is given.
const DefaultSeriesLimit = 10

// ScanOptions controls ProviderScan.
type ScanOptions struct {
	// SeriesLimit caps how many series are walked; zero uses the default and a
	// negative value walks every series.
	SeriesLimit int
	// NameFilter keeps only series whose name contains it, ignoring case.
	NameFilter string
	Logger     *slog.Logger
}

// FeedStream is one stream id the provider lists for an episode slot.
type FeedStream struct {
	StreamID  string `json:"stream_id"`
	Container string `json:"container"`
	Title     string `json:"title,omitempty"`
}

// FeedDuplicate is an episode slot the provider lists more than once.
type FeedDuplicate struct {
	SeriesID   string       `json:"series_id"`
	SeriesName string       `json:"series_name"`
	Season     string       `json:"season"`
	Episode    string       `json:"episode"`
	Streams    []FeedStream `json:"streams"`
}

// SeriesError records a series whose info could not be fetched.
type SeriesError struct {
	SeriesID   string `json:"series_id"`
	SeriesName string `json:"series_name"`
	Error      string `json:"error"`
}

// ProviderScanReport is the result of walking the raw feed.
type ProviderScanReport struct {
	TotalSeries   int             `json:"total_series"`
	ScannedSeries int             `json:"scanned_series"`
	Duplicates    []FeedDuplicate `json:"duplicates"`
	Errors        []SeriesError   `json:"errors,omitempty"`
}

// ProviderScan walks the first series of the feed and reports every
// (season, episode) key the provider lists with more than one stream id.
// A series whose info request fails is recorded and skipped.
func ProviderScan(ctx context.Context, feed Feed, opts ScanOptions) (ProviderScanReport, error) {
	logger := logging.NewComponentLogger(opts.Logger, "provider-scan")
	limit := opts.SeriesLimit
	if limit == 0 {
		limit = DefaultSeriesLimit
	}

	all, err := feed.Series(ctx)
	if err != nil {
		return ProviderScanReport{}, err
	}
	report := ProviderScanReport{TotalSeries: len(all), Duplicates: []FeedDuplicate{}}

	selected := make([]xtream.Series, 0, len(all))
	for _, series := range all {
		if opts.NameFilter != "" && !textutil.ContainsFold(series.Name, opts.NameFilter) {
			continue
		}
		selected = append(selected, series)
	}
	if limit > 0 && len(selected) > limit {
		selected = selected[:limit]
	}

	for _, series := range selected {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		id := string(series.SeriesID)
		info, err := feed.SeriesInfo(ctx, id)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			logger.Warn("series info failed",
				logging.String("series_id", id),
				logging.String("series", series.Name),
				logging.Error(err),
			)
			report.Errors = append(report.Errors, SeriesError{SeriesID: id, SeriesName: series.Name, Error: err.Error()})
			continue
		}
		report.ScannedSeries++
		found := duplicateSlots(series, info.Episodes)
		if len(found) > 0 {
			logger.Debug("duplicate slots in feed",
				logging.String("series", series.Name),
				logging.Int("slots", len(found)),
			)
		}
		report.Duplicates = append(report.Duplicates, found...)
	}
	return report, nil
}

func duplicateSlots(series xtream.Series, episodes xtream.Episodes) []FeedDuplicate {
	type slotKey struct{ season, episode string }
	var order []slotKey
	slots := make(map[slotKey][]FeedStream)
	for _, ep := range episodes {
		key := slotKey{season: ep.SeasonKey(), episode: string(ep.EpisodeNum)}
		if _, ok := slots[key]; !ok {
			order = append(order, key)
		}
		slots[key] = append(slots[key], FeedStream{
			StreamID:  string(ep.ID),
			Container: ep.ContainerExtension,
			Title:     strings.TrimSpace(ep.Title),
		})
	}
	var out []FeedDuplicate
	for _, key := range order {
		streams := slots[key]
		if len(streams) < 2 {
			continue
		}
		out = append(out, FeedDuplicate{
			SeriesID:   string(series.SeriesID),
			SeriesName: series.Name,
			Season:     key.season,
			Episode:    key.episode,
			Streams:    streams,
		})
	}
	return out
}
