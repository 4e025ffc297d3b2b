package vodstore

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoStreamURL is returned when a relation's playback URL cannot be derived.
var ErrNoStreamURL = errors.New("no stream url")

// DefaultContainer is used when a relation carries no container extension.
const DefaultContainer = "mp4"

// XtreamSeriesURL builds the Xtream Codes playback URL for a series episode.
func XtreamSeriesURL(serverURL, username, password, streamID, container string) string {
	container = strings.TrimPrefix(strings.TrimSpace(container), ".")
	if container == "" {
		container = DefaultContainer
	}
	return fmt.Sprintf("%s/series/%s/%s/%s.%s",
		strings.TrimRight(strings.TrimSpace(serverURL), "/"),
		username,
		password,
		strings.TrimSpace(streamID),
		container,
	)
}

// StreamURL derives the playback URL for the relation. Xtream accounts use
// the series URL layout; other accounts rely on a direct URL stored in the
// relation's custom properties.
func (r Relation) StreamURL() (string, error) {
	if r.Account.IsXtream() {
		if strings.TrimSpace(r.Account.ServerURL) == "" || strings.TrimSpace(r.StreamID) == "" {
			return "", fmt.Errorf("relation %d: %w: missing server url or stream id", r.ID, ErrNoStreamURL)
		}
		return XtreamSeriesURL(r.Account.ServerURL, r.Account.Username, r.Account.Password, r.StreamID, r.ContainerExtension), nil
	}
	for _, key := range []string{"direct_source", "url"} {
		if value := r.CustomProperties.String(key); value != "" {
			return value, nil
		}
	}
	return "", fmt.Errorf("relation %d (%s account): %w", r.ID, r.Account.AccountType, ErrNoStreamURL)
}
