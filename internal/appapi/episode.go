package appapi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"vodaudit/internal/streamcompare"
	"vodaudit/internal/vodstore"
)

// Episode is the subset of the episode endpoint payload used here.
type Episode struct {
	ID        json.Number `json:"id"`
	UUID      string      `json:"uuid"`
	Name      string      `json:"name"`
	Series    struct {
		Name string `json:"name"`
	} `json:"series"`
	Providers []Provider `json:"providers"`
}

// Provider is one stream relation embedded in an episode payload.
type Provider struct {
	StreamID           StreamID        `json:"stream_id"`
	ContainerExtension string          `json:"container_extension"`
	Account            ProviderAccount `json:"m3u_account"`
}

// ProviderAccount is the account block of a provider relation.
type ProviderAccount struct {
	Name        string `json:"name"`
	AccountType string `json:"account_type"`
	ServerURL   string `json:"server_url"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

// StreamID accepts stream ids encoded as JSON strings or numbers.
type StreamID string

// UnmarshalJSON implements json.Unmarshaler.
func (s *StreamID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*s = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*s = StreamID(text)
		return nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return fmt.Errorf("stream id %s: not a string or number", raw)
	}
	*s = StreamID(raw)
	return nil
}

// EpisodeStreams builds probe targets for the episode's Xtream providers.
// Providers on other account types are skipped; ErrNoXtreamStreams is
// returned when none remain.
func EpisodeStreams(ep Episode) ([]streamcompare.Target, error) {
	if len(ep.Providers) == 0 {
		return nil, ErrNoProviders
	}
	targets := make([]streamcompare.Target, 0, len(ep.Providers))
	for _, provider := range ep.Providers {
		account := provider.Account
		if !strings.EqualFold(account.AccountType, vodstore.AccountTypeXtream) {
			continue
		}
		streamID := string(provider.StreamID)
		if streamID == "" || strings.TrimSpace(account.ServerURL) == "" {
			continue
		}
		name := account.Name
		if name == "" {
			name = "Unknown"
		}
		targets = append(targets, streamcompare.Target{
			Label:   streamID,
			URL:     vodstore.XtreamSeriesURL(account.ServerURL, account.Username, account.Password, streamID, provider.ContainerExtension),
			Account: name,
		})
	}
	if len(targets) == 0 {
		return nil, ErrNoXtreamStreams
	}
	return targets, nil
}
