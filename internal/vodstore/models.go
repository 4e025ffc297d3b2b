package vodstore

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Account types stored in m3u_m3uaccount.account_type.
const (
	AccountTypeXtream   = "XC"
	AccountTypeStandard = "STD"
)

// Account is a provider account row.
type Account struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	IsActive    bool   `json:"is_active"`
	AccountType string `json:"account_type"`
	ServerURL   string `json:"server_url"`
	Username    string `json:"username"`
	Password    string `json:"-"`
	UserAgent   string `json:"user_agent,omitempty"`
}

// IsXtream reports whether the account speaks the Xtream Codes API.
func (a Account) IsXtream() bool {
	return strings.EqualFold(strings.TrimSpace(a.AccountType), AccountTypeXtream)
}

// Series is a vod_series row.
type Series struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Episode is a vod_episode row joined with its series name.
type Episode struct {
	ID            int64  `json:"id"`
	UUID          string `json:"uuid"`
	Name          string `json:"name"`
	SeriesID      int64  `json:"series_id"`
	SeriesName    string `json:"series_name"`
	SeasonNumber  *int64 `json:"season_number"`
	EpisodeNumber *int64 `json:"episode_number"`
}

// Slot renders the season/episode position as S<season>E<episode>.
func (e Episode) Slot() string {
	return FormatSlot(e.SeasonNumber, e.EpisodeNumber)
}

// FormatSlot renders a possibly-null season and episode pair.
func FormatSlot(season, episode *int64) string {
	return "S" + formatOptional(season) + "E" + formatOptional(episode)
}

func formatOptional(v *int64) string {
	if v == nil {
		return "None"
	}
	return fmt.Sprintf("%d", *v)
}

// Relation is a vod_m3uepisoderelation row joined with its account.
type Relation struct {
	ID                 int64      `json:"id"`
	Account            Account    `json:"account"`
	EpisodeID          int64      `json:"episode_id"`
	StreamID           string     `json:"stream_id"`
	ContainerExtension string     `json:"container_extension"`
	CustomProperties   Properties `json:"custom_properties,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// InfoTitle returns custom_properties.info.title, or "" when absent.
func (r Relation) InfoTitle() string {
	info, ok := r.CustomProperties["info"].(map[string]any)
	if !ok {
		return ""
	}
	title, _ := info["title"].(string)
	return title
}

// DuplicateEpisodeSet is a group of Episode rows that share a series, season,
// and episode number.
type DuplicateEpisodeSet struct {
	SeriesID      int64  `json:"series_id"`
	SeriesName    string `json:"series_name,omitempty"`
	SeasonNumber  *int64 `json:"season_number"`
	EpisodeNumber *int64 `json:"episode_number"`
	Count         int    `json:"count"`
}

// EpisodeStreamCount is the number of relations one account has for an episode.
type EpisodeStreamCount struct {
	EpisodeID int64 `json:"episode_id"`
	Streams   int   `json:"streams"`
}

// RelationPair is a raw (episode, stream) association.
type RelationPair struct {
	EpisodeID int64
	StreamID  string
}

// Properties holds a JSON object column such as custom_properties.
type Properties map[string]any

// Scan implements sql.Scanner.
func (p *Properties) Scan(value any) error {
	if value == nil {
		*p = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("vodstore.Properties.Scan: expected []byte or string, got %T", value)
	}
	if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
		*p = nil
		return nil
	}
	decoded := map[string]any{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode custom properties: %w", err)
	}
	*p = decoded
	return nil
}

// String returns the named property as a string when present.
func (p Properties) String(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	default:
		return ""
	}
}
