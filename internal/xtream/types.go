package xtream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Series is one entry of the get_series listing.
type Series struct {
	SeriesID ID     `json:"series_id"`
	Name     string `json:"name"`
}

// SeriesInfo is the get_series_info payload.
type SeriesInfo struct {
	Episodes Episodes `json:"episodes"`
}

// Episode is one provider episode entry. ID is the stream id.
type Episode struct {
	ID                 ID     `json:"id"`
	Title              string `json:"title"`
	Season             ID     `json:"season"`
	SeasonNumber       ID     `json:"season_number"`
	EpisodeNum         ID     `json:"episode_num"`
	ContainerExtension string `json:"container_extension"`
}

// SeasonKey returns season, falling back to season_number.
func (e Episode) SeasonKey() string {
	if e.Season != "" && e.Season != "0" {
		return string(e.Season)
	}
	if e.SeasonNumber != "" {
		return string(e.SeasonNumber)
	}
	return string(e.Season)
}

// ID is an identifier that providers send either as a JSON string or number.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
	case len(data) > 0 && data[0] == '"':
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(text))
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("identifier %s: not a string or number", data)
		}
		*id = ID(n.String())
	}
	return nil
}

// Episodes holds a series' episodes in feed order. The feed sends either an
// object keyed by season or a flat array; both decode here.
type Episodes []Episode

// UnmarshalJSON implements json.Unmarshaler.
func (e *Episodes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = nil
		return nil
	}
	switch data[0] {
	case '[':
		var list []Episode
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("episodes list: %w", err)
		}
		*e = list
		return nil
	case '{':
		var bySeason map[string][]Episode
		if err := json.Unmarshal(data, &bySeason); err != nil {
			return fmt.Errorf("episodes by season: %w", err)
		}
		seasons := make([]string, 0, len(bySeason))
		for season := range bySeason {
			seasons = append(seasons, season)
		}
		sort.Slice(seasons, func(i, j int) bool { return seasonLess(seasons[i], seasons[j]) })
		var out []Episode
		for _, season := range seasons {
			for _, ep := range bySeason[season] {
				if ep.Season == "" && ep.SeasonNumber == "" {
					ep.Season = ID(season)
				}
				out = append(out, ep)
			}
		}
		*e = out
		return nil
	default:
		return fmt.Errorf("episodes: unexpected json %.20q", data)
	}
}

func seasonLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}

// decodeSeriesList accepts the get_series array or, from some panels, an
// object keyed by series id.
func decodeSeriesList(body []byte) ([]Series, error) {
	var list []Series
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var byID map[string]Series
	if err := json.Unmarshal(body, &byID); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(byID))
	for key := range byID {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return seasonLess(keys[i], keys[j]) })
	list = make([]Series, 0, len(byID))
	for _, key := range keys {
		s := byID[key]
		if s.SeriesID == "" {
			s.SeriesID = ID(key)
		}
		list = append(list, s)
	}
	return list, nil
}
