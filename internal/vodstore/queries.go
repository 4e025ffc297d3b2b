package vodstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"vodaudit/internal/services"
)

const accountColumns = `a.id, a.name, a.is_active, a.account_type, a.server_url, a.username, a.password, ua.user_agent`

const accountFrom = `FROM m3u_m3uaccount a
LEFT JOIN core_useragent ua ON ua.id = a.user_agent_id`

const episodeColumns = `e.id, CAST(e.uuid AS TEXT), e.name, e.series_id, s.name, e.season_number, e.episode_number`

const episodeFrom = `FROM vod_episode e
LEFT JOIN vod_series s ON s.id = e.series_id`

const relationColumns = `r.id, r.episode_id, r.stream_id, r.container_extension,
CAST(r.custom_properties AS TEXT), r.created_at, r.updated_at, ` + accountColumns

const relationFrom = `FROM vod_m3uepisoderelation r
JOIN m3u_m3uaccount a ON a.id = r.m3u_account_id
LEFT JOIN core_useragent ua ON ua.id = a.user_agent_id`

func scanAccountInto(dest *Account) []any {
	return []any{
		&dest.ID, &dest.Name, &dest.IsActive, &dest.AccountType,
		(*nullString)(&dest.ServerURL), (*nullString)(&dest.Username), (*nullString)(&dest.Password),
		(*nullString)(&dest.UserAgent),
	}
}

func scanAccount(row rowScanner) (Account, error) {
	var account Account
	if err := row.Scan(scanAccountInto(&account)...); err != nil {
		return Account{}, err
	}
	return account, nil
}

func scanEpisode(row rowScanner) (Episode, error) {
	var (
		ep            Episode
		uuidText      sql.NullString
		seriesName    sql.NullString
		seriesID      sql.NullInt64
		seasonNumber  sql.NullInt64
		episodeNumber sql.NullInt64
	)
	if err := row.Scan(&ep.ID, &uuidText, (*nullString)(&ep.Name), &seriesID, &seriesName, &seasonNumber, &episodeNumber); err != nil {
		return Episode{}, err
	}
	ep.UUID = uuidText.String
	ep.SeriesID = seriesID.Int64
	ep.SeriesName = seriesName.String
	ep.SeasonNumber = int64Ptr(seasonNumber)
	ep.EpisodeNumber = int64Ptr(episodeNumber)
	return ep, nil
}

func scanRelation(row rowScanner) (Relation, error) {
	var (
		rel       Relation
		createdAt nullableTime
		updatedAt nullableTime
	)
	dest := []any{
		&rel.ID, &rel.EpisodeID, &rel.StreamID, (*nullString)(&rel.ContainerExtension),
		&rel.CustomProperties, &createdAt, &updatedAt,
	}
	dest = append(dest, scanAccountInto(&rel.Account)...)
	if err := row.Scan(dest...); err != nil {
		return Relation{}, err
	}
	rel.CreatedAt = createdAt.Time
	rel.UpdatedAt = updatedAt.Time
	return rel, nil
}

// nullString scans a nullable text column into a plain string.
type nullString string

func (n *nullString) Scan(value any) error {
	var ns sql.NullString
	if err := ns.Scan(value); err != nil {
		return err
	}
	*n = nullString(ns.String)
	return nil
}

// ActiveAccounts lists accounts with is_active set, ordered by id.
func (s *Store) ActiveAccounts(ctx context.Context) ([]Account, error) {
	accounts, err := queryAll(ctx, s, scanAccount,
		`SELECT `+accountColumns+` `+accountFrom+` WHERE a.is_active ORDER BY a.id`)
	if err != nil {
		return nil, fmt.Errorf("list active accounts: %w", err)
	}
	return accounts, nil
}

// AccountByName returns the account with the exact name.
func (s *Store) AccountByName(ctx context.Context, name string) (Account, error) {
	accounts, err := queryAll(ctx, s, scanAccount,
		`SELECT `+accountColumns+` `+accountFrom+` WHERE a.name = ? ORDER BY a.id LIMIT 1`, name)
	if err != nil {
		return Account{}, fmt.Errorf("get account %q: %w", name, err)
	}
	if len(accounts) == 0 {
		return Account{}, fmt.Errorf("account %q: %w", name, services.ErrNotFound)
	}
	return accounts[0], nil
}

// FirstActiveXtreamAccount returns the lowest-id active Xtream Codes account.
func (s *Store) FirstActiveXtreamAccount(ctx context.Context) (Account, error) {
	accounts, err := queryAll(ctx, s, scanAccount,
		`SELECT `+accountColumns+` `+accountFrom+` WHERE a.is_active AND a.account_type = ? ORDER BY a.id LIMIT 1`,
		AccountTypeXtream)
	if err != nil {
		return Account{}, fmt.Errorf("get active xtream account: %w", err)
	}
	if len(accounts) == 0 {
		return Account{}, fmt.Errorf("active XC account: %w", services.ErrNotFound)
	}
	return accounts[0], nil
}

// EpisodeByID returns one episode.
func (s *Store) EpisodeByID(ctx context.Context, id int64) (Episode, error) {
	episodes, err := queryAll(ctx, s, scanEpisode,
		`SELECT `+episodeColumns+` `+episodeFrom+` WHERE e.id = ?`, id)
	if err != nil {
		return Episode{}, fmt.Errorf("get episode %d: %w", id, err)
	}
	if len(episodes) == 0 {
		return Episode{}, fmt.Errorf("episode %d: %w", id, services.ErrNotFound)
	}
	return episodes[0], nil
}

// EpisodeByUUID returns the episode with the given public identifier.
func (s *Store) EpisodeByUUID(ctx context.Context, id uuid.UUID) (Episode, error) {
	episodes, err := queryAll(ctx, s, scanEpisode,
		`SELECT `+episodeColumns+` `+episodeFrom+` WHERE e.uuid = ?`, id.String())
	if err != nil {
		return Episode{}, fmt.Errorf("get episode %s: %w", id, err)
	}
	if len(episodes) == 0 {
		return Episode{}, fmt.Errorf("episode %s: %w", id, services.ErrNotFound)
	}
	return episodes[0], nil
}

// RelationFilter narrows RelationsForEpisode.
type RelationFilter struct {
	ActiveOnly bool
	AccountID  int64
}

// RelationsForEpisode lists the stream relations attached to an episode.
func (s *Store) RelationsForEpisode(ctx context.Context, episodeID int64, filter RelationFilter) ([]Relation, error) {
	where := []string{"r.episode_id = ?"}
	args := []any{episodeID}
	if filter.ActiveOnly {
		where = append(where, "a.is_active")
	}
	if filter.AccountID > 0 {
		where = append(where, "r.m3u_account_id = ?")
		args = append(args, filter.AccountID)
	}
	relations, err := queryAll(ctx, s, scanRelation,
		`SELECT `+relationColumns+` `+relationFrom+` WHERE `+strings.Join(where, " AND ")+` ORDER BY r.id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list relations for episode %d: %w", episodeID, err)
	}
	return relations, nil
}

// RelationsByStreamIDs returns every relation whose stream id, ignoring
// surrounding whitespace, is listed.
func (s *Store) RelationsByStreamIDs(ctx context.Context, streamIDs []string) ([]Relation, error) {
	if len(streamIDs) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(streamIDs))
	for _, id := range streamIDs {
		args = append(args, strings.TrimSpace(id))
	}
	relations, err := queryAll(ctx, s, scanRelation,
		`SELECT `+relationColumns+` `+relationFrom+` WHERE TRIM(r.stream_id) IN (`+placeholders(len(args))+`) ORDER BY TRIM(r.stream_id), r.id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list relations by stream id: %w", err)
	}
	return relations, nil
}

// DuplicateEpisodeSets groups episodes sharing series, season, and episode
// number, keeping groups with more than one row, largest first.
func (s *Store) DuplicateEpisodeSets(ctx context.Context) ([]DuplicateEpisodeSet, error) {
	sets, err := queryAll(ctx, s, func(row rowScanner) (DuplicateEpisodeSet, error) {
		var (
			set           DuplicateEpisodeSet
			seriesID      sql.NullInt64
			seriesName    sql.NullString
			seasonNumber  sql.NullInt64
			episodeNumber sql.NullInt64
		)
		if err := row.Scan(&seriesID, &seriesName, &seasonNumber, &episodeNumber, &set.Count); err != nil {
			return DuplicateEpisodeSet{}, err
		}
		set.SeriesID = seriesID.Int64
		set.SeriesName = seriesName.String
		set.SeasonNumber = int64Ptr(seasonNumber)
		set.EpisodeNumber = int64Ptr(episodeNumber)
		return set, nil
	}, `SELECT e.series_id, s.name, e.season_number, e.episode_number, COUNT(e.id) AS dup_count
FROM vod_episode e
LEFT JOIN vod_series s ON s.id = e.series_id
GROUP BY e.series_id, s.name, e.season_number, e.episode_number
HAVING COUNT(e.id) > 1
ORDER BY dup_count DESC, e.series_id, e.season_number, e.episode_number`)
	if err != nil {
		return nil, fmt.Errorf("find duplicate episodes: %w", err)
	}
	return sets, nil
}

// EpisodesWithMultipleStreams lists episodes that have more than one relation
// for the account, computed with GROUP BY.
func (s *Store) EpisodesWithMultipleStreams(ctx context.Context, accountID int64) ([]EpisodeStreamCount, error) {
	counts, err := queryAll(ctx, s, func(row rowScanner) (EpisodeStreamCount, error) {
		var c EpisodeStreamCount
		err := row.Scan(&c.EpisodeID, &c.Streams)
		return c, err
	}, `SELECT episode_id, COUNT(id)
FROM vod_m3uepisoderelation
WHERE m3u_account_id = ?
GROUP BY episode_id
HAVING COUNT(id) > 1
ORDER BY episode_id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("group relations for account %d: %w", accountID, err)
	}
	return counts, nil
}

// RelationPairs returns raw (episode, stream) pairs for the account.
func (s *Store) RelationPairs(ctx context.Context, accountID int64) ([]RelationPair, error) {
	pairs, err := queryAll(ctx, s, func(row rowScanner) (RelationPair, error) {
		var (
			p         RelationPair
			episodeID sql.NullInt64
		)
		if err := row.Scan(&episodeID, &p.StreamID); err != nil {
			return RelationPair{}, err
		}
		p.EpisodeID = episodeID.Int64
		return p, nil
	}, `SELECT episode_id, stream_id FROM vod_m3uepisoderelation WHERE m3u_account_id = ? ORDER BY id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list relation pairs for account %d: %w", accountID, err)
	}
	return pairs, nil
}

// CountRelations returns the number of relations owned by the account.
func (s *Store) CountRelations(ctx context.Context, accountID int64) (int, error) {
	var count int
	if err := s.queryRow(ctx, []any{&count},
		`SELECT COUNT(*) FROM vod_m3uepisoderelation WHERE m3u_account_id = ?`, accountID); err != nil {
		return 0, fmt.Errorf("count relations for account %d: %w", accountID, err)
	}
	return count, nil
}

// SeriesByName returns series whose name contains substring, ignoring case.
func (s *Store) SeriesByName(ctx context.Context, substring string) ([]Series, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(substring))) + "%"
	series, err := queryAll(ctx, s, func(row rowScanner) (Series, error) {
		var item Series
		err := row.Scan(&item.ID, (*nullString)(&item.Name))
		return item, err
	}, `SELECT id, name FROM vod_series WHERE LOWER(name) LIKE ? ESCAPE '\' ORDER BY id`, pattern)
	if err != nil {
		return nil, fmt.Errorf("find series %q: %w", substring, err)
	}
	return series, nil
}

// EpisodesBySlot lists episodes of a series at the given season and episode.
func (s *Store) EpisodesBySlot(ctx context.Context, seriesID, season, episode int64) ([]Episode, error) {
	episodes, err := queryAll(ctx, s, scanEpisode,
		`SELECT `+episodeColumns+` `+episodeFrom+`
WHERE e.series_id = ? AND e.season_number = ? AND e.episode_number = ?
ORDER BY e.id`, seriesID, season, episode)
	if err != nil {
		return nil, fmt.Errorf("list episodes for series %d %s: %w", seriesID, FormatSlot(&season, &episode), err)
	}
	return episodes, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

// IsNotFound reports whether err marks a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, services.ErrNotFound)
}
