// Package vodstore reads the application's VOD tables.
//
// Every operation is a SELECT. PostgreSQL connections are opened with
// default_transaction_read_only so a misconfigured DSN cannot write, and
// SQLite connections run with query_only. Queries are written once with "?"
// placeholders and rebound for PostgreSQL.
//
// Tables read: m3u_m3uaccount, core_useragent, vod_series, vod_episode, and
// vod_m3uepisoderelation.
package vodstore
