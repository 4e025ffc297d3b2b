// Package xtream is a small player_api.php client: the series listing and
// per-series episode info, rate limited per account.
package xtream
