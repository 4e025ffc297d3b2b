// Command vodaudit diagnoses duplicate VOD streams in a media application's
// catalog.
//
// It probes provider streams with ffprobe and reports whether several stream
// ids for one episode are distinct quality variants or the same media. It
// also runs read-only integrity checks against the application database and
// scans a provider's raw Xtream feed for slots listed more than once.
package main
