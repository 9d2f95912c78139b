// Package startup handles application configuration and startup logging.
//
// Service settings (ports, data directory, crawl tuning) come from
// environment variables via LoadConfig. The crawl inputs live in two JSON
// files that can be edited without restarting the service:
//
//   - roots.json: ordered list of {url, tag} crawl roots, with optional
//     basic-auth credentials per root
//   - filters.json: {video_extensions, blocked_dirs}
//
// Both files are validated strictly before a crawl starts; a malformed
// file aborts the crawl rather than indexing against a partial
// configuration.
package startup
