// Command cineindex-crawl runs a single crawl against the configured
// roots and exits. Useful from cron or a systemd timer when the API
// server's background crawls are not wanted.
package main
