// Package listing fetches directory listing pages from remote HTTP
// servers and parses them into entries.
//
// Directory servers in the wild produce several listing shapes (h5ai
// JSON and HTML fallback, datatable pages, Apache autoindex tables,
// nginx <pre> blocks). The parser tries the known shapes in a fixed
// priority order and returns the first plausible result, so a given
// page always parses the same way.
//
// Filtering happens here too: entries whose extension is not on the
// allow-list and directories with blocked names never leave this
// package, keeping the crawler and store oblivious to filter rules.
package listing
