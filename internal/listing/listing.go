package listing

import (
	"fmt"
	"strings"
)

// Entry is one child parsed from a directory listing page.
type Entry struct {
	// Name is the decoded display name without a trailing slash.
	Name string
	// URL is the absolute URL resolved against the directory URL.
	URL string
	// IsDir reports whether the entry is a subdirectory.
	IsDir bool
	// Size is the approximate size in bytes for files, -1 when unknown.
	Size int64
	// Modified is the last-modified timestamp as reported by the server,
	// verbatim. Empty when the listing does not include one.
	Modified string
}

// ErrorKind classifies a fetch failure.
type ErrorKind int

const (
	// KindTimeout is a request that exceeded the fetch timeout.
	KindTimeout ErrorKind = iota
	// KindHTTPStatus is a non-2xx response.
	KindHTTPStatus
	// KindParse is a response body that matched no known listing format.
	KindParse
	// KindConnection is a network-level failure (DNS, refused, reset).
	KindConnection
)

// String returns the metric label for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindHTTPStatus:
		return "http_status"
	case KindParse:
		return "parse"
	case KindConnection:
		return "connection"
	default:
		return "unknown"
	}
}

// FetchError is the error returned by Fetcher.Fetch.
type FetchError struct {
	Kind   ErrorKind
	URL    string
	Status int // HTTP status code, set for KindHTTPStatus
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("fetch %s: HTTP status %d", e.URL, e.Status)
	case KindParse:
		return fmt.Sprintf("fetch %s: unrecognized listing format", e.URL)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient: timeouts,
// connection errors and 5xx responses are worth retrying, 4xx responses
// and unparseable bodies are not.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindConnection:
		return true
	case KindHTTPStatus:
		return e.Status >= 500
	default:
		return false
	}
}

// FilterConfig controls which parsed entries are returned to callers.
// Extensions are matched lower-case without a leading dot, blocked
// directory names lower-case.
type FilterConfig struct {
	AllowedExtensions []string
	BlockedDirs       []string
}

type filter struct {
	exts    map[string]bool
	blocked map[string]bool
}

func newFilter(cfg FilterConfig) filter {
	f := filter{
		exts:    make(map[string]bool, len(cfg.AllowedExtensions)),
		blocked: make(map[string]bool, len(cfg.BlockedDirs)),
	}
	for _, e := range cfg.AllowedExtensions {
		f.exts[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	for _, b := range cfg.BlockedDirs {
		f.blocked[strings.ToLower(b)] = true
	}
	return f
}

// keep reports whether an entry survives filtering. Directories are
// dropped when their name is blocked; files are dropped when an
// allow-list is configured and their extension is not on it.
func (f filter) keep(e Entry) bool {
	if e.IsDir {
		return !f.blocked[strings.ToLower(e.Name)]
	}

	if len(f.exts) == 0 {
		return true
	}

	name := strings.ToLower(e.Name)
	dot := strings.LastIndex(name, ".")
	if dot < 0 || dot == len(name)-1 {
		return false
	}
	return f.exts[name[dot+1:]]
}
