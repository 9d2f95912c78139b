package startup

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Root is one configured crawl namespace: a base URL plus a short display
// tag. Optional credentials are sent as HTTP basic auth on every fetch
// under the root.
type Root struct {
	URL      string `json:"url"`
	Tag      string `json:"tag"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Filters is the listing filter configuration: which file extensions are
// indexed and which directory names are never descended into.
type Filters struct {
	VideoExtensions []string `json:"video_extensions"`
	BlockedDirs     []string `json:"blocked_dirs"`
}

// NormalizeRootURL ensures a root URL ends with exactly one slash.
func NormalizeRootURL(raw string) string {
	return strings.TrimRight(raw, "/") + "/"
}

// LoadRoots reads and validates the roots file. A malformed file or an
// invalid root URL is a hard error: crawling must not start against a
// half-understood configuration.
func LoadRoots(path string) ([]Root, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roots file %s: %w", path, err)
	}

	var raw []Root
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse roots file %s: %w", path, err)
	}

	roots := make([]Root, 0, len(raw))
	for i, r := range raw {
		r.URL = strings.TrimSpace(r.URL)
		if r.URL == "" {
			continue
		}
		r.URL = NormalizeRootURL(r.URL)

		u, err := url.Parse(r.URL)
		if err != nil {
			return nil, fmt.Errorf("roots[%d]: invalid URL %q: %w", i, r.URL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("roots[%d]: unsupported scheme %q in %q", i, u.Scheme, r.URL)
		}
		if u.Host == "" {
			return nil, fmt.Errorf("roots[%d]: missing host in %q", i, r.URL)
		}

		r.Tag = strings.TrimSpace(r.Tag)
		if r.Tag == "" {
			r.Tag = deriveTag(u)
		}

		roots = append(roots, r)
	}

	if len(roots) == 0 {
		return nil, fmt.Errorf("roots file %s contains no usable roots", path)
	}

	return roots, nil
}

// deriveTag builds a display tag from the last path segment of the root
// URL, falling back to the host.
func deriveTag(u *url.URL) string {
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return u.Host
	}
	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}

// LoadFilters reads and validates the filters file. A missing file yields
// empty filters (index everything); a malformed file is a hard error.
func LoadFilters(path string) (Filters, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Filters{}, nil
	}
	if err != nil {
		return Filters{}, fmt.Errorf("failed to read filters file %s: %w", path, err)
	}

	var f Filters
	if err := json.Unmarshal(data, &f); err != nil {
		return Filters{}, fmt.Errorf("failed to parse filters file %s: %w", path, err)
	}

	// Extensions are matched lower-case without a leading dot, blocked
	// directory names lower-case.
	exts := make([]string, 0, len(f.VideoExtensions))
	for _, e := range f.VideoExtensions {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			exts = append(exts, e)
		}
	}
	f.VideoExtensions = exts

	blocked := make([]string, 0, len(f.BlockedDirs))
	for _, b := range f.BlockedDirs {
		b = strings.ToLower(strings.TrimSpace(b))
		if b != "" {
			blocked = append(blocked, b)
		}
	}
	f.BlockedDirs = blocked

	return f, nil
}

// WriteExampleFiles creates demo roots and filters files if neither
// exists, so a first run has something to edit.
func WriteExampleFiles(rootsPath, filtersPath string) error {
	if _, err := os.Stat(rootsPath); os.IsNotExist(err) {
		demo := []Root{{URL: "http://example-server/ftps10/Movies/", Tag: "FTPS10"}}
		data, err := json.MarshalIndent(demo, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(rootsPath, data, 0o644); err != nil {
			return fmt.Errorf("failed to write demo roots file: %w", err)
		}
	}

	if _, err := os.Stat(filtersPath); os.IsNotExist(err) {
		demo := Filters{
			VideoExtensions: []string{"mkv", "mp4", "avi", "webm", "m4v", "mov", "ts"},
			BlockedDirs:     []string{},
		}
		data, err := json.MarshalIndent(demo, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filtersPath, data, 0o644); err != nil {
			return fmt.Errorf("failed to write demo filters file: %w", err)
		}
	}

	return nil
}
