package listing

import (
	"net/url"
	"testing"
)

const apacheListing = `<!DOCTYPE html>
<html><head><title>Index of /Movies</title></head><body>
<h1>Index of /Movies</h1>
<table>
<tr><th><img src="/icons/blank.gif" alt="[ICO]"></th><th>Name</th><th>Last modified</th><th>Size</th></tr>
<tr><th colspan="4"><hr></th></tr>
<tr><td><img src="/icons/back.gif" alt="[PARENTDIR]"></td><td><a href="/">Parent Directory</a></td><td>&nbsp;</td><td align="right">  - </td></tr>
<tr><td><img src="/icons/folder.gif" alt="[DIR]"></td><td><a href="Action/">Action/</a></td><td align="right">2025-06-01 10:30  </td><td align="right">  - </td></tr>
<tr><td><img src="/icons/movie.gif" alt="[VID]"></td><td><a href="x.mkv">x.mkv</a></td><td align="right">2025-06-02 11:00  </td><td align="right">1.2G</td></tr>
<tr><td><img src="/icons/movie.gif" alt="[VID]"></td><td><a href="notes.txt">notes.txt</a></td><td align="right">2025-06-02 11:05  </td><td align="right">523</td></tr>
<tr><th colspan="4"><hr></th></tr>
</table>
</body></html>`

const nginxListing = `<html>
<head><title>Index of /Movies/</title></head>
<body>
<h1>Index of /Movies/</h1><hr><pre><a href="../">../</a>
<a href="Action/">Action/</a>                                            19-Aug-2025 12:33       -
<a href="x.mkv">x.mkv</a>                                              02-Jun-2025 11:00  1288490188
</pre><hr></body>
</html>`

const h5aiListing = `{"items":[
	{"href":"/Movies/","time":1717240200000},
	{"href":"/Movies/Action/","time":1717240200000},
	{"href":"/Movies/x.mkv","time":1717326000000,"size":1288490188}
]}`

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse URL %q: %v", raw, err)
	}
	return u
}

func entriesByName(entries []Entry) map[string]Entry {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[e.Name] = e
	}
	return m
}

// TestParseListingFormats tests that each listing shape produces the
// same logical entries.
func TestParseListingFormats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantFormat string
		wantCount  int
	}{
		{name: "apache table", body: apacheListing, wantFormat: "generic-table", wantCount: 3},
		{name: "nginx pre", body: nginxListing, wantFormat: "pre-anchors", wantCount: 2},
		{name: "h5ai json", body: h5aiListing, wantFormat: "h5ai-json", wantCount: 2},
	}

	base := mustParseURL(t, "http://server/Movies/")

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			entries, format, err := parseListing([]byte(tt.body), base)
			if err != nil {
				t.Fatalf("parseListing failed: %v", err)
			}
			if format != tt.wantFormat {
				t.Errorf("format = %q, want %q", format, tt.wantFormat)
			}
			if len(entries) != tt.wantCount {
				t.Fatalf("got %d entries, want %d: %+v", len(entries), tt.wantCount, entries)
			}

			byName := entriesByName(entries)

			action, ok := byName["Action"]
			if !ok {
				t.Fatalf("missing Action directory in %+v", entries)
			}
			if !action.IsDir {
				t.Error("Action should be a directory")
			}
			if action.URL != "http://server/Movies/Action/" {
				t.Errorf("Action URL = %q", action.URL)
			}

			mkv, ok := byName["x.mkv"]
			if !ok {
				t.Fatalf("missing x.mkv in %+v", entries)
			}
			if mkv.IsDir {
				t.Error("x.mkv should be a file")
			}
			if mkv.Size <= 0 {
				t.Errorf("x.mkv size = %d, want > 0", mkv.Size)
			}
			if mkv.Modified == "" {
				t.Error("x.mkv should carry a modified timestamp")
			}
		})
	}
}

// TestParseListingExcludesNavigation tests that parent links and sort
// links never become entries.
func TestParseListingExcludesNavigation(t *testing.T) {
	t.Parallel()

	body := `<html><body><table>
	<tr><td><a href="/">Parent Directory</a></td><td>-</td><td>-</td></tr>
	<tr><td><a href="../">../</a></td><td>-</td><td>-</td></tr>
	<tr><td><a href="?C=N;O=D">Name</a></td><td>-</td><td>-</td></tr>
	<tr><td><a href="http://elsewhere/file.mkv">file.mkv</a></td><td>-</td><td>-</td></tr>
	<tr><td><a href="real.mkv">real.mkv</a></td><td>2025-06-02 11:00</td><td>12M</td></tr>
	</table></body></html>`

	base := mustParseURL(t, "http://server/Movies/")
	entries, _, err := parseListing([]byte(body), base)
	if err != nil {
		t.Fatalf("parseListing failed: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1: %+v", len(entries), entries)
	}
	if entries[0].Name != "real.mkv" {
		t.Errorf("entry name = %q, want real.mkv", entries[0].Name)
	}
}

// TestParseListingUnrecognized tests that an unknown body is a parse error.
func TestParseListingUnrecognized(t *testing.T) {
	t.Parallel()

	base := mustParseURL(t, "http://server/Movies/")
	_, _, ferr := parseListing([]byte("<html><body><p>welcome to my homepage</p></body></html>"), base)
	if ferr == nil {
		t.Fatal("expected a parse error")
	}
	if ferr.Kind != KindParse {
		t.Errorf("error kind = %v, want KindParse", ferr.Kind)
	}
	if ferr.Retryable() {
		t.Error("parse errors must not be retryable")
	}
}

// TestParseListingEscapedNames tests percent-encoded hrefs decode to
// display names.
func TestParseListingEscapedNames(t *testing.T) {
	t.Parallel()

	body := `<html><body><table>
	<tr><td><a href="The%20Movie%20%282024%29.mkv">The Movie (2024).mkv</a></td><td>2025-06-02</td><td>1.2G</td></tr>
	</table></body></html>`

	base := mustParseURL(t, "http://server/Movies/")
	entries, _, err := parseListing([]byte(body), base)
	if err != nil {
		t.Fatalf("parseListing failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Name != "The Movie (2024).mkv" {
		t.Errorf("name = %q, want decoded display name", entries[0].Name)
	}
	if entries[0].URL != "http://server/Movies/The%20Movie%20%282024%29.mkv" {
		t.Errorf("URL = %q, want encoded absolute URL", entries[0].URL)
	}
}

// TestResolveChild tests the strictly-below acceptance rule.
func TestResolveChild(t *testing.T) {
	t.Parallel()

	base := mustParseURL(t, "http://server/Movies/")

	tests := []struct {
		name    string
		href    string
		wantURL string
		wantDir bool
		wantOK  bool
	}{
		{name: "relative file", href: "x.mkv", wantURL: "http://server/Movies/x.mkv", wantOK: true},
		{name: "relative dir", href: "Action/", wantURL: "http://server/Movies/Action/", wantDir: true, wantOK: true},
		{name: "absolute path child", href: "/Movies/Action/", wantURL: "http://server/Movies/Action/", wantDir: true, wantOK: true},
		{name: "parent link", href: "../", wantOK: false},
		{name: "self link", href: "./", wantOK: false},
		{name: "root link", href: "/", wantOK: false},
		{name: "sort link", href: "?C=N;O=D", wantOK: false},
		{name: "other host", href: "http://elsewhere/x.mkv", wantOK: false},
		{name: "sibling dir", href: "/Other/", wantOK: false},
		{name: "empty", href: "", wantOK: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gotURL, gotDir, ok := resolveChild(base, tt.href)
			if ok != tt.wantOK {
				t.Fatalf("resolveChild(%q) ok = %v, want %v", tt.href, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if gotURL != tt.wantURL {
				t.Errorf("URL = %q, want %q", gotURL, tt.wantURL)
			}
			if gotDir != tt.wantDir {
				t.Errorf("isDir = %v, want %v", gotDir, tt.wantDir)
			}
		})
	}
}
