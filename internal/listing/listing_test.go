package listing

import "testing"

// TestFilterKeep tests extension allow-lists and blocked directories.
func TestFilterKeep(t *testing.T) {
	t.Parallel()

	f := newFilter(FilterConfig{
		AllowedExtensions: []string{"mkv", ".MP4"},
		BlockedDirs:       []string{"Samples", "extras"},
	})

	tests := []struct {
		name  string
		entry Entry
		want  bool
	}{
		{name: "allowed extension", entry: Entry{Name: "movie.mkv"}, want: true},
		{name: "allowed extension upper", entry: Entry{Name: "MOVIE.MKV"}, want: true},
		{name: "normalized dotted extension", entry: Entry{Name: "clip.mp4"}, want: true},
		{name: "disallowed extension", entry: Entry{Name: "notes.txt"}, want: false},
		{name: "no extension", entry: Entry{Name: "README"}, want: false},
		{name: "trailing dot", entry: Entry{Name: "weird."}, want: false},
		{name: "plain directory", entry: Entry{Name: "Action", IsDir: true}, want: true},
		{name: "blocked directory", entry: Entry{Name: "Samples", IsDir: true}, want: false},
		{name: "blocked directory case-insensitive", entry: Entry{Name: "EXTRAS", IsDir: true}, want: false},
		{name: "directory named like file", entry: Entry{Name: "movie.mkv", IsDir: true}, want: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := f.keep(tt.entry); got != tt.want {
				t.Errorf("keep(%+v) = %v, want %v", tt.entry, got, tt.want)
			}
		})
	}
}

// TestFilterKeepEmpty tests that an empty allow-list keeps every file.
func TestFilterKeepEmpty(t *testing.T) {
	t.Parallel()

	f := newFilter(FilterConfig{})
	if !f.keep(Entry{Name: "anything.xyz"}) {
		t.Error("empty allow-list should keep all files")
	}
	if !f.keep(Entry{Name: "Anything", IsDir: true}) {
		t.Error("empty blocked list should keep all directories")
	}
}

// TestFetchErrorRetryable tests the transient/permanent classification.
func TestFetchErrorRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  FetchError
		want bool
	}{
		{name: "timeout", err: FetchError{Kind: KindTimeout}, want: true},
		{name: "connection", err: FetchError{Kind: KindConnection}, want: true},
		{name: "server error", err: FetchError{Kind: KindHTTPStatus, Status: 500}, want: true},
		{name: "bad gateway", err: FetchError{Kind: KindHTTPStatus, Status: 502}, want: true},
		{name: "not found", err: FetchError{Kind: KindHTTPStatus, Status: 404}, want: false},
		{name: "forbidden", err: FetchError{Kind: KindHTTPStatus, Status: 403}, want: false},
		{name: "unauthorized", err: FetchError{Kind: KindHTTPStatus, Status: 401}, want: false},
		{name: "parse", err: FetchError{Kind: KindParse}, want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Retryable(); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestErrorKindString tests metric label names stay stable.
func TestErrorKindString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindTimeout, "timeout"},
		{KindHTTPStatus, "http_status"},
		{KindParse, "parse"},
		{KindConnection, "connection"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("%v.String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
