package listing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"cineindex/internal/logging"
	"cineindex/internal/metrics"
)

// maxBodySize caps how much of a listing response is read. Even very
// large directories stay well below this.
const maxBodySize = 32 << 20

// Credentials are HTTP basic auth credentials for a crawl root.
type Credentials struct {
	Username string
	Password string
}

// Fetcher retrieves and parses directory listing pages. It is safe for
// concurrent use.
type Fetcher struct {
	client *http.Client
	filter filter
}

// NewFetcher returns a Fetcher with the given per-request timeout and
// filter configuration.
func NewFetcher(timeout time.Duration, cfg FilterConfig) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		filter: newFilter(cfg),
	}
}

// Fetch retrieves the listing page at dirURL, detects its format, and
// returns the filtered children. dirURL must end with a slash. All
// failures come back as a *FetchError; callers use Retryable to decide
// whether another attempt is worthwhile.
func (f *Fetcher) Fetch(ctx context.Context, dirURL string, creds Credentials) ([]Entry, error) {
	base, err := url.Parse(dirURL)
	if err != nil {
		return nil, &FetchError{Kind: KindConnection, URL: dirURL, Err: fmt.Errorf("invalid directory URL: %w", err)}
	}

	start := time.Now()
	entries, fetchErr := f.fetch(ctx, base, dirURL, creds)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())

	if fetchErr != nil {
		metrics.FetchErrorsByKind.WithLabelValues(fetchErr.Kind.String()).Inc()
		return nil, fetchErr
	}

	return entries, nil
}

func (f *Fetcher) fetch(ctx context.Context, base *url.URL, dirURL string, creds Credentials) ([]Entry, *FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dirURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindConnection, URL: dirURL, Err: err}
	}
	if creds.Username != "" {
		req.SetBasicAuth(creds.Username, creds.Password)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(dirURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{Kind: KindHTTPStatus, URL: dirURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, classifyTransportError(dirURL, err)
	}

	entries, format, perr := parseListing(body, base)
	if perr != nil {
		return nil, perr
	}

	kept := entries[:0]
	for _, e := range entries {
		if f.filter.keep(e) {
			kept = append(kept, e)
		}
	}

	logging.Debug("fetched %s: format=%s entries=%d kept=%d", dirURL, format, len(entries), len(kept))
	return kept, nil
}

// classifyTransportError maps a transport-level failure to a timeout or
// connection error kind.
func classifyTransportError(dirURL string, err error) *FetchError {
	kind := KindConnection

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	}

	return &FetchError{Kind: kind, URL: dirURL, Err: err}
}
