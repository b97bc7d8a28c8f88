package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteFetcher retrieves the binary content behind a public URL. Size is -1
// when the origin does not announce a content length.
type RemoteFetcher interface {
	Fetch(ctx context.Context, sourceURL string) (body io.ReadCloser, size int64, err error)
}

const defaultFetchTimeout = 30 * time.Second

// HTTPFetcher fetches remote media over plain HTTP(S).
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher returns a fetcher with a bounded request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, sourceURL string) (io.ReadCloser, int64, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create fetch request: %w", err)
	}
	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	response, err := client.Do(request)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", sourceURL, err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		_ = response.Body.Close()
		return nil, 0, fmt.Errorf("fetch %s: unexpected status %d", sourceURL, response.StatusCode)
	}
	return response.Body, response.ContentLength, nil
}
