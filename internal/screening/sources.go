package screening

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/banking/compliance-engine/internal/domain"
)

// HTTPFetcher pulls a source's entry set from a JSON endpoint. Providers
// publish either a bare array or an object with an "entries" field.
type HTTPFetcher struct {
	source string
	url    string
	client *http.Client
}

// NewHTTPFetcher creates a fetcher for one sanctions list endpoint.
func NewHTTPFetcher(source, url string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		source: source,
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) Source() string { return f.source }

func (f *HTTPFetcher) Fetch(ctx context.Context) ([]domain.WatchlistEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", f.source, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", f.source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", f.source, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s payload: %w", f.source, err)
	}

	var entries []domain.WatchlistEntry
	if err := json.Unmarshal(body, &entries); err == nil {
		return entries, nil
	}

	var wrapped struct {
		Entries []domain.WatchlistEntry `json:"entries"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", f.source, err)
	}
	return wrapped.Entries, nil
}
