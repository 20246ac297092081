package reddit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// browserProxy delegates fetches to the browser-proxy sidecar, which
// loads the URL through headless Chrome. Used when the upstream blocks
// plain HTTP clients outright.
type browserProxy struct {
	baseURL string
	http    *http.Client
}

type browserFetchRequest struct {
	URL string `json:"url"`
}

type browserFetchResponse struct {
	OK    bool   `json:"ok"`
	Body  string `json:"body,omitempty"`
	Error string `json:"error,omitempty"`
}

func newBrowserProxy(baseURL string, client *http.Client) *browserProxy {
	return &browserProxy{baseURL: baseURL, http: client}
}

func (b *browserProxy) fetch(ctx context.Context, listingURL string, limit int) ([]Post, error) {
	payload, err := json.Marshal(browserFetchRequest{URL: listingURL})
	if err != nil {
		return nil, fmt.Errorf("marshal proxy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/fetch", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create proxy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("browser proxy: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read proxy response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newFetchError(resp.StatusCode, body)
	}

	var pr browserFetchResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("unmarshal proxy response: %w", err)
	}
	if !pr.OK {
		return nil, newFetchError(http.StatusBadGateway, []byte(pr.Error))
	}

	return parseListing([]byte(pr.Body), limit)
}
