package reddit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jtrenker/redfeed/internal/config"
)

func TestBrowserStrategyParsesProxiedListing(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fetch" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req browserFetchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode proxy request: %v", err)
		}
		if req.URL == "" {
			t.Errorf("proxy request missing url")
		}
		json.NewEncoder(w).Encode(browserFetchResponse{OK: true, Body: sampleListing})
	}))
	defer proxy.Close()

	c, err := NewClient(Options{
		Strategy:        config.StrategyBrowser,
		BrowserProxyURL: proxy.URL,
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	posts, err := c.FetchSubreddit(context.Background(), "golang", "hot", 10)
	if err != nil {
		t.Fatalf("FetchSubreddit error: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}
}

func TestBrowserStrategySurfacesProxyFailure(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(browserFetchResponse{OK: false, Error: "navigation timeout"})
	}))
	defer proxy.Close()

	c, err := NewClient(Options{
		Strategy:        config.StrategyBrowser,
		BrowserProxyURL: proxy.URL,
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	_, err = c.FetchSubreddit(context.Background(), "golang", "hot", 10)
	fe, ok := err.(*FetchError)
	if !ok {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.Status != http.StatusBadGateway || fe.Body != "navigation timeout" {
		t.Fatalf("unexpected FetchError: %+v", fe)
	}
}
