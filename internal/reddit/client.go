package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jtrenker/redfeed/internal/cache"
	"github.com/jtrenker/redfeed/internal/config"
)

const (
	defaultBaseURL  = "https://www.reddit.com"
	fallbackBaseURL = "https://old.reddit.com"
	oauthBaseURL    = "https://oauth.reddit.com"

	maxResponseBytes = 4 << 20 // 4MB
	defaultTimeout   = 10 * time.Second
)

// Options configures a Client. Cache backs the OAuth token cache and may
// be shared with the response cache.
type Options struct {
	Strategy        string
	UserAgents      []string
	ClientID        string
	ClientSecret    string
	BrowserProxyURL string
	Timeout         time.Duration
	Cache           cache.Cache
}

// Client fetches one subreddit listing per call, with the upstream
// strategy selected by configuration rather than separate
// implementations per route.
type Client struct {
	strategy   string
	http       *http.Client
	userAgents []string
	uaCounter  atomic.Uint64

	auth    *authenticator
	scraper *scraper
	browser *browserProxy

	// baseURL / fallbackURL / oauthURL are fields so tests can
	// substitute httptest servers.
	baseURL     string
	fallbackURL string
	oauthURL    string
}

func NewClient(opts Options) (*Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := &http.Client{Timeout: timeout}

	userAgents := opts.UserAgents
	if len(userAgents) == 0 {
		userAgents = []string{"redfeed/1.0"}
	}

	c := &Client{
		strategy:    opts.Strategy,
		http:        httpClient,
		userAgents:  userAgents,
		baseURL:     defaultBaseURL,
		fallbackURL: fallbackBaseURL,
		oauthURL:    oauthBaseURL,
	}

	switch opts.Strategy {
	case config.StrategyOAuth:
		tokenCache := opts.Cache
		if tokenCache == nil {
			tokenCache = cache.NewMemory()
		}
		auth, err := newAuthenticator(opts.ClientID, opts.ClientSecret, userAgents[0], httpClient, tokenCache)
		if err != nil {
			return nil, err
		}
		c.auth = auth
	case config.StrategyScrape:
		c.scraper = newScraper(userAgents[0], timeout)
	case config.StrategyBrowser:
		c.browser = newBrowserProxy(opts.BrowserProxyURL, httpClient)
	case config.StrategyDirect, "":
		c.strategy = config.StrategyDirect
	default:
		return nil, fmt.Errorf("reddit: unknown strategy %q", opts.Strategy)
	}

	return c, nil
}

// FetchSubreddit returns up to limit normalized posts for one subreddit.
// Failures carry the upstream status and a truncated diagnostic body.
func (c *Client) FetchSubreddit(ctx context.Context, subreddit, sort string, limit int) ([]Post, error) {
	switch c.strategy {
	case config.StrategyScrape:
		return c.scraper.fetch(subreddit, sort, limit)
	case config.StrategyBrowser:
		return c.browser.fetch(ctx, listingURL(c.baseURL, subreddit, sort, limit), limit)
	case config.StrategyOAuth:
		return c.fetchOAuth(ctx, subreddit, sort, limit)
	default:
		return c.fetchDirect(ctx, subreddit, sort, limit)
	}
}

func listingURL(base, subreddit, sort string, limit int) string {
	return fmt.Sprintf("%s/r/%s/%s.json?limit=%d&raw_json=1", base, subreddit, sort, limit)
}

func (c *Client) fetchDirect(ctx context.Context, subreddit, sort string, limit int) ([]Post, error) {
	posts, err := c.fetchListing(ctx, listingURL(c.baseURL, subreddit, sort, limit), "", limit)
	if err == nil {
		return posts, nil
	}

	// Blocked or throttled: one same-request retry against the old
	// frontend host, which is served from a different pool upstream.
	if fe, ok := err.(*FetchError); ok && (fe.Status == http.StatusForbidden || fe.Status == http.StatusTooManyRequests) {
		log.Printf("r/%s: status %d, retrying via fallback host", subreddit, fe.Status)
		return c.fetchListing(ctx, listingURL(c.fallbackURL, subreddit, sort, limit), "", limit)
	}
	return nil, err
}

func (c *Client) fetchOAuth(ctx context.Context, subreddit, sort string, limit int) ([]Post, error) {
	token, err := c.auth.token(ctx)
	if err != nil {
		return nil, fmt.Errorf("r/%s: %w", subreddit, err)
	}

	posts, err := c.fetchListing(ctx, listingURL(c.oauthURL, subreddit, sort, limit), token, limit)
	if err != nil {
		// A rejected cached token must not poison later requests.
		if fe, ok := err.(*FetchError); ok && fe.Status == http.StatusUnauthorized {
			c.auth.invalidate(ctx)
		}
		return nil, err
	}
	return posts, nil
}

func (c *Client) fetchListing(ctx context.Context, url, bearer string, limit int) ([]Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.nextUserAgent())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newFetchError(resp.StatusCode, body)
	}

	return parseListing(body, limit)
}

func parseListing(body []byte, limit int) ([]Post, error) {
	var l listing
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, fmt.Errorf("unmarshal listing: %w", err)
	}

	posts := make([]Post, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Data.ID == "" {
			continue
		}
		posts = append(posts, normalizePost(child.Data))
	}
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

// nextUserAgent rotates through the configured pool.
func (c *Client) nextUserAgent() string {
	n := c.uaCounter.Add(1) - 1
	return c.userAgents[n%uint64(len(c.userAgents))]
}
