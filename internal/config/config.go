package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Strategy values accepted by FETCH_STRATEGY.
const (
	StrategyDirect  = "direct"
	StrategyOAuth   = "oauth"
	StrategyScrape  = "scrape"
	StrategyBrowser = "browser"
)

type Config struct {
	AppPort string

	// Subreddits is the fixed set the aggregator expands "all" into.
	Subreddits []string

	// Strategy selects how the upstream is fetched: direct / oauth /
	// scrape / browser.
	Strategy string

	RedditClientID     string
	RedditClientSecret string

	// UserAgents is the rotation pool for direct fetches.
	UserAgents []string

	// RedisAddr is optional; empty means the in-memory cache is used.
	RedisAddr string

	// BrowserProxyURL is the base URL of the browser-proxy sidecar,
	// only used by the browser strategy.
	BrowserProxyURL string

	CronSpec string

	RequestTimeout time.Duration
	CacheTTL       time.Duration

	BasicAuthUser string
	BasicAuthPass string
}

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

func Load() *Config {
	cfg := &Config{
		AppPort:            getEnv("APP_PORT", "8080"),
		Subreddits:         splitList(getEnv("SUBREDDITS", "golang,programming,technology,worldnews,science")),
		Strategy:           getEnv("FETCH_STRATEGY", StrategyDirect),
		RedditClientID:     getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
		UserAgents:         splitList(getEnv("USER_AGENTS", "")),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		BrowserProxyURL:    getEnv("BROWSER_PROXY_URL", "http://localhost:4000"),
		CronSpec:           getEnv("CRON_SPEC", "*/5 * * * *"),
		RequestTimeout:     durationEnv("REQUEST_TIMEOUT_SECONDS", 10*time.Second),
		CacheTTL:           durationEnv("CACHE_TTL_SECONDS", 60*time.Second),
		BasicAuthUser:      getEnv("APP_BASIC_USER", ""),
		BasicAuthPass:      getEnv("APP_BASIC_PASS", ""),
	}

	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = defaultUserAgents
	}

	log.Printf("config loaded: port=%s strategy=%s subreddits=%d cron=%s",
		cfg.AppPort, cfg.Strategy, len(cfg.Subreddits), cfg.CronSpec)
	return cfg
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Strategy {
	case StrategyDirect, StrategyScrape, StrategyBrowser:
	case StrategyOAuth:
		if c.RedditClientID == "" || c.RedditClientSecret == "" {
			return errors.New("config: REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET are required for the oauth strategy")
		}
	default:
		return errors.New("config: unknown FETCH_STRATEGY " + strconv.Quote(c.Strategy))
	}
	if len(c.Subreddits) == 0 {
		return errors.New("config: SUBREDDITS must name at least one subreddit")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
