package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/jtrenker/redfeed/internal/aggregator"
	"github.com/jtrenker/redfeed/internal/cache"
	"github.com/jtrenker/redfeed/internal/config"
	"github.com/jtrenker/redfeed/internal/reddit"
)

// One-shot aggregate dump to stdout: handy for checking what a strategy
// returns without running the server.
func main() {
	subreddit := flag.String("subreddit", aggregator.AllSubreddits, "subreddit filter: name, comma list, or all")
	sortMode := flag.String("sort", aggregator.SortHot, "sort mode: hot / new / top")
	limit := flag.Int("limit", 25, "max posts")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	client, err := reddit.NewClient(reddit.Options{
		Strategy:        cfg.Strategy,
		UserAgents:      cfg.UserAgents,
		ClientID:        cfg.RedditClientID,
		ClientSecret:    cfg.RedditClientSecret,
		BrowserProxyURL: cfg.BrowserProxyURL,
		Timeout:         cfg.RequestTimeout,
		Cache:           cache.NewMemory(),
	})
	if err != nil {
		log.Fatalf("init reddit client failed: %v", err)
	}

	agg := aggregator.New(client, cfg.Subreddits)

	resp, err := agg.Aggregate(context.Background(), *subreddit, *sortMode, *limit)
	if err != nil {
		log.Fatalf("aggregate failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		log.Fatalf("encode response failed: %v", err)
	}
}
