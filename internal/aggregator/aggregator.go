package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/jtrenker/redfeed/internal/reddit"
)

// Sort modes. Anything else falls back to SortHot at the API layer.
const (
	SortHot = "hot"
	SortNew = "new"
	SortTop = "top"

	// AllSubreddits expands to the full configured set.
	AllSubreddits = "all"
)

// ErrInvalidSubreddit is returned when a requested filter matches none
// of the configured subreddits. Reported as a 400.
var ErrInvalidSubreddit = errors.New("no recognized subreddit in request")

// TotalFailureError means every target subreddit failed and no posts
// were collected. Reported as a 500.
type TotalFailureError struct {
	Messages []string
}

func (e *TotalFailureError) Error() string {
	return "all sources failed: " + strings.Join(e.Messages, "; ")
}

// Fetcher is the capability the aggregator fans out over. Satisfied by
// *reddit.Client regardless of the configured upstream strategy.
type Fetcher interface {
	FetchSubreddit(ctx context.Context, subreddit, sort string, limit int) ([]reddit.Post, error)
}

type Meta struct {
	Subreddits []string `json:"subreddits"`
	Sort       string   `json:"sort"`
	// Count is the deduplicated size before truncation.
	Count int `json:"count"`
}

type Response struct {
	Posts  []reddit.Post `json:"posts"`
	Errors []string      `json:"errors,omitempty"`
	Meta   Meta          `json:"meta"`
}

type Aggregator struct {
	client     Fetcher
	subreddits []string
}

func New(client Fetcher, subreddits []string) *Aggregator {
	return &Aggregator{client: client, subreddits: subreddits}
}

// Subreddits returns the configured set "all" expands to.
func (a *Aggregator) Subreddits() []string {
	return a.subreddits
}

// Aggregate fans out one fetch per target subreddit, waits for all of
// them to settle, then merges, dedupes, sorts and truncates. A single
// failed subreddit never blocks the others; only total failure or an
// unrecognized filter fails the request.
func (a *Aggregator) Aggregate(ctx context.Context, subredditParam, sortMode string, limit int) (*Response, error) {
	targets, err := a.resolveTargets(subredditParam)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 50
	}
	// Ceiling division spreads the total budget across targets.
	perLimit := (limit + len(targets) - 1) / len(targets)

	// Results are collected per index and merged in configured order,
	// so dedupe tie-breaking does not depend on completion order.
	results := make([][]reddit.Post, len(targets))
	failures := make([]string, len(targets))

	var wg sync.WaitGroup
	for i, sub := range targets {
		wg.Add(1)
		go func(i int, sub string) {
			defer wg.Done()
			posts, err := a.client.FetchSubreddit(ctx, sub, sortMode, perLimit)
			if err != nil {
				log.Printf("fetch r/%s error: %v", sub, err)
				failures[i] = fmt.Sprintf("r/%s: %v", sub, err)
				return
			}
			results[i] = posts
		}(i, sub)
	}
	wg.Wait()

	var merged []reddit.Post
	var errs []string
	for i := range targets {
		if failures[i] != "" {
			errs = append(errs, failures[i])
			continue
		}
		merged = append(merged, results[i]...)
	}

	if len(merged) == 0 && len(errs) > 0 {
		return nil, &TotalFailureError{Messages: errs}
	}

	deduped := dedupe(merged)
	sortPosts(deduped, sortMode)

	count := len(deduped)
	if len(deduped) > limit {
		deduped = deduped[:limit]
	}

	return &Response{
		Posts:  deduped,
		Errors: errs,
		Meta: Meta{
			Subreddits: targets,
			Sort:       sortMode,
			Count:      count,
		},
	}, nil
}

// resolveTargets expands "all" and filters explicit lists down to
// recognized subreddits (case-insensitive).
func (a *Aggregator) resolveTargets(param string) ([]string, error) {
	if param == "" || param == AllSubreddits {
		return a.subreddits, nil
	}

	recognized := make(map[string]string, len(a.subreddits))
	for _, s := range a.subreddits {
		recognized[strings.ToLower(s)] = s
	}

	var targets []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(param, ",") {
		name, ok := recognized[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		targets = append(targets, name)
	}

	if len(targets) == 0 {
		return nil, ErrInvalidSubreddit
	}
	return targets, nil
}

// dedupe keeps the first occurrence of each post ID.
func dedupe(posts []reddit.Post) []reddit.Post {
	out := make([]reddit.Post, 0, len(posts))
	seen := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// sortPosts orders by recency for "new" and by score otherwise. "hot"
// and "top" share the score comparator; the upstream defines no
// separate hot ranking.
func sortPosts(posts []reddit.Post, mode string) {
	if mode == SortNew {
		sort.SliceStable(posts, func(i, j int) bool {
			return posts[i].CreatedAt > posts[j].CreatedAt
		})
		return
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Score > posts[j].Score
	})
}
