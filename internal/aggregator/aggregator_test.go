package aggregator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/jtrenker/redfeed/internal/reddit"
)

// fakeFetcher serves canned posts or errors per subreddit and records
// the limit each fan-out call received.
type fakeFetcher struct {
	mu     sync.Mutex
	posts  map[string][]reddit.Post
	errs   map[string]error
	limits map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		posts:  make(map[string][]reddit.Post),
		errs:   make(map[string]error),
		limits: make(map[string]int),
	}
}

func (f *fakeFetcher) FetchSubreddit(_ context.Context, sub, _ string, limit int) ([]reddit.Post, error) {
	f.mu.Lock()
	f.limits[sub] = limit
	f.mu.Unlock()

	if err, ok := f.errs[sub]; ok {
		return nil, err
	}
	return f.posts[sub], nil
}

func post(id string, score int, createdAt int64) reddit.Post {
	return reddit.Post{ID: id, Title: "post " + id, Score: score, CreatedAt: createdAt}
}

var fiveSubs = []string{"golang", "programming", "technology", "worldnews", "science"}

func TestResolveTargetsAll(t *testing.T) {
	a := New(newFakeFetcher(), fiveSubs)

	resp, err := a.Aggregate(context.Background(), "all", SortHot, 10)
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	if !reflect.DeepEqual(resp.Meta.Subreddits, fiveSubs) {
		t.Fatalf("meta.subreddits = %v, want full configured set", resp.Meta.Subreddits)
	}
}

func TestResolveTargetsFiltersUnrecognized(t *testing.T) {
	a := New(newFakeFetcher(), fiveSubs)

	resp, err := a.Aggregate(context.Background(), "GoLang,bogus, science ", SortHot, 10)
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	want := []string{"golang", "science"}
	if !reflect.DeepEqual(resp.Meta.Subreddits, want) {
		t.Fatalf("meta.subreddits = %v, want %v", resp.Meta.Subreddits, want)
	}
}

func TestInvalidSubredditFilter(t *testing.T) {
	a := New(newFakeFetcher(), fiveSubs)

	_, err := a.Aggregate(context.Background(), "bogus", SortHot, 10)
	if !errors.Is(err, ErrInvalidSubreddit) {
		t.Fatalf("expected ErrInvalidSubreddit, got %v", err)
	}
}

func TestPerSubredditLimitCeilingDivision(t *testing.T) {
	f := newFakeFetcher()
	a := New(f, fiveSubs)

	if _, err := a.Aggregate(context.Background(), "all", SortNew, 10); err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}

	// ceil(10/5) = 2 per subreddit
	for _, sub := range fiveSubs {
		if f.limits[sub] != 2 {
			t.Fatalf("r/%s fetched with limit %d, want 2", sub, f.limits[sub])
		}
	}
}

func TestSingleSubredditGetsFullLimit(t *testing.T) {
	f := newFakeFetcher()
	a := New(f, fiveSubs)

	if _, err := a.Aggregate(context.Background(), "golang", SortHot, 30); err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	if f.limits["golang"] != 30 {
		t.Fatalf("single subreddit fetched with limit %d, want 30", f.limits["golang"])
	}
}

func TestDeduplicationKeepsFirstOccurrence(t *testing.T) {
	f := newFakeFetcher()
	shared := post("dup1", 10, 100)
	f.posts["golang"] = []reddit.Post{shared, post("a", 5, 90)}
	f.posts["programming"] = []reddit.Post{shared, post("b", 7, 80)}

	a := New(f, []string{"golang", "programming"})
	resp, err := a.Aggregate(context.Background(), "all", SortHot, 10)
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}

	count := 0
	for _, p := range resp.Posts {
		if p.ID == "dup1" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("shared post appears %d times, want exactly 1", count)
	}
	if resp.Meta.Count != 3 {
		t.Fatalf("meta.count = %d, want 3 after dedupe", resp.Meta.Count)
	}
}

func TestSortNewDescendingCreatedAt(t *testing.T) {
	f := newFakeFetcher()
	f.posts["golang"] = []reddit.Post{post("a", 1, 100), post("b", 2, 300), post("c", 3, 200)}

	a := New(f, []string{"golang"})
	resp, err := a.Aggregate(context.Background(), "golang", SortNew, 10)
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}

	for i := 1; i < len(resp.Posts); i++ {
		if resp.Posts[i].CreatedAt > resp.Posts[i-1].CreatedAt {
			t.Fatalf("posts not in descending createdAt order: %v", resp.Posts)
		}
	}
}

func TestSortHotAndTopDescendingScore(t *testing.T) {
	for _, mode := range []string{SortHot, SortTop} {
		f := newFakeFetcher()
		f.posts["golang"] = []reddit.Post{post("a", 10, 1), post("b", 99, 2), post("c", 50, 3)}

		a := New(f, []string{"golang"})
		resp, err := a.Aggregate(context.Background(), "golang", mode, 10)
		if err != nil {
			t.Fatalf("Aggregate(%s) error: %v", mode, err)
		}

		for i := 1; i < len(resp.Posts); i++ {
			if resp.Posts[i].Score > resp.Posts[i-1].Score {
				t.Fatalf("sort=%s posts not in descending score order: %v", mode, resp.Posts)
			}
		}
	}
}

func TestTruncationAndPreTruncationCount(t *testing.T) {
	f := newFakeFetcher()
	for i := 0; i < 8; i++ {
		f.posts["golang"] = append(f.posts["golang"], post(fmt.Sprintf("g%d", i), i, int64(i)))
	}

	a := New(f, []string{"golang"})
	resp, err := a.Aggregate(context.Background(), "golang", SortHot, 5)
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}

	if len(resp.Posts) != 5 {
		t.Fatalf("len(posts) = %d, want truncated to 5", len(resp.Posts))
	}
	if resp.Meta.Count != 8 {
		t.Fatalf("meta.count = %d, want pre-truncation size 8", resp.Meta.Count)
	}
}

func TestPartialFailureTolerated(t *testing.T) {
	f := newFakeFetcher()
	f.posts["golang"] = []reddit.Post{post("a", 1, 1)}
	f.posts["science"] = []reddit.Post{post("b", 2, 2)}
	f.errs["worldnews"] = &reddit.FetchError{Status: 403, Body: "blocked"}

	a := New(f, []string{"golang", "science", "worldnews"})
	resp, err := a.Aggregate(context.Background(), "all", SortHot, 10)
	if err != nil {
		t.Fatalf("one failed source must not fail the request: %v", err)
	}

	if len(resp.Posts) != 2 {
		t.Fatalf("len(posts) = %d, want 2 from the surviving sources", len(resp.Posts))
	}
	if len(resp.Errors) != 1 {
		t.Fatalf("len(errors) = %d, want exactly 1", len(resp.Errors))
	}
}

func TestTotalFailure(t *testing.T) {
	f := newFakeFetcher()
	f.errs["golang"] = errors.New("connection refused")
	f.errs["science"] = &reddit.FetchError{Status: 500, Body: "boom"}

	a := New(f, []string{"golang", "science"})
	_, err := a.Aggregate(context.Background(), "all", SortHot, 10)

	var tf *TotalFailureError
	if !errors.As(err, &tf) {
		t.Fatalf("expected *TotalFailureError, got %v", err)
	}
	if len(tf.Messages) != 2 {
		t.Fatalf("TotalFailureError carries %d messages, want 2", len(tf.Messages))
	}
}

func TestMergeOrderIsConfiguredOrder(t *testing.T) {
	// Dedupe tie-breaking must not depend on goroutine completion
	// order: the first configured subreddit wins.
	f := newFakeFetcher()
	f.posts["golang"] = []reddit.Post{{ID: "dup", Subreddit: "golang", Score: 1}}
	f.posts["science"] = []reddit.Post{{ID: "dup", Subreddit: "science", Score: 1}}

	a := New(f, []string{"golang", "science"})
	for i := 0; i < 10; i++ {
		resp, err := a.Aggregate(context.Background(), "all", SortHot, 10)
		if err != nil {
			t.Fatalf("Aggregate error: %v", err)
		}
		if resp.Posts[0].Subreddit != "golang" {
			t.Fatalf("run %d: kept occurrence from %q, want golang", i, resp.Posts[0].Subreddit)
		}
	}
}
