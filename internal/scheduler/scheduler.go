package scheduler

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/jtrenker/redfeed/internal/aggregator"
	"github.com/jtrenker/redfeed/internal/cache"
	"github.com/robfig/cron/v3"
)

const (
	prewarmLimit   = 50
	prewarmTimeout = 30 * time.Second
)

var prewarmSorts = []string{aggregator.SortHot, aggregator.SortNew, aggregator.SortTop}

// Scheduler periodically refreshes the "all" feed into the response
// cache so auto-refreshing clients hit warm data.
type Scheduler struct {
	cron     *cron.Cron
	agg      *aggregator.Aggregator
	cache    cache.Cache
	cacheTTL time.Duration
}

func New(spec string, agg *aggregator.Aggregator, c cache.Cache, cacheTTL time.Duration) (*Scheduler, error) {
	cr := cron.New()

	s := &Scheduler{
		cron:     cr,
		agg:      agg,
		cache:    c,
		cacheTTL: cacheTTL,
	}

	if _, err := cr.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// First run is delayed so startup traffic is not competing with a
	// full fan-out.
	const startupDelay = 5 * time.Second
	time.AfterFunc(startupDelay, func() {
		go s.runOnce()
	})
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RunOnce exposes a single prewarm pass for manual triggering.
func (s *Scheduler) RunOnce() {
	s.runOnce()
}

func (s *Scheduler) runOnce() {
	log.Println("start prewarm job...")

	for _, sortMode := range prewarmSorts {
		ctx, cancel := context.WithTimeout(context.Background(), prewarmTimeout)
		resp, err := s.agg.Aggregate(ctx, aggregator.AllSubreddits, sortMode, prewarmLimit)
		if err != nil {
			log.Printf("prewarm %s error: %v", sortMode, err)
			cancel()
			continue
		}

		bs, err := json.Marshal(resp)
		if err != nil {
			log.Printf("prewarm %s marshal error: %v", sortMode, err)
			cancel()
			continue
		}

		key := cache.PostsKey(aggregator.AllSubreddits, sortMode, prewarmLimit)
		if err := s.cache.Set(ctx, key, bs, s.cacheTTL); err != nil {
			log.Printf("prewarm %s cache error: %v", sortMode, err)
		} else {
			log.Printf("prewarm %s done, %d posts cached", sortMode, len(resp.Posts))
		}
		cancel()
	}
}
