package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jtrenker/redfeed/internal/aggregator"
	"github.com/jtrenker/redfeed/internal/cache"
	"github.com/jtrenker/redfeed/internal/reddit"
)

const (
	defaultLimit = 50
	maxLimit     = 100
)

type Server struct {
	agg      *aggregator.Aggregator
	cache    cache.Cache
	cacheTTL time.Duration
}

func NewServer(agg *aggregator.Aggregator, c cache.Cache, cacheTTL time.Duration) *Server {
	return &Server{agg: agg, cache: c, cacheTTL: cacheTTL}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/posts", s.listPosts)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listPosts(c *gin.Context) {
	subreddit := c.DefaultQuery("subreddit", aggregator.AllSubreddits)

	sortMode := c.DefaultQuery("sort", aggregator.SortHot)
	switch sortMode {
	case aggregator.SortHot, aggregator.SortNew, aggregator.SortTop:
	default:
		sortMode = aggregator.SortHot
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	ctx := c.Request.Context()
	cacheKey := cache.PostsKey(subreddit, sortMode, limit)
	if bs, ok := s.cache.Get(ctx, cacheKey); ok {
		c.Data(http.StatusOK, "application/json; charset=utf-8", bs)
		return
	}

	resp, err := s.agg.Aggregate(ctx, subreddit, sortMode, limit)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, aggregator.ErrInvalidSubreddit) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"error": err.Error(),
			"posts": []reddit.Post{},
		})
		return
	}

	if bs, err := json.Marshal(resp); err == nil {
		if err := s.cache.Set(ctx, cacheKey, bs, s.cacheTTL); err != nil {
			log.Printf("warn: cache set %s: %v", cacheKey, err)
		}
	}

	c.JSON(http.StatusOK, resp)
}
