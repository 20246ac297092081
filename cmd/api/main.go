package main

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jtrenker/redfeed/internal/aggregator"
	"github.com/jtrenker/redfeed/internal/api"
	"github.com/jtrenker/redfeed/internal/cache"
	"github.com/jtrenker/redfeed/internal/config"
	"github.com/jtrenker/redfeed/internal/reddit"
	"github.com/jtrenker/redfeed/internal/scheduler"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	store := cache.New(cfg.RedisAddr)

	client, err := reddit.NewClient(reddit.Options{
		Strategy:        cfg.Strategy,
		UserAgents:      cfg.UserAgents,
		ClientID:        cfg.RedditClientID,
		ClientSecret:    cfg.RedditClientSecret,
		BrowserProxyURL: cfg.BrowserProxyURL,
		Timeout:         cfg.RequestTimeout,
		Cache:           store,
	})
	if err != nil {
		log.Fatalf("init reddit client failed: %v", err)
	}

	agg := aggregator.New(client, cfg.Subreddits)

	s, err := scheduler.New(cfg.CronSpec, agg, store, cfg.CacheTTL)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	s.Start()

	r := gin.Default()
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	apiServer := api.NewServer(agg, store, cfg.CacheTTL)
	apiServer.RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	log.Printf("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}

// basicAuthMiddleware gates the whole API behind a shared password when
// APP_BASIC_USER / APP_BASIC_PASS are set. /health stays open for
// health checks.
func basicAuthMiddleware(user, pass string) gin.HandlerFunc {
	const realm = "Restricted"
	uBytes := []byte(user)
	pBytes := []byte(pass)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
