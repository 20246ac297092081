package reddit

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// scraper implements the scrape strategy against the old HTML frontend.
// The DOM structure is outside our control, so parsing is best-effort.
type scraper struct {
	userAgent string
	timeout   time.Duration

	// baseURL is a field so tests can point at an httptest server.
	baseURL string
}

func newScraper(userAgent string, timeout time.Duration) *scraper {
	return &scraper{
		userAgent: userAgent,
		timeout:   timeout,
		baseURL:   fallbackBaseURL,
	}
}

func (s *scraper) fetch(subreddit, sort string, limit int) ([]Post, error) {
	c := colly.NewCollector(
		colly.UserAgent(s.userAgent),
	)
	c.SetRequestTimeout(s.timeout)

	posts := make([]Post, 0, limit)

	c.OnHTML("div.thing", func(e *colly.HTMLElement) {
		id := strings.TrimPrefix(e.Attr("data-fullname"), "t3_")
		title := strings.TrimSpace(e.ChildText("a.title"))
		if id == "" || title == "" {
			return
		}

		permalink := e.Attr("data-permalink")
		postURL := e.Attr("data-url")
		if strings.HasPrefix(postURL, "/") {
			postURL = permalinkBase + postURL
		}

		score := parseCount(e.Attr("data-score"))
		if score == 0 {
			score = parseCount(e.ChildText("div.score.unvoted"))
		}
		comments := parseCount(e.Attr("data-comments-count"))
		if comments == 0 {
			comments = parseCount(e.ChildText("a.comments"))
		}

		// data-timestamp is epoch milliseconds
		var created int64
		if ms := parseCount(e.Attr("data-timestamp")); ms > 0 {
			created = int64(ms) / 1000
		}

		var thumbnail *string
		if src := e.ChildAttr("a.thumbnail img", "src"); src != "" {
			if strings.HasPrefix(src, "//") {
				src = "https:" + src
			}
			thumbnail = normalizeThumbnail(src)
		}

		flair := firstText(e.DOM, "span.linkflairlabel", "span.flair")

		posts = append(posts, Post{
			ID:          id,
			Title:       title,
			URL:         postURL,
			Permalink:   absolutePermalink(permalink),
			Subreddit:   e.Attr("data-subreddit"),
			Score:       score,
			NumComments: comments,
			Author:      e.Attr("data-author"),
			Thumbnail:   thumbnail,
			CreatedAt:   created,
			Flair:       optionalString(flair),
			IsImage:     hasImageURL(postURL),
		})
	})

	url := fmt.Sprintf("%s/r/%s/%s/?limit=%d", s.baseURL, subreddit, sort, limit)
	if err := c.Visit(url); err != nil {
		return nil, fmt.Errorf("scrape r/%s: %w", subreddit, err)
	}

	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func hasImageURL(u string) bool {
	return isImagePost(rawPost{URL: u})
}

// parseCount reads a leading integer, tolerating "1,234 comments" style
// text and the "•" placeholder for hidden scores.
func parseCount(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0
	}
	end := 0
	for ; end < len(s); end++ {
		if s[end] < '0' || s[end] > '9' {
			break
		}
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// firstText returns the first non-empty text among the selectors, so a
// markup shift upstream degrades gracefully instead of dropping fields.
func firstText(sel *goquery.Selection, selectors ...string) string {
	for _, q := range selectors {
		if t := strings.TrimSpace(sel.Find(q).First().Text()); t != "" {
			return t
		}
	}
	return ""
}
