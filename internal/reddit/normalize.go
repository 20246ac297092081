package reddit

import (
	"strings"
)

const (
	permalinkBase    = "https://www.reddit.com"
	maxSelftextRunes = 200
)

// thumbnailSentinels are placeholder values the listing endpoint uses
// instead of a real thumbnail URL.
var thumbnailSentinels = map[string]struct{}{
	"self":    {},
	"default": {},
	"nsfw":    {},
	"spoiler": {},
	"image":   {},
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// removalMarkers replace the body of moderated posts upstream.
var removalMarkers = []string{"[removed]", "[deleted]"}

func normalizePost(p rawPost) Post {
	return Post{
		ID:          p.ID,
		Title:       p.Title,
		URL:         p.URL,
		Permalink:   absolutePermalink(p.Permalink),
		Subreddit:   p.Subreddit,
		Score:       p.Score,
		NumComments: p.NumComments,
		Author:      p.Author,
		Thumbnail:   normalizeThumbnail(p.Thumbnail),
		Selftext:    normalizeSelftext(p.Selftext),
		CreatedAt:   int64(p.CreatedUTC),
		Flair:       optionalString(strings.TrimSpace(p.LinkFlairText)),
		IsImage:     isImagePost(p),
		PreviewURL:  normalizePreview(p),
	}
}

func absolutePermalink(permalink string) string {
	if permalink == "" || strings.HasPrefix(permalink, "http") {
		return permalink
	}
	return permalinkBase + permalink
}

// normalizeThumbnail accepts only absolute http(s) URLs and rejects the
// upstream sentinel placeholders.
func normalizeThumbnail(s string) *string {
	if _, sentinel := thumbnailSentinels[s]; sentinel {
		return nil
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return nil
	}
	return &s
}

// normalizePreview returns the first preview image source with the
// upstream's HTML entity escaping undone.
func normalizePreview(p rawPost) *string {
	if len(p.Preview.Images) == 0 {
		return nil
	}
	u := p.Preview.Images[0].Source.URL
	if u == "" {
		return nil
	}
	u = strings.ReplaceAll(u, "&amp;", "&")
	return &u
}

func isImagePost(p rawPost) bool {
	if p.PostHint == "image" {
		return true
	}
	if p.IsRedditMediaDomain && p.URL != "" {
		return true
	}
	u := strings.ToLower(p.URL)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(u, ext) {
			return true
		}
	}
	return false
}

// normalizeSelftext strips removal markers and truncates to 200 chars,
// rune-safe so multibyte text is never cut mid-character.
func normalizeSelftext(s string) string {
	s = strings.TrimSpace(s)
	for _, marker := range removalMarkers {
		if s == marker {
			return ""
		}
	}

	rs := []rune(s)
	if len(rs) <= maxSelftextRunes {
		return s
	}
	return string(rs[:maxSelftextRunes-1]) + "…"
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
