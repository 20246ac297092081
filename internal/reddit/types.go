package reddit

// Post is the normalized item served to the front end. Identifier
// uniqueness is only enforced after merging in the aggregator.
type Post struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"numComments"`
	Author      string  `json:"author"`
	Thumbnail   *string `json:"thumbnail"`
	Selftext    string  `json:"selftext,omitempty"`
	CreatedAt   int64   `json:"createdAt"`
	Flair       *string `json:"flair"`
	IsImage     bool    `json:"isImage"`
	PreviewURL  *string `json:"previewUrl"`
}

// listing mirrors the nested shape of a subreddit listing endpoint.
type listing struct {
	Data struct {
		Children []listingChild `json:"children"`
	} `json:"data"`
}

type listingChild struct {
	Data rawPost `json:"data"`
}

// rawPost captures the upstream post fields the normalizer reads. The
// schema is external and treated as opaque beyond these fields.
type rawPost struct {
	ID                  string  `json:"id"`
	Title               string  `json:"title"`
	URL                 string  `json:"url"`
	Permalink           string  `json:"permalink"`
	Subreddit           string  `json:"subreddit"`
	Score               int     `json:"score"`
	NumComments         int     `json:"num_comments"`
	Author              string  `json:"author"`
	Thumbnail           string  `json:"thumbnail"`
	Selftext            string  `json:"selftext"`
	CreatedUTC          float64 `json:"created_utc"`
	LinkFlairText       string  `json:"link_flair_text"`
	PostHint            string  `json:"post_hint"`
	IsRedditMediaDomain bool    `json:"is_reddit_media_domain"`
	Preview             struct {
		Images []struct {
			Source struct {
				URL string `json:"url"`
			} `json:"source"`
		} `json:"images"`
	} `json:"preview"`
}
