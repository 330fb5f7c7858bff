package crawler

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"

	"site-rag/internal/parser"
)

// FeedURLs returns the links of the first n entries of an RSS or Atom feed.
// n <= 0 returns every entry.
func FeedURLs(ctx context.Context, f *parser.Fetcher, feedURL string, n int) ([]string, error) {
	resp, err := f.Get(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}

	items := feed.Items
	if n > 0 && len(items) > n {
		items = items[:n]
	}

	urls := make([]string, 0, len(items))
	for _, item := range items {
		if item.Link == "" {
			log.Debug().Str("title", item.Title).Msg("Feed entry without link")
			continue
		}
		urls = append(urls, item.Link)
	}

	log.Info().Str("feed", feedURL).Int("entries", len(urls)).Msg("Parsed feed")
	return urls, nil
}
