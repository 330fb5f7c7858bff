package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"

	"site-rag/internal/parser"
)

// Options control which links a crawl follows and returns.
//
// A pattern containing glob metacharacters is matched against the url path
// with doublestar ("/support/**/articles/*"); any other pattern is a plain
// substring test against the full url.
type Options struct {
	MaxDepth int
	Follow   []string // pages whose links are crawled too
	Exclude  []string // dropped from the result
	Include  []string // when set, the result keeps only these
}

type Crawler struct {
	fetcher *parser.Fetcher
	opts    Options
}

func New(fetcher *parser.Fetcher, opts Options) *Crawler {
	return &Crawler{fetcher: fetcher, opts: opts}
}

type target struct {
	url   string
	depth int
}

// Crawl walks same-host links breadth first from seed. Links matching Follow
// are visited while their depth is within MaxDepth. The result is every
// discovered link that survives Exclude and Include, without duplicates, in
// the order it was first seen.
func (c *Crawler) Crawl(ctx context.Context, seed string) ([]string, error) {
	seedURL, err := url.Parse(seed)
	if err != nil {
		return nil, fmt.Errorf("invalid seed url %s: %w", seed, err)
	}
	host := seedURL.Hostname()

	queue := []target{{url: seedURL.String(), depth: 0}}
	queued := map[string]bool{seedURL.String(): true}
	seen := map[string]bool{}
	var discovered []string

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := queue[0]
		queue = queue[1:]

		doc, err := c.fetcher.Document(ctx, t.url)
		if err != nil {
			if t.depth == 0 {
				return nil, err
			}
			log.Warn().Err(err).Str("url", t.url).Msg("Skipping page")
			continue
		}

		links := sameHostLinks(doc, host)
		log.Debug().Str("url", t.url).Int("depth", t.depth).Int("links", len(links)).Msg("Crawled page")

		for _, link := range links {
			if !seen[link] {
				seen[link] = true
				discovered = append(discovered, link)
			}
			if t.depth >= c.opts.MaxDepth || queued[link] {
				continue
			}
			if u, _ := url.Parse(link); matchAny(c.opts.Follow, u) {
				queued[link] = true
				queue = append(queue, target{url: link, depth: t.depth + 1})
			}
		}
	}

	return c.filter(discovered), nil
}

func (c *Crawler) filter(links []string) []string {
	var out []string
	for _, link := range links {
		u, err := url.Parse(link)
		if err != nil {
			continue
		}
		if matchAny(c.opts.Exclude, u) {
			continue
		}
		if len(c.opts.Include) > 0 && !matchAny(c.opts.Include, u) {
			continue
		}
		out = append(out, link)
	}
	return out
}

// sameHostLinks resolves every anchor against the page url and keeps http(s)
// links on host, fragments removed.
func sameHostLinks(doc *goquery.Document, host string) []string {
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := ref
		if doc.Url != nil {
			abs = doc.Url.ResolveReference(ref)
		}
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		if abs.Hostname() != host {
			return
		}
		abs.Fragment, abs.RawFragment = "", ""
		links = append(links, abs.String())
	})
	return links
}

func matchAny(patterns []string, u *url.URL) bool {
	if u == nil {
		return false
	}
	for _, p := range patterns {
		if strings.ContainsAny(p, "*?[{") {
			if ok, _ := doublestar.Match(p, u.Path); ok {
				return true
			}
			continue
		}
		if strings.Contains(u.String(), p) {
			return true
		}
	}
	return false
}
