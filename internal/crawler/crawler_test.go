package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"site-rag/internal/parser"
)

type site struct {
	srv  *httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

func (s *site) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func newSite(t *testing.T) *site {
	t.Helper()
	s := &site{hits: map[string]int{}}
	pages := map[string]string{
		"/support/solutions/": `
			<a href="/support/solutions/folders/1">Rooms</a>
			<a href="/support/solutions/articles/10">Lock your room</a>
			<a href="/support/solutions/articles/10#top">Lock your room (top)</a>
			<a href="folders/2">Broken folder</a>
			<a href="https://other.example.com/support/solutions/articles/99">Elsewhere</a>
			<a href="mailto:help@example.com">Mail</a>
			<a href="javascript:void(0)">Nothing</a>`,
		"/support/solutions/folders/1": `
			<a href="/support/solutions/articles/11">Wifi</a>
			<a href="/support/solutions/articles/10">Lock your room</a>
			<a href="/support/solutions/folders/1/sub">Deeper folder</a>`,
		"/support/solutions/folders/1/sub": `
			<a href="/support/solutions/articles/12">Too deep</a>`,
	}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "<html><body>%s</body></html>", body)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func helpCenterOptions(depth int) Options {
	return Options{
		MaxDepth: depth,
		Follow:   []string{"folder"},
		Exclude:  []string{"folders"},
		Include:  []string{"articles"},
	}
}

func TestCrawl(t *testing.T) {
	s := newSite(t)
	c := New(parser.NewFetcher(5*time.Second, ""), helpCenterOptions(1))

	links, err := c.Crawl(context.Background(), s.srv.URL+"/support/solutions/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		s.srv.URL + "/support/solutions/articles/10",
		s.srv.URL + "/support/solutions/articles/11",
	}
	if strings.Join(links, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, links)
	}

	if n := s.count("/support/solutions/folders/1/sub"); n != 0 {
		t.Errorf("page beyond max depth fetched %d times", n)
	}
	if n := s.count("/support/solutions/folders/2"); n != 1 {
		t.Errorf("expected the broken folder to be tried once, got %d", n)
	}
}

func TestCrawl_Properties(t *testing.T) {
	s := newSite(t)
	seed := s.srv.URL + "/support/solutions/"
	host := mustHost(t, seed)

	for depth := 0; depth <= 3; depth++ {
		c := New(parser.NewFetcher(5*time.Second, ""), Options{
			MaxDepth: depth,
			Follow:   []string{"folder"},
			Exclude:  []string{"folders"},
		})
		links, err := c.Crawl(context.Background(), seed)
		if err != nil {
			t.Fatal(err)
		}
		seen := map[string]bool{}
		for _, l := range links {
			if mustHost(t, l) != host {
				t.Errorf("depth %d: foreign host in %s", depth, l)
			}
			if strings.Contains(l, "folders") {
				t.Errorf("depth %d: excluded link %s", depth, l)
			}
			if seen[l] {
				t.Errorf("depth %d: duplicate link %s", depth, l)
			}
			seen[l] = true
		}
	}
}

func TestCrawl_DepthZero(t *testing.T) {
	s := newSite(t)
	c := New(parser.NewFetcher(5*time.Second, ""), helpCenterOptions(0))

	links, err := c.Crawl(context.Background(), s.srv.URL+"/support/solutions/")
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 || !strings.HasSuffix(links[0], "/articles/10") {
		t.Errorf("expected only the seed page's article, got %v", links)
	}
	if n := s.count("/support/solutions/folders/1"); n != 0 {
		t.Errorf("folder fetched at depth 0")
	}
}

func TestCrawl_GlobPatterns(t *testing.T) {
	s := newSite(t)
	c := New(parser.NewFetcher(5*time.Second, ""), Options{
		MaxDepth: 2,
		Follow:   []string{"/support/solutions/folders/**"},
		Include:  []string{"/support/**/articles/*"},
	})

	links, err := c.Crawl(context.Background(), s.srv.URL+"/support/solutions/")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		s.srv.URL + "/support/solutions/articles/10",
		s.srv.URL + "/support/solutions/articles/11",
		s.srv.URL + "/support/solutions/articles/12",
	}
	if strings.Join(links, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, links)
	}
}

func TestCrawl_SeedFailure(t *testing.T) {
	s := newSite(t)
	c := New(parser.NewFetcher(5*time.Second, ""), helpCenterOptions(1))

	if _, err := c.Crawl(context.Background(), s.srv.URL+"/nowhere"); err == nil {
		t.Error("expected an error when the seed page cannot be fetched")
	}
}

func TestFeedURLs(t *testing.T) {
	var items strings.Builder
	for i := 1; i <= 12; i++ {
		fmt.Fprintf(&items, "<item><title>Post %d</title><link>https://blog.example.com/post-%d/</link></item>", i, i)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>Blog</title>%s</channel></rss>`, items.String())
	}))
	defer srv.Close()

	urls, err := FeedURLs(context.Background(), parser.NewFetcher(5*time.Second, ""), srv.URL+"/feed/", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 10 {
		t.Fatalf("expected 10 urls, got %d", len(urls))
	}
	if urls[0] != "https://blog.example.com/post-1/" || urls[9] != "https://blog.example.com/post-10/" {
		t.Errorf("unexpected order: %v", urls)
	}
}

func TestFeedURLs_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	if _, err := FeedURLs(context.Background(), parser.NewFetcher(5*time.Second, ""), srv.URL, 10); err == nil {
		t.Error("expected error for 404 feed")
	}
}

func mustHost(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u.Hostname()
}
