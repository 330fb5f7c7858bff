package parser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"site-rag/internal/models"
)

var (
	ErrContentNotFound  = errors.New("content region not found")
	ErrUnexpectedStatus = errors.New("unexpected status code")
)

var blankLinesRe = regexp.MustCompile(`\n{3,}`)

// Fetcher performs the plain GET requests used for feeds, link discovery
// and article extraction.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
}

func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
	}
}

// Get issues a GET and returns the response when the status is 200. The
// caller closes the body.
func (f *Fetcher) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", url, err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %d for %s", ErrUnexpectedStatus, resp.StatusCode, url)
	}
	return resp, nil
}

// Document fetches url and parses it as HTML.
func (f *Fetcher) Document(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := f.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html from %s: %w", url, err)
	}
	doc.Url = resp.Request.URL
	return doc, nil
}

// ExtractPage fetches url and returns the text of the first element matching
// selector. Missing regions yield ErrContentNotFound, non-200 responses
// ErrUnexpectedStatus.
func (f *Fetcher) ExtractPage(ctx context.Context, url, selector string) (models.SourceDocument, error) {
	doc, err := f.Document(ctx, url)
	if err != nil {
		return models.SourceDocument{}, err
	}

	text, err := ExtractContent(doc, selector)
	if err != nil {
		return models.SourceDocument{}, fmt.Errorf("%s in %s: %w", selector, url, err)
	}

	return models.SourceDocument{
		URL:   url,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		Text:  text,
	}, nil
}

// ExtractContent returns the visible text inside the first selector match.
func ExtractContent(doc *goquery.Document, selector string) (string, error) {
	region := doc.Find(selector).First()
	if region.Length() == 0 {
		return "", ErrContentNotFound
	}
	region.Find("script, style, noscript, template").Remove()
	return normalizeText(region.Text()), nil
}

// CleanArticleText collapses double newlines and trims, which is how
// scraped help-center articles are stored on disk.
func CleanArticleText(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\n\n", "\n"))
}

// normalizeText strips trailing blanks from every line and squeezes runs of
// empty lines to a single paragraph break.
func normalizeText(text string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r\u00a0")
	}
	text = strings.Join(lines, "\n")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
