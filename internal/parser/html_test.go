package parser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const articlePage = `<html><head><title>Streamlit and LangChain</title></head>
<body>
<nav>Home | About</nav>
<div class="entry-content">
  <p>What is streamlit?   </p>
  <script>var tracking = 1;</script>
  <p>Streamlit turns data scripts into shareable web apps.</p>



  <p>It pairs well with embeddings.</p>
</div>
<footer>Copyright</footer>
</body></html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/post", func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "site-rag-test" {
			t.Errorf("unexpected user agent %q", ua)
		}
		fmt.Fprint(w, articlePage)
	})
	mux.HandleFunc("/bare", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="other">nothing here</div></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestExtractPage(t *testing.T) {
	srv := newTestServer(t)
	f := NewFetcher(5*time.Second, "site-rag-test")

	doc, err := f.ExtractPage(context.Background(), srv.URL+"/post", "div.entry-content")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Streamlit and LangChain" {
		t.Errorf("unexpected title %q", doc.Title)
	}
	if !strings.HasPrefix(doc.Text, "What is streamlit?") {
		t.Errorf("text should start with the first paragraph, got %q", doc.Text)
	}
	for _, unwanted := range []string{"tracking", "Home | About", "Copyright", "\n\n\n"} {
		if strings.Contains(doc.Text, unwanted) {
			t.Errorf("text should not contain %q: %q", unwanted, doc.Text)
		}
	}
	if !strings.Contains(doc.Text, "It pairs well with embeddings.") {
		t.Errorf("missing last paragraph: %q", doc.Text)
	}
}

func TestExtractPage_ContentNotFound(t *testing.T) {
	srv := newTestServer(t)
	f := NewFetcher(5*time.Second, "site-rag-test")

	_, err := f.ExtractPage(context.Background(), srv.URL+"/bare", "div.entry-content")
	if !errors.Is(err, ErrContentNotFound) {
		t.Errorf("expected ErrContentNotFound, got %v", err)
	}
}

func TestExtractPage_NotFoundStatus(t *testing.T) {
	srv := newTestServer(t)
	f := NewFetcher(5*time.Second, "site-rag-test")

	_, err := f.ExtractPage(context.Background(), srv.URL+"/missing", "div.entry-content")
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("expected ErrUnexpectedStatus, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "404") {
		t.Errorf("error should mention the status code: %v", err)
	}
}

func TestCleanArticleText(t *testing.T) {
	got := CleanArticleText("\n  Title\n\nBody line\n\nEnd  \n")
	if got != "Title\nBody line\nEnd" {
		t.Errorf("got %q", got)
	}
}
