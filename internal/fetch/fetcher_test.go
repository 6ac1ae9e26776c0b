package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/briefer/config"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "rewrites http to https", in: "http://example.com/a", want: "https://example.com/a"},
		{name: "keeps https", in: "https://example.com/a", want: "https://example.com/a"},
		{name: "prepends https when schemeless", in: "example.com/a", want: "https://example.com/a"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.in); got != tt.want {
				t.Fatalf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

const articleHTML = `<!DOCTYPE html>
<html><head><title>Go Memory Model</title></head><body><article>
<h1>Go Memory Model</h1>
<p>The Go memory model specifies the conditions under which reads of a variable
in one goroutine can be expected to observe values produced by writes to the
same variable in a different goroutine. Programs that modify data being
simultaneously accessed by multiple goroutines must serialize such access.</p>
<p>To serialize access, protect the data with channel operations or other
synchronization primitives such as those in the sync and sync/atomic packages.
If you must read the rest of this document to understand the behavior of your
program, you are being too clever. Do not be clever.</p>
</article></body></html>`

func testFetcher(ts *httptest.Server, cfg config.FetchConfig) *Fetcher {
	f := NewFetcher(cfg, nil)
	f.client = ts.Client()
	return f
}

func TestFetchGeneric(t *testing.T) {
	var gotUA string
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, articleHTML)
	}))
	defer ts.Close()

	f := testFetcher(ts, config.FetchConfig{UserAgent: "test-agent"})
	src, err := f.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if src.Title != "Go Memory Model" {
		t.Fatalf("title = %q", src.Title)
	}
	if !strings.Contains(src.Content, "Do not be clever.") {
		t.Fatalf("content missing article text: %q", src.Content)
	}
	if strings.Contains(src.Content, "<p>") || strings.Contains(src.Content, "\n") {
		t.Fatalf("content not cleaned: %q", src.Content)
	}
	if gotUA != "test-agent" {
		t.Fatalf("user agent = %q", gotUA)
	}
}

func TestFetchTruncatesContent(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleHTML)
	}))
	defer ts.Close()

	f := testFetcher(ts, config.FetchConfig{MaxChars: 40})
	src, err := f.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(src.Content) != 40 {
		t.Fatalf("content length = %d, want 40", len(src.Content))
	}
}

func TestFetchErrorStatus(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	f := testFetcher(ts, config.FetchConfig{})
	_, err := f.Fetch(context.Background(), ts.URL)
	if err == nil {
		t.Fatalf("expected error")
	}
	fe, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if fe.Status != http.StatusForbidden {
		t.Fatalf("status = %d", fe.Status)
	}
}

func TestFetchWikipediaRoutesToSummaryAPI(t *testing.T) {
	var gotPath string
	scraped := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/wiki/") {
			scraped = true
		}
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"title":"Artificial intelligence","extract":"AI is intelligence demonstrated by machines."}`)
	}))
	defer ts.Close()

	f := NewFetcher(config.FetchConfig{WikipediaAPIBase: ts.URL}, nil)
	src, err := f.Fetch(context.Background(), "https://en.wikipedia.org/wiki/Artificial_intelligence")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if scraped {
		t.Fatalf("generic scraper was invoked for a wikipedia url")
	}
	if gotPath != "/page/summary/Artificial_intelligence" {
		t.Fatalf("api path = %q", gotPath)
	}
	if src.Title != "Artificial intelligence" || !strings.Contains(src.Content, "machines") {
		t.Fatalf("unexpected source: %+v", src)
	}
	if src.URL != "https://en.wikipedia.org/wiki/Artificial_intelligence" {
		t.Fatalf("url = %q", src.URL)
	}
}

func TestFetchWikipediaDefaults(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer ts.Close()

	f := NewFetcher(config.FetchConfig{WikipediaAPIBase: ts.URL}, nil)
	src, err := f.Fetch(context.Background(), "http://en.wikipedia.org/wiki/Nothing")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if src.Title != "Wikipedia Article" || src.Content != "No content found." {
		t.Fatalf("unexpected defaults: %+v", src)
	}
}

func TestFetchWikipediaAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	f := NewFetcher(config.FetchConfig{WikipediaAPIBase: ts.URL}, nil)
	if _, err := f.Fetch(context.Background(), "https://en.wikipedia.org/wiki/Missing"); err == nil {
		t.Fatalf("expected error for non-200 api status")
	}
}

func TestFetchAllPreservesOrderAndIsolatesFailures(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, articleHTML)
	}))
	defer ts.Close()

	f := testFetcher(ts, config.FetchConfig{})
	urls := []string{ts.URL + "/one", ts.URL + "/bad", ts.URL + "/three"}
	sources := f.FetchAll(context.Background(), urls)

	if len(sources) != len(urls) {
		t.Fatalf("got %d sources, want %d", len(sources), len(urls))
	}
	for i, src := range sources {
		if src.URL != urls[i] {
			t.Fatalf("order broken at %d: got %q want %q", i, src.URL, urls[i])
		}
	}
	if sources[0].Title != "Go Memory Model" || sources[2].Title != "Go Memory Model" {
		t.Fatalf("healthy urls not fetched: %+v", sources)
	}
	if sources[1].Title != "Access Error" {
		t.Fatalf("sentinel title = %q", sources[1].Title)
	}
	if !strings.HasPrefix(sources[1].Content, "[Could not read source: ") {
		t.Fatalf("sentinel content = %q", sources[1].Content)
	}
}
