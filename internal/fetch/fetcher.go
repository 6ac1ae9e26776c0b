package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohammad-safakhou/briefer/config"
)

var fetchFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "briefer_fetch_failures_total",
	Help: "Number of source URLs that could not be fetched and were replaced by a sentinel document.",
})

// Source is one fetched and cleaned document, ready for prompt assembly.
type Source struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Error is the typed failure for a single URL fetch. It never escapes
// FetchAll; there it becomes a sentinel Source instead.
type Error struct {
	URL    string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("site returned error status: %d", e.Status)
	}
	return fmt.Sprintf("processing error: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	wikiTitleRe  = regexp.MustCompile(`/wiki/([^/?#]+)`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Fetcher retrieves article text from URLs. One Fetcher owns one shared
// HTTP client, so a whole batch reuses connections, headers, redirect
// policy and timeout.
type Fetcher struct {
	client   *http.Client
	maxChars int
	ua       string
	wikiBase string
	logger   *log.Logger
}

// NewFetcher builds a Fetcher from config. Zero values fall back to the
// defaults of the original service (20s timeout, 5000 char cap).
func NewFetcher(cfg config.FetchConfig, logger *log.Logger) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = 5000
	}
	wikiBase := strings.TrimRight(cfg.WikipediaAPIBase, "/")
	if wikiBase == "" {
		wikiBase = "https://en.wikipedia.org/api/rest_v1"
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxChars: maxChars,
		ua:       cfg.UserAgent,
		wikiBase: wikiBase,
		logger:   logger,
	}
}

// NormalizeURL rewrites http to https and prepends https where no scheme
// is present.
func NormalizeURL(rawURL string) string {
	switch {
	case strings.HasPrefix(rawURL, "http://"):
		return "https://" + strings.TrimPrefix(rawURL, "http://")
	case strings.HasPrefix(rawURL, "https://"):
		return rawURL
	default:
		return "https://" + rawURL
	}
}

// Fetch retrieves one URL and returns the cleaned document. Wikipedia URLs
// are served from the REST summary API rather than scraped. All failures
// come back as *Error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Source, error) {
	target := NormalizeURL(rawURL)

	if strings.Contains(strings.ToLower(target), "wikipedia.org") {
		return f.fetchWikipedia(ctx, target)
	}

	f.logger.Printf("fetching url: %s", target)
	resp, err := f.get(ctx, target)
	if err != nil {
		return Source{}, &Error{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Source{}, &Error{URL: target, Status: resp.StatusCode}
	}

	article, err := readability.FromReader(resp.Body, mustParseURL(target))
	if err != nil {
		return Source{}, &Error{URL: target, Err: fmt.Errorf("readability extraction: %w", err)}
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title = "Untitled Article"
	}
	content := strings.TrimSpace(whitespaceRe.ReplaceAllString(article.TextContent, " "))

	return Source{
		URL:     target,
		Title:   title,
		Content: truncate(content, f.maxChars),
	}, nil
}

// fetchWikipedia resolves a /wiki/ URL through the REST summary endpoint.
func (f *Fetcher) fetchWikipedia(ctx context.Context, target string) (Source, error) {
	m := wikiTitleRe.FindStringSubmatch(target)
	if m == nil {
		return Source{}, &Error{URL: target, Err: fmt.Errorf("could not extract wikipedia page title from url")}
	}
	pageTitle := m[1]
	apiURL := f.wikiBase + "/page/summary/" + pageTitle

	f.logger.Printf("using wikipedia api for: %s", target)
	resp, err := f.get(ctx, apiURL)
	if err != nil {
		return Source{}, &Error{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Source{}, &Error{URL: target, Status: resp.StatusCode, Err: fmt.Errorf("wikipedia api error: %d", resp.StatusCode)}
	}

	var summary struct {
		Title   string `json:"title"`
		Extract string `json:"extract"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return Source{}, &Error{URL: target, Err: fmt.Errorf("wikipedia api decode: %w", err)}
	}
	if summary.Title == "" {
		summary.Title = "Wikipedia Article"
	}
	if summary.Extract == "" {
		summary.Extract = "No content found."
	}

	return Source{
		URL:     target,
		Title:   summary.Title,
		Content: truncate(summary.Extract, f.maxChars),
	}, nil
}

// FetchAll fetches every URL in order over the shared client. The result
// always has the same length and order as the input; a URL that fails is
// represented by an "Access Error" sentinel document so one bad source
// never aborts the batch. The sentinel content flows downstream as if it
// were real content.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []Source {
	sources := make([]Source, 0, len(urls))
	for _, u := range urls {
		src, err := f.Fetch(ctx, u)
		if err != nil {
			f.logger.Printf("skipping %s due to error: %v", u, err)
			fetchFailures.Inc()
			src = Source{
				URL:     u,
				Title:   "Access Error",
				Content: fmt.Sprintf("[Could not read source: %s]", err),
			}
		}
		sources = append(sources, src)
	}
	return sources
}

func (f *Fetcher) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if f.ua != "" {
		req.Header.Set("User-Agent", f.ua)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")
	return f.client.Do(req)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func mustParseURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return &url.URL{}
	}
	return u
}
