// Package wiki provides the content-lookup client for the MediaWiki
// action API: intro summaries, spelling suggestions, and full page
// fetches by exact title.
package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	// DefaultBaseURL points at the English Wikipedia action API.
	DefaultBaseURL = "https://en.wikipedia.org/w/api.php"

	// DefaultTimeout is the default timeout for API calls.
	DefaultTimeout = 10 * time.Second

	// Page summaries change rarely; cache them briefly to spare the API
	// when several users read the same article.
	cacheExpiration      = 15 * time.Minute
	cacheCleanupInterval = 5 * time.Minute
)

// httpDoer interface for HTTP execution (allows mocking in tests).
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the lookup client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the MediaWiki action API.
type Client struct {
	config     Config
	httpClient httpDoer
	pages      *cache.Cache
}

// Page is a fetched article.
type Page struct {
	Title   string
	Summary string
}

// NewClient creates a new MediaWiki API client.
func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", config.BaseURL, err)
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		pages:      cache.New(cacheExpiration, cacheCleanupInterval),
	}, nil
}

// apiResponse covers the slices of the action API we consume
// (formatversion=2).
type apiResponse struct {
	Error *apiError `json:"error"`
	Query *apiQuery `json:"query"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type apiQuery struct {
	SearchInfo *apiSearchInfo `json:"searchinfo"`
	Pages      []apiPage      `json:"pages"`
}

type apiSearchInfo struct {
	Suggestion string `json:"suggestion"`
}

type apiPage struct {
	Title     string            `json:"title"`
	Missing   bool              `json:"missing"`
	Invalid   bool              `json:"invalid"`
	Extract   string            `json:"extract"`
	PageProps map[string]string `json:"pageprops"`
	Links     []apiLink         `json:"links"`
}

type apiLink struct {
	Title string `json:"title"`
}

// Summary fetches the intro summary for query. It returns
// *DisambiguationError when the query lands on a disambiguation page,
// ErrPageNotFound when no article matches, and ErrInvalidQuery for an
// empty query.
func (c *Client) Summary(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrInvalidQuery
	}

	page, err := c.fetchExtract(ctx, query)
	if err != nil {
		return "", err
	}

	if _, isDisambig := page.PageProps["disambiguation"]; isDisambig {
		options, optErr := c.fetchLinks(ctx, page.Title)
		if optErr != nil {
			return "", optErr
		}
		return "", &DisambiguationError{Title: page.Title, Options: options}
	}

	return page.Extract, nil
}

// Suggest asks the search API for a spelling suggestion. Returns the
// empty string when the API offers none.
func (c *Client) Suggest(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil
	}

	resp, err := c.get(ctx, url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srinfo":   {"suggestion"},
		"srprop":   {""},
		"srlimit":  {"1"},
	})
	if err != nil {
		return "", err
	}

	if resp.Query == nil || resp.Query.SearchInfo == nil {
		return "", nil
	}
	return resp.Query.SearchInfo.Suggestion, nil
}

// Page fetches an article by exact title. Summaries are cached; a cache
// hit skips the API round-trip entirely.
func (c *Client) Page(ctx context.Context, title string) (*Page, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrInvalidQuery
	}

	if hit, found := c.pages.Get(title); found {
		if page, ok := hit.(*Page); ok {
			return page, nil
		}
	}

	fetched, err := c.fetchExtract(ctx, title)
	if err != nil {
		return nil, err
	}

	page := &Page{Title: fetched.Title, Summary: fetched.Extract}
	c.pages.Set(title, page, cache.DefaultExpiration)
	return page, nil
}

// fetchExtract runs the shared extracts+pageprops query and returns the
// single resolved page.
func (c *Client) fetchExtract(ctx context.Context, title string) (*apiPage, error) {
	resp, err := c.get(ctx, url.Values{
		"action":      {"query"},
		"prop":        {"extracts|pageprops"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"ppprop":      {"disambiguation"},
		"redirects":   {"1"},
		"titles":      {title},
	})
	if err != nil {
		return nil, err
	}

	if resp.Query == nil || len(resp.Query.Pages) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrPageNotFound, title)
	}

	page := resp.Query.Pages[0]
	if page.Invalid {
		return nil, fmt.Errorf("%w: %q", ErrInvalidQuery, title)
	}
	if page.Missing {
		return nil, fmt.Errorf("%w: %q", ErrPageNotFound, title)
	}

	return &page, nil
}

// fetchLinks collects the article links of a disambiguation page, which
// the API lists in page order.
func (c *Client) fetchLinks(ctx context.Context, title string) ([]string, error) {
	resp, err := c.get(ctx, url.Values{
		"action":      {"query"},
		"prop":        {"links"},
		"plnamespace": {"0"},
		"pllimit":     {"max"},
		"titles":      {title},
	})
	if err != nil {
		return nil, err
	}

	if resp.Query == nil || len(resp.Query.Pages) == 0 {
		return nil, nil
	}

	links := resp.Query.Pages[0].Links
	options := make([]string, 0, len(links))
	for _, link := range links {
		options = append(options, link.Title)
	}
	return options, nil
}

// get performs one API round-trip with the standard format parameters.
func (c *Client) get(ctx context.Context, params url.Values) (*apiResponse, error) {
	params.Set("format", "json")
	params.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build API request: %w", err)
	}
	req.Header.Set("User-Agent", "wikiread-bot")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wikipedia API request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wikipedia API returned status %d", httpResp.StatusCode)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read API response: %w", err)
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse API response: %w", err)
	}

	if resp.Error != nil {
		if resp.Error.Code == "invalidtitle" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuery, resp.Error.Info)
		}
		return nil, fmt.Errorf("wikipedia API error %s: %s", resp.Error.Code, resp.Error.Info)
	}

	return &resp, nil
}

// SetHTTPClient allows injecting a mock HTTP client for testing.
// This method is only used in tests.
func (c *Client) SetHTTPClient(doer httpDoer) {
	c.httpClient = doer
}
