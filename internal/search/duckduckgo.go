// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package search

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	nmerrors "github.com/tombee/newsmood/pkg/errors"
	"github.com/tombee/newsmood/pkg/httpclient"
)

const (
	// DefaultDuckDuckGoURL is the HTML lite endpoint, which is stable to scrape.
	DefaultDuckDuckGoURL = "https://lite.duckduckgo.com/lite/"

	// DefaultMaxResults bounds the snippets joined into the payload.
	DefaultMaxResults = 5

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxBodyBytes     = 2 << 20
)

// ddgLimiter allows one query per second across all DuckDuckGo instances.
var ddgLimiter = rate.NewLimiter(rate.Every(time.Second), 1)

var (
	linkPattern    = regexp.MustCompile(`<a[^>]*class=['"]result-link['"][^>]*href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
	linkPattern2   = regexp.MustCompile(`<a[^>]*href=['"]([^'"]+)['"][^>]*class=['"]result-link['"][^>]*>([^<]+)</a>`)
	snippetPattern = regexp.MustCompile(`(?s)<td[^>]*class=['"]result-snippet['"][^>]*>(.*?)</td>`)
	tagPattern     = regexp.MustCompile(`<[^>]+>`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// DuckDuckGo searches the DuckDuckGo lite HTML interface. It needs no API
// key and is safe for concurrent use.
type DuckDuckGo struct {
	client     *http.Client
	endpoint   string
	maxResults int
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// DuckDuckGoOption configures a DuckDuckGo searcher.
type DuckDuckGoOption func(*DuckDuckGo)

// WithEndpoint overrides the lite endpoint URL.
func WithEndpoint(endpoint string) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		if endpoint != "" {
			d.endpoint = endpoint
		}
	}
}

// WithMaxResults bounds the number of results parsed.
func WithMaxResults(n int) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		if n > 0 {
			d.maxResults = n
		}
	}
}

// WithLimiter replaces the process-wide rate limiter.
func WithLimiter(l *rate.Limiter) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		if l != nil {
			d.limiter = l
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		if c != nil {
			d.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) DuckDuckGoOption {
	return func(d *DuckDuckGo) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDuckDuckGo creates a DuckDuckGo searcher with the given request timeout.
func NewDuckDuckGo(timeout time.Duration, opts ...DuckDuckGoOption) (*DuckDuckGo, error) {
	d := &DuckDuckGo{
		endpoint:   DefaultDuckDuckGoURL,
		maxResults: DefaultMaxResults,
		limiter:    ddgLimiter,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.client == nil {
		hc := httpclient.DefaultConfig()
		if timeout > 0 {
			hc.Timeout = timeout
		}
		hc.Logger = d.logger
		client, err := httpclient.New(hc)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		d.client = client
	}
	return d, nil
}

// Name returns "duckduckgo".
func (d *DuckDuckGo) Name() string { return "duckduckgo" }

// Search returns the snippets of the top results joined by spaces.
func (d *DuckDuckGo) Search(ctx context.Context, query string) (string, error) {
	results, err := d.Results(ctx, query)
	if err != nil {
		return "", err
	}
	return Join(results), nil
}

// Results scrapes the result list for query.
func (d *DuckDuckGo) Results(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, d.fail(query, errors.New("query is empty"))
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return nil, d.fail(query, err)
	}

	form := url.Values{}
	form.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, d.fail(query, err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, d.fail(query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, d.fail(query, fmt.Errorf("duckduckgo http %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, d.fail(query, fmt.Errorf("failed to read response: %w", err))
	}

	results := parseResults(string(body), d.maxResults)
	d.logger.Debug("search completed",
		slog.String("provider", d.Name()),
		slog.Int("results", len(results)))
	return results, nil
}

func (d *DuckDuckGo) fail(query string, err error) error {
	return &nmerrors.SearchError{Provider: d.Name(), Query: query, Cause: err}
}

// parseResults extracts up to limit results from the lite HTML page. Links
// and snippets are paired by position.
func parseResults(page string, limit int) []Result {
	matches := linkPattern.FindAllStringSubmatch(page, -1)
	if len(matches) == 0 {
		matches = linkPattern2.FindAllStringSubmatch(page, -1)
	}
	snippets := snippetPattern.FindAllStringSubmatch(page, -1)

	var results []Result
	for i, m := range matches {
		link := strings.TrimSpace(html.UnescapeString(m[1]))
		title := cleanText(m[2])
		if link == "" || title == "" {
			continue
		}

		var snippet string
		if i < len(snippets) {
			snippet = cleanText(snippets[i][1])
		}

		results = append(results, Result{Title: title, URL: link, Snippet: snippet})
		if len(results) >= limit {
			break
		}
	}
	return results
}

// cleanText strips tags, decodes entities, collapses whitespace and
// normalises to NFC so accented text compares and tokenizes consistently.
func cleanText(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = spacePattern.ReplaceAllString(s, " ")
	return norm.NFC.String(strings.TrimSpace(s))
}
