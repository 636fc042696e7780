package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"codeberg.org/readeck/go-readability/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Benny93/docgraph-go/internal/logger"
)

const maxPageBytes = 32 << 20

// WebPage is the readable content of a fetched URL.
type WebPage struct {
	URL   string
	Title string
	Text  string
}

// WebLoader fetches URLs and extracts their main content. HTML pages go
// through readability; when readability yields nothing the whole page is
// stripped with HTMLExtractor. Other content types are returned as text.
// Results are cached per URL and concurrent fetches of the same URL share
// one request.
type WebLoader struct {
	client  *http.Client
	timeout time.Duration

	cache   map[string]*WebPage
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewWebLoader creates a loader. A nil client uses http.DefaultClient; a
// zero timeout leaves fetches unbounded.
func NewWebLoader(client *http.Client, timeout time.Duration) *WebLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebLoader{
		client:  client,
		timeout: timeout,
		cache:   make(map[string]*WebPage),
	}
}

// Fetch downloads rawURL and returns its readable text.
func (l *WebLoader) Fetch(ctx context.Context, rawURL string) (*WebPage, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	key := u.String()

	l.cacheMu.RLock()
	if cached, ok := l.cache[key]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(key, func() (any, error) {
		page, err := l.fetch(ctx, u)
		if err != nil {
			return nil, err
		}
		l.cacheMu.Lock()
		l.cache[key] = page
		l.cacheMu.Unlock()
		return page, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*WebPage), nil
}

func (l *WebLoader) fetch(ctx context.Context, u *url.URL) (*WebPage, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "docgraph/1.0")

	logger.Debug("Fetching URL", "url", u.String())
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("failed to fetch url: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	page := &WebPage{URL: u.String(), Title: u.String()}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "html") {
		page.Text = string(body)
		return page, nil
	}

	if title := htmlTitle(body); title != "" {
		page.Title = title
	}

	page.Text, err = readableText(body, u)
	if err != nil {
		logger.Debug("Readability failed, stripping full page", "url", u.String(), "err", err)
	}
	if strings.TrimSpace(page.Text) == "" {
		page.Text, err = HTMLExtractor{}.Extract(context.Background(), body)
		if err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(page.Text) == "" {
		return nil, errors.New("page has no readable text")
	}
	return page, nil
}

func readableText(body []byte, u *url.URL) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	var builder strings.Builder
	if err := article.RenderText(&builder); err != nil {
		return "", fmt.Errorf("failed to render article text: %w", err)
	}
	return strings.TrimSpace(builder.String()), nil
}
