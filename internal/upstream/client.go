// Package upstream talks to the external video-hosting REST API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hszk-dev/videohub/internal/infrastructure/metrics"
)

const (
	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://upnshare.com/api/v1"

	maxErrorBody = 2048
)

// RawRecord is an undecoded upstream object. Numbers are kept as json.Number.
type RawRecord map[string]any

// ClientConfig holds configuration for the upstream client.
type ClientConfig struct {
	BaseURL string
	Token   string
	// RequestTimeout bounds every folder/page call, including auth fallbacks.
	RequestTimeout time.Duration
	// RealtimeTimeout bounds the realtime stats call.
	RealtimeTimeout time.Duration
	PageSize        int
	// PageConcurrency is the maximum number of pages fetched at once per folder.
	PageConcurrency int
	// PageStagger delays page p by (p-2)*PageStagger.
	PageStagger time.Duration
	// MaxPages caps the page count learned from response metadata.
	MaxPages int
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
func DefaultClientConfig(token string) ClientConfig {
	return ClientConfig{
		BaseURL:         DefaultBaseURL,
		Token:           token,
		RequestTimeout:  8 * time.Second,
		RealtimeTimeout: 5 * time.Second,
		PageSize:        100,
		PageConcurrency: 4,
		PageStagger:     50 * time.Millisecond,
		MaxPages:        500,
	}
}

// FolderVideos is the result of fetching every page of one folder.
type FolderVideos struct {
	FolderID string
	Videos   []RawRecord
	// Pages is the number of pages upstream reported.
	Pages int
	// FailedPages lists pages that errored and contributed no videos.
	FailedPages []int
}

// Client fetches folders, videos and realtime stats from upstream.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	strategies []AuthStrategy
	cfg        ClientConfig
	logger     *slog.Logger
}

// NewClient creates a new upstream client.
// It fails with ErrMissingToken when no token is configured.
func NewClient(cfg ClientConfig, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrMissingToken
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.PageConcurrency <= 0 {
		cfg.PageConcurrency = 1
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 500
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		strategies: DefaultAuthStrategies(),
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// ListFolders returns every folder known upstream.
func (c *Client) ListFolders(ctx context.Context) ([]RawRecord, error) {
	body, err := c.get(ctx, metrics.EndpointFolders, "/video/folder", nil, c.cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}

	folders, _, err := decodeList(body)
	if err != nil {
		return nil, fmt.Errorf("decode folders: %w", err)
	}
	return folders, nil
}

// ListVideosInFolder fetches page 1 to learn the page count, then the
// remaining pages concurrently. A failed page contributes no videos; only a
// failure of page 1 fails the whole folder.
func (c *Client) ListVideosInFolder(ctx context.Context, folderID string) (*FolderVideos, error) {
	first, meta, err := c.fetchPage(ctx, folderID, 1)
	if err != nil {
		return nil, fmt.Errorf("fetch page 1 of folder %s: %w", folderID, err)
	}

	maxPage := meta.maxPage
	if maxPage <= 0 && meta.total > 0 {
		maxPage = int(math.Ceil(float64(meta.total) / float64(c.cfg.PageSize)))
	}
	if maxPage < 1 {
		maxPage = 1
	}
	if maxPage > c.cfg.MaxPages {
		c.logger.Warn("folder page count capped",
			slog.String("folder_id", folderID),
			slog.Int("reported", maxPage),
			slog.Int("cap", c.cfg.MaxPages),
		)
		maxPage = c.cfg.MaxPages
	}

	pages := make([][]RawRecord, maxPage)
	failed := make([]bool, maxPage)
	pages[0] = first

	if maxPage > 1 {
		var g errgroup.Group
		g.SetLimit(c.cfg.PageConcurrency)

		// Page p starts no earlier than (p-2)*PageStagger after launch. The
		// offset is measured from one instant so waiting for a free slot
		// does not add to it.
		launch := time.Now()
		for p := 2; p <= maxPage; p++ {
			if err := sleepUntil(ctx, launch.Add(time.Duration(p-2)*c.cfg.PageStagger)); err != nil {
				dropped := maxPage - p + 1
				for q := p; q <= maxPage; q++ {
					failed[q-1] = true
				}
				metrics.UpstreamPageFailuresTotal.Add(float64(dropped))
				c.logger.Warn("folder pages dropped before launch",
					slog.String("folder_id", folderID),
					slog.Int("first_page", p),
					slog.Int("dropped", dropped),
					slog.String("error", err.Error()),
				)
				break
			}

			g.Go(func() error {
				videos, _, err := c.fetchPage(ctx, folderID, p)
				if err != nil {
					metrics.UpstreamPageFailuresTotal.Inc()
					c.logger.Warn("folder page fetch failed",
						slog.String("folder_id", folderID),
						slog.Int("page", p),
						slog.String("error", err.Error()),
					)
					failed[p-1] = true
					return nil
				}
				pages[p-1] = videos
				return nil
			})
		}

		// Page goroutines never return errors.
		_ = g.Wait()
	}

	result := &FolderVideos{FolderID: folderID, Pages: maxPage}
	for i, page := range pages {
		if failed[i] {
			result.FailedPages = append(result.FailedPages, i+1)
			continue
		}
		result.Videos = append(result.Videos, page...)
	}

	return result, nil
}

// Realtime returns the live viewer records.
func (c *Client) Realtime(ctx context.Context) ([]RawRecord, error) {
	body, err := c.get(ctx, metrics.EndpointRealtime, "/video/realtime", nil, c.cfg.RealtimeTimeout)
	if err != nil {
		return nil, err
	}

	items, _, err := decodeList(body)
	if err != nil {
		return nil, fmt.Errorf("decode realtime: %w", err)
	}
	return items, nil
}

func (c *Client) fetchPage(ctx context.Context, folderID string, page int) ([]RawRecord, pageMetadata, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("perPage", strconv.Itoa(c.cfg.PageSize))

	body, err := c.get(ctx, metrics.EndpointFolderVideos, "/video/folder/"+url.PathEscape(folderID), query, c.cfg.RequestTimeout)
	if err != nil {
		return nil, pageMetadata{}, err
	}

	videos, meta, err := decodeList(body)
	if err != nil {
		return nil, pageMetadata{}, fmt.Errorf("decode page %d: %w", page, err)
	}
	return videos, meta, nil
}

// get performs a GET under a single time budget, walking the auth strategies
// in order and advancing only when upstream answers 401.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, timeout time.Duration) ([]byte, error) {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var lastErr error
	for _, strategy := range c.strategies {
		body, err := c.attempt(callCtx, strategy, path, query)
		if err == nil {
			metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, metrics.OutcomeOK).Inc()
			return body, nil
		}

		if callCtx.Err() != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, metrics.OutcomeTimeout).Inc()
			return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, path, timeout)
		}

		if IsUnauthorized(err) {
			metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, metrics.OutcomeUnauthorized).Inc()
			c.logger.Debug("upstream rejected auth strategy",
				slog.String("strategy", strategy.Name()),
				slog.String("endpoint", path),
			)
			lastErr = err
			continue
		}

		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, metrics.OutcomeError).Inc()
		var se *StatusError
		if errors.As(err, &se) {
			c.logger.Error("upstream API error",
				slog.String("endpoint", se.Endpoint),
				slog.Int("status", se.StatusCode),
				slog.String("body", se.Body),
			)
		}
		return nil, err
	}

	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, strategy AuthStrategy, path string, query url.Values) ([]byte, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("build upstream URL: %w", err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	strategy.Apply(req, c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream %s: %w", path, err)
	}
	return body, nil
}

type pageMetadata struct {
	currentPage int
	maxPage     int
	total       int
}

// decodeList accepts a bare array or a {data, metadata} envelope.
// Elements that are not JSON objects are dropped.
func decodeList(body []byte) ([]RawRecord, pageMetadata, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, pageMetadata{}, nil
	}

	var (
		items []json.RawMessage
		meta  pageMetadata
	)

	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, meta, err
		}
	case '{':
		var envelope struct {
			Data     []json.RawMessage `json:"data"`
			Metadata RawRecord         `json:"metadata"`
		}
		if err := unmarshalNumbers(trimmed, &envelope); err != nil {
			return nil, meta, err
		}
		items = envelope.Data
		meta = pageMetadata{
			currentPage: int(intField(envelope.Metadata, "currentPage")),
			maxPage:     int(intField(envelope.Metadata, "maxPage")),
			total:       int(intField(envelope.Metadata, "total")),
		}
	default:
		return nil, meta, fmt.Errorf("unexpected response shape starting with %q", trimmed[0])
	}

	records := make([]RawRecord, 0, len(items))
	for _, item := range items {
		var rec RawRecord
		if err := unmarshalNumbers(item, &rec); err != nil || rec == nil {
			continue
		}
		records = append(records, rec)
	}
	return records, meta, nil
}

func unmarshalNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// sleepUntil blocks until t or until ctx is done.
func sleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
