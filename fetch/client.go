// Package fetch pulls paginated product records from the search endpoint of
// an OpenFoodFacts-compatible API.
//
// Pagination is sequential: pages 1..MaxPages, stopping early on an empty
// page or a 404. Each single-page request is wrapped in a bounded retry loop
// (3 attempts, exponential backoff 2s doubling up to 10s) that only retries
// transport/timeout-class failures. Status errors other than 404 skip the
// page and pagination continues.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"foodfacts-pipeline/config"
	"foodfacts-pipeline/table"
)

const (
	maxAttempts = 3
	backoffBase = 2 * time.Second
	backoffCap  = 10 * time.Second

	userAgent = "foodfacts-pipeline/1.0"
)

// Client is the sequential, blocking fetcher. Safe to reuse across runs; not
// safe for concurrent use (there is none).
type Client struct {
	baseURL   string
	httpc     *http.Client
	pageSize  int
	maxPages  int
	fields    string
	rateLimit time.Duration

	backoffBase time.Duration
	backoffCap  time.Duration

	log zerolog.Logger
}

func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		httpc:       &http.Client{Timeout: cfg.Timeout},
		pageSize:    cfg.PageSize,
		maxPages:    cfg.MaxPages,
		fields:      cfg.FieldList(),
		rateLimit:   cfg.RateLimit,
		backoffBase: backoffBase,
		backoffCap:  backoffCap,
		log:         log.With().Str("component", "fetch").Logger(),
	}
}

// FetchAll aggregates every page of results for a category into one
// RecordSet. It returns *NoDataError when no page yielded a record.
func (c *Client) FetchAll(ctx context.Context, category string) (table.RecordSet, error) {
	c.log.Info().Str("category", category).Int("max_pages", c.maxPages).Msg("starting fetch")

	var all table.RecordSet
	for page := 1; page <= c.maxPages; page++ {
		products, err := c.fetchPage(ctx, category, page)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			var se *StatusError
			if errors.As(err, &se) {
				if se.Code == http.StatusNotFound {
					c.log.Info().Int("page", page).Msg("page not found, stopping pagination")
					break
				}
				c.log.Warn().Int("page", page).Int("status", se.Code).Msg("page skipped")
				continue
			}
			c.log.Error().Int("page", page).Err(err).Msg("page failed, skipping")
			continue
		}

		if len(products) == 0 {
			c.log.Info().Int("page", page).Msg("no more data")
			break
		}

		all = append(all, products...)
		c.log.Debug().Int("page", page).Int("count", len(products)).Msg("page fetched")

		// Rate-limit courtesy; skipped after the final configured page.
		if page < c.maxPages {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.rateLimit):
			}
		}
	}

	if len(all) == 0 {
		return nil, &NoDataError{Category: category}
	}
	c.log.Info().Int("total", len(all)).Msg("fetch complete")
	return all, nil
}

// fetchPage requests one page with the bounded retry policy.
func (c *Client) fetchPage(ctx context.Context, category string, page int) ([]table.Record, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		products, err := c.getPage(ctx, category, page)
		if err == nil {
			return products, nil
		}
		lastErr = err
		if !isTransient(err) || attempt == maxAttempts {
			return nil, err
		}

		delay := c.backoff(attempt)
		c.log.Debug().
			Int("page", page).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Err(err).
			Msg("transient failure, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// backoff is base*2^(attempt-1), capped. Attempts 1..: 2s, 4s, 8s, 10s, 10s.
func (c *Client) backoff(attempt int) time.Duration {
	d := time.Duration(float64(c.backoffBase) * math.Pow(2, float64(attempt-1)))
	if d > c.backoffCap {
		d = c.backoffCap
	}
	return d
}

// getPage issues a single GET and decodes the "products" array.
func (c *Client) getPage(ctx context.Context, category string, page int) ([]table.Record, error) {
	u, err := url.Parse(c.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("base url: %w", err)
	}
	q := u.Query()
	q.Set("categories_tags", category)
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(c.pageSize))
	q.Set("fields", c.fields)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode, URL: u.String()}
	}

	var body struct {
		Products []table.Record `json:"products"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &PayloadError{Page: page, Err: err}
	}
	return body.Products, nil
}
