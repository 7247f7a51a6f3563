package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodfacts-pipeline/config"
)

func testClient(baseURL string) *Client {
	cfg := config.Default()
	cfg.BaseURL = baseURL
	cfg.RateLimit = 0
	cfg.PageSize = 10
	cfg.MaxPages = 10
	c := NewClient(cfg, zerolog.Nop())
	c.backoffBase = time.Millisecond
	c.backoffCap = 4 * time.Millisecond
	return c
}

// pageBody renders a products payload with n entries.
func pageBody(w http.ResponseWriter, page, n int) {
	fmt.Fprint(w, `{"products":[`)
	for i := 0; i < n; i++ {
		if i > 0 {
			fmt.Fprint(w, ",")
		}
		fmt.Fprintf(w, `{"code":"%d%03d","product_name":"item %d"}`, page, i, i)
	}
	fmt.Fprint(w, `]}`)
}

func TestFetchAllPaginatesUntilEmptyPage(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "chocolats", r.URL.Query().Get("categories_tags"))
		assert.Equal(t, "10", r.URL.Query().Get("page_size"))
		assert.NotEmpty(t, r.URL.Query().Get("fields"))

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page <= 3 {
			pageBody(w, page, 10)
			return
		}
		pageBody(w, page, 0)
	}))
	defer srv.Close()

	records, err := testClient(srv.URL).FetchAll(context.Background(), "chocolats")
	require.NoError(t, err)
	assert.Len(t, records, 30)
	assert.EqualValues(t, 4, atomic.LoadInt32(&requests))
	assert.Equal(t, "1000", records[0]["code"])
}

func TestFetchAllNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pageBody(w, 1, 0)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchAll(context.Background(), "empty")
	var noData *NoDataError
	require.ErrorAs(t, err, &noData)
	assert.Equal(t, "empty", noData.Category)
}

func TestFetchAllNotFoundEndsPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page >= 2 {
			http.NotFound(w, r)
			return
		}
		pageBody(w, page, 10)
	}))
	defer srv.Close()

	records, err := testClient(srv.URL).FetchAll(context.Background(), "chocolats")
	require.NoError(t, err)
	assert.Len(t, records, 10)
}

func TestFetchAllSkipsFailedPageWithoutRetry(t *testing.T) {
	var page2Hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		switch page {
		case 2:
			atomic.AddInt32(&page2Hits, 1)
			http.Error(w, "boom", http.StatusInternalServerError)
		case 4:
			pageBody(w, page, 0)
		default:
			pageBody(w, page, 10)
		}
	}))
	defer srv.Close()

	records, err := testClient(srv.URL).FetchAll(context.Background(), "chocolats")
	require.NoError(t, err)
	assert.Len(t, records, 20)
	// Status errors are not retried.
	assert.EqualValues(t, 1, atomic.LoadInt32(&page2Hits))
}

func TestFetchPageRetriesTransientFailures(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) <= 2 {
			// Drop the connection to simulate a transport failure.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page == 1 {
			pageBody(w, page, 5)
		} else {
			pageBody(w, page, 0)
		}
	}))
	defer srv.Close()

	records, err := testClient(srv.URL).FetchAll(context.Background(), "chocolats")
	require.NoError(t, err)
	assert.Len(t, records, 5)
	// 2 failed attempts + success + empty page 2.
	assert.EqualValues(t, 4, atomic.LoadInt32(&attempts))
}

func TestFetchAllSkipsPageAfterRetriesExhausted(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page == 1 {
			atomic.AddInt32(&attempts, 1)
			hj := w.(http.Hijacker)
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		if page == 2 {
			pageBody(w, page, 10)
			return
		}
		pageBody(w, page, 0)
	}))
	defer srv.Close()

	records, err := testClient(srv.URL).FetchAll(context.Background(), "chocolats")
	require.NoError(t, err)
	assert.Len(t, records, 10)
	assert.EqualValues(t, maxAttempts, atomic.LoadInt32(&attempts))
}

func TestFetchAllMalformedPayloadSkipsPage(t *testing.T) {
	var page1Hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		switch page {
		case 1:
			atomic.AddInt32(&page1Hits, 1)
			fmt.Fprint(w, `{"products": not json`)
		case 2:
			pageBody(w, page, 3)
		default:
			pageBody(w, page, 0)
		}
	}))
	defer srv.Close()

	records, err := testClient(srv.URL).FetchAll(context.Background(), "chocolats")
	require.NoError(t, err)
	assert.Len(t, records, 3)
	// Same bytes on every attempt, so no retry either.
	assert.EqualValues(t, 1, atomic.LoadInt32(&page1Hits))
}

func TestBackoffSchedule(t *testing.T) {
	c := testClient("http://example.invalid")
	c.backoffBase = backoffBase
	c.backoffCap = backoffCap

	assert.Equal(t, 2*time.Second, c.backoff(1))
	assert.Equal(t, 4*time.Second, c.backoff(2))
	assert.Equal(t, 8*time.Second, c.backoff(3))
	assert.Equal(t, 10*time.Second, c.backoff(4))
	assert.Equal(t, 10*time.Second, c.backoff(5))
}

func TestIsTransient(t *testing.T) {
	assert.False(t, isTransient(&StatusError{Code: 500}))
	assert.False(t, isTransient(&PayloadError{Page: 1, Err: errors.New("bad json")}))
	assert.False(t, isTransient(context.Canceled))
	assert.True(t, isTransient(context.DeadlineExceeded))
	assert.True(t, isTransient(errors.New("connection reset")))
}
