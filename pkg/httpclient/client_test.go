package httpclient

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(time.Duration) {}

func TestClient_Do_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(WithSleep(noSleep))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClient_Do_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(WithMaxRetries(5), WithBaseDelay(time.Millisecond), WithSleep(noSleep))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_Do_ExhaustsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(WithMaxRetries(2), WithBaseDelay(time.Millisecond), WithSleep(noSleep))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	resp, err := c.Do(req)
	require.Error(t, err)
	if resp != nil {
		resp.Body.Close()
	}

	var retryErr *RetryableError
	require.ErrorAs(t, err, &retryErr)
	assert.Equal(t, http.StatusServiceUnavailable, retryErr.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls)) // initial + 2 retries
}

func TestClient_Do_NoRetryOnClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(WithMaxRetries(3), WithSleep(noSleep))
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)

	resp, err := c.Do(req)
	require.Error(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// countingBody records how often it is closed.
type countingBody struct {
	io.Reader
	closes *int32
}

func (b *countingBody) Close() error {
	atomic.AddInt32(b.closes, 1)
	return nil
}

// scriptedTransport replays one status code per round trip, reusing the last
// one when the script runs out.
type scriptedTransport struct {
	codes  []int
	calls  int32
	closes int32
}

func (s *scriptedTransport) RoundTrip(*http.Request) (*http.Response, error) {
	i := int(atomic.AddInt32(&s.calls, 1)) - 1
	if i >= len(s.codes) {
		i = len(s.codes) - 1
	}
	return &http.Response{
		StatusCode: s.codes[i],
		Header:     http.Header{},
		Body:       &countingBody{Reader: strings.NewReader("payload"), closes: &s.closes},
	}, nil
}

func TestClient_Do_ClosesFailedBodiesBeforeRetry(t *testing.T) {
	st := &scriptedTransport{codes: []int{
		http.StatusServiceUnavailable,
		http.StatusServiceUnavailable,
		http.StatusOK,
	}}
	c := New(
		WithHTTPClient(&http.Client{Transport: st}),
		WithMaxRetries(5),
		WithBaseDelay(time.Millisecond),
		WithSleep(noSleep),
	)
	req, _ := http.NewRequest(http.MethodGet, "http://search.internal/health", nil)

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Both failed attempts were drained and closed; only the final body is
	// left open for the caller.
	assert.Equal(t, int32(2), atomic.LoadInt32(&st.closes))
}

func TestParseRetryAfter(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, time.Duration(0), parseRetryAfter(h))

	h.Set("Retry-After", "7")
	assert.Equal(t, 7*time.Second, parseRetryAfter(h))

	h.Set("Retry-After", "not-a-number")
	assert.Equal(t, time.Duration(0), parseRetryAfter(h))
}
