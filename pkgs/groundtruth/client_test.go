package groundtruth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "test-key", 5*time.Second, 3)
	c.retryBase = 5 * time.Millisecond
	return c
}

func TestFetchPost(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/posts/p1", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"post_id": "p1",
			"content": "hello world",
			"author":  "alice",
			"date":    1700000000,
			"likes":   42,
		})
	}))

	gt, err := c.FetchPost(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", gt.PostID)
	assert.Equal(t, "hello world", gt.Content)
	assert.Equal(t, "alice", gt.Author)
	assert.Equal(t, int64(1700000000), gt.Timestamp)
	assert.Equal(t, 42, gt.Likes)
}

func TestFetchPostFillsMissingID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"content": "x"})
	}))

	gt, err := c.FetchPost(context.Background(), "p9")
	require.NoError(t, err)
	assert.Equal(t, "p9", gt.PostID)
}

func TestFetchPostNotFound(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.FetchPost(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	// 404 is a definitive answer, never retried.
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchPostRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"post_id": "p1", "content": "ok"})
	}))

	gt, err := c.FetchPost(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "ok", gt.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchPostExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := c.FetchPost(context.Background(), "p1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchPostMalformedResponse(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte("not json"))
	}))

	_, err := c.FetchPost(context.Background(), "p1")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
