package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte("hello"))
		case "/big":
			w.Write([]byte(strings.Repeat("x", 64)))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte("late"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(WithMaxBodyBytes(32))

	data, err := c.Get(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = c.Get(context.Background(), srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrStatus)
	assert.Contains(t, err.Error(), "404")

	_, err = c.Get(context.Background(), srv.URL+"/big")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = NewClient(WithTimeout(20*time.Millisecond)).Get(context.Background(), srv.URL+"/slow")
	assert.Error(t, err)

	_, err = c.Get(context.Background(), "://bad url")
	assert.Error(t, err)
}

func TestClientGetCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient().Get(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

type mapStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *mapStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[key]
	return d, ok
}

func (s *mapStore) Set(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = data
	return nil
}

func (s *mapStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

func TestCached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/gone" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("swatch"))
	}))
	defer srv.Close()

	store := &mapStore{data: map[string][]byte{}}
	c := NewCached(NewClient(), store, nil)

	for i := 0; i < 3; i++ {
		data, err := c.Get(context.Background(), srv.URL+"/oak.jpg")
		require.NoError(t, err)
		assert.Equal(t, "swatch", string(data))
	}
	assert.Equal(t, int32(1), hits.Load())

	for i := 0; i < 2; i++ {
		_, err := c.Get(context.Background(), srv.URL+"/gone")
		assert.Error(t, err)
	}
	assert.Equal(t, int32(3), hits.Load())
	_, cached := store.Get(srv.URL + "/gone")
	assert.False(t, cached)
}

func TestCachedInvalidate(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	store := &mapStore{data: map[string][]byte{}}
	c := NewCached(NewClient(), store, nil)
	url := srv.URL + "/oak.jpg"

	_, err := c.Get(context.Background(), url)
	require.NoError(t, err)
	c.Invalidate(url)
	_, cached := store.Get(url)
	assert.False(t, cached)

	_, err = c.Get(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}
