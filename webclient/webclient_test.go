package webclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brcarteira/carteira/date"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counting(hits *int32, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
}

func TestDiskCacheServesSameDay(t *testing.T) {
	var hits int32
	srv := counting(&hits, `{"value":1}`)
	defer srv.Close()

	day := date.New(2024, time.January, 2)
	logger, _ := test.NewNullLogger()
	client := NewClient(Options{CacheDir: t.TempDir(), Logger: logger, Today: func() date.Date { return day }})

	for range 3 {
		var got struct{ Value int }
		require.NoError(t, GetJSON(context.Background(), client, srv.URL+"/x", &got))
		assert.Equal(t, 1, got.Value)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	day = day.Add(1)
	var got struct{ Value int }
	require.NoError(t, GetJSON(context.Background(), client, srv.URL+"/x", &got))
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits), "cache entries expire with the day")
}

func TestDiskCacheBypass(t *testing.T) {
	var hits int32
	srv := counting(&hits, `{"value":1}`)
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	client := NewClient(Options{CacheDir: t.TempDir(), Logger: logger})
	ctx := WithoutCache(context.Background())
	for range 2 {
		var got struct{ Value int }
		require.NoError(t, GetJSON(ctx, client, srv.URL+"/intraday", &got))
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestDiskCacheSkipsErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	client := NewClient(Options{CacheDir: t.TempDir(), Logger: logger})
	for range 2 {
		var got any
		err := GetJSON(context.Background(), client, srv.URL, &got)
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusBadGateway, se.Code)
	}
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestUserAgent(t *testing.T) {
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	var got any
	require.NoError(t, GetJSON(context.Background(), NewClient(Options{}), srv.URL, &got))
	assert.Equal(t, DefaultUserAgent, ua.Load())
}

func TestPacingHonoursContext(t *testing.T) {
	var hits int32
	srv := counting(&hits, `{}`)
	defer srv.Close()

	// one request every ten seconds: the second call must give up on its deadline.
	client := NewClient(Options{RequestsPerSecond: 0.1, Burst: 1})
	var got any
	require.NoError(t, GetJSON(context.Background(), client, srv.URL, &got))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := GetJSON(ctx, client, srv.URL, &got)
	assert.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}
