package location

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestServer(hits *int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(hits, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":200,"message":"ok","result":[{"id":"11","text":"Jawa Timur"}]}`)
	}))
}

func TestProvincesUnwrapsResult(t *testing.T) {
	var hits int64
	server := newTestServer(&hits)
	defer server.Close()

	client := NewClient(server.URL, time.Minute)
	items, err := client.Provinces(context.Background())
	if err != nil {
		t.Fatalf("Provinces() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != "11" || items[0].Text != "Jawa Timur" {
		t.Errorf("Provinces() = %+v", items)
	}
}

func TestCacheWithinStalenessWindow(t *testing.T) {
	var hits int64
	server := newTestServer(&hits)
	defer server.Close()

	client := NewClient(server.URL, time.Minute)
	for i := 0; i < 3; i++ {
		if _, err := client.Provinces(context.Background()); err != nil {
			t.Fatalf("Provinces() error = %v", err)
		}
	}
	if got := atomic.LoadInt64(&hits); got != 1 {
		t.Errorf("upstream hit %d times, want 1", got)
	}
}

func TestCacheExpires(t *testing.T) {
	var hits int64
	server := newTestServer(&hits)
	defer server.Close()

	client := NewClient(server.URL, 10*time.Millisecond)
	if _, err := client.Provinces(context.Background()); err != nil {
		t.Fatalf("Provinces() error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := client.Provinces(context.Background()); err != nil {
		t.Fatalf("Provinces() error = %v", err)
	}
	if got := atomic.LoadInt64(&hits); got != 2 {
		t.Errorf("upstream hit %d times, want 2", got)
	}
}

func TestDistinctParamsAreCachedSeparately(t *testing.T) {
	var hits int64
	server := newTestServer(&hits)
	defer server.Close()

	client := NewClient(server.URL, time.Minute)
	if _, err := client.Regencies(context.Background(), "11"); err != nil {
		t.Fatalf("Regencies() error = %v", err)
	}
	if _, err := client.Regencies(context.Background(), "12"); err != nil {
		t.Fatalf("Regencies() error = %v", err)
	}
	if got := atomic.LoadInt64(&hits); got != 2 {
		t.Errorf("upstream hit %d times, want 2", got)
	}
}

func TestUpstreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Minute)
	if _, err := client.Provinces(context.Background()); err == nil {
		t.Error("Provinces() expected error on upstream 502")
	}
}
