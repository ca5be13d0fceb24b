package popup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func countingServer(t *testing.T, delay time.Duration) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(delay)
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("png"))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestHTTPPreloader_ConcurrentWarmsShareOneFetch(t *testing.T) {
	srv, hits := countingServer(t, 50*time.Millisecond)
	p := NewHTTPPreloader(srv.Client())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Preload(context.Background(), srv.URL+"/promo.png"); err != nil {
				t.Errorf("Preload: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := hits.Load(); n != 1 {
		t.Fatalf("server hit %d times, want 1", n)
	}
	_ = p.Preload(context.Background(), srv.URL+"/promo.png")
	if n := hits.Load(); n != 1 {
		t.Fatalf("warm URL fetched again, hits = %d", n)
	}
}

func TestHTTPPreloader_FailureIsNotRemembered(t *testing.T) {
	srv, hits := countingServer(t, 0)
	p := NewHTTPPreloader(srv.Client())

	if err := p.Preload(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Fatal("expected error for 404")
	}
	_ = p.Preload(context.Background(), srv.URL+"/missing.png")
	if n := hits.Load(); n != 2 {
		t.Fatalf("hits = %d, want 2 (failed warm retried on next load)", n)
	}
}

func TestHTTPPreloader_PrunesExpired(t *testing.T) {
	srv, _ := countingServer(t, 0)
	p := NewHTTPPreloader(srv.Client())
	p.TTL = 20 * time.Millisecond
	ctx := context.Background()

	_ = p.Preload(ctx, srv.URL+"/a.png")
	_ = p.Preload(ctx, srv.URL+"/b.png")
	time.Sleep(40 * time.Millisecond)
	_ = p.Preload(ctx, srv.URL+"/c.png")

	if n := p.cached(); n != 1 {
		t.Fatalf("cached entries = %d, want 1 after pruning", n)
	}
}
