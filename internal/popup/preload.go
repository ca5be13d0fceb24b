package popup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Preloader warms an image so the first display does not wait on it.
type Preloader interface {
	Preload(ctx context.Context, url string) error
}

// HTTPPreloader fetches images and discards the body, priming any CDN or
// proxy cache in front of them. Concurrent warms of one URL share a single
// fetch, and URLs warmed within TTL are skipped.
type HTTPPreloader struct {
	Client *http.Client
	TTL    time.Duration

	group  singleflight.Group
	mu     sync.Mutex
	warmed map[string]time.Time
}

func NewHTTPPreloader(client *http.Client) *HTTPPreloader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPPreloader{Client: client, TTL: 10 * time.Minute}
}

func (p *HTTPPreloader) Preload(ctx context.Context, url string) error {
	if p.fresh(url) {
		return nil
	}
	_, err, _ := p.group.Do(url, func() (any, error) {
		// A flight that finished between the check above and Do already warmed it.
		if p.fresh(url) {
			return nil, nil
		}
		if err := p.fetch(ctx, url); err != nil {
			return nil, err
		}
		p.remember(url, time.Now())
		return nil, nil
	})
	return err
}

func (p *HTTPPreloader) fetch(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("preload %s: %w", url, err)
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("preload %s: %w", url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("preload %s: status %d", url, resp.StatusCode)
	}
	return nil
}

func (p *HTTPPreloader) fresh(url string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	at, ok := p.warmed[url]
	return ok && time.Since(at) < p.TTL
}

// remember records a warm and drops entries older than TTL.
func (p *HTTPPreloader) remember(url string, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.warmed == nil {
		p.warmed = make(map[string]time.Time)
	}
	for u, at := range p.warmed {
		if now.Sub(at) >= p.TTL {
			delete(p.warmed, u)
		}
	}
	p.warmed[url] = now
}

func (p *HTTPPreloader) cached() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.warmed)
}
