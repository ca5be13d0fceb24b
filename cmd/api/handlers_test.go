package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"popup-service/internal/creative"
	creativeRedis "popup-service/internal/platform/redis"
	"popup-service/internal/popup"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type memStore struct {
	mu     sync.Mutex
	rows   map[int64]*creative.Creative
	nextID int64
}

func (s *memStore) Create(_ context.Context, c *creative.Creative) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c.ID = s.nextID
	cp := *c
	s.rows[c.ID] = &cp
	return nil
}

func (s *memStore) Update(_ context.Context, c *creative.Creative) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[c.ID]; !ok {
		return creative.ErrNotFound
	}
	cp := *c
	s.rows[c.ID] = &cp
	return nil
}

func (s *memStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return creative.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *memStore) GetByID(_ context.Context, id int64) (*creative.Creative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[id]
	if !ok {
		return nil, creative.ErrNotFound
	}
	return c, nil
}

func (s *memStore) List(_ context.Context) ([]*creative.Creative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*creative.Creative
	for _, c := range s.rows {
		out = append(out, c)
	}
	return out, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := creative.NewService(creativeRedis.NewRepository(rdb), &memStore{rows: map[int64]*creative.Creative{}})
	tabs := popup.NewRegistry(svc, svc, nil, creativeRedis.SessionStoreFactory(rdb, time.Hour), popup.RegistryConfig{
		Triggers: popup.TriggerConfig{
			Interval:         time.Hour,
			InitialDelay:     time.Hour,
			ActivityDebounce: time.Hour,
			RouteDelay:       time.Hour,
		},
	}, log)

	mux := http.NewServeMux()
	NewHandler(svc, tabs, log, func(ctx context.Context) error { return rdb.Ping(ctx).Err() }).Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestPopupFlow(t *testing.T) {
	srv := newTestServer(t)

	one := 1
	resp := do(t, http.MethodPost, srv.URL+"/admin/creatives", creative.Creative{
		Title:               "Free stencil",
		ImageURL:            "https://cdn.example/stencil.png",
		TargetURL:           "https://shop.example/stencil",
		MaxPopupsPerSession: &one,
		IsActive:            true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	created := decode[creative.Creative](t, resp)

	resp = do(t, http.MethodPost, srv.URL+"/v1/tabs", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("open tab status = %d", resp.StatusCode)
	}
	tab := decode[OpenTabResponse](t, resp)
	if tab.Creatives != 1 {
		t.Fatalf("tab loaded %d creatives, want 1", tab.Creatives)
	}
	base := srv.URL + "/v1/tabs/" + tab.TabID

	if resp := do(t, http.MethodGet, base+"/popup", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("popup before any trigger status = %d, want 204", resp.StatusCode)
	}

	if resp := do(t, http.MethodPost, base+"/events", TabEventRequest{Type: EventVisibility, Visible: true}); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("event status = %d", resp.StatusCode)
	}
	resp = do(t, http.MethodGet, base+"/popup", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("popup status = %d, want 200", resp.StatusCode)
	}
	if shown := decode[creative.Creative](t, resp); shown.ID != created.ID {
		t.Fatalf("shown creative %d, want %d", shown.ID, created.ID)
	}

	resp = do(t, http.MethodPost, base+"/popup/click", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("click status = %d", resp.StatusCode)
	}
	if click := decode[ClickResponse](t, resp); click.OpenURL != "https://shop.example/stencil" {
		t.Fatalf("open_url = %q", click.OpenURL)
	}
	if resp := do(t, http.MethodPost, base+"/popup/click", nil); resp.StatusCode != http.StatusConflict {
		t.Fatalf("second click status = %d, want 409", resp.StatusCode)
	}

	// Session cap of one is spent.
	do(t, http.MethodPost, base+"/events", TabEventRequest{Type: EventVisibility, Visible: true})
	if resp := do(t, http.MethodGet, base+"/popup", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("popup after cap status = %d, want 204", resp.StatusCode)
	}

	if resp := do(t, http.MethodDelete, base, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("close tab status = %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, base+"/popup", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("closed tab status = %d, want 404", resp.StatusCode)
	}
}

func TestTabEvent_Validation(t *testing.T) {
	srv := newTestServer(t)
	tab := decode[OpenTabResponse](t, do(t, http.MethodPost, srv.URL+"/v1/tabs", nil))
	base := srv.URL + "/v1/tabs/" + tab.TabID

	if resp := do(t, http.MethodPost, base+"/events", TabEventRequest{Type: "shake"}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown event status = %d, want 400", resp.StatusCode)
	}
	for _, ev := range []TabEventRequest{
		{Type: EventFocus, TextInput: true},
		{Type: EventInput},
		{Type: EventActivity},
		{Type: EventRoute, Path: "/quote"},
	} {
		if resp := do(t, http.MethodPost, base+"/events", ev); resp.StatusCode != http.StatusAccepted {
			t.Fatalf("%s event status = %d, want 202", ev.Type, resp.StatusCode)
		}
	}
	resp := do(t, http.MethodPost, base+"/popup/next", nil)
	if cur := decode[CursorResponse](t, resp); cur.Index != 0 || cur.Size != 0 {
		t.Fatalf("cursor on empty catalog = %+v", cur)
	}
}

func TestAdminErrors(t *testing.T) {
	srv := newTestServer(t)

	if resp := do(t, http.MethodPost, srv.URL+"/admin/creatives", creative.Creative{}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid create status = %d, want 400", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, srv.URL+"/admin/creatives/detail?id=42", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing detail status = %d, want 404", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, srv.URL+"/admin/creatives/detail?id=abc", nil); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, srv.URL+"/healthz", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}
}

func TestStatsAfterView(t *testing.T) {
	srv := newTestServer(t)
	created := decode[creative.Creative](t, do(t, http.MethodPost, srv.URL+"/admin/creatives", creative.Creative{
		Title: "Assembly promo", IsActive: true,
	}))
	tab := decode[OpenTabResponse](t, do(t, http.MethodPost, srv.URL+"/v1/tabs", nil))
	do(t, http.MethodPost, srv.URL+"/v1/tabs/"+tab.TabID+"/events", TabEventRequest{Type: EventVisibility, Visible: true})

	url := srv.URL + "/admin/creatives/stats?id=" + strconv.FormatInt(created.ID, 10)
	deadline := time.Now().Add(time.Second)
	for {
		st := decode[creative.Stats](t, do(t, http.MethodGet, url, nil))
		if st.Views == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("views = %d, want 1", st.Views)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
