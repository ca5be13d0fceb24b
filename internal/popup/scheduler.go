// Package popup decides when a tab sees a promotional creative. A Scheduler
// holds one tab's catalog snapshot and rotation cursor, gates every
// evaluation on typing activity, the session cap and per-creative
// frequency, and reports views and clicks as detached telemetry.
package popup

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"popup-service/internal/creative"
)

// DefaultTypingWindow is how long after the last keystroke a focused text
// field keeps popups away.
const DefaultTypingWindow = 5 * time.Second

// ErrNothingVisible is returned by Activate when no popup is on screen.
var ErrNothingVisible = errors.New("no popup is visible")

// Options carries a Scheduler's collaborators. Zero values get working
// defaults: an in-memory store, no telemetry, no preloading.
type Options struct {
	Store     SessionStateStore
	Telemetry creative.Telemetry
	Preloader Preloader // optional
	Logger    *slog.Logger

	// InputFocused reports whether a text-input-like control has focus.
	InputFocused func() bool
	TypingWindow time.Duration
	Now          func() time.Time
}

// Scheduler is one tab's popup state machine.
type Scheduler struct {
	catalog   creative.Catalog
	store     SessionStateStore
	telemetry creative.Telemetry
	preloader Preloader
	log       *slog.Logger
	focused   func() bool
	typing    time.Duration
	now       func() time.Time

	mu           sync.Mutex
	creatives    []*creative.Creative
	index        int
	visible      bool
	displayCount int
	lastShown    map[int64]time.Time // shown by this scheduler; survives store expiry

	tasks sync.WaitGroup
}

// NewScheduler builds a Scheduler over catalog. Call Load before evaluating.
func NewScheduler(catalog creative.Catalog, opts Options) *Scheduler {
	s := &Scheduler{
		catalog:   catalog,
		store:     opts.Store,
		telemetry: opts.Telemetry,
		preloader: opts.Preloader,
		log:       opts.Logger,
		focused:   opts.InputFocused,
		typing:    opts.TypingWindow,
		now:       opts.Now,
		lastShown: make(map[int64]time.Time),
	}
	if s.store == nil {
		s.store = NewMemoryStore()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.focused == nil {
		s.focused = func() bool { return false }
	}
	if s.typing <= 0 {
		s.typing = DefaultTypingWindow
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Load fetches the catalog once and resets the cursor. A failed fetch leaves
// the scheduler with an empty catalog, so it never shows anything.
func (s *Scheduler) Load(ctx context.Context) {
	var list []*creative.Creative
	if fetched, err := s.catalog.ListActiveCreatives(ctx); err != nil {
		s.log.Warn("popup catalog load failed", "error", err)
	} else {
		list = fetched
	}
	count := readCount(ctx, s.store, KeySessionDisplayCount)

	s.mu.Lock()
	s.creatives = list
	s.index = 0
	s.visible = false
	s.displayCount = count
	s.mu.Unlock()

	if s.preloader != nil {
		for _, c := range list {
			if c.ImageURL == "" {
				continue
			}
			url := c.ImageURL
			s.detach(ctx, func(ctx context.Context) {
				_ = s.preloader.Preload(ctx, url)
			})
		}
	}
}

// Evaluate runs one display decision and returns the creative it made
// visible, or nil. It is safe to call from any number of triggers at once:
// the visibility check under the lock lets at most one of them show.
func (s *Scheduler) Evaluate(ctx context.Context) *creative.Creative {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.visible || len(s.creatives) == 0 {
		return nil
	}
	if s.index < 0 || s.index >= len(s.creatives) {
		return nil
	}
	candidate := s.creatives[s.index]
	now := s.now()

	if s.focused() {
		if at, ok := readMillis(ctx, s.store, KeyLastInputAt); ok && now.Sub(at) < s.typing {
			return nil
		}
	}

	// The cap is the candidate's, the count is the whole session's.
	if limit := candidate.SessionCap(); limit > 0 && s.displayCount >= limit {
		return nil
	}

	if last, ok := s.lastShownAt(ctx, candidate.ID); ok {
		elapsed := now.Sub(last).Hours()
		if elapsed < candidate.DisplayFrequencyHours {
			// One step per evaluation; the next trigger tries the next creative.
			if len(s.creatives) > 1 {
				s.index = (s.index + 1) % len(s.creatives)
			}
			return nil
		}
	}

	s.visible = true
	s.displayCount++
	if err := s.store.Set(ctx, KeySessionDisplayCount, strconv.Itoa(s.displayCount)); err != nil {
		s.log.Warn("persist display count failed", "error", err)
	}
	s.lastShown[candidate.ID] = now
	if err := s.store.Set(ctx, LastShownKey(candidate.ID), now.UTC().Format(time.RFC3339Nano)); err != nil {
		s.log.Warn("persist last shown failed", "creative_id", candidate.ID, "error", err)
	}

	id := candidate.ID
	s.detach(ctx, func(ctx context.Context) {
		if s.telemetry == nil {
			return
		}
		if err := s.telemetry.RecordView(ctx, id); err != nil {
			s.log.Warn("record view failed", "creative_id", id, "error", err)
		}
	})
	return candidate
}

// Close hides the popup and rotates to the next creative.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = false
	s.advance()
}

// Activate records a click on the visible creative and rotates past it.
// The returned creative's TargetURL, when set, is for the caller to open in
// a new browsing context.
func (s *Scheduler) Activate(ctx context.Context) (*creative.Creative, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.visible || s.index >= len(s.creatives) {
		return nil, ErrNothingVisible
	}
	active := s.creatives[s.index]

	id := active.ID
	s.detach(ctx, func(ctx context.Context) {
		if s.telemetry == nil {
			return
		}
		if err := s.telemetry.RecordClick(ctx, id); err != nil {
			s.log.Warn("record click failed", "creative_id", id, "error", err)
		}
	})

	s.visible = false
	s.advance()
	return active, nil
}

// Next moves the cursor forward without touching visibility or policy.
func (s *Scheduler) Next() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
}

// Previous moves the cursor backward, wrapping to the last creative.
func (s *Scheduler) Previous() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.creatives); n > 0 {
		s.index = (s.index - 1 + n) % n
	}
}

// RecordInput notes a keystroke, paste, or change on the page.
func (s *Scheduler) RecordInput(ctx context.Context) {
	ms := strconv.FormatInt(s.now().UnixMilli(), 10)
	if err := s.store.Set(ctx, KeyLastInputAt, ms); err != nil {
		s.log.Warn("persist last input failed", "error", err)
	}
}

// Touch keeps the session state alive for a tab that is still talking to
// the service, when the store expires idle sessions.
func (s *Scheduler) Touch(ctx context.Context) {
	t, ok := s.store.(Toucher)
	if !ok {
		return
	}
	if err := t.Touch(ctx); err != nil {
		s.log.Warn("refresh session state failed", "error", err)
	}
}

// Visible returns the creative on screen, or nil.
func (s *Scheduler) Visible() *creative.Creative {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.visible || s.index >= len(s.creatives) {
		return nil
	}
	return s.creatives[s.index]
}

// Cursor returns the rotation index and the catalog size.
func (s *Scheduler) Cursor() (index, size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index, len(s.creatives)
}

func (s *Scheduler) DisplayCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayCount
}

// Wait blocks until detached telemetry and preload work has finished.
func (s *Scheduler) Wait() {
	s.tasks.Wait()
}

// lastShownAt takes the later of the stored and the locally recorded time,
// so a store that dropped its keys cannot reopen the frequency gate.
// must hold s.mu
func (s *Scheduler) lastShownAt(ctx context.Context, id int64) (time.Time, bool) {
	stored, ok := readTimestamp(ctx, s.store, LastShownKey(id))
	if local, seen := s.lastShown[id]; seen && (!ok || local.After(stored)) {
		return local, true
	}
	return stored, ok
}

// must hold s.mu
func (s *Scheduler) advance() {
	n := len(s.creatives)
	if n == 0 || s.index >= n-1 {
		s.index = 0
		return
	}
	s.index++
}

// detach runs fn in its own goroutine with a context that outlives the
// caller's cancellation. Nothing waits on it except Wait.
func (s *Scheduler) detach(ctx context.Context, fn func(context.Context)) {
	ctx = context.WithoutCancel(ctx)
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		fn(ctx)
	}()
}
