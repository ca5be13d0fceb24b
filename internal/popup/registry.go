package popup

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"popup-service/internal/creative"
)

var ErrUnknownTab = errors.New("unknown tab session")

// StoreFactory returns the session state store for one tab.
type StoreFactory func(tabID string) SessionStateStore

type RegistryConfig struct {
	Triggers      TriggerConfig
	TypingWindow  time.Duration
	IdleTTL       time.Duration // tabs silent for longer are dropped
	SweepInterval time.Duration
}

// Tab is one browsing tab's popup session.
type Tab struct {
	ID        string
	Scheduler *Scheduler
	Triggers  *Triggers

	inputFocused atomic.Bool
	lastSeen     atomic.Int64 // unix nanos
}

// SetInputFocus records whether a text-input-like control has focus.
func (t *Tab) SetInputFocus(focused bool) {
	t.inputFocused.Store(focused)
}

func (t *Tab) touch(now time.Time) {
	t.lastSeen.Store(now.UnixNano())
}

// Registry owns the live tab sessions of this process.
type Registry struct {
	catalog   creative.Catalog
	telemetry creative.Telemetry
	preloader Preloader
	newStore  StoreFactory
	cfg       RegistryConfig
	log       *slog.Logger
	now       func() time.Time

	mu   sync.Mutex
	tabs map[string]*Tab
}

func NewRegistry(catalog creative.Catalog, telemetry creative.Telemetry, preloader Preloader, newStore StoreFactory, cfg RegistryConfig, log *slog.Logger) *Registry {
	if newStore == nil {
		newStore = func(string) SessionStateStore { return NewMemoryStore() }
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		catalog:   catalog,
		telemetry: telemetry,
		preloader: preloader,
		newStore:  newStore,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
		tabs:      make(map[string]*Tab),
	}
}

// Open starts a popup session for a tab. An empty or unparseable id gets a
// fresh one; reopening a known id remounts it: the cursor resets while the
// session state (display count, last-shown times) carries over.
func (r *Registry) Open(ctx context.Context, tabID string) *Tab {
	if _, err := uuid.Parse(tabID); err != nil {
		tabID = uuid.NewString()
	}

	tab := &Tab{ID: tabID}
	tabLog := r.log.With("tab_id", tabID)
	tab.Scheduler = NewScheduler(r.catalog, Options{
		Store:        r.newStore(tabID),
		Telemetry:    r.telemetry,
		Preloader:    r.preloader,
		Logger:       tabLog,
		InputFocused: tab.inputFocused.Load,
		TypingWindow: r.cfg.TypingWindow,
	})
	tab.Scheduler.Load(ctx)
	tab.Triggers = NewTriggers(tab.Scheduler, r.cfg.Triggers, tabLog)
	tab.touch(r.now())

	// Triggers outlive the request that opened the tab.
	tab.Triggers.Start(context.WithoutCancel(ctx))

	r.mu.Lock()
	prev := r.tabs[tabID]
	r.tabs[tabID] = tab
	r.mu.Unlock()

	if prev != nil {
		prev.Triggers.Stop()
	}

	_, size := tab.Scheduler.Cursor()
	tabLog.Info("tab session opened", "creatives", size, "remount", prev != nil)
	return tab
}

// Get returns a live tab, marks it as seen, and refreshes its session
// state expiry.
func (r *Registry) Get(ctx context.Context, tabID string) (*Tab, error) {
	r.mu.Lock()
	tab, ok := r.tabs[tabID]
	r.mu.Unlock()
	if !ok {
		return nil, ErrUnknownTab
	}
	tab.touch(r.now())
	tab.Scheduler.Touch(ctx)
	return tab, nil
}

// Close ends a tab session and tears down its triggers.
func (r *Registry) Close(tabID string) error {
	r.mu.Lock()
	tab, ok := r.tabs[tabID]
	delete(r.tabs, tabID)
	r.mu.Unlock()
	if !ok {
		return ErrUnknownTab
	}
	tab.Triggers.Stop()
	return nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tabs)
}

// Sweep drops tabs idle for longer than the configured TTL and returns how
// many were dropped.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.cfg.IdleTTL).UnixNano()

	r.mu.Lock()
	var idle []*Tab
	for id, tab := range r.tabs {
		if tab.lastSeen.Load() < cutoff {
			idle = append(idle, tab)
			delete(r.tabs, id)
		}
	}
	r.mu.Unlock()

	for _, tab := range idle {
		tab.Triggers.Stop()
	}
	if len(idle) > 0 {
		r.log.Info("idle tab sessions dropped", "count", len(idle))
	}
	return len(idle)
}

// Run sweeps idle tabs until ctx is done, then stops every remaining tab.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return nil
		case <-ticker.C:
			r.Sweep(r.now())
		}
	}
}

func (r *Registry) shutdown() {
	r.mu.Lock()
	tabs := r.tabs
	r.tabs = make(map[string]*Tab)
	r.mu.Unlock()
	for _, tab := range tabs {
		tab.Triggers.Stop()
	}
}
