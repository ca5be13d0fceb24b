package popup

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type TriggerConfig struct {
	Interval         time.Duration // periodic check
	InitialDelay     time.Duration // one-shot check after Start
	ActivityDebounce time.Duration // quiet period after user activity
	RouteDelay       time.Duration // delay after a navigation
}

func DefaultTriggerConfig() TriggerConfig {
	return TriggerConfig{
		Interval:         30 * time.Second,
		InitialDelay:     3 * time.Second,
		ActivityDebounce: 2 * time.Second,
		RouteDelay:       2 * time.Second,
	}
}

// Triggers feeds a Scheduler from independent timer and page-event sources.
// None of them are ordered relative to each other.
type Triggers struct {
	s   *Scheduler
	cfg TriggerConfig
	log *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	initial  *time.Timer
	activity *time.Timer
	route    *time.Timer
}

func NewTriggers(s *Scheduler, cfg TriggerConfig, log *slog.Logger) *Triggers {
	def := DefaultTriggerConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.InitialDelay < 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.ActivityDebounce <= 0 {
		cfg.ActivityDebounce = def.ActivityDebounce
	}
	if cfg.RouteDelay <= 0 {
		cfg.RouteDelay = def.RouteDelay
	}
	if log == nil {
		log = slog.Default()
	}
	return &Triggers{s: s, cfg: cfg, log: log}
}

// Start arms the periodic ticker and the initial one-shot check. The
// triggers live until Stop or until ctx is cancelled.
func (t *Triggers) Start(ctx context.Context) {
	t.ctx, t.cancel = context.WithCancel(ctx)

	t.mu.Lock()
	t.initial = time.AfterFunc(t.cfg.InitialDelay, func() { t.fire("initial") })
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(t.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.ctx.Done():
				return
			case <-ticker.C:
				t.fire("interval")
			}
		}
	}()
}

// VisibilityChanged evaluates when the tab comes back to the foreground.
func (t *Triggers) VisibilityChanged(visible bool) {
	if visible {
		t.fire("visibility")
	}
}

// Activity debounces mouse, keyboard, touch, and scroll bursts.
func (t *Triggers) Activity() {
	if t.stopped() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activity = rearm(t.activity, t.cfg.ActivityDebounce, func() { t.fire("activity") })
}

// RouteChanged evaluates once after the page transition settles.
func (t *Triggers) RouteChanged(path string) {
	if t.stopped() {
		return
	}
	t.log.Debug("route changed", "path", path)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.route = rearm(t.route, t.cfg.RouteDelay, func() { t.fire("route") })
}

// Input records typing and counts it as activity.
func (t *Triggers) Input() {
	if t.stopped() {
		return
	}
	t.s.RecordInput(t.ctx)
	t.Activity()
}

// Stop tears down every timer. In-flight telemetry keeps running.
func (t *Triggers) Stop() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	t.mu.Lock()
	for _, tm := range []*time.Timer{t.initial, t.activity, t.route} {
		if tm != nil {
			tm.Stop()
		}
	}
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *Triggers) stopped() bool {
	return t.ctx == nil || t.ctx.Err() != nil
}

func (t *Triggers) fire(source string) {
	if t.stopped() {
		return
	}
	if c := t.s.Evaluate(t.ctx); c != nil {
		t.log.Debug("popup shown", "creative_id", c.ID, "trigger", source)
	}
}

func rearm(tm *time.Timer, d time.Duration, fn func()) *time.Timer {
	if tm != nil {
		tm.Stop()
	}
	return time.AfterFunc(d, fn)
}
