// Package browserpool manages a bounded pool of headless browser instances.
// Callers acquire an instance, use it, and release it back; CloseAll tears
// the pool down idempotently. The pool is the only component in the service
// that owns external resources.
package browserpool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/google/uuid"
)

// Config holds pool configuration.
type Config struct {
	Size       int           // maximum concurrent browser instances
	Headless   bool          // run browsers without a display
	ChromeBin  string        // explicit browser binary, empty for auto-detect
	NavTimeout time.Duration // default navigation timeout for pages

	// LaunchFunc overrides browser creation. Tests inject a stub here so no
	// real browser process is needed.
	LaunchFunc func() (*rod.Browser, error)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Size:       2,
		Headless:   true,
		NavTimeout: 30 * time.Second,
	}
}

// Instance is one pooled browser.
type Instance struct {
	ID      string
	Browser *rod.Browser

	createdAt time.Time
	lastUsed  time.Time
}

// Pool hands out browser instances up to a fixed bound. Acquire blocks when
// the pool is exhausted until an instance is released or the context ends.
type Pool struct {
	cfg    Config
	launch func() (*rod.Browser, error)

	mu      sync.Mutex
	created int
	closed  bool
	idle    chan *Instance
}

// New creates a pool. No browser is launched until the first Acquire.
func New(cfg Config) *Pool {
	if cfg.Size <= 0 {
		cfg.Size = 1
	}
	launch := cfg.LaunchFunc
	if launch == nil {
		launch = defaultLaunch(cfg)
	}
	return &Pool{
		cfg:    cfg,
		launch: launch,
		idle:   make(chan *Instance, cfg.Size),
	}
}

// Acquire returns a working instance, reusing an idle one when available and
// launching a new one while the pool is under its bound. It blocks honoring
// ctx when every instance is in use.
func (p *Pool) Acquire(ctx context.Context) (*Instance, error) {
	// Prefer an idle instance over launching a new one.
	select {
	case inst := <-p.idle:
		inst.lastUsed = time.Now()
		return inst, nil
	default:
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("browser pool is closed")
	}
	if p.created < p.cfg.Size {
		p.created++
		p.mu.Unlock()

		browser, err := p.launch()
		if err != nil {
			p.mu.Lock()
			p.created--
			p.mu.Unlock()
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		inst := &Instance{
			ID:        uuid.New().String(),
			Browser:   browser,
			createdAt: time.Now(),
			lastUsed:  time.Now(),
		}
		slog.Debug("Launched browser instance", "id", inst.ID, "created", p.created)
		return inst, nil
	}
	p.mu.Unlock()

	select {
	case inst := <-p.idle:
		inst.lastUsed = time.Now()
		return inst, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns an instance to the pool. After CloseAll the instance is
// closed instead of pooled, so late releases never leak a browser.
func (p *Pool) Release(inst *Instance) {
	if inst == nil {
		return
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if closed {
		p.closeInstance(inst)
		return
	}

	inst.lastUsed = time.Now()
	select {
	case p.idle <- inst:
	default:
		// Pool already holds a full idle set.
		p.closeInstance(inst)
		p.mu.Lock()
		p.created--
		p.mu.Unlock()
	}
}

// CloseAll shuts down every pooled instance. Safe to call more than once;
// subsequent calls are no-ops.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case inst := <-p.idle:
			p.closeInstance(inst)
		default:
			slog.Info("Browser pool closed")
			return
		}
	}
}

// Size reports how many instances currently exist.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created
}

func (p *Pool) closeInstance(inst *Instance) {
	if inst.Browser == nil {
		return
	}
	if err := inst.Browser.Close(); err != nil {
		slog.Warn("Failed to close browser instance", "id", inst.ID, "error", err)
	}
}

// defaultLaunch builds the real browser launcher.
func defaultLaunch(cfg Config) func() (*rod.Browser, error) {
	return func() (*rod.Browser, error) {
		l := launcher.New().
			Headless(cfg.Headless).
			Set(flags.NoSandbox).
			Set("disable-gpu")
		if cfg.ChromeBin != "" {
			l = l.Bin(cfg.ChromeBin)
		}
		controlURL, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		browser := rod.New().ControlURL(controlURL)
		if err := browser.Connect(); err != nil {
			return nil, fmt.Errorf("connect to chrome: %w", err)
		}
		return browser, nil
	}
}
