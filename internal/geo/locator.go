package geo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"attendance.tracker/internal/core/model"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTimeout = 15 * time.Second
	DefaultMaxAge  = 10 * time.Second
)

// Fix is a single position reading.
type Fix struct {
	Coordinates model.Coordinates
	Accuracy    float64
	At          time.Time
}

// Locator is the device capability that produces a position fix.
type Locator interface {
	Locate(ctx context.Context, highAccuracy bool) (Fix, error)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func(ctx context.Context, highAccuracy bool) (Fix, error)

func (f LocatorFunc) Locate(ctx context.Context, highAccuracy bool) (Fix, error) {
	return f(ctx, highAccuracy)
}

// PermissionGate asks the platform for location access.
type PermissionGate interface {
	RequestPermission(ctx context.Context) (bool, error)
}

// StaticPermission is a gate with a fixed answer. Platforms that do not
// require an explicit grant use StaticPermission(true).
type StaticPermission bool

func (p StaticPermission) RequestPermission(context.Context) (bool, error) {
	return bool(p), nil
}

// StaticLocator always reports the same position, used by the agent and the CLI
// on devices without a positioning service.
type StaticLocator struct {
	Coordinates model.Coordinates
	Accuracy    float64
}

func (l StaticLocator) Locate(ctx context.Context, _ bool) (Fix, error) {
	if err := ctx.Err(); err != nil {
		return Fix{}, err
	}
	return Fix{Coordinates: l.Coordinates, Accuracy: l.Accuracy}, nil
}

// Options bound a single-shot acquisition.
type Options struct {
	Timeout      time.Duration
	MaxAge       time.Duration
	HighAccuracy bool
}

// DefaultOptions mirrors the punch screen: high accuracy, 15s timeout, 10s staleness.
func DefaultOptions() Options {
	return Options{Timeout: DefaultTimeout, MaxAge: DefaultMaxAge, HighAccuracy: true}
}

// Acquirer performs permission-gated, time-bounded location acquisition and
// reuses the last fix while it is younger than MaxAge.
type Acquirer struct {
	locator Locator
	gate    PermissionGate
	opts    Options
	now     func() time.Time

	mu   sync.Mutex
	last *Fix
}

// NewAcquirer wires a locator behind a permission gate.
func NewAcquirer(locator Locator, gate PermissionGate, opts Options) *Acquirer {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxAge < 0 {
		opts.MaxAge = 0
	}
	if gate == nil {
		gate = StaticPermission(true)
	}
	return &Acquirer{locator: locator, gate: gate, opts: opts, now: time.Now}
}

// WithClock replaces the time source used for staleness checks.
func (a *Acquirer) WithClock(now func() time.Time) *Acquirer {
	a.now = now
	return a
}

// Acquire returns the current coordinates or an error wrapping
// model.ErrPermissionDenied or model.ErrLocationUnavailable.
func (a *Acquirer) Acquire(ctx context.Context) (model.Coordinates, error) {
	granted, err := a.gate.RequestPermission(ctx)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Location permission request failed")
		return model.Coordinates{}, fmt.Errorf("%w: %v", model.ErrPermissionDenied, err)
	}
	if !granted {
		return model.Coordinates{}, model.ErrPermissionDenied
	}

	if fix, ok := a.cached(); ok {
		return fix.Coordinates, nil
	}

	fix, err := a.locate(ctx)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("%w: %v", model.ErrLocationUnavailable, err)
	}

	a.mu.Lock()
	a.last = &fix
	a.mu.Unlock()
	return fix.Coordinates, nil
}

func (a *Acquirer) cached() (Fix, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil || a.opts.MaxAge == 0 {
		return Fix{}, false
	}
	if a.now().Sub(a.last.At) > a.opts.MaxAge {
		return Fix{}, false
	}
	return *a.last, true
}

// locate runs the locator under the timeout. The locator runs in its own
// goroutine so one that ignores ctx still cannot block past the deadline.
func (a *Acquirer) locate(ctx context.Context) (Fix, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	type result struct {
		fix Fix
		err error
	}
	ch := make(chan result, 1)
	go func() {
		fix, err := a.locator.Locate(ctx, a.opts.HighAccuracy)
		ch <- result{fix: fix, err: err}
	}()

	select {
	case <-ctx.Done():
		return Fix{}, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return Fix{}, r.err
		}
		if r.fix.At.IsZero() {
			r.fix.At = a.now()
		}
		return r.fix, nil
	}
}
