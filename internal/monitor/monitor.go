// Package monitor runs the fetch, decide, enforce loop against the node at a
// fixed cadence. Passes never overlap and missed intervals are never replayed.
package monitor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common/mclock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/lao-tseu-is-alive/go-peer-scythe/internal/enforce"
	"github.com/lao-tseu-is-alive/go-peer-scythe/internal/peers"
)

// ErrAlreadyRunning is returned by Run when another Run is in progress.
var ErrAlreadyRunning = errors.New("monitor is already running")

// Fetcher returns the raw getpeerinfo result.
type Fetcher interface {
	GetPeerInfo(ctx context.Context) (json.RawMessage, error)
}

// Enforcer acts on the matched peers of one pass.
type Enforcer interface {
	EnforceAll(ctx context.Context, targets []peers.Record) enforce.Summary
}

// Config holds the scheduling settings.
type Config struct {
	Interval   time.Duration // Time between the starts of two passes.
	SinglePass bool          // Run one pass and return.
}

// CycleResult is the outcome of one pass.
type CycleResult struct {
	Matched      int
	Disconnected int
	Banned       int
	Skipped      int
	Failed       int
	Aborted      int
	Err          error // fetch or decode failure; nil when the pass completed
	Duration     time.Duration
}

// OK reports whether the fetch and decode stage succeeded.
func (r CycleResult) OK() bool {
	return r.Err == nil
}

// Option customizes a Monitor.
type Option func(m *Monitor)

// WithClock replaces the system clock, mainly for tests.
func WithClock(clock mclock.Clock) Option {
	return func(m *Monitor) {
		m.clock = clock
	}
}

// Monitor drives the pass loop.
type Monitor struct {
	cfg      Config
	fetcher  Fetcher
	enforcer Enforcer
	clock    mclock.Clock

	running atomic.Bool
	state   atomic.Int32
	passes  atomic.Uint64
}

// New builds a Monitor.
func New(fetcher Fetcher, enforcer Enforcer, cfg Config, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:      cfg,
		fetcher:  fetcher,
		enforcer: enforcer,
		clock:    mclock.System{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current scheduler state.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// Passes returns the number of passes completed so far.
func (m *Monitor) Passes() uint64 {
	return m.passes.Load()
}

func (m *Monitor) setState(s State) {
	m.state.Store(int32(s))
}

// RunOnce performs a single pass: fetch, decode, filter, enforce. It is
// refused with ErrAlreadyRunning while Run or another RunOnce is active.
func (m *Monitor) RunOnce(ctx context.Context) CycleResult {
	if !m.running.CompareAndSwap(false, true) {
		return CycleResult{Err: ErrAlreadyRunning}
	}
	defer m.running.Store(false)
	return m.runOnce(ctx)
}

func (m *Monitor) runOnce(ctx context.Context) CycleResult {
	start := m.clock.Now()
	res := m.pass(ctx)
	res.Duration = m.clock.Now().Sub(start)
	m.passes.Inc()
	m.setState(StateIdle)
	return res
}

func (m *Monitor) pass(ctx context.Context) CycleResult {
	var res CycleResult

	m.setState(StateFetching)
	raw, err := m.fetcher.GetPeerInfo(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	records, err := peers.Decode(raw)
	if err != nil {
		res.Err = err
		return res
	}

	m.setState(StateDeciding)
	targets := peers.Targets(records)
	res.Matched = len(targets)
	if res.Matched == 0 {
		log.Debugf("No target among %d peer(s)", len(records))
		return res
	}
	log.Infof("🎯 Detected %d target peer(s) out of %d", res.Matched, len(records))

	m.setState(StateEnforcing)
	summary := m.enforcer.EnforceAll(ctx, targets)
	res.Disconnected = summary.Disconnected
	res.Banned = summary.Banned
	res.Skipped = summary.Skipped
	res.Failed = summary.Failed
	res.Aborted = summary.Aborted
	return res
}

// Run executes passes until ctx is cancelled, or exactly one pass in
// single-pass mode. In single-pass mode the fetch or decode error, if any, is
// returned. In continuous mode per-pass errors are logged and Run returns nil
// on cancellation.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer m.running.Store(false)
	defer m.setState(StateTerminated)

	if m.cfg.SinglePass {
		res := m.runOnce(ctx)
		m.report(res)
		return res.Err
	}

	for {
		if ctx.Err() != nil {
			break
		}
		res := m.runOnce(ctx)
		m.report(res)
		if !m.sleep(ctx, m.cfg.Interval-res.Duration) {
			break
		}
	}
	m.setState(StateStopping)
	log.Infof("🛑 Monitor stopped after %d pass(es)", m.Passes())
	return nil
}

// sleep waits d, returning false if ctx is cancelled first. A non-positive d
// returns immediately.
func (m *Monitor) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		if d < 0 {
			log.Debugf("Pass overran the interval by %s, starting next pass now", -d)
		}
		return ctx.Err() == nil
	}

	m.setState(StateSleeping)
	timer := m.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C():
		return true
	}
}

func (m *Monitor) report(res CycleResult) {
	if res.Err != nil {
		if m.cfg.SinglePass {
			log.Errorf("❌ ERROR: peer check failed: %v", res.Err)
			return
		}
		log.Errorf("❌ ERROR: peer check failed: %v (retrying in %s)", res.Err, m.cfg.Interval)
		return
	}
	if res.Matched == 0 {
		return
	}
	log.Infof("✅ Pass done in %s: matched=%d disconnected=%d banned=%d skipped=%d failed=%d aborted=%d",
		res.Duration.Round(time.Millisecond), res.Matched, res.Disconnected, res.Banned, res.Skipped, res.Failed, res.Aborted)
}
