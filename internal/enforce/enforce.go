// Package enforce disconnects matched peers and bans their IP address.
package enforce

import (
	"context"
	"time"

	"github.com/lao-tseu-is-alive/go-peer-scythe/internal/peers"
)

// Node is the subset of the node RPC surface the executor mutates.
type Node interface {
	DisconnectNode(ctx context.Context, addr string) error
	SetBan(ctx context.Context, host string, d time.Duration) error
}

// Config holds the executor settings.
type Config struct {
	BanDuration time.Duration // Relative ban length sent with setban.
	Preview     bool          // Log intended actions without calling the node.
}

// Outcome records what happened to a single matched peer.
type Outcome struct {
	Peer          peers.Record
	Host          string
	Class         peers.HostClass
	Disconnected  bool
	Banned        bool
	BanSkipped    bool
	DisconnectErr error
	BanErr        error
}

// Failed reports whether any attempted action failed.
func (o Outcome) Failed() bool {
	return o.DisconnectErr != nil || o.BanErr != nil
}

// Summary aggregates the outcomes of one pass.
type Summary struct {
	Outcomes     []Outcome
	Disconnected int
	Banned       int
	Skipped      int
	Failed       int
	Aborted      int // peers left untouched because of shutdown
}

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	if o.Disconnected {
		s.Disconnected++
	}
	if o.Banned {
		s.Banned++
	}
	if o.BanSkipped {
		s.Skipped++
	}
	if o.Failed() {
		s.Failed++
	}
}

// Executor applies the disconnect and ban sequence.
type Executor struct {
	node Node
	cfg  Config
}

// New returns an Executor issuing calls through node.
func New(node Node, cfg Config) *Executor {
	return &Executor{node: node, cfg: cfg}
}

// Enforce disconnects p's connection, then bans its host when the host is an
// IP literal. A failed disconnect never prevents the ban attempt.
func (e *Executor) Enforce(ctx context.Context, p peers.Record) Outcome {
	o := Outcome{Peer: p}
	o.Host = peers.ExtractHost(p.Addr)
	o.Class = peers.ClassifyHost(o.Host)

	if e.cfg.Preview {
		log.Infof("👀 [PREVIEW] Would disconnect peer %s", p.Addr)
		if o.Class.Bannable() {
			log.Infof("👀 [PREVIEW] Would ban %s host %s for %s", o.Class, o.Host, e.cfg.BanDuration)
		} else {
			o.BanSkipped = true
			log.Infof("⏭️  [PREVIEW] Would skip ban for %s (%s address)", o.Host, o.Class)
		}
		return o
	}

	if err := e.node.DisconnectNode(ctx, p.Addr); err != nil {
		o.DisconnectErr = err
		log.Warnf("⚠️  Failed to disconnect peer %s: %v", p.Addr, err)
	} else {
		o.Disconnected = true
		log.Infof("🔌 Disconnected peer %s", p.Addr)
	}

	if !o.Class.Bannable() {
		o.BanSkipped = true
		log.Infof("⏭️  Skipping ban for %s: %s address cannot be banned", o.Host, o.Class)
		return o
	}

	if err := e.node.SetBan(ctx, o.Host, e.cfg.BanDuration); err != nil {
		o.BanErr = err
		log.Warnf("⚠️  Failed to ban %s: %v", o.Host, err)
	} else {
		o.Banned = true
		log.Infof("🚫 BANNED: %s (%s) for %s", o.Host, o.Class, e.cfg.BanDuration)
	}
	return o
}

// EnforceAll processes targets in order. Once ctx is done no further peer is
// touched; the peer being processed at that moment is finished first.
func (e *Executor) EnforceAll(ctx context.Context, targets []peers.Record) Summary {
	var s Summary
	for i, p := range targets {
		if ctx.Err() != nil {
			s.Aborted = len(targets) - i
			log.Warnf("🛑 Shutdown requested, leaving %d matched peer(s) untouched", s.Aborted)
			break
		}
		s.add(e.Enforce(ctx, p))
	}
	return s
}
