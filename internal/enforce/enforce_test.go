package enforce

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/pkg/errors"

	"github.com/lao-tseu-is-alive/go-peer-scythe/internal/peers"
)

const weekBan = 604800 * time.Second

// fakeNode records every call and fails the ones listed in failDisconnect and
// failBan.
type fakeNode struct {
	calls          []string
	failDisconnect map[string]bool
	failBan        map[string]bool
	onDisconnect   func(addr string)
}

func (n *fakeNode) DisconnectNode(_ context.Context, addr string) error {
	n.calls = append(n.calls, "disconnectnode "+addr)
	if n.onDisconnect != nil {
		n.onDisconnect(addr)
	}
	if n.failDisconnect[addr] {
		return errors.New("Node not found in connected nodes")
	}
	return nil
}

func (n *fakeNode) SetBan(_ context.Context, host string, d time.Duration) error {
	n.calls = append(n.calls, "setban "+host+" "+d.String())
	if n.failBan[host] {
		return errors.New("Error: IP/Subnet already banned")
	}
	return nil
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	UseLogger(slog.NewBackend(&buf).Logger("ENFC"))
	t.Cleanup(func() { UseLogger(slog.Disabled) })
	return &buf
}

func TestEnforceIPv4(t *testing.T) {
	node := &fakeNode{}
	ex := New(node, Config{BanDuration: weekBan})

	o := ex.Enforce(context.Background(), peers.NewRecord("203.0.113.45:8333", "libre", "PREFERENTIAL_PEERING"))

	want := []string{"disconnectnode 203.0.113.45:8333", "setban 203.0.113.45 168h0m0s"}
	if !reflect.DeepEqual(node.calls, want) {
		t.Errorf("calls = %q, want %q", node.calls, want)
	}
	if !o.Disconnected || !o.Banned || o.BanSkipped || o.Failed() {
		t.Errorf("unexpected outcome %+v", o)
	}
	if o.Host != "203.0.113.45" || o.Class != peers.IPv4Literal {
		t.Errorf("Host/Class = %q/%v", o.Host, o.Class)
	}
}

func TestEnforceIPv6BansBareHost(t *testing.T) {
	node := &fakeNode{}
	ex := New(node, Config{BanDuration: time.Hour})

	o := ex.Enforce(context.Background(), peers.NewRecord("[2001:db8::1]:8333", "libre", "PREFERENTIAL_PEERING"))

	want := []string{"disconnectnode [2001:db8::1]:8333", "setban 2001:db8::1 1h0m0s"}
	if !reflect.DeepEqual(node.calls, want) {
		t.Errorf("calls = %q, want %q", node.calls, want)
	}
	if o.Class != peers.IPv6Literal || !o.Banned {
		t.Errorf("unexpected outcome %+v", o)
	}
}

func TestEnforceOnionSkipsBan(t *testing.T) {
	buf := captureLog(t)
	node := &fakeNode{}
	ex := New(node, Config{BanDuration: weekBan})

	o := ex.Enforce(context.Background(), peers.NewRecord("sometail.onion:8333", "libre", "PREFERENTIAL_PEERING"))

	want := []string{"disconnectnode sometail.onion:8333"}
	if !reflect.DeepEqual(node.calls, want) {
		t.Errorf("calls = %q, want %q", node.calls, want)
	}
	if !o.Disconnected || o.Banned || !o.BanSkipped {
		t.Errorf("unexpected outcome %+v", o)
	}
	if !strings.Contains(buf.String(), "Skipping ban for sometail.onion") {
		t.Errorf("expected skip notice in log, got %q", buf.String())
	}
}

func TestEnforceEmptyHostSkipsBan(t *testing.T) {
	node := &fakeNode{}
	ex := New(node, Config{BanDuration: weekBan})

	o := ex.Enforce(context.Background(), peers.NewRecord(":8333", "libre", "PREFERENTIAL_PEERING"))

	want := []string{"disconnectnode :8333"}
	if !reflect.DeepEqual(node.calls, want) {
		t.Errorf("calls = %q, want %q", node.calls, want)
	}
	if o.Host != "" || o.Class != peers.NonLiteral || !o.BanSkipped {
		t.Errorf("unexpected outcome %+v", o)
	}
}

func TestEnforceDisconnectFailureStillBans(t *testing.T) {
	node := &fakeNode{failDisconnect: map[string]bool{"203.0.113.45:8333": true}}
	ex := New(node, Config{BanDuration: weekBan})

	o := ex.Enforce(context.Background(), peers.NewRecord("203.0.113.45:8333", "libre", "PREFERENTIAL_PEERING"))

	if len(node.calls) != 2 || !strings.HasPrefix(node.calls[1], "setban 203.0.113.45") {
		t.Fatalf("ban not attempted after disconnect failure: %q", node.calls)
	}
	if o.Disconnected || !o.Banned || o.DisconnectErr == nil || !o.Failed() {
		t.Errorf("unexpected outcome %+v", o)
	}
}

func TestEnforceAllIsolatesFailures(t *testing.T) {
	node := &fakeNode{
		failDisconnect: map[string]bool{"10.0.0.1:8333": true},
		failBan:        map[string]bool{"10.0.0.1": true},
	}
	ex := New(node, Config{BanDuration: weekBan})

	targets := []peers.Record{
		peers.NewRecord("10.0.0.1:8333", "libre", "PREFERENTIAL_PEERING"),
		peers.NewRecord("abc.onion:8333", "libre", "PREFERENTIAL_PEERING"),
		peers.NewRecord("10.0.0.2:8333", "libre", "PREFERENTIAL_PEERING"),
	}
	s := ex.EnforceAll(context.Background(), targets)

	want := []string{
		"disconnectnode 10.0.0.1:8333",
		"setban 10.0.0.1 168h0m0s",
		"disconnectnode abc.onion:8333",
		"disconnectnode 10.0.0.2:8333",
		"setban 10.0.0.2 168h0m0s",
	}
	if !reflect.DeepEqual(node.calls, want) {
		t.Errorf("calls = %q, want %q", node.calls, want)
	}
	if s.Disconnected != 2 || s.Banned != 1 || s.Skipped != 1 || s.Failed != 1 || s.Aborted != 0 {
		t.Errorf("unexpected summary %+v", s)
	}
	if len(s.Outcomes) != 3 {
		t.Errorf("len(Outcomes) = %d, want 3", len(s.Outcomes))
	}
}

func TestEnforceAllStopsBetweenPeersOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Shutdown arrives while the first peer is being disconnected.
	node := &fakeNode{onDisconnect: func(string) { cancel() }}
	ex := New(node, Config{BanDuration: weekBan})

	targets := []peers.Record{
		peers.NewRecord("10.0.0.1:8333", "libre", "PREFERENTIAL_PEERING"),
		peers.NewRecord("10.0.0.2:8333", "libre", "PREFERENTIAL_PEERING"),
		peers.NewRecord("10.0.0.3:8333", "libre", "PREFERENTIAL_PEERING"),
	}
	s := ex.EnforceAll(ctx, targets)

	want := []string{"disconnectnode 10.0.0.1:8333", "setban 10.0.0.1 168h0m0s"}
	if !reflect.DeepEqual(node.calls, want) {
		t.Errorf("calls = %q, want %q", node.calls, want)
	}
	if s.Aborted != 2 || s.Banned != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestEnforcePreviewIssuesNoCalls(t *testing.T) {
	buf := captureLog(t)
	node := &fakeNode{}
	ex := New(node, Config{BanDuration: weekBan, Preview: true})

	targets := []peers.Record{
		peers.NewRecord("203.0.113.45:8333", "libre", "PREFERENTIAL_PEERING"),
		peers.NewRecord("xyz.onion:8333", "libre", "PREFERENTIAL_PEERING"),
	}
	s := ex.EnforceAll(context.Background(), targets)

	if len(node.calls) != 0 {
		t.Errorf("preview mode issued calls: %q", node.calls)
	}
	if s.Disconnected != 0 || s.Banned != 0 || s.Skipped != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
	out := buf.String()
	for _, want := range []string{"Would disconnect peer 203.0.113.45:8333", "Would ban IPv4 host 203.0.113.45", "Would skip ban for xyz.onion"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}
