// Package peers turns a node's getpeerinfo snapshot into typed records and
// decides which of them are removal targets.
package peers

import (
	"sort"
)

// Record is one entry of a getpeerinfo snapshot. Addr identifies a
// connection (host and port), not a host. Records are built fresh for every
// pass and never mutated afterwards.
type Record struct {
	Addr           string
	ConnectionType string
	services       map[string]struct{}
}

// NewRecord builds a record advertising the given service names.
func NewRecord(addr, connectionType string, services ...string) Record {
	set := make(map[string]struct{}, len(services))
	for _, s := range services {
		set[s] = struct{}{}
	}
	return Record{Addr: addr, ConnectionType: connectionType, services: set}
}

// HasService reports whether name is among the advertised service names.
func (r Record) HasService(name string) bool {
	_, ok := r.services[name]
	return ok
}

// Services returns the advertised service names, sorted.
func (r Record) Services() []string {
	out := make([]string, 0, len(r.services))
	for s := range r.services {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
