package peers

import (
	"regexp"
	"strings"
)

// HostClass tells whether a host is an IP literal and therefore bannable.
type HostClass int

const (
	NonLiteral HostClass = iota
	IPv4Literal
	IPv6Literal
)

var hostClassStrings = map[HostClass]string{
	NonLiteral:  "non-literal",
	IPv4Literal: "IPv4",
	IPv6Literal: "IPv6",
}

// String returns the HostClass in human-readable form.
func (c HostClass) String() string {
	if s, ok := hostClassStrings[c]; ok {
		return s
	}
	return "unknown"
}

// Bannable reports whether setban accepts hosts of this class. Hostnames and
// onion identities are never banned.
func (c HostClass) Bannable() bool {
	return c == IPv4Literal || c == IPv6Literal
}

var (
	reBracketed = regexp.MustCompile(`^\[([^\]]+)\]:\d+$`)
	reHostPort  = regexp.MustCompile(`^([^:]*):\d+$`)

	// Four dot-separated groups of 1 to 3 digits. Octet ranges are not
	// checked, so 999.999.999.999 still counts as IPv4.
	reIPv4 = regexp.MustCompile(`^\d{1,3}(?:\.\d{1,3}){3}$`)
)

// ExtractHost strips the port from a getpeerinfo address. "[v6]:port" and
// "host:port" forms are recognized; anything else is returned unchanged. A
// bare ":port" yields an empty host, which classifies as NonLiteral.
func ExtractHost(addr string) string {
	if m := reBracketed.FindStringSubmatch(addr); m != nil {
		return m[1]
	}
	if m := reHostPort.FindStringSubmatch(addr); m != nil {
		return m[1]
	}
	return addr
}

// ClassifyHost classifies a host produced by ExtractHost.
func ClassifyHost(host string) HostClass {
	switch {
	case reIPv4.MatchString(host):
		return IPv4Literal
	case strings.Contains(host, ":"):
		return IPv6Literal
	default:
		return NonLiteral
	}
}
