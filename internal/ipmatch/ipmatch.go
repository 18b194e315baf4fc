// Package ipmatch decides whether a client IP belongs to an allow-list of
// patterns. A pattern is either a literal IPv4/IPv6 address, compared for
// equality after normalization, or an IPv4 CIDR block. IPv6 CIDR notation is
// not supported; IPv6 clients can only be matched by literal address.
package ipmatch

import (
	"net"
	"strconv"
	"strings"
)

// Matches reports whether clientIP matches any of the given patterns.
// An empty pattern list matches nothing. Malformed patterns never match
// and never cause an error to surface to the caller.
func Matches(clientIP string, patterns []string) bool {
	for _, pattern := range patterns {
		if matchOne(clientIP, pattern) {
			return true
		}
	}
	return false
}

// matchOne checks a single pattern against the client IP.
func matchOne(clientIP, pattern string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}

	if strings.Contains(pattern, "/") {
		return matchCIDR(clientIP, pattern)
	}

	return matchLiteral(clientIP, pattern)
}

// matchLiteral compares a literal address pattern against the client IP.
// Both sides are normalized through net.ParseIP so that equivalent textual
// forms (e.g. "::1" and "0:0:0:0:0:0:0:1") compare equal. If either side
// does not parse, the comparison falls back to the raw strings.
func matchLiteral(clientIP, pattern string) bool {
	a := net.ParseIP(clientIP)
	b := net.ParseIP(pattern)
	if a == nil || b == nil {
		return clientIP == pattern
	}
	return a.Equal(b)
}

// matchCIDR checks an IPv4 CIDR pattern ("a.b.c.d/prefix") against the
// client IP using 32-bit mask arithmetic. Non-IPv4 input on either side,
// or a malformed pattern, never matches.
func matchCIDR(clientIP, pattern string) bool {
	network, prefix, ok := splitCIDR(pattern)
	if !ok {
		return false
	}

	ip, ok := ipv4ToUint32(clientIP)
	if !ok {
		return false
	}
	netAddr, ok := ipv4ToUint32(network)
	if !ok {
		return false
	}

	var mask uint32
	if prefix > 0 {
		mask = ^uint32(0) << (32 - prefix)
	}

	return ip&mask == netAddr&mask
}

// splitCIDR splits "network/prefix" and validates the prefix range 0..32.
func splitCIDR(pattern string) (network string, prefix int, ok bool) {
	idx := strings.IndexByte(pattern, '/')
	if idx < 0 {
		return "", 0, false
	}

	network = pattern[:idx]
	prefix, err := strconv.Atoi(pattern[idx+1:])
	if err != nil || prefix < 0 || prefix > 32 {
		return "", 0, false
	}
	return network, prefix, true
}

// ipv4ToUint32 converts a dotted-quad IPv4 address to its 32-bit value.
func ipv4ToUint32(s string) (uint32, bool) {
	ip := net.ParseIP(s)
	if ip == nil {
		return 0, false
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, false
	}
	return uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3]), true
}
