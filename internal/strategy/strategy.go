// Package strategy implements the per-session destination picker: the
// Broadcast and RoundRobin distribution modes. Grounded on
// _examples/original_source/src/session/strategy.rs (Strategy trait,
// BroadcastStrategy, RoundRobinStrategy). Strategy is a Go interface with
// two implementations, Broadcast and RoundRobin, and New picks one by the
// rule's mode; the interface itself does not restrict which types may
// implement it. RoundRobin keeps a mutable cursor local to one session.
package strategy

import "portrelay/internal/rule"

// Strategy selects destinations for the next packet or connection. State
// is owned by a single session and is never shared or synchronized across
// sessions — two concurrent sessions never share a Strategy value.
type Strategy interface {
	// NextDestinations returns the endpoints the current packet or
	// connection should be dispatched to. Broadcast returns every
	// destination on every call; RoundRobin returns exactly one and
	// advances its cursor.
	NextDestinations() []rule.Endpoint
}

// New builds the strategy for a rule's mode. Rule ingestion (rule.Rule.
// Validate) is responsible for rejecting TCP+Broadcast before a session
// ever gets this far — New does not re-check it.
func New(r rule.Rule) Strategy {
	switch r.Mode {
	case rule.ModeRoundRobin:
		return NewRoundRobin(r.Destinations)
	default:
		return NewBroadcast(r.Destinations)
	}
}

// Broadcast returns every destination, in list order, on every call.
type Broadcast struct {
	peers []rule.Endpoint
}

// NewBroadcast builds a Broadcast strategy over peers.
func NewBroadcast(peers []rule.Endpoint) *Broadcast {
	return &Broadcast{peers: append([]rule.Endpoint(nil), peers...)}
}

func (b *Broadcast) NextDestinations() []rule.Endpoint {
	out := make([]rule.Endpoint, len(b.peers))
	copy(out, b.peers)
	return out
}

// RoundRobin returns exactly one destination per call, cycling through
// peers in list order and wrapping back to the start.
type RoundRobin struct {
	peers []rule.Endpoint
	next  int
}

// NewRoundRobin builds a RoundRobin strategy over peers, starting at index 0.
func NewRoundRobin(peers []rule.Endpoint) *RoundRobin {
	return &RoundRobin{peers: append([]rule.Endpoint(nil), peers...)}
}

func (r *RoundRobin) NextDestinations() []rule.Endpoint {
	dest := r.peers[r.next]
	r.next++
	if r.next >= len(r.peers) {
		r.next = 0
	}
	return []rule.Endpoint{dest}
}
