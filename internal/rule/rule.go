// Package rule holds the Rule value type, its identifiers, and the
// concurrent store that indexes them — grounded on
// _examples/original_source/src/session/rules.rs (Rule, Database) and the
// teacher's tagged-value-object style
// (internal/domain/forward/valueobjects/*.go).
package rule

import (
	"portrelay/internal/shared/errors"
)

// ID is an opaque monotonic non-negative integer, stable for the lifetime
// of the process. Never reused after a delete tombstones it.
type ID uint64

// Rule is a forwarding declaration: one source endpoint fanned out (or
// rotated) to one or more destination endpoints under a protocol and mode.
type Rule struct {
	Protocol     Protocol   `json:"protocol" validate:"required"`
	Mode         Mode       `json:"mode,omitempty"`
	Source       Endpoint   `json:"source" validate:"required"`
	Destinations []Endpoint `json:"destinations" validate:"required,min=1"`
}

// Normalize fills in the protocol-appropriate default Mode when the caller
// left it blank, per spec.md §3 ("Default is Broadcast for UDP,
// RoundRobin for TCP").
func (r *Rule) Normalize() {
	if r.Mode == modeUnspecified {
		r.Mode = DefaultMode(r.Protocol)
	}
}

// Validate checks the invariants spec.md §3/§8 place on a standalone Rule:
// a known protocol and mode, at least one destination, and TCP never paired
// with Broadcast (a TCP connection has exactly one upstream peer). It does
// NOT check bindability or collision with other rules — those are the
// session's and the store's concerns respectively.
func (r Rule) Validate() error {
	if !r.Protocol.IsValid() {
		return errors.NewConfigError("invalid protocol", string(r.Protocol))
	}
	if !r.Mode.IsValid() {
		return errors.NewConfigError("invalid mode", string(r.Mode))
	}
	if len(r.Destinations) == 0 {
		return errors.NewConfigError("rule must have at least one destination")
	}
	if r.Protocol == ProtocolTCP && r.Mode == ModeBroadcast {
		return errors.NewConfigError("tcp rules cannot use broadcast mode",
			"a TCP connection has exactly one upstream peer")
	}
	return nil
}
