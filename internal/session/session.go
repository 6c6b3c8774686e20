// Package session runs the per-rule forwarding loops (UDP datagram relay,
// TCP splice) and the manager that owns their lifecycle. Grounded on
// _examples/original_source/src/{udp.rs,protocol/tcp.rs,session/mod.rs} for
// the shape of each loop and the dynamic task-set manager, and on the
// teacher's internal/infrastructure/services/forwarder/forwarder.go for the
// idiomatic Go translation (context cancellation, goroutine.SafeGo,
// io.Copy-based splice).
package session

import (
	"context"
	"log/slog"
)

// Session is a running forwarding loop for one rule: one bound socket plus
// its dispatch loop. Run binds the socket itself and blocks until ctx is
// cancelled or a fatal error (a bind failure at the start of Run) ends it.
type Session interface {
	Run(ctx context.Context) error
}

// newSessionLogger scopes a base logger to one rule, mirroring
// sdk/forward/forwarder.go's `logger.With("rule_id", rule.ID, ...)`.
func newSessionLogger(base *slog.Logger, kind string, ruleID uint64) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	return base.With("rule_id", ruleID, "session", kind)
}
