package session

import (
	"context"
	"log/slog"
	"net"

	"portrelay/internal/rule"
	appErrors "portrelay/internal/shared/errors"
	"portrelay/internal/shared/utils/logutil"
	"portrelay/internal/strategy"
)

// udpDebugPreviewBytes bounds how much of a datagram's payload gets
// echoed into debug logs, via logutil.TruncateForLog.
const udpDebugPreviewBytes = 32

// udpBufferSize is the fixed MTU-sized receive buffer spec.md §4.3
// specifies. Datagrams larger than this are truncated on receive — this is
// platform (kernel socket layer) behavior, not something the session can
// recover once recv has returned, so §9's open question ("consider
// documenting or adding a warning") is resolved here by logging a warning
// whenever a read fills the buffer exactly, which is the only observable
// signal of possible truncation available to recvfrom.
const udpBufferSize = 1500

// UDP binds one datagram socket and relays each received packet to the
// destinations its strategy picks for that packet. Stateless: it has no
// NAT-like per-client table and never relays a destination's reply back to
// the original sender, per spec.md's explicit non-goals.
type UDP struct {
	Source   rule.Endpoint
	Strategy strategy.Strategy
	Logger   *slog.Logger
}

// Run binds the source socket and relays datagrams until ctx is cancelled.
// A bind failure is returned as a *errors.AppError of bind kind, fatal to
// this session but never to the process. Send failures per destination are
// logged and the loop continues, per spec.md §4.3.
func (u *UDP) Run(ctx context.Context) error {
	log := newSessionLogger(u.Logger, "udp", 0).With("source", u.Source.String())

	addr := &net.UDPAddr{IP: u.Source.IP, Port: int(u.Source.Port)}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return appErrors.NewBindError("failed to bind udp source", err.Error())
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	log.Debug("udp session listening")

	buf := make([]byte, udpBufferSize)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				log.Debug("udp session cancelled")
				return nil
			}
			log.Warn("udp read error", "error", err)
			continue
		}
		if n == 0 {
			log.Debug("udp session terminated by zero-byte receive")
			return nil
		}
		if n == udpBufferSize {
			log.Warn("udp datagram may have been truncated", "buffer_size", udpBufferSize)
		}
		log.Debug("received datagram", "bytes", n, "preview", logutil.TruncateForLog(string(buf[:n]), udpDebugPreviewBytes))

		for _, dest := range u.Strategy.NextDestinations() {
			dst := &net.UDPAddr{IP: dest.IP, Port: int(dest.Port)}
			if _, err := conn.WriteToUDP(buf[:n], dst); err != nil {
				log.Warn("udp send error", "destination", dest.String(), "error", err)
				continue
			}
		}
	}
}
