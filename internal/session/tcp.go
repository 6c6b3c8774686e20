package session

import (
	"context"
	"io"
	"log/slog"
	"net"
	"time"

	"portrelay/internal/rule"
	appErrors "portrelay/internal/shared/errors"
	"portrelay/internal/shared/goroutine"
	"portrelay/internal/strategy"
)

// dialTimeout bounds how long a single outbound dial may take before the
// inbound connection is given up on, matching the teacher's
// net.DialTimeout(..., 10*time.Second) in handleTCPConnection.
const dialTimeout = 10 * time.Second

// TCP binds one listener and, for each accepted connection, dials exactly
// one destination (its strategy is always round-robin — rule ingestion
// rejects TCP+Broadcast before a session exists) and splices the two
// streams bidirectionally until either side closes.
type TCP struct {
	Source   rule.Endpoint
	Strategy strategy.Strategy
	Logger   *slog.Logger
}

// Run binds the listener and accepts connections until ctx is cancelled.
func (t *TCP) Run(ctx context.Context) error {
	log := newSessionLogger(t.Logger, "tcp", 0).With("source", t.Source.String())

	listener, err := net.ListenTCP("tcp", &net.TCPAddr{IP: t.Source.IP, Port: int(t.Source.Port)})
	if err != nil {
		return appErrors.NewBindError("failed to bind tcp source", err.Error())
	}
	defer listener.Close()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	log.Debug("tcp session accepting")

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				log.Debug("tcp session cancelled")
				return nil
			}
			log.Warn("tcp accept error", "error", err)
			continue
		}

		dest := t.Strategy.NextDestinations()[0]
		goroutine.SafeGo(log, "tcp-splice", func() {
			splice(ctx, conn, dest, log)
		})
	}
}

// splice dials dest and copies bytes bidirectionally between client and
// dest until one side reaches EOF, half-closing the other's write side so
// its peer observes a clean EOF too — two independent pumps rather than a
// single select loop, per spec.md §9.
func splice(ctx context.Context, client net.Conn, dest rule.Endpoint, log *slog.Logger) {
	defer client.Close()

	upstream, err := net.DialTimeout("tcp", dest.String(), dialTimeout)
	if err != nil {
		log.Warn("tcp dial destination failed", "destination", dest.String(), "error", err)
		return
	}
	defer upstream.Close()

	done := make(chan struct{}, 2)

	pump := func(dst, src net.Conn) {
		defer func() { done <- struct{}{} }()
		io.Copy(dst, src)
		if halfCloser, ok := dst.(interface{ CloseWrite() error }); ok {
			halfCloser.CloseWrite()
		}
	}

	go pump(upstream, client)
	go pump(client, upstream)

	select {
	case <-ctx.Done():
		client.Close()
		upstream.Close()
		<-done
		<-done
	case <-done:
		<-done
	}
}
