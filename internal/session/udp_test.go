package session

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portrelay/internal/rule"
	appErrors "portrelay/internal/shared/errors"
	"portrelay/internal/strategy"
)

func freeUDPEndpoint(t *testing.T) (rule.Endpoint, *net.UDPConn) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 0})
	require.NoError(t, err)
	addr := conn.LocalAddr().(*net.UDPAddr)
	return rule.Endpoint{IP: addr.IP, Port: uint16(addr.Port)}, conn
}

// TestUDP_BroadcastFanOut mirrors spec.md §8 scenario 1: a broadcast rule
// relays one inbound datagram to every destination.
func TestUDP_BroadcastFanOut(t *testing.T) {
	dest1Ep, dest1 := freeUDPEndpoint(t)
	defer dest1.Close()
	dest2Ep, dest2 := freeUDPEndpoint(t)
	defer dest2.Close()

	sourceEp, sourceConn := freeUDPEndpoint(t)
	sourceConn.Close() // session.Run rebinds the same address

	strat := strategy.NewBroadcast([]rule.Endpoint{dest1Ep, dest2Ep})
	sess := &UDP{Source: sourceEp, Strategy: strat}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- sess.Run(ctx) }()
	time.Sleep(50 * time.Millisecond) // let the session bind before we send

	client, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: sourceEp.IP, Port: int(sourceEp.Port)})
	require.NoError(t, err)
	defer client.Close()
	_, err = client.Write([]byte("Just a test"))
	require.NoError(t, err)

	buf := make([]byte, 64)
	dest1.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := dest1.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "Just a test", string(buf[:n]))

	dest2.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err = dest2.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "Just a test", string(buf[:n]))
}

// TestUDP_RoundRobinRotation mirrors spec.md §8 scenario 2.
func TestUDP_RoundRobinRotation(t *testing.T) {
	dest1Ep, dest1 := freeUDPEndpoint(t)
	defer dest1.Close()
	dest2Ep, dest2 := freeUDPEndpoint(t)
	defer dest2.Close()

	sourceEp, sourceConn := freeUDPEndpoint(t)
	sourceConn.Close()

	strat := strategy.NewRoundRobin([]rule.Endpoint{dest1Ep, dest2Ep})
	sess := &UDP{Source: sourceEp, Strategy: strat}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sess.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client, err := net.DialUDP("udp", nil, &net.UDPAddr{IP: sourceEp.IP, Port: int(sourceEp.Port)})
	require.NoError(t, err)
	defer client.Close()

	payloads := []string{"p1", "p2", "p3", "p4"}
	for _, p := range payloads {
		_, err := client.Write([]byte(p))
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}

	buf := make([]byte, 64)
	dest1.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _ := dest1.Read(buf)
	require.Equal(t, "p1", string(buf[:n]))
	n, _ = dest1.Read(buf)
	require.Equal(t, "p3", string(buf[:n]))

	dest2.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _ = dest2.Read(buf)
	require.Equal(t, "p2", string(buf[:n]))
	n, _ = dest2.Read(buf)
	require.Equal(t, "p4", string(buf[:n]))
}

func TestUDP_BindErrorIsBindKind(t *testing.T) {
	occupiedEp, occupied := freeUDPEndpoint(t)
	defer occupied.Close()

	sess := &UDP{Source: occupiedEp, Strategy: strategy.NewBroadcast(nil)}
	err := sess.Run(context.Background())
	require.Error(t, err)
	appErr := appErrors.GetAppError(err)
	require.NotNil(t, appErr)
	require.Equal(t, appErrors.ErrorTypeBind, appErr.Type)
}

func TestUDP_CancellationStopsSession(t *testing.T) {
	sourceEp, sourceConn := freeUDPEndpoint(t)
	sourceConn.Close()

	sess := &UDP{Source: sourceEp, Strategy: strategy.NewBroadcast(nil)}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not terminate after cancellation")
	}
}
