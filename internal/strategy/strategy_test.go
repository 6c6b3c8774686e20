package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portrelay/internal/rule"
)

func mustEndpoint(t *testing.T, s string) rule.Endpoint {
	t.Helper()
	ep, err := rule.ParseEndpoint(s)
	require.NoError(t, err)
	return ep
}

func TestBroadcast_ReturnsAllDestinationsEveryCall(t *testing.T) {
	peers := []rule.Endpoint{
		mustEndpoint(t, "127.0.0.1:9001"),
		mustEndpoint(t, "127.0.0.1:9002"),
	}
	b := NewBroadcast(peers)

	for i := 0; i < 3; i++ {
		got := b.NextDestinations()
		require.Len(t, got, 2)
		assert.True(t, got[0].Equal(peers[0]))
		assert.True(t, got[1].Equal(peers[1]))
	}
}

func TestRoundRobin_VisitsEachDestinationOnceModuloWrap(t *testing.T) {
	peers := []rule.Endpoint{
		mustEndpoint(t, "127.0.0.1:9001"),
		mustEndpoint(t, "127.0.0.1:9002"),
	}
	rr := NewRoundRobin(peers)

	var seen []rule.Endpoint
	for i := 0; i < 4; i++ {
		dest := rr.NextDestinations()
		require.Len(t, dest, 1)
		seen = append(seen, dest[0])
	}

	assert.True(t, seen[0].Equal(peers[0]))
	assert.True(t, seen[1].Equal(peers[1]))
	assert.True(t, seen[2].Equal(peers[0]))
	assert.True(t, seen[3].Equal(peers[1]))
}

func TestRoundRobin_SingleDestinationAlwaysReturnsIt(t *testing.T) {
	peers := []rule.Endpoint{mustEndpoint(t, "127.0.0.1:7001")}
	rr := NewRoundRobin(peers)

	for i := 0; i < 3; i++ {
		dest := rr.NextDestinations()
		require.Len(t, dest, 1)
		assert.True(t, dest[0].Equal(peers[0]))
	}
}

func TestNew_SelectsStrategyByMode(t *testing.T) {
	peers := []rule.Endpoint{
		mustEndpoint(t, "127.0.0.1:9001"),
		mustEndpoint(t, "127.0.0.1:9002"),
	}

	broadcastRule := rule.Rule{Mode: rule.ModeBroadcast, Destinations: peers}
	_, ok := New(broadcastRule).(*Broadcast)
	assert.True(t, ok)

	rrRule := rule.Rule{Mode: rule.ModeRoundRobin, Destinations: peers}
	_, ok = New(rrRule).(*RoundRobin)
	assert.True(t, ok)
}
