package rule

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEndpoint(t *testing.T, s string) Endpoint {
	t.Helper()
	ep, err := ParseEndpoint(s)
	require.NoError(t, err)
	return ep
}

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{
			name: "valid udp broadcast",
			rule: Rule{
				Protocol:     ProtocolUDP,
				Mode:         ModeBroadcast,
				Source:       mustEndpoint(t, "127.0.0.1:8080"),
				Destinations: []Endpoint{mustEndpoint(t, "127.0.0.1:8081")},
			},
		},
		{
			name: "valid tcp round-robin",
			rule: Rule{
				Protocol:     ProtocolTCP,
				Mode:         ModeRoundRobin,
				Source:       mustEndpoint(t, "127.0.0.1:7000"),
				Destinations: []Endpoint{mustEndpoint(t, "127.0.0.1:7001")},
			},
		},
		{
			name: "tcp broadcast rejected",
			rule: Rule{
				Protocol: ProtocolTCP,
				Mode:     ModeBroadcast,
				Source:   mustEndpoint(t, "127.0.0.1:7000"),
				Destinations: []Endpoint{
					mustEndpoint(t, "127.0.0.1:7001"),
					mustEndpoint(t, "127.0.0.1:7002"),
				},
			},
			wantErr: true,
		},
		{
			name: "empty destinations rejected",
			rule: Rule{
				Protocol: ProtocolUDP,
				Mode:     ModeBroadcast,
				Source:   mustEndpoint(t, "127.0.0.1:8080"),
			},
			wantErr: true,
		},
		{
			name: "invalid protocol rejected",
			rule: Rule{
				Protocol:     "icmp",
				Mode:         ModeBroadcast,
				Source:       mustEndpoint(t, "127.0.0.1:8080"),
				Destinations: []Endpoint{mustEndpoint(t, "127.0.0.1:8081")},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRule_Normalize_DefaultsModeByProtocol(t *testing.T) {
	udp := Rule{Protocol: ProtocolUDP}
	udp.Normalize()
	assert.Equal(t, ModeBroadcast, udp.Mode)

	tcp := Rule{Protocol: ProtocolTCP}
	tcp.Normalize()
	assert.Equal(t, ModeRoundRobin, tcp.Mode)
}

func TestRule_JSONRoundTrip(t *testing.T) {
	r := Rule{
		Protocol: ProtocolUDP,
		Mode:     ModeRoundRobin,
		Source:   mustEndpoint(t, "127.0.0.1:9000"),
		Destinations: []Endpoint{
			mustEndpoint(t, "127.0.0.1:9001"),
			mustEndpoint(t, "127.0.0.1:9002"),
		},
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded Rule
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, r.Protocol, decoded.Protocol)
	assert.Equal(t, r.Mode, decoded.Mode)
	assert.True(t, r.Source.Equal(decoded.Source))
	require.Len(t, decoded.Destinations, len(r.Destinations))
	for i := range r.Destinations {
		assert.True(t, r.Destinations[i].Equal(decoded.Destinations[i]))
	}
}

func TestRule_JSONFieldNamesAreLowercase(t *testing.T) {
	r := Rule{
		Protocol:     ProtocolTCP,
		Mode:         ModeRoundRobin,
		Source:       mustEndpoint(t, "127.0.0.1:7000"),
		Destinations: []Endpoint{mustEndpoint(t, "127.0.0.1:7001")},
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "tcp", raw["protocol"])
	assert.Equal(t, "round-robin", raw["mode"])
	assert.Contains(t, raw, "source")
	assert.Contains(t, raw, "destinations")
}
