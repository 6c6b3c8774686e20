package rule

import (
	"encoding/json"
	"fmt"
	"net"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"

	"portrelay/internal/shared/errors"
)

// Endpoint is a (IP address, port) pair naming a socket address. Its JSON
// wire form is the single "<ip>:<port>" string spec.md's Rule JSON uses,
// not a nested object — Endpoint implements json.Marshaler/Unmarshaler so
// that Rule's fields serialize directly to that form.
type Endpoint struct {
	IP   net.IP
	Port uint16
}

// ParseEndpoint parses "<ip>:<port>" into an Endpoint.
func ParseEndpoint(s string) (Endpoint, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Endpoint{}, errors.NewConfigError("invalid endpoint", fmt.Sprintf("%q: %v", s, err))
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return Endpoint{}, errors.NewConfigError("invalid endpoint host", fmt.Sprintf("%q", s))
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		return Endpoint{}, errors.NewConfigError("invalid endpoint port", fmt.Sprintf("%q", s))
	}
	return Endpoint{IP: ip, Port: uint16(port)}, nil
}

// String renders the endpoint back to "<ip>:<port>".
func (e Endpoint) String() string {
	return net.JoinHostPort(e.IP.String(), fmt.Sprintf("%d", e.Port))
}

// Equal reports whether e and o name the same socket address.
func (e Endpoint) Equal(o Endpoint) bool {
	return e.IP.Equal(o.IP) && e.Port == o.Port
}

func (e Endpoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

func (e *Endpoint) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseEndpoint(s)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// EndpointDecodeHook is a mapstructure.DecodeHookFuncType that lets viper
// turn an "<ip>:<port>" string into an Endpoint the same way UnmarshalJSON
// does for the HTTP path. Without it, mapstructure decoding a string into
// Endpoint's IP/Port struct fields fails with "source expected a map, got
// 'string'", since it never looks at json.Unmarshaler. Grounded on
// nabbar-golib's file/perm.ViperDecoderHook pattern of checking both the
// source kind and the target type before delegating to the type's own
// string parser.
func EndpointDecodeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String {
			return data, nil
		}
		if to != reflect.TypeOf(Endpoint{}) {
			return data, nil
		}
		s, ok := data.(string)
		if !ok {
			return data, nil
		}
		return ParseEndpoint(s)
	}
}
