package rtc

import (
	"fmt"

	"github.com/sansio/rtc/internal/ice"
)

// defaultNetworkTypes is what gets gathered when SettingEngine.SetNetworkTypes
// has not restricted the candidate set (spec §3 "ICE candidate"). TCP
// types are left out of the default; host gathering emits only UDP
// candidates, so listing a TCP type in SetNetworkTypes adds no candidates
// either.
var defaultNetworkTypes = []NetworkType{
	NetworkTypeUDP4,
	NetworkTypeUDP6,
}

// NetworkType is the transport/IP-version combination a candidate was
// gathered over.
type NetworkType int

const (
	// NetworkTypeUDP4 indicates UDP over IPv4.
	NetworkTypeUDP4 NetworkType = iota + 1

	// NetworkTypeUDP6 indicates UDP over IPv6.
	NetworkTypeUDP6

	// NetworkTypeTCP4 indicates TCP over IPv4.
	NetworkTypeTCP4

	// NetworkTypeTCP6 indicates TCP over IPv6.
	NetworkTypeTCP6
)

const (
	networkTypeUDP4Str = "udp4"
	networkTypeUDP6Str = "udp6"
	networkTypeTCP4Str = "tcp4"
	networkTypeTCP6Str = "tcp6"
)

func (t NetworkType) String() string {
	switch t {
	case NetworkTypeUDP4:
		return networkTypeUDP4Str
	case NetworkTypeUDP6:
		return networkTypeUDP6Str
	case NetworkTypeTCP4:
		return networkTypeTCP4Str
	case NetworkTypeTCP6:
		return networkTypeTCP6Str
	default:
		return ErrUnknownType.Error()
	}
}

func newNetworkType(raw string) (NetworkType, error) {
	switch raw {
	case networkTypeUDP4Str:
		return NetworkTypeUDP4, nil
	case networkTypeUDP6Str:
		return NetworkTypeUDP6, nil
	case networkTypeTCP4Str:
		return NetworkTypeTCP4, nil
	case networkTypeTCP6Str:
		return NetworkTypeTCP6, nil
	default:
		return NetworkType(Unknown), fmt.Errorf("unknown network type: %s", raw)
	}
}

// toICENetworkType maps the public enum onto internal/ice's own NetworkType
// (a separate type so internal/ice stays importable without the rest of
// this package), used to filter candidate gathering by SettingEngine's
// configured ICENetworkTypes.
func toICENetworkType(t NetworkType) (ice.NetworkType, bool) {
	switch t {
	case NetworkTypeUDP4:
		return ice.NetworkTypeUDP4, true
	case NetworkTypeUDP6:
		return ice.NetworkTypeUDP6, true
	case NetworkTypeTCP4:
		return ice.NetworkTypeTCP4, true
	case NetworkTypeTCP6:
		return ice.NetworkTypeTCP6, true
	default:
		return 0, false
	}
}

// toICENetworkTypes converts a SettingEngine-configured allow-list, falling
// back to defaultNetworkTypes when the host never called SetNetworkTypes.
func toICENetworkTypes(types []NetworkType) []ice.NetworkType {
	if len(types) == 0 {
		types = defaultNetworkTypes
	}
	out := make([]ice.NetworkType, 0, len(types))
	for _, t := range types {
		if it, ok := toICENetworkType(t); ok {
			out = append(out, it)
		}
	}
	return out
}
