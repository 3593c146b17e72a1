// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtc

import (
	"errors"
	"fmt"
	"strings"
)

var errICEProtocolUnknown = errors.New("unknown ice protocol")

// ICEProtocol is the transport scheme in a STUN/TURN server URL (spec §3
// "ICE server"), e.g. the `?transport=` param of a `turn:` URL.
type ICEProtocol int

const (
	// ICEProtocolUnknown is the enum's zero value.
	ICEProtocolUnknown ICEProtocol = iota

	// ICEProtocolUDP is the default transport for STUN/TURN.
	ICEProtocolUDP

	// ICEProtocolTCP is used when UDP is blocked on the network path.
	ICEProtocolTCP
)

const (
	iceProtocolUDPStr = "udp"
	iceProtocolTCPStr = "tcp"
)

// NewICEProtocol takes a string and converts it to ICEProtocol
func NewICEProtocol(raw string) (ICEProtocol, error) {
	switch {
	case strings.EqualFold(iceProtocolUDPStr, raw):
		return ICEProtocolUDP, nil
	case strings.EqualFold(iceProtocolTCPStr, raw):
		return ICEProtocolTCP, nil
	default:
		return ICEProtocolUnknown, fmt.Errorf("%w: %s", errICEProtocolUnknown, raw)
	}
}

func (t ICEProtocol) String() string {
	switch t {
	case ICEProtocolUDP:
		return iceProtocolUDPStr
	case ICEProtocolTCP:
		return iceProtocolTCPStr
	default:
		return ErrUnknownType.Error()
	}
}
