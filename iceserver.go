package rtc

import (
	"fmt"
	"strings"

	"github.com/sansio/rtc/pkg/rtcerr"
)

// ICEServer describes a single STUN and TURN server that can be used by
// the ICE agent to establish a connection with a peer.
type ICEServer struct {
	URLs           []string
	Username       string
	Credential     interface{}
	CredentialType ICECredentialType
}

// iceServerScheme is the subset of RFC 7064/7065 schemes this config
// surface accepts; full STUN/TURN URI parsing (query parameters, transport
// hints) is a TurnClient/ICE-gathering concern, not a Configuration one.
type iceServerScheme int

const (
	schemeSTUN iceServerScheme = iota
	schemeSTUNS
	schemeTURN
	schemeTURNS
)

func parseICEServerURL(raw string) (iceServerScheme, error) {
	switch {
	case strings.HasPrefix(raw, "stuns:"):
		return schemeSTUNS, nil
	case strings.HasPrefix(raw, "stun:"):
		return schemeSTUN, nil
	case strings.HasPrefix(raw, "turns:"):
		return schemeTURNS, nil
	case strings.HasPrefix(raw, "turn:"):
		return schemeTURN, nil
	default:
		return 0, fmt.Errorf("%w: %s", errInvalidICEServerURL, raw)
	}
}

func (s ICEServer) validate() error {
	for _, raw := range s.URLs {
		scheme, err := parseICEServerURL(raw)
		if err != nil {
			return classify(rtcerr.KindConfig, err)
		}
		if scheme != schemeTURN && scheme != schemeTURNS {
			continue
		}
		// https://www.w3.org/TR/webrtc/#set-the-configuration (step #11.3.2)
		if s.Username == "" || s.Credential == nil {
			return classify(rtcerr.KindConfig, ErrNoTurnCredentials)
		}
		switch s.CredentialType {
		case ICECredentialTypePassword:
			if _, ok := s.Credential.(string); !ok {
				return classify(rtcerr.KindConfig, ErrTurnCredentials)
			}
		case ICECredentialTypeOauth:
			if _, ok := s.Credential.(OAuthCredential); !ok {
				return classify(rtcerr.KindConfig, ErrTurnCredentials)
			}
		default:
			return classify(rtcerr.KindConfig, ErrTurnCredentials)
		}
	}
	return nil
}

// OAuthCredential represents a TURN OAuth credential (RFC 7635), accepted
// but not exercised by any TURN client in this repository (spec §1
// Non-goal: TURN relay internals).
type OAuthCredential struct {
	MACKey      string
	AccessToken string
}
