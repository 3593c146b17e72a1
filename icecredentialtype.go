package rtc

import (
	"encoding/json"
	"fmt"
)

// ICECredentialType is how an ICEServer authenticates (spec §3 "ICE
// server"), matching the two schemes TURN/STUN servers actually accept.
type ICECredentialType int

const (
	// ICECredentialTypePassword is a long-term username/password pair
	// (RFC 5389 STUN long-term credentials).
	ICECredentialTypePassword ICECredentialType = iota + 1

	// ICECredentialTypeOauth is an OAuth access token (RFC 7635 TURN
	// third-party authorization).
	ICECredentialTypeOauth
)

const (
	iceCredentialTypePasswordStr = "password"
	iceCredentialTypeOauthStr    = "oauth"
)

func newICECredentialType(raw string) ICECredentialType {
	switch raw {
	case iceCredentialTypePasswordStr:
		return ICECredentialTypePassword
	case iceCredentialTypeOauthStr:
		return ICECredentialTypeOauth
	default:
		return ICECredentialType(Unknown)
	}
}

func (t ICECredentialType) String() string {
	switch t {
	case Unknown:
		return ""
	case ICECredentialTypePassword:
		return iceCredentialTypePasswordStr
	case ICECredentialTypeOauth:
		return iceCredentialTypeOauthStr
	default:
		return ErrUnknownType.Error()
	}
}

// UnmarshalJSON parses the JSON-encoded data and stores the result
func (t *ICECredentialType) UnmarshalJSON(b []byte) error {
	var val string
	var tmp ICECredentialType
	if err := json.Unmarshal(b, &val); err != nil {
		return err
	}

	tmp = newICECredentialType(val)

	if (tmp == ICECredentialType(Unknown)) && (val != "") {
		return fmt.Errorf("%w: (%s)", errInvalidICECredentialTypeString, val)
	}

	*t = tmp
	return nil
}

// MarshalJSON returns the JSON encoding
func (t ICECredentialType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}
