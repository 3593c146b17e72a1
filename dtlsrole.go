package rtc

import "github.com/sansio/rtc/internal/dtls"

// DTLSRole indicates the role of the DTLS transport.
type DTLSRole byte

const (
	// DTLSRoleAuto defines the DLTS role is determined based on
	// the resolved ICE role: the ICE controlled role acts as the DTLS
	// client and the ICE controlling role acts as the DTLS server.
	DTLSRoleAuto DTLSRole = iota + 1

	// DTLSRoleClient defines the DTLS client role.
	DTLSRoleClient

	// DTLSRoleServer defines the DTLS server role.
	DTLSRoleServer
)

func (r DTLSRole) String() string {
	switch r {
	case DTLSRoleAuto:
		return "auto"
	case DTLSRoleClient:
		return "client"
	case DTLSRoleServer:
		return "server"
	default:
		return ErrUnknownType.Error()
	}
}

// resolve turns DTLSRoleAuto into a concrete client/server role given
// whether the local ICE agent ended up controlling (spec §3 DTLS role
// resolution: "the ICE controlled role acts as the DTLS client").
func (r DTLSRole) resolve(iceControlling bool) dtls.Role {
	switch r {
	case DTLSRoleClient:
		return dtls.RoleClient
	case DTLSRoleServer:
		return dtls.RoleServer
	default:
		if iceControlling {
			return dtls.RoleServer
		}
		return dtls.RoleClient
	}
}
