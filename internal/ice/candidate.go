// Package ice implements the sans-I/O ICE agent (spec §4.3): candidate
// gathering, pairing, connectivity checks, triggered checks, role
// conflict resolution, nomination, keepalives, liveness timers, and
// restart. It drives no sockets and starts no goroutines; all of it is
// handle_read/handle_timeout/poll_write/poll_event/poll_timeout, exactly
// the contract spec §4.3 names.
package ice

import (
	"fmt"
	"net"

	"github.com/google/uuid"
)

// CandidateType enumerates the ICE candidate types (spec §3).
type CandidateType int

const (
	CandidateTypeHost CandidateType = iota
	CandidateTypeServerReflexive
	CandidateTypePeerReflexive
	CandidateTypeRelay
)

func (t CandidateType) String() string {
	switch t {
	case CandidateTypeHost:
		return "host"
	case CandidateTypeServerReflexive:
		return "srflx"
	case CandidateTypePeerReflexive:
		return "prflx"
	case CandidateTypeRelay:
		return "relay"
	default:
		return "unknown"
	}
}

// typePreference gives the RFC 5245 §4.1.2.2 default type preference used
// when deriving a priority.
func (t CandidateType) typePreference() int {
	switch t {
	case CandidateTypeHost:
		return 126
	case CandidateTypePeerReflexive:
		return 110
	case CandidateTypeServerReflexive:
		return 100
	case CandidateTypeRelay:
		return 0
	default:
		return 0
	}
}

// NetworkType enumerates the transport/IP-version combinations a candidate
// can be gathered on.
type NetworkType int

const (
	NetworkTypeUDP4 NetworkType = iota
	NetworkTypeUDP6
	NetworkTypeTCP4
	NetworkTypeTCP6
)

// TCPType enumerates the optional TCP candidate sub-type.
type TCPType int

const (
	TCPTypeNone TCPType = iota
	TCPTypeActive
	TCPTypePassive
	TCPTypeSimultaneousOpen
)

// Candidate is an ICE candidate (spec §3).
type Candidate struct {
	ID             string
	Type           CandidateType
	Network        NetworkType
	Address        string
	Port           int
	ResolvedAddr   *net.UDPAddr
	Foundation     string
	Priority       uint32
	Component      int
	RelatedAddress string
	RelatedPort    int
	TCPType        TCPType

	mdnsPending  bool
	mdnsHostname string
}

// NewHostCandidate constructs a host candidate. Addresses ending in
// ".local" are marked pending mDNS resolution per spec §3 and will not
// resolve to a usable ResolvedAddr until the mDNS query subsystem answers
// (see mdns.go).
func NewHostCandidate(network NetworkType, address string, port int, component int) *Candidate {
	c := &Candidate{
		ID:        uuid.NewString(),
		Type:      CandidateTypeHost,
		Network:   network,
		Address:   address,
		Port:      port,
		Component: component,
	}
	c.Foundation = computeFoundation(c)
	c.Priority = computePriority(c, 0)
	if isMDNSName(address) {
		c.mdnsPending = true
		c.mdnsHostname = address
	} else {
		c.ResolvedAddr = &net.UDPAddr{IP: net.ParseIP(address), Port: port}
	}
	return c
}

// NewServerReflexiveCandidate constructs a srflx candidate learned via
// STUN Binding, with the host base it was derived from for RELATED-ADDRESS.
func NewServerReflexiveCandidate(network NetworkType, mapped *net.UDPAddr, base *Candidate, component int) *Candidate {
	c := &Candidate{
		ID:             uuid.NewString(),
		Type:           CandidateTypeServerReflexive,
		Network:        network,
		Address:        mapped.IP.String(),
		Port:           mapped.Port,
		ResolvedAddr:   mapped,
		Component:      component,
		RelatedAddress: base.Address,
		RelatedPort:    base.Port,
	}
	c.Foundation = computeFoundation(c)
	c.Priority = computePriority(c, 1)
	return c
}

// NewPeerReflexiveCandidate constructs a prflx candidate discovered from an
// inbound Binding request whose source address did not match any known
// remote candidate (spec §4.3 Triggered checks).
func NewPeerReflexiveCandidate(network NetworkType, addr *net.UDPAddr, priority uint32, component int) *Candidate {
	c := &Candidate{
		ID:           uuid.NewString(),
		Type:         CandidateTypePeerReflexive,
		Network:      network,
		Address:      addr.IP.String(),
		Port:         addr.Port,
		ResolvedAddr: addr,
		Component:    component,
		Priority:     priority,
	}
	c.Foundation = computeFoundation(c)
	return c
}

// NewRelayCandidate constructs a relay candidate handed to the agent by an
// external TURN client (spec §1: TURN relay client is an external
// collaborator; the agent only consumes the resulting candidate).
func NewRelayCandidate(network NetworkType, relayed *net.UDPAddr, base *Candidate, component int) *Candidate {
	c := &Candidate{
		ID:             uuid.NewString(),
		Type:           CandidateTypeRelay,
		Network:        network,
		Address:        relayed.IP.String(),
		Port:           relayed.Port,
		ResolvedAddr:   relayed,
		Component:      component,
		RelatedAddress: base.Address,
		RelatedPort:    base.Port,
	}
	c.Foundation = computeFoundation(c)
	c.Priority = computePriority(c, 2)
	return c
}

// ResolveMDNS completes pending mDNS resolution for a host candidate once
// the mDNS query subsystem answers (spec glossary: "mDNS query subsystem").
func (c *Candidate) ResolveMDNS(addr net.IP) {
	c.mdnsPending = false
	c.ResolvedAddr = &net.UDPAddr{IP: addr, Port: c.Port}
}

// Usable reports whether the candidate is ready to be paired: host
// candidates pending mDNS resolution are not usable yet.
func (c *Candidate) Usable() bool { return !c.mdnsPending }

func isMDNSName(address string) bool {
	n := len(address)
	return n > 6 && address[n-6:] == ".local"
}

// computeFoundation derives a per-candidate foundation string: candidates
// from the same STUN/TURN server, same base, and same protocol share a
// foundation (RFC 5245 §4.1.1.3, simplified).
func computeFoundation(c *Candidate) string {
	return fmt.Sprintf("%s-%d-%s", c.Type, c.Network, c.Address)
}

// computePriority implements the RFC 5245 §4.1.2.1 candidate priority
// formula: type preference in the high byte, local preference in the
// middle two bytes, 256 minus the component id in the low byte.
func computePriority(c *Candidate, serverIndex int) uint32 {
	typePref := c.Type.typePreference()
	localPref := 65535 - serverIndex
	return uint32(typePref)<<24 | uint32(localPref)<<8 | uint32(256-c.Component)
}
