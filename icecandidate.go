package rtc

import (
	"errors"
	"fmt"

	"github.com/sansio/rtc/internal/ice"
)

var errICECandidateTypeUnknown = errors.New("unknown ice candidate type")

// ICECandidate is the public, wire-friendly view of an internal/ice
// Candidate (spec §3 "ICE candidate"), the shape AddICECandidate accepts
// and OnICECandidate events carry.
type ICECandidate struct {
	Foundation     string           `json:"foundation"`
	Priority       uint32           `json:"priority"`
	Address        string           `json:"address"`
	Protocol       ICEProtocol      `json:"protocol"`
	Port           uint16           `json:"port"`
	Typ            ICECandidateType `json:"type"`
	Component      uint16           `json:"component"`
	RelatedAddress string           `json:"relatedAddress,omitempty"`
	RelatedPort    uint16           `json:"relatedPort,omitempty"`
	SDPMid         string           `json:"sdpMid"`
	SDPMLineIndex  uint16           `json:"sdpMLineIndex"`
}

func candidateTypeFromAgent(t ice.CandidateType) (ICECandidateType, error) {
	switch t {
	case ice.CandidateTypeHost:
		return ICECandidateTypeHost, nil
	case ice.CandidateTypeServerReflexive:
		return ICECandidateTypeSrflx, nil
	case ice.CandidateTypePeerReflexive:
		return ICECandidateTypePrflx, nil
	case ice.CandidateTypeRelay:
		return ICECandidateTypeRelay, nil
	default:
		return ICECandidateType(Unknown), fmt.Errorf("%w: %v", errICECandidateTypeUnknown, t)
	}
}

func networkProtocol(n ice.NetworkType) ICEProtocol {
	switch n {
	case ice.NetworkTypeTCP4, ice.NetworkTypeTCP6:
		return ICEProtocolTCP
	default:
		return ICEProtocolUDP
	}
}

// newICECandidate converts an agent-internal Candidate into the public
// shape carried by OnICECandidate events (spec §4.8 event taxonomy).
func newICECandidate(c *ice.Candidate, sdpMid string, sdpMLineIndex uint16) (ICECandidate, error) {
	typ, err := candidateTypeFromAgent(c.Type)
	if err != nil {
		return ICECandidate{}, err
	}
	return ICECandidate{
		Foundation:     c.Foundation,
		Priority:       c.Priority,
		Address:        c.Address,
		Protocol:       networkProtocol(c.Network),
		Port:           uint16(c.Port), //nolint:gosec
		Typ:            typ,
		Component:      uint16(c.Component),
		RelatedAddress: c.RelatedAddress,
		RelatedPort:    uint16(c.RelatedPort), //nolint:gosec
		SDPMid:         sdpMid,
		SDPMLineIndex:  sdpMLineIndex,
	}, nil
}

func (c ICECandidate) String() string {
	return fmt.Sprintf("%s:%d %s %s typ %s", c.Address, c.Port, c.Protocol, c.Foundation, c.Typ)
}

// ToJSON returns an ICECandidateInit carrying this candidate's SDP
// attribution fields. The candidate-line encoding itself is SDP text and
// out of scope (spec §1 Non-goals); callers that need it bring their own
// SDP library and this candidate's exported fields.
func (c ICECandidate) ToJSON() ICECandidateInit {
	mid := c.SDPMid
	mlineIndex := c.SDPMLineIndex
	return ICECandidateInit{
		SDPMid:        &mid,
		SDPMLineIndex: &mlineIndex,
	}
}
