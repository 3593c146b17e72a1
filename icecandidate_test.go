// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtc

import (
	"testing"

	"github.com/sansio/rtc/internal/ice"
	"github.com/stretchr/testify/assert"
)

func TestNewICECandidate(t *testing.T) {
	c := ice.NewHostCandidate(ice.NetworkTypeUDP4, "1.0.0.1", 1234, 1)
	c.Foundation = "foundation"
	c.Priority = 128

	candidate, err := newICECandidate(c, "0", 0)
	assert.NoError(t, err)
	assert.Equal(t, ICECandidateTypeHost, candidate.Typ)
	assert.Equal(t, ICEProtocolUDP, candidate.Protocol)
	assert.Equal(t, "1.0.0.1", candidate.Address)
	assert.Equal(t, uint16(1234), candidate.Port)
}

func TestCandidateTypeFromAgent(t *testing.T) {
	testCases := []struct {
		in       ice.CandidateType
		expected ICECandidateType
	}{
		{ice.CandidateTypeHost, ICECandidateTypeHost},
		{ice.CandidateTypeServerReflexive, ICECandidateTypeSrflx},
		{ice.CandidateTypePeerReflexive, ICECandidateTypePrflx},
		{ice.CandidateTypeRelay, ICECandidateTypeRelay},
	}
	for _, tc := range testCases {
		got, err := candidateTypeFromAgent(tc.in)
		assert.NoError(t, err)
		assert.Equal(t, tc.expected, got)
	}
}

func TestICECandidate_ToJSON(t *testing.T) {
	candidate := ICECandidate{
		Foundation: "foundation",
		Priority:   128,
		Address:    "1.0.0.1",
		Protocol:   ICEProtocolUDP,
		Port:       1234,
		Typ:        ICECandidateTypeHost,
		Component:  1,
		SDPMid:     "0",
	}

	init := candidate.ToJSON()
	assert.Equal(t, "0", *init.SDPMid)
	assert.Equal(t, uint16(0), *init.SDPMLineIndex)
}
