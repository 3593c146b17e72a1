package rtc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNetworkType_String(t *testing.T) {
	testCases := []struct {
		cType          NetworkType
		expectedString string
	}{
		{NetworkType(Unknown), ErrUnknownType.Error()},
		{NetworkTypeUDP4, "udp4"},
		{NetworkTypeUDP6, "udp6"},
		{NetworkTypeTCP4, "tcp4"},
		{NetworkTypeTCP6, "tcp6"},
	}

	for _, testCase := range testCases {
		assert.Equal(t, testCase.expectedString, testCase.cType.String())
	}
}

func TestNewNetworkType(t *testing.T) {
	testCases := []struct {
		raw      string
		expected NetworkType
		wantErr  bool
	}{
		{"udp4", NetworkTypeUDP4, false},
		{"udp6", NetworkTypeUDP6, false},
		{"tcp4", NetworkTypeTCP4, false},
		{"tcp6", NetworkTypeTCP6, false},
		{"sctp", NetworkType(Unknown), true},
	}

	for _, testCase := range testCases {
		actual, err := newNetworkType(testCase.raw)
		if testCase.wantErr {
			assert.Error(t, err)
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, testCase.expected, actual)
	}
}
