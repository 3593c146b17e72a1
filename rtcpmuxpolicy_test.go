package rtc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRTCPMuxPolicy(t *testing.T) {
	testCases := []struct {
		policyString   string
		expectedPolicy RTCPMuxPolicy
	}{
		{"unknown", RTCPMuxPolicy(Unknown)},
		{"negotiate", RTCPMuxPolicyNegotiate},
		{"require", RTCPMuxPolicyRequire},
	}

	for i, testCase := range testCases {
		assert.Equal(t,
			testCase.expectedPolicy,
			NewRTCPMuxPolicy(testCase.policyString),
			"testCase: %d %v", i, testCase,
		)
	}
}

func TestRTCPMuxPolicy_String(t *testing.T) {
	testCases := []struct {
		policy         RTCPMuxPolicy
		expectedString string
	}{
		{RTCPMuxPolicy(Unknown), ErrUnknownType.Error()},
		{RTCPMuxPolicyNegotiate, "negotiate"},
		{RTCPMuxPolicyRequire, "require"},
	}

	for i, testCase := range testCases {
		assert.Equal(t,
			testCase.expectedString,
			testCase.policy.String(),
			"testCase: %d %v", i, testCase,
		)
	}
}
