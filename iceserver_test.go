// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestICEServer_validate(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		testCases := []ICEServer{
			{
				URLs:           []string{"turn:192.158.29.39?transport=udp"},
				Username:       "unittest",
				Credential:     "placeholder",
				CredentialType: ICECredentialTypePassword,
			},
			{
				URLs:     []string{"turn:192.158.29.39?transport=udp"},
				Username: "unittest",
				Credential: OAuthCredential{
					MACKey:      "WmtzanB3ZW9peFhtdm42NzUzNG0=",
					AccessToken: "AAwg3kPHWPfvk9bDFL936wYvkoctMADzQ5VhNDgeMR3+ZlZ35byg972fW8QjpEl7bx91YLBPFsIhsxloWcXPhA==",
				},
				CredentialType: ICECredentialTypeOauth,
			},
			{
				URLs: []string{"stun:stun.example.org"},
			},
		}

		for i, iceServer := range testCases {
			assert.NoError(t, iceServer.validate(), "testCase: %d %v", i, iceServer)
		}
	})

	t.Run("Failure", func(t *testing.T) {
		testCases := []ICEServer{
			{
				URLs: []string{"turn:192.158.29.39?transport=udp"},
			},
			{
				URLs:           []string{"turn:192.158.29.39?transport=udp"},
				Username:       "unittest",
				Credential:     false,
				CredentialType: ICECredentialTypePassword,
			},
			{
				URLs:           []string{"turn:192.158.29.39?transport=udp"},
				Username:       "unittest",
				Credential:     false,
				CredentialType: ICECredentialTypeOauth,
			},
			{
				URLs: []string{"bogus:192.158.29.39"},
			},
		}

		for i, iceServer := range testCases {
			assert.Error(t, iceServer.validate(), "testCase: %d %v", i, iceServer)
		}
	})
}
