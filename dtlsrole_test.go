// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtc

import (
	"testing"

	"github.com/sansio/rtc/internal/dtls"
	"github.com/stretchr/testify/assert"
)

func TestDTLSRole_String(t *testing.T) {
	testCases := []struct {
		role           DTLSRole
		expectedString string
	}{
		{DTLSRole(Unknown), ErrUnknownType.Error()},
		{DTLSRoleAuto, "auto"},
		{DTLSRoleClient, "client"},
		{DTLSRoleServer, "server"},
	}

	for i, testCase := range testCases {
		assert.Equal(t,
			testCase.expectedString,
			testCase.role.String(),
			"testCase: %d %v", i, testCase,
		)
	}
}

func TestDTLSRoleResolve(t *testing.T) {
	assert.Equal(t, dtls.RoleClient, DTLSRoleClient.resolve(true))
	assert.Equal(t, dtls.RoleServer, DTLSRoleServer.resolve(false))
	assert.Equal(t, dtls.RoleServer, DTLSRoleAuto.resolve(true))
	assert.Equal(t, dtls.RoleClient, DTLSRoleAuto.resolve(false))
}
