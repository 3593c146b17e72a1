// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigurationValidate(t *testing.T) {
	cfg := Configuration{
		ICEServers: []ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	}
	assert.NoError(t, cfg.validate())
}

func TestConfigurationValidateTURNRequiresCredentials(t *testing.T) {
	cfg := Configuration{
		ICEServers: []ICEServer{
			{URLs: []string{"turn:turn.example.org"}},
		},
	}
	assert.Error(t, cfg.validate())
}

func TestConfigurationCertificatesOrGenerate(t *testing.T) {
	var cfg Configuration
	certs, err := cfg.certificatesOrGenerate()
	assert.NoError(t, err)
	assert.Len(t, certs, 1)

	existing, err := GenerateCertificate()
	assert.NoError(t, err)
	cfg.Certificates = []Certificate{existing}
	certs, err = cfg.certificatesOrGenerate()
	assert.NoError(t, err)
	assert.Equal(t, []Certificate{existing}, certs)
}
