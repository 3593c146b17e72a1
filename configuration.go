package rtc

import "github.com/sansio/rtc/internal/dtls"

// Configuration defines a set of parameters to configure how the
// peer-to-peer communication via a PeerConnection is established or
// re-established (spec §6 "Public API", construction).
type Configuration struct {
	// ICEServers defines a slice describing servers available to be used
	// by ICE, such as STUN and TURN servers.
	ICEServers []ICEServer

	// ICETransportPolicy indicates which candidates the ICE agent is
	// allowed to use.
	ICETransportPolicy ICETransportPolicy

	// BundlePolicy indicates which media-bundling policy to use when
	// gathering ICE candidates.
	BundlePolicy BundlePolicy

	// RTCPMuxPolicy indicates which rtcp-mux policy to use when gathering
	// ICE candidates.
	RTCPMuxPolicy RTCPMuxPolicy

	// Certificates describes a set of certificates the PeerConnection uses
	// to authenticate its DTLS endpoint. If empty, a fresh self-signed
	// certificate is generated (internal/dtls.GenerateSelfSigned) for each
	// PeerConnection instance, per spec §8 scenario S2.
	Certificates []Certificate

	// ICECandidatePoolSize describes the size of the prefetched ICE pool.
	ICECandidatePoolSize uint8
}

func (c Configuration) validate() error {
	for _, server := range c.ICEServers {
		if err := server.validate(); err != nil {
			return err
		}
	}
	return nil
}

// certificatesOrGenerate returns c.Certificates, or a single freshly
// generated self-signed certificate when none were supplied.
func (c Configuration) certificatesOrGenerate() ([]Certificate, error) {
	if len(c.Certificates) > 0 {
		return c.Certificates, nil
	}
	cert, err := dtls.GenerateSelfSigned()
	if err != nil {
		return nil, err
	}
	return []Certificate{newCertificate(cert)}, nil
}
