package dtls

import (
	"crypto/hmac"
	"crypto/sha256"
	"hash"
)

// pHash implements the TLS 1.2 P_hash function (RFC 5246 §5) used to
// build the DTLS 1.2 PRF for this endpoint's negotiated SHA-256-based
// cipher suites.
func pHash(secret, seed []byte, length int, newHash func() hash.Hash) []byte {
	h := hmac.New(newHash, secret)
	h.Write(seed)
	a := h.Sum(nil)

	out := make([]byte, 0, length)
	for len(out) < length {
		h := hmac.New(newHash, secret)
		h.Write(a)
		h.Write(seed)
		out = append(out, h.Sum(nil)...)

		h = hmac.New(newHash, secret)
		h.Write(a)
		a = h.Sum(nil)
	}
	return out[:length]
}

// PRF12 is the TLS 1.2 PRF (RFC 5246 §5), with the hash fixed to SHA-256
// as required by every cipher suite this endpoint negotiates.
func PRF12(secret []byte, label string, seed []byte, length int) []byte {
	full := append([]byte(label), seed...)
	return pHash(secret, full, length, sha256.New)
}

// MasterSecret derives the 48-byte master secret from the ECDHE (or PSK)
// pre-master secret and the client/server randoms (spec §4.4
// "master_secret"). When extendedMasterSecret is true, the RFC 7627
// session-hash variant is used instead of client_random||server_random.
func MasterSecret(preMasterSecret []byte, clientRandom, serverRandom [32]byte, extendedMasterSecret bool, sessionHash []byte) []byte {
	if extendedMasterSecret {
		return PRF12(preMasterSecret, "extended master secret", sessionHash, 48)
	}
	seed := append(append([]byte{}, clientRandom[:]...), serverRandom[:]...)
	return PRF12(preMasterSecret, "master secret", seed, 48)
}

// KeyingMaterial is the set of key-block outputs derived from the master
// secret (RFC 6347 §4.1.2.5 / RFC 5246 §6.3): write keys and write IVs for
// each direction's AEAD cipher (no MAC keys), sized for a 16-byte AES-128
// key and a 4-byte GCM implicit salt (the only suites this endpoint
// negotiates, spec §4.6).
type KeyingMaterial struct {
	ClientWriteKey [16]byte
	ServerWriteKey [16]byte
	ClientWriteIV  [4]byte
	ServerWriteIV  [4]byte
}

// DeriveKeyingMaterial expands the master secret into the key block and
// slices out the per-direction AEAD key material (spec §4.4 "Keying
// material export").
func DeriveKeyingMaterial(masterSecret []byte, clientRandom, serverRandom [32]byte) KeyingMaterial {
	seed := append(append([]byte{}, serverRandom[:]...), clientRandom[:]...)
	const keyBlockLen = 16 + 16 + 4 + 4
	block := PRF12(masterSecret, "key expansion", seed, keyBlockLen)

	var km KeyingMaterial
	off := 0
	copy(km.ClientWriteKey[:], block[off:off+16])
	off += 16
	copy(km.ServerWriteKey[:], block[off:off+16])
	off += 16
	copy(km.ClientWriteIV[:], block[off:off+4])
	off += 4
	copy(km.ServerWriteIV[:], block[off:off+4])
	return km
}

// SRTPKeyingMaterialLabel is the RFC 5764 §4.2 exporter label.
const SRTPKeyingMaterialLabel = "EXTRACTOR-dtls_srtp"

// SRTPMasterKeyLen and SRTPMasterSaltLen are the AES-128 SRTP key/salt
// sizes used by every profile this endpoint negotiates (spec §4.6).
const (
	SRTPMasterKeyLen  = 16
	SRTPMasterSaltLen = 14
)

// SRTPKeyingMaterial holds the four exported SRTP key/salt components
// (RFC 5764 §4.2), in the wire order client_key, server_key, client_salt,
// server_salt.
type SRTPKeyingMaterial struct {
	ClientMasterKey  [SRTPMasterKeyLen]byte
	ServerMasterKey  [SRTPMasterKeyLen]byte
	ClientMasterSalt [SRTPMasterSaltLen]byte
	ServerMasterSalt [SRTPMasterSaltLen]byte
}

// ExportSRTPKeyingMaterial implements the RFC 5764 §4.2 exporter: PRF
// over the master secret with the EXTRACTOR-dtls_srtp label and
// client||server random seed, split into the four SRTP components
// (spec §4.4 "Keying material export", §4.6 "SRTP context derivation").
func ExportSRTPKeyingMaterial(masterSecret []byte, clientRandom, serverRandom [32]byte) SRTPKeyingMaterial {
	seed := append(append([]byte{}, clientRandom[:]...), serverRandom[:]...)
	length := 2*SRTPMasterKeyLen + 2*SRTPMasterSaltLen
	block := PRF12(masterSecret, SRTPKeyingMaterialLabel, seed, length)

	var km SRTPKeyingMaterial
	off := 0
	copy(km.ClientMasterKey[:], block[off:off+SRTPMasterKeyLen])
	off += SRTPMasterKeyLen
	copy(km.ServerMasterKey[:], block[off:off+SRTPMasterKeyLen])
	off += SRTPMasterKeyLen
	copy(km.ClientMasterSalt[:], block[off:off+SRTPMasterSaltLen])
	off += SRTPMasterSaltLen
	copy(km.ServerMasterSalt[:], block[off:off+SRTPMasterSaltLen])
	return km
}
