// Package srtp implements sans-I/O SRTP/SRTCP protection contexts
// (RFC 3711, RFC 7714 AEAD-GCM extension): per-direction key derivation,
// per-SSRC rollover-counter tracking with replay protection, and
// encrypt/decrypt over RTP and RTCP packets (spec §4.6).
package srtp

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"github.com/pion/transport/v4/replaydetector"
)

// ProtectionProfile names the SRTP cipher/auth combination in effect.
// Only the AEAD profile is implemented with authenticated encryption;
// the CM/HMAC profiles are accepted for key-derivation compatibility
// with peers that negotiate them over DTLS but are out of scope to
// actually (de)protect (spec §4.6 Non-goals: only AEAD_AES_128_GCM is
// exercised end to end).
type ProtectionProfile int

const (
	ProfileAEADAES128GCM ProtectionProfile = iota
	ProfileAES128CMHMACSHA1_80
)

const (
	saltLen = 14
	keyLen  = 16

	labelRTPEncryption  = 0x00
	labelRTPMessageAuth = 0x01
	labelRTPSalt        = 0x02
	labelRTCPEncryption = 0x03
	labelRTCPMessageAuth = 0x04
	labelRTCPSalt        = 0x05
)

// aesCM implements the SRTP key-derivation PRF (RFC 3711 §4.3.1):
// AES in counter mode keyed by the master key, applied to a per-label
// index derived from the master salt.
func aesCM(masterKey, masterSalt []byte, label byte, length int) ([]byte, error) {
	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, err
	}
	x := make([]byte, 16)
	copy(x, masterSalt)
	x[7] ^= label

	ctr := cipher.NewCTR(block, x)
	out := make([]byte, length)
	ctr.XORKeyStream(out, out)
	return out, nil
}

// SessionKeys holds the session encryption key and salt that
// deriveSessionKeys derives from a master key/salt pair (RFC 3711 §4.3,
// label set per direction: 0x00/0x02 for RTP, 0x03/0x05 for RTCP). No
// session authentication key is derived.
type SessionKeys struct {
	EncryptionKey []byte
	Salt          []byte
}

func deriveSessionKeys(masterKey, masterSalt []byte, encLabel, saltLabel byte) (SessionKeys, error) {
	enc, err := aesCM(masterKey, masterSalt, encLabel, keyLen)
	if err != nil {
		return SessionKeys{}, err
	}
	salt, err := aesCM(masterKey, masterSalt, saltLabel, saltLen)
	if err != nil {
		return SessionKeys{}, err
	}
	return SessionKeys{EncryptionKey: enc, Salt: salt}, nil
}

// Context is a single-direction SRTP/SRTCP protection context for one
// SSRC (or, more precisely, a per-SSRC rollover/replay map shared across
// the crypto context derived from one master key/salt pair — spec §3
// "SRTP context").
type Context struct {
	rtpKeys  SessionKeys
	rtcpKeys SessionKeys
	gcmRTP   cipher.AEAD
	gcmRTCP  cipher.AEAD

	ssrcState map[uint32]*ssrcState
	rtcpIndex uint32
	rtcpReplay replaydetector.ReplayDetector
}

type ssrcState struct {
	roc         uint32
	highestSeq  uint16
	initialized bool
	replay      replaydetector.ReplayDetector
}

// NewContext derives RTP and RTCP session keys from a master key/salt
// (as produced by a completed DTLS handshake's SRTP keying-material
// export, spec §4.4) and constructs an empty per-SSRC table.
func NewContext(masterKey, masterSalt []byte) (*Context, error) {
	rtpKeys, err := deriveSessionKeys(masterKey, masterSalt, labelRTPEncryption, labelRTPSalt)
	if err != nil {
		return nil, err
	}
	rtcpKeys, err := deriveSessionKeys(masterKey, masterSalt, labelRTCPEncryption, labelRTCPSalt)
	if err != nil {
		return nil, err
	}
	rtpBlock, err := aes.NewCipher(rtpKeys.EncryptionKey)
	if err != nil {
		return nil, err
	}
	gcmRTP, err := cipher.NewGCM(rtpBlock)
	if err != nil {
		return nil, err
	}
	rtcpBlock, err := aes.NewCipher(rtcpKeys.EncryptionKey)
	if err != nil {
		return nil, err
	}
	gcmRTCP, err := cipher.NewGCM(rtcpBlock)
	if err != nil {
		return nil, err
	}
	return &Context{
		rtpKeys:    rtpKeys,
		rtcpKeys:   rtcpKeys,
		gcmRTP:     gcmRTP,
		gcmRTCP:    gcmRTCP,
		ssrcState:  make(map[uint32]*ssrcState),
		rtcpReplay: replaydetector.New(128, 1<<31-1),
	}, nil
}

func (c *Context) stateFor(ssrc uint32) *ssrcState {
	s, ok := c.ssrcState[ssrc]
	if !ok {
		s = &ssrcState{replay: replaydetector.New(128, 1<<16-1)}
		c.ssrcState[ssrc] = s
	}
	return s
}

// updateROC implements the rollover-counter update algorithm (RFC 3711
// §3.3.1): the sequence number is assumed to have wrapped when it jumps
// more than half the 16-bit space backward relative to the last highest
// seen value.
func (s *ssrcState) updateROC(seq uint16) uint32 {
	if !s.initialized {
		s.initialized = true
		s.highestSeq = seq
		return s.roc
	}
	const half = 1 << 15
	roc := s.roc
	switch {
	case int(s.highestSeq)-int(seq) > half:
		roc = s.roc + 1
	case int(seq)-int(s.highestSeq) > half && s.roc > 0:
		roc = s.roc - 1
	}
	if seq > s.highestSeq || int(s.highestSeq)-int(seq) > half {
		s.highestSeq = seq
		s.roc = roc
	}
	return roc
}

func rtpNonce(salt []byte, ssrc uint32, roc uint32, seq uint16) []byte {
	nonce := make([]byte, 12)
	copy(nonce, salt)
	idx := make([]byte, 8)
	binary.BigEndian.PutUint32(idx[0:4], ssrc)
	binary.BigEndian.PutUint32(idx[4:8], roc<<16|uint32(seq))
	for i := 0; i < 8; i++ {
		nonce[4+i] ^= idx[i]
	}
	return nonce
}

// ProtectRTP AEAD-seals an RTP packet's payload in place, returning the
// full packet (header || ciphertext || tag) with the header as AAD
// (spec §4.6 "Protect").
func (c *Context) ProtectRTP(ssrc uint32, seq uint16, header, payload []byte) ([]byte, error) {
	st := c.stateFor(ssrc)
	roc := st.updateROC(seq)
	nonce := rtpNonce(c.rtpKeys.Salt, ssrc, roc, seq)
	sealed := c.gcmRTP.Seal(nil, nonce, payload, header)
	return append(append([]byte{}, header...), sealed...), nil
}

// UnprotectRTP authenticates and decrypts an SRTP packet, running replay
// protection keyed on the recovered ROC||seq index before accepting
// (spec §8 property 6).
func (c *Context) UnprotectRTP(ssrc uint32, seq uint16, header, ciphertext []byte) ([]byte, error) {
	st := c.stateFor(ssrc)
	roc := st.updateROC(seq)
	index := uint64(roc)<<16 | uint64(seq)
	accept, ok := st.replay.Check(index)
	if !ok {
		return nil, fmt.Errorf("srtp: replayed packet ssrc=%d seq=%d", ssrc, seq)
	}
	nonce := rtpNonce(c.rtpKeys.Salt, ssrc, roc, seq)
	plain, err := c.gcmRTP.Open(nil, nonce, ciphertext, header)
	if err != nil {
		return nil, fmt.Errorf("srtp: auth failed: %w", err)
	}
	accept()
	return plain, nil
}

// ProtectRTCP AEAD-seals an RTCP compound packet, appending the SRTCP
// index with the encrypted bit set (RFC 3711 §3.4 "E-bit").
func (c *Context) ProtectRTCP(header, payload []byte) ([]byte, error) {
	idx := c.rtcpIndex
	c.rtcpIndex++
	encIndex := idx | 0x80000000

	nonce := rtcpNonce(c.rtcpKeys.Salt, idx)
	sealed := c.gcmRTCP.Seal(nil, nonce, payload, header)

	out := append([]byte{}, header...)
	out = append(out, sealed...)
	idxBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(idxBytes, encIndex)
	return append(out, idxBytes...), nil
}

// UnprotectRTCP authenticates and decrypts an SRTCP packet; the trailing
// 4 bytes carry the E-bit and SRTCP index (RFC 3711 §3.4).
func (c *Context) UnprotectRTCP(header, body []byte) ([]byte, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("srtcp: packet too short for index trailer")
	}
	idxField := binary.BigEndian.Uint32(body[len(body)-4:])
	index := idxField &^ 0x80000000
	ciphertext := body[:len(body)-4]

	accept, ok := c.rtcpReplay.Check(uint64(index))
	if !ok {
		return nil, fmt.Errorf("srtcp: replayed index %d", index)
	}
	nonce := rtcpNonce(c.rtcpKeys.Salt, index)
	plain, err := c.gcmRTCP.Open(nil, nonce, ciphertext, header)
	if err != nil {
		return nil, fmt.Errorf("srtcp: auth failed: %w", err)
	}
	accept()
	return plain, nil
}

func rtcpNonce(salt []byte, index uint32) []byte {
	nonce := make([]byte, 12)
	copy(nonce, salt)
	idxBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(idxBytes, index)
	for i := 0; i < 4; i++ {
		nonce[8+i] ^= idxBytes[i]
	}
	return nonce
}
