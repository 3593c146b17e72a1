package stun

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTID(b byte) TransactionID {
	var id TransactionID
	for i := range id {
		id[i] = b
	}
	return id
}

func TestRoundTripBasic(t *testing.T) {
	m := &Message{Type: Type{Method: MethodBinding, Class: ClassRequest}, TransactionID: newTID(0x11)}
	m.Add(AttrUsername, []byte("frag:lfrag"))

	raw, err := Encode(m, nil, false)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, m.Type, got.Type)
	assert.Equal(t, m.TransactionID, got.TransactionID)
	require.Len(t, got.Attributes, 1)
	assert.Equal(t, "frag:lfrag", string(got.Attributes[0].Value))
}

func TestMessageIntegrityAndFingerprint(t *testing.T) {
	key := []byte("remote-password")
	m := &Message{Type: Type{Method: MethodBinding, Class: ClassRequest}, TransactionID: newTID(0x22)}
	m.Add(AttrUsername, []byte("a:b"))

	raw, err := Encode(m, key, true)
	require.NoError(t, err)

	assert.True(t, VerifyMessageIntegrity(raw, key))
	assert.False(t, VerifyMessageIntegrity(raw, []byte("wrong")))
	assert.True(t, VerifyFingerprint(raw))

	tampered := append([]byte{}, raw...)
	tampered[len(tampered)-1] ^= 0xFF
	assert.False(t, VerifyFingerprint(tampered))
}

func TestXORMappedAddressRoundTrip(t *testing.T) {
	tid := newTID(0x33)
	addr := &net.UDPAddr{IP: net.ParseIP("203.0.113.5").To4(), Port: 54321}

	v := EncodeXORMappedAddress(addr, tid)
	got, err := XORMappedAddress(v, tid)
	require.NoError(t, err)

	assert.Equal(t, addr.Port, got.Port)
	assert.True(t, addr.IP.Equal(got.IP))
}

func TestDecodeRejectsBadCookie(t *testing.T) {
	raw := make([]byte, 20)
	_, err := Decode(raw)
	assert.Error(t, err)
}

func TestTypeValueRoundTrip(t *testing.T) {
	types := []Type{
		{Method: MethodBinding, Class: ClassRequest},
		{Method: MethodBinding, Class: ClassSuccess},
		{Method: MethodBinding, Class: ClassError},
		{Method: MethodBinding, Class: ClassIndication},
	}
	for _, ty := range types {
		got := ParseType(ty.Value())
		assert.Equal(t, ty, got)
	}
}
