package sigverify

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyOne() *secp256k1.PrivateKey {
	raw := make([]byte, 32)
	raw[31] = 1
	return secp256k1.PrivKeyFromBytes(raw)
}

func TestAddressFromPubKeyKnownVectors(t *testing.T) {
	pub := keyOne().PubKey()
	assert.Equal(t, "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", AddressFromPubKey(pub, true, VersionMainnet))
	assert.Equal(t, "1EHNa6Q4Jz2uvNExL497mE43ikXhwF6kZm", AddressFromPubKey(pub, false, VersionMainnet))
}

func TestSignAndVerify(t *testing.T) {
	v := NewMessageVerifier()
	key := keyOne()

	for _, compressed := range []bool{true, false} {
		for _, version := range []byte{VersionMainnet, VersionTestnet} {
			addr := AddressFromPubKey(key.PubKey(), compressed, version)
			msg := addr + ":1700000000:starRegistry"
			sig := SignMessage(key, msg, compressed)

			assert.True(t, v.Verify(msg, addr, sig), "compressed=%v version=%x", compressed, version)
			assert.False(t, v.Verify(msg+"x", addr, sig))
		}
	}
}

func TestVerifyRejectsOtherAddress(t *testing.T) {
	v := NewMessageVerifier()
	key := keyOne()
	addr := AddressFromPubKey(key.PubKey(), true, VersionMainnet)
	msg := addr + ":1700000000:starRegistry"
	sig := SignMessage(key, msg, true)

	// same key, other serialization
	uncompressed := AddressFromPubKey(key.PubKey(), false, VersionMainnet)
	assert.False(t, v.Verify(msg, uncompressed, sig))

	other, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	otherAddr := AddressFromPubKey(other.PubKey(), true, VersionMainnet)
	assert.False(t, v.Verify(msg, otherAddr, sig))
}

func TestVerifyFailsClosedOnGarbage(t *testing.T) {
	v := NewMessageVerifier()
	addr := AddressFromPubKey(keyOne().PubKey(), true, VersionMainnet)

	cases := map[string]struct {
		address   string
		signature string
	}{
		"empty signature":   {addr, ""},
		"not base64":        {addr, "%%%"},
		"short signature":   {addr, base64.StdEncoding.EncodeToString([]byte{1, 2, 3})},
		"zero signature":    {addr, base64.StdEncoding.EncodeToString(make([]byte, 65))},
		"bad recovery flag": {addr, base64.StdEncoding.EncodeToString(append([]byte{99}, bytes.Repeat([]byte{1}, 64)...))},
		"empty address":     {"", SignMessage(keyOne(), "m", true)},
		"bad checksum":      {addr[:len(addr)-1] + "1", SignMessage(keyOne(), "m", true)},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.False(t, v.Verify("m", tc.address, tc.signature))
		})
	}
}

func TestRecoverAddressErrors(t *testing.T) {
	_, err := RecoverAddress("m", "!!", VersionMainnet)
	assert.ErrorIs(t, err, ErrSignatureEncoding)

	_, err = RecoverAddress("m", base64.StdEncoding.EncodeToString([]byte("abc")), VersionMainnet)
	assert.ErrorIs(t, err, ErrSignatureLength)
}

func TestMessageHashLengthPrefix(t *testing.T) {
	short := MessageHash("a")
	long := MessageHash(strings.Repeat("a", 300))
	assert.Len(t, short, 32)
	assert.Len(t, long, 32)
	assert.NotEqual(t, short, long)

	var buf bytes.Buffer
	writeVarString(&buf, strings.Repeat("a", 300))
	assert.Equal(t, []byte{0xfd, 0x2c, 0x01}, buf.Bytes()[:3])
}
