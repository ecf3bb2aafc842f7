package sigverify

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/mezonai/starledger/common"
	"github.com/mezonai/starledger/logx"
	"golang.org/x/crypto/ripemd160"
)

const (
	// MessageMagic prefixes every signed message.
	MessageMagic = "Bitcoin Signed Message:\n"

	compactSigLen = 65

	VersionMainnet byte = 0x00
	VersionTestnet byte = 0x6f
)

var (
	ErrSignatureEncoding = errors.New("signature is not valid base64")
	ErrSignatureLength   = errors.New("compact signature must be 65 bytes")
)

// MessageVerifier checks Bitcoin-style signed messages against pay-to-pubkey-hash addresses.
type MessageVerifier struct{}

func NewMessageVerifier() *MessageVerifier {
	return &MessageVerifier{}
}

// Verify reports whether signature signs message with the key behind address.
// Any malformed input yields false.
func (v *MessageVerifier) Verify(message, address, signature string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error("SIGVERIFY", fmt.Sprintf("Recovered from panic while verifying %s: %v", address, r))
			ok = false
		}
	}()

	version, expected, err := common.DecodeBase58Check(address)
	if err != nil || len(expected) != ripemd160.Size {
		return false
	}
	recovered, err := RecoverAddress(message, signature, version)
	if err != nil {
		logx.Debug("SIGVERIFY", fmt.Sprintf("Cannot recover key for %s: %v", address, err))
		return false
	}
	return recovered == address
}

// RecoverAddress returns the address whose key produced signature over message.
func RecoverAddress(message, signature string, version byte) (string, error) {
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return "", ErrSignatureEncoding
	}
	if len(sig) != compactSigLen {
		return "", ErrSignatureLength
	}
	pub, compressed, err := ecdsa.RecoverCompact(sig, MessageHash(message))
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", err)
	}
	return AddressFromPubKey(pub, compressed, version), nil
}

// MessageHash is the double SHA-256 of the magic prefix and message, each length prefixed.
func MessageHash(message string) []byte {
	var buf bytes.Buffer
	writeVarString(&buf, MessageMagic)
	writeVarString(&buf, message)
	return common.DoubleSHA256(buf.Bytes())
}

// AddressFromPubKey encodes the pay-to-pubkey-hash address of pub.
func AddressFromPubKey(pub *secp256k1.PublicKey, compressed bool, version byte) string {
	var serialized []byte
	if compressed {
		serialized = pub.SerializeCompressed()
	} else {
		serialized = pub.SerializeUncompressed()
	}
	return common.EncodeBase58Check(version, hash160(serialized))
}

// SignMessage produces the base64 compact signature Verify accepts.
func SignMessage(key *secp256k1.PrivateKey, message string, compressed bool) string {
	sig := ecdsa.SignCompact(key, MessageHash(message), compressed)
	return base64.StdEncoding.EncodeToString(sig)
}

func hash160(data []byte) []byte {
	sum := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(sum[:])
	return h.Sum(nil)
}

func writeVarString(buf *bytes.Buffer, s string) {
	n := uint64(len(s))
	switch {
	case n < 0xfd:
		buf.WriteByte(byte(n))
	case n <= 0xffff:
		buf.WriteByte(0xfd)
		_ = binary.Write(buf, binary.LittleEndian, uint16(n))
	case n <= 0xffffffff:
		buf.WriteByte(0xfe)
		_ = binary.Write(buf, binary.LittleEndian, uint32(n))
	default:
		buf.WriteByte(0xff)
		_ = binary.Write(buf, binary.LittleEndian, n)
	}
	buf.WriteString(s)
}
