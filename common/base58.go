package common

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

const checksumLen = 4

var (
	ErrInvalidBase58   = errors.New("invalid base58 string")
	ErrChecksumLength  = errors.New("base58check payload too short")
	ErrChecksumInvalid = errors.New("base58check checksum mismatch")
)

// DoubleSHA256 returns sha256(sha256(data)).
func DoubleSHA256(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

// EncodeBase58Check encodes version || payload || checksum, the format used by
// legacy wallet addresses.
func EncodeBase58Check(version byte, payload []byte) string {
	buf := make([]byte, 0, 1+len(payload)+checksumLen)
	buf = append(buf, version)
	buf = append(buf, payload...)
	buf = append(buf, DoubleSHA256(buf)[:checksumLen]...)
	return base58.Encode(buf)
}

// DecodeBase58Check is the inverse of EncodeBase58Check.
func DecodeBase58Check(s string) (byte, []byte, error) {
	decoded, err := base58.Decode(s)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidBase58, err)
	}
	if len(decoded) < 1+checksumLen {
		return 0, nil, ErrChecksumLength
	}

	body := decoded[:len(decoded)-checksumLen]
	sum := decoded[len(decoded)-checksumLen:]
	if !bytes.Equal(DoubleSHA256(body)[:checksumLen], sum) {
		return 0, nil, ErrChecksumInvalid
	}
	return body[0], body[1:], nil
}

// IsValidBase58 checks if a string is valid base58
func IsValidBase58(str string) bool {
	decoded, err := base58.Decode(str)
	return err == nil && len(decoded) > 0
}
