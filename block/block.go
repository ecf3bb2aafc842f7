package block

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/mezonai/starledger/jsonx"
)

const GenesisText = "First block in the chain - Genesis block"

// Block is one element of the chain. Field order is part of the canonical encoding.
type Block struct {
	Hash         string `json:"hash"`
	Height       uint64 `json:"height"`
	Body         Body   `json:"body"`
	Time         int64  `json:"time"`
	PreviousHash string `json:"previousBlockHash"`
}

// Assemble builds a block and seals it with its digest.
func Assemble(height uint64, ts int64, body Body, prevHash string) (*Block, error) {
	b := &Block{
		Height:       height,
		Body:         body,
		Time:         ts,
		PreviousHash: prevHash,
	}
	hash, err := b.ComputeHash()
	if err != nil {
		return nil, err
	}
	b.Hash = hash
	return b, nil
}

// NewGenesisBlock returns the fixed height 0 block.
func NewGenesisBlock(ts int64) (*Block, error) {
	return Assemble(0, ts, FreeText(GenesisText), "")
}

// ComputeHash digests the canonical encoding of b with Hash cleared.
func (b *Block) ComputeHash() (string, error) {
	cleared := *b
	cleared.Hash = ""
	data, err := jsonx.Marshal(&cleared)
	if err != nil {
		return "", fmt.Errorf("encode block %d: %w", b.Height, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyHash reports whether the stored hash matches the recomputed digest.
func (b *Block) VerifyHash() bool {
	hash, err := b.ComputeHash()
	if err != nil {
		return false
	}
	return hash == b.Hash
}

func (b *Block) Owner() string {
	if !b.Body.IsOwned() {
		return ""
	}
	return b.Body.Owner
}

func (b *Block) Encode() ([]byte, error) {
	return jsonx.Marshal(b)
}

func Decode(data []byte) (*Block, error) {
	var b Block
	if err := jsonx.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode block: %w", err)
	}
	return &b, nil
}
