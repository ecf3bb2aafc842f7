package ledger

import (
	"context"

	"github.com/mezonai/starledger/block"
)

// OverwriteBlock stores b at its height as-is, bypassing linking and hashing.
// Only tests can reach it; it exists to simulate tampering.
func (l *Ledger) OverwriteBlock(ctx context.Context, b *block.Block) error {
	data, err := b.Encode()
	if err != nil {
		return err
	}
	return l.store.Put(ctx, b.Height, data)
}
