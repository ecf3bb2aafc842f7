package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/mezonai/starledger/block"
	"github.com/mezonai/starledger/logx"
	"github.com/mezonai/starledger/store"
)

// Ledger is the single authoritative hash-linked chain over a BlockStore.
// Appends are serialized; reads run concurrently and take no lock.
type Ledger struct {
	store store.BlockStore
	clock clock.Clock

	// guards the read height -> link -> write sequence
	mu sync.Mutex
}

type Option func(*Ledger)

func WithClock(c clock.Clock) Option {
	return func(l *Ledger) {
		l.clock = c
	}
}

// Open attaches a ledger to bs, writing the genesis block if the store is empty.
func Open(ctx context.Context, bs store.BlockStore, opts ...Option) (*Ledger, error) {
	if bs == nil {
		return nil, fmt.Errorf("block store cannot be nil")
	}

	l := &Ledger{store: bs, clock: clock.New()}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.ensureGenesis(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) ensureGenesis(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	count, err := l.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("read chain height: %w", err)
	}
	if count > 0 {
		logx.Info("LEDGER", fmt.Sprintf("Opened existing chain with %d blocks", count))
		return nil
	}

	genesis, err := block.NewGenesisBlock(l.clock.Now().Unix())
	if err != nil {
		return err
	}
	if err := l.create(context.WithoutCancel(ctx), genesis); err != nil {
		return fmt.Errorf("write genesis block: %w", err)
	}
	logx.Info("LEDGER", fmt.Sprintf("Created genesis block hash=%s", genesis.Hash))
	return nil
}

// Height returns the number of stored blocks, which is also the next height.
func (l *Ledger) Height(ctx context.Context) (uint64, error) {
	return l.store.Count(ctx)
}

// Append links body to the current tip and persists it at the next height.
// Once the write starts it is not abandoned on caller cancellation. On a store
// failure the returned block is the one that was attempted; a write that timed
// out but is found in the store counts as appended.
func (l *Ledger) Append(ctx context.Context, body block.Body) (*block.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctx = context.WithoutCancel(ctx)

	height, err := l.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("read chain height: %w", err)
	}

	var prevHash string
	if height > 0 {
		prev, err := l.getByHeight(ctx, height-1)
		if errors.Is(err, ErrNotFound) {
			logx.Error("LEDGER", fmt.Sprintf("Block %d missing while appending at height %d", height-1, height))
			return nil, fmt.Errorf("%w: height %d", ErrChainLink, height-1)
		}
		if err != nil {
			return nil, err
		}
		prevHash = prev.Hash
	}

	b, err := block.Assemble(height, l.clock.Now().Unix(), body, prevHash)
	if err != nil {
		return nil, err
	}
	if err := l.create(ctx, b); err != nil {
		if errors.Is(err, store.ErrExists) {
			logx.Error("LEDGER", fmt.Sprintf("Height %d was written behind the ledger's back", height))
			return b, fmt.Errorf("%w: height %d: %w", ErrChainLink, height, err)
		}
		if errors.Is(err, context.DeadlineExceeded) && l.landed(ctx, b) {
			logx.Warn("LEDGER", fmt.Sprintf("Write of block %d outlived its deadline but landed", height))
		} else {
			logx.Error("LEDGER", fmt.Sprintf("Failed to persist block %d: %v", height, err))
			return b, err
		}
	}

	logx.Info("LEDGER", fmt.Sprintf("Appended block %d hash=%s owner=%q", b.Height, b.Hash, b.Owner()))
	return b, nil
}

func (l *Ledger) create(ctx context.Context, b *block.Block) error {
	data, err := b.Encode()
	if err != nil {
		return err
	}
	return l.store.Create(ctx, b.Height, data)
}

// landed reports whether b is what the store now holds at its height.
func (l *Ledger) landed(ctx context.Context, b *block.Block) bool {
	stored, err := l.getByHeight(ctx, b.Height)
	return err == nil && stored.Hash == b.Hash
}

// GetByHeight returns ErrNotFound when nothing is stored at height.
func (l *Ledger) GetByHeight(ctx context.Context, height uint64) (*block.Block, error) {
	return l.getByHeight(ctx, height)
}

func (l *Ledger) getByHeight(ctx context.Context, height uint64) (*block.Block, error) {
	data, err := l.store.Get(ctx, height)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: height %d", ErrNotFound, height)
	}
	if err != nil {
		return nil, err
	}
	return block.Decode(data)
}

// GetByHash scans the whole chain. Lookup cost grows linearly with chain length;
// add a hash index if chains get long.
func (l *Ledger) GetByHash(ctx context.Context, hash string) (*block.Block, error) {
	var found *block.Block
	err := l.store.ScanAll(ctx, func(height uint64, value []byte) bool {
		b, err := block.Decode(value)
		if err != nil {
			logx.Warn("LEDGER", fmt.Sprintf("Skipping undecodable block %d: %v", height, err))
			return true
		}
		if b.Hash == hash {
			found = b
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: hash %s", ErrNotFound, hash)
	}
	return found, nil
}

// GetByOwner returns the owner's blocks in ascending height order.
func (l *Ledger) GetByOwner(ctx context.Context, address string) ([]*block.Block, error) {
	blocks := make([]*block.Block, 0)
	err := l.store.ScanAll(ctx, func(height uint64, value []byte) bool {
		b, err := block.Decode(value)
		if err != nil {
			logx.Warn("LEDGER", fmt.Sprintf("Skipping undecodable block %d: %v", height, err))
			return true
		}
		if b.Owner() == address {
			blocks = append(blocks, b)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// ValidateBlock recomputes the digest of the block at height and compares it
// with the stored hash.
func (l *Ledger) ValidateBlock(ctx context.Context, height uint64) (bool, error) {
	b, err := l.getByHeight(ctx, height)
	if err != nil {
		return false, err
	}
	valid := b.VerifyHash()
	if !valid {
		logx.Warn("LEDGER", fmt.Sprintf("Block %d failed hash validation", height))
	}
	return valid, nil
}

// ValidateChain checks every stored block and reports all violations in height order.
func (l *Ledger) ValidateChain(ctx context.Context) (Violations, error) {
	violations := Violations{}

	var (
		prev       *block.Block
		prevHeight uint64
		seenAny    bool
	)
	err := l.store.ScanAll(ctx, func(height uint64, value []byte) bool {
		b, decodeErr := block.Decode(value)
		linked := seenAny && prevHeight+1 == height

		switch {
		case decodeErr != nil:
			violations = append(violations, Violation{Height: height, Kind: ViolationCorrupt})
		default:
			if b.Height != height {
				violations = append(violations, Violation{Height: height, Kind: ViolationHeightMismatch})
			}
			if !b.VerifyHash() {
				violations = append(violations, Violation{Height: height, Kind: ViolationHashMismatch})
			}
		}

		if height == 0 {
			if b != nil && b.PreviousHash != "" {
				violations = append(violations, Violation{Height: height, Kind: ViolationPreviousHashMismatch})
			}
		} else {
			if !linked {
				violations = append(violations, Violation{Height: height, Kind: ViolationMissingPredecessor})
			} else if b != nil && prev != nil && b.PreviousHash != prev.Hash {
				violations = append(violations, Violation{Height: height, Kind: ViolationPreviousHashMismatch})
			}
		}

		prev, prevHeight, seenAny = b, height, true
		return true
	})
	if err != nil {
		return nil, err
	}

	if len(violations) > 0 {
		logx.Warn("LEDGER", fmt.Sprintf("Chain validation found %d violations", len(violations)))
	}
	return violations, nil
}
