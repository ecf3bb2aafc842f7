package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/mezonai/starledger/block"
	"github.com/mezonai/starledger/db"
	"github.com/mezonai/starledger/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.GenericBlockStore {
	t.Helper()
	bs, err := store.NewGenericBlockStore(db.NewMemoryProvider())
	require.NoError(t, err)
	return bs
}

func openTestLedger(t *testing.T, bs store.BlockStore) (*Ledger, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Unix(1_700_000_000, 0))
	l, err := Open(context.Background(), bs, WithClock(mock))
	require.NoError(t, err)
	return l, mock
}

func ownedBody(owner, story string) block.Body {
	return block.OwnedContent(owner, block.Star{RA: "16h 29m 1.0s", Dec: "-26° 29' 24.9", Story: []byte(story)})
}

func TestOpenCreatesGenesisOnce(t *testing.T) {
	ctx := context.Background()
	bs := newTestStore(t)
	l, _ := openTestLedger(t, bs)

	genesis, err := l.GetByHeight(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), genesis.Height)
	assert.Empty(t, genesis.PreviousHash)
	assert.Equal(t, block.GenesisText, genesis.Body.Text)

	valid, err := l.ValidateBlock(ctx, 0)
	require.NoError(t, err)
	assert.True(t, valid)

	// reopening the same store must not add a second genesis
	l2, _ := openTestLedger(t, bs)
	height, err := l2.Height(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), height)

	again, err := l2.GetByHeight(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, genesis.Hash, again.Hash)
}

func TestAppendLinksToTip(t *testing.T) {
	ctx := context.Background()
	l, mock := openTestLedger(t, newTestStore(t))

	genesis, err := l.GetByHeight(ctx, 0)
	require.NoError(t, err)

	mock.Add(5 * time.Second)
	b1, err := l.Append(ctx, block.FreeText("Test Block - 1"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), b1.Height)
	assert.Equal(t, genesis.Hash, b1.PreviousHash)
	assert.Equal(t, int64(1_700_000_005), b1.Time)

	b2, err := l.Append(ctx, ownedBody("1MwQ", "hello"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), b2.Height)
	assert.Equal(t, b1.Hash, b2.PreviousHash)

	stored, err := l.GetByHeight(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, b2, stored)

	violations, err := l.ValidateChain(ctx)
	require.NoError(t, err)
	assert.Empty(t, violations)
	assert.NoError(t, violations.Err())
}

func TestGetByHeightMiss(t *testing.T) {
	l, _ := openTestLedger(t, newTestStore(t))

	_, err := l.GetByHeight(context.Background(), 10)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = l.ValidateBlock(context.Background(), 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByHash(t *testing.T) {
	ctx := context.Background()
	l, _ := openTestLedger(t, newTestStore(t))

	b, err := l.Append(ctx, block.FreeText("find me"))
	require.NoError(t, err)
	_, err = l.Append(ctx, block.FreeText("after"))
	require.NoError(t, err)

	found, err := l.GetByHash(ctx, b.Hash)
	require.NoError(t, err)
	assert.Equal(t, b, found)

	_, err = l.GetByHash(ctx, "deadbeef")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetByOwnerAscending(t *testing.T) {
	ctx := context.Background()
	l, _ := openTestLedger(t, newTestStore(t))

	_, err := l.Append(ctx, ownedBody("alice", "first"))
	require.NoError(t, err)
	_, err = l.Append(ctx, ownedBody("bob", "other"))
	require.NoError(t, err)
	_, err = l.Append(ctx, ownedBody("alice", "second"))
	require.NoError(t, err)

	blocks, err := l.GetByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, uint64(1), blocks[0].Height)
	assert.Equal(t, uint64(3), blocks[1].Height)
	assert.Equal(t, "second", blocks[1].Body.Star.StoryDecoded())

	none, err := l.GetByOwner(ctx, "carol")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestConcurrentAppendsHaveNoGaps(t *testing.T) {
	ctx := context.Background()
	l, _ := openTestLedger(t, newTestStore(t))

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := l.Append(ctx, block.FreeText(fmt.Sprintf("Test Block - %d", i))); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("append failed: %v", err)
	}

	height, err := l.Height(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(n+1), height)

	for h := uint64(0); h <= n; h++ {
		b, err := l.GetByHeight(ctx, h)
		require.NoError(t, err)
		assert.Equal(t, h, b.Height)
	}

	violations, err := l.ValidateChain(ctx)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestTamperedBodyIsReported(t *testing.T) {
	ctx := context.Background()
	l, _ := openTestLedger(t, newTestStore(t))

	for i := 0; i < 4; i++ {
		_, err := l.Append(ctx, block.FreeText(fmt.Sprintf("Test Block - %d", i)))
		require.NoError(t, err)
	}

	b, err := l.GetByHeight(ctx, 2)
	require.NoError(t, err)
	b.Body.Text = "Induced chain error"
	require.NoError(t, l.OverwriteBlock(ctx, b))

	valid, err := l.ValidateBlock(ctx, 2)
	require.NoError(t, err)
	assert.False(t, valid)

	violations, err := l.ValidateChain(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ViolationKind{ViolationHashMismatch}, violations.At(2))
	assert.Empty(t, violations.At(3))
	assert.Error(t, violations.Err())
}

func TestTamperedPreviousHashIsReported(t *testing.T) {
	ctx := context.Background()
	l, _ := openTestLedger(t, newTestStore(t))

	for i := 0; i < 3; i++ {
		_, err := l.Append(ctx, block.FreeText(fmt.Sprintf("Test Block - %d", i)))
		require.NoError(t, err)
	}

	b, err := l.GetByHeight(ctx, 2)
	require.NoError(t, err)
	b.PreviousHash = "0000"
	// re-seal so only the link is broken
	b.Hash, err = b.ComputeHash()
	require.NoError(t, err)
	require.NoError(t, l.OverwriteBlock(ctx, b))

	violations, err := l.ValidateChain(ctx)
	require.NoError(t, err)
	assert.Equal(t, Violations{{Height: 2, Kind: ViolationPreviousHashMismatch}}, violations)
}

func TestGenesisWithPreviousHashIsReported(t *testing.T) {
	ctx := context.Background()
	l, _ := openTestLedger(t, newTestStore(t))
	_, err := l.Append(ctx, block.FreeText("Test Block - 1"))
	require.NoError(t, err)

	genesis, err := l.GetByHeight(ctx, 0)
	require.NoError(t, err)
	genesis.PreviousHash = "abcd"
	genesis.Hash, err = genesis.ComputeHash()
	require.NoError(t, err)
	require.NoError(t, l.OverwriteBlock(ctx, genesis))

	violations, err := l.ValidateChain(ctx)
	require.NoError(t, err)
	assert.Equal(t, Violations{
		{Height: 0, Kind: ViolationPreviousHashMismatch},
		{Height: 1, Kind: ViolationPreviousHashMismatch},
	}, violations)
}

func TestValidateChainReportsEveryProblem(t *testing.T) {
	ctx := context.Background()
	bs := newTestStore(t)
	l, _ := openTestLedger(t, bs)

	for i := 0; i < 5; i++ {
		_, err := l.Append(ctx, block.FreeText(fmt.Sprintf("Test Block - %d", i)))
		require.NoError(t, err)
	}

	for _, h := range []uint64{1, 4} {
		b, err := l.GetByHeight(ctx, h)
		require.NoError(t, err)
		b.Body.Text = "tampered"
		require.NoError(t, l.OverwriteBlock(ctx, b))
	}
	require.NoError(t, bs.Put(ctx, 3, []byte("not json")))

	violations, err := l.ValidateChain(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ViolationKind{ViolationHashMismatch}, violations.At(1))
	assert.Equal(t, []ViolationKind{ViolationCorrupt}, violations.At(3))
	assert.Equal(t, []ViolationKind{ViolationHashMismatch}, violations.At(4))
	assert.Equal(t, "Block#1 hash check failed", violations[0].Error())
}

func TestAppendFailsWhenPredecessorMissing(t *testing.T) {
	ctx := context.Background()
	bs := newTestStore(t)
	l, _ := openTestLedger(t, bs)

	_, err := l.Append(ctx, block.FreeText("one"))
	require.NoError(t, err)

	// a write at height 3 bumps the count to 3 while height 2 stays empty
	require.NoError(t, bs.Put(ctx, 3, []byte("{}")))

	_, err = l.Append(ctx, block.FreeText("orphan"))
	assert.ErrorIs(t, err, ErrChainLink)

	// persisted blocks are untouched
	valid, err := l.ValidateBlock(ctx, 1)
	require.NoError(t, err)
	assert.True(t, valid)

	violations, err := l.ValidateChain(ctx)
	require.NoError(t, err)
	assert.Contains(t, violations.At(3), ViolationMissingPredecessor)
}

type brokenStore struct {
	store.BlockStore
	putErr error
}

func (s *brokenStore) Create(ctx context.Context, height uint64, value []byte) error {
	if height > 0 {
		return s.putErr
	}
	return s.BlockStore.Create(ctx, height, value)
}

// lateStore reports a deadline on every non-genesis Create; when commit is set
// the write still lands first.
type lateStore struct {
	store.BlockStore
	commit bool
}

func (s *lateStore) Create(ctx context.Context, height uint64, value []byte) error {
	if height == 0 {
		return s.BlockStore.Create(ctx, height, value)
	}
	if s.commit {
		if err := s.BlockStore.Create(ctx, height, value); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: create block %d: %w", store.ErrStore, height, context.DeadlineExceeded)
}

func TestAppendSurfacesStoreError(t *testing.T) {
	ctx := context.Background()
	bs := &brokenStore{BlockStore: newTestStore(t), putErr: fmt.Errorf("%w: disk full", store.ErrStore)}
	l, _ := openTestLedger(t, bs)

	b, err := l.Append(ctx, block.FreeText("lost"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrStore))
	require.NotNil(t, b)
	assert.Equal(t, uint64(1), b.Height)

	height, err := l.Height(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), height)
}

func TestTimedOutWriteThatLandedIsAppended(t *testing.T) {
	ctx := context.Background()
	l, _ := openTestLedger(t, &lateStore{BlockStore: newTestStore(t), commit: true})

	b, err := l.Append(ctx, block.FreeText("slow disk"))
	require.NoError(t, err)

	stored, err := l.GetByHeight(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, b.Hash, stored.Hash)
}

func TestLateWriteIsNeverOverwritten(t *testing.T) {
	ctx := context.Background()
	bs := newTestStore(t)
	late := &lateStore{BlockStore: bs}
	l, _ := openTestLedger(t, late)

	lost, err := l.Append(ctx, block.FreeText("reported failed"))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// the timed out write lands, then a writer still holding the old tip tries height 1
	data, err := lost.Encode()
	require.NoError(t, err)
	require.NoError(t, bs.Create(ctx, 1, data))
	err = late.BlockStore.Create(ctx, 1, []byte("{}"))
	assert.ErrorIs(t, err, store.ErrExists)

	stored, err := l.GetByHeight(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, lost.Hash, stored.Hash)
	violations, err := l.ValidateChain(ctx)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestAppendRefusesTakenHeight(t *testing.T) {
	ctx := context.Background()
	l, _ := openTestLedger(t, &racingStore{BlockStore: newTestStore(t)})

	_, err := l.Append(ctx, block.FreeText("loses the race"))
	assert.ErrorIs(t, err, ErrChainLink)
	assert.ErrorIs(t, err, store.ErrExists)

	stored, err := l.GetByHeight(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "squatter", stored.Body.Text)
}

// racingStore lets another block land at the height right before the ledger writes it.
type racingStore struct {
	store.BlockStore
}

func (s *racingStore) Create(ctx context.Context, height uint64, value []byte) error {
	if height == 1 {
		prev, err := s.BlockStore.Get(ctx, 0)
		if err != nil {
			return err
		}
		genesis, err := block.Decode(prev)
		if err != nil {
			return err
		}
		squatter, err := block.Assemble(1, genesis.Time, block.FreeText("squatter"), genesis.Hash)
		if err != nil {
			return err
		}
		data, err := squatter.Encode()
		if err != nil {
			return err
		}
		if err := s.BlockStore.Create(ctx, 1, data); err != nil {
			return err
		}
	}
	return s.BlockStore.Create(ctx, height, value)
}
