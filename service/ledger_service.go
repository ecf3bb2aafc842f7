package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mezonai/starledger/block"
	"github.com/mezonai/starledger/events"
	"github.com/mezonai/starledger/ledger"
	"github.com/mezonai/starledger/logx"
	"github.com/mezonai/starledger/mempool"
	"github.com/mezonai/starledger/monitoring"
	"github.com/mezonai/starledger/security/validation"
)

// ValidationResult is what a signature submission reports back.
type ValidationResult struct {
	Authorized bool            `json:"registerStar"`
	Request    mempool.Request `json:"status"`
}

// LedgerService is the boundary shared by the REST and JSON-RPC servers.
type LedgerService struct {
	ledger  *ledger.Ledger
	mempool *mempool.Mempool
	bus     *events.EventBus
	locks   *keyedMutex
}

func NewLedgerService(ld *ledger.Ledger, mp *mempool.Mempool, bus *events.EventBus) *LedgerService {
	return &LedgerService{ledger: ld, mempool: mp, bus: bus, locks: newKeyedMutex()}
}

// OnRequestExpired returns the mempool expiry hook that reports to bus and metrics.
func OnRequestExpired(bus *events.EventBus) func(address string) {
	return func(address string) {
		monitoring.IncreaseExpiredRequests()
		if bus != nil {
			bus.Publish(events.NewValidationExpired(address))
		}
	}
}

func (s *LedgerService) publish(ev events.LedgerEvent) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

func (s *LedgerService) Height(ctx context.Context) (uint64, error) {
	return s.ledger.Height(ctx)
}

func (s *LedgerService) GetBlock(ctx context.Context, height uint64) (*block.Block, error) {
	return s.ledger.GetByHeight(ctx, height)
}

func (s *LedgerService) GetBlockByHash(ctx context.Context, hash string) (*block.Block, error) {
	return s.ledger.GetByHash(ctx, strings.TrimSpace(hash))
}

func (s *LedgerService) GetBlocksByOwner(ctx context.Context, address string) ([]*block.Block, error) {
	return s.ledger.GetByOwner(ctx, strings.TrimSpace(address))
}

// AddBlock appends body. Owned bodies need a verified request for their owner,
// which is consumed once the block is stored.
func (s *LedgerService) AddBlock(ctx context.Context, body block.Body) (*block.Block, error) {
	if err := body.Validate(); err != nil {
		return nil, err
	}
	if err := validation.ValidateBody(body); err != nil {
		return nil, err
	}
	if !body.IsOwned() {
		return s.appendAndRecord(ctx, body)
	}

	owner := body.Owner
	unlock := s.locks.Lock(owner)
	defer unlock()

	if !s.mempool.IsAppendAuthorized(owner) {
		monitoring.IncreaseRejectedAppends()
		logx.Warn("SERVICE", fmt.Sprintf("Rejected append for %s: no verified request", owner))
		return nil, ErrUnauthorized
	}

	b, err := s.appendAndRecord(ctx, body)
	if err != nil {
		return b, err
	}

	s.mempool.Consume(owner)
	monitoring.SetMempoolSize(s.mempool.Len())
	s.publish(events.NewValidationConsumed(owner, b.Height))
	return b, nil
}

func (s *LedgerService) appendAndRecord(ctx context.Context, body block.Body) (*block.Block, error) {
	start := time.Now()
	b, err := s.ledger.Append(ctx, body)
	if err != nil {
		return b, err
	}

	size := 0
	if data, encErr := b.Encode(); encErr == nil {
		size = len(data)
	}
	monitoring.RecordAppendedBlock(string(body.Kind), size, time.Since(start))
	monitoring.SetBlockHeight(b.Height)
	s.publish(events.NewBlockAppended(b.Hash, b.Height, string(body.Kind), b.Owner()))
	return b, nil
}

// RequestValidation issues or renews the challenge for address.
func (s *LedgerService) RequestValidation(address string) (mempool.Request, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return mempool.Request{}, fmt.Errorf("%w: wallet address is required", ErrInvalidRequest)
	}
	if err := validation.ValidateShortTextLength(validation.AddressField, address); err != nil {
		return mempool.Request{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	_, existed := s.mempool.Get(address)
	req := s.mempool.IssueOrRenew(address)
	monitoring.SetMempoolSize(s.mempool.Len())
	s.publish(events.NewValidationRequested(address, req.Message, existed))
	return req, nil
}

// SubmitSignature verifies signature against the pending challenge for address.
func (s *LedgerService) SubmitSignature(address, signature string) (ValidationResult, error) {
	address = strings.TrimSpace(address)
	if address == "" || signature == "" {
		return ValidationResult{}, fmt.Errorf("%w: wallet address and signature are required", ErrInvalidRequest)
	}

	req := s.mempool.VerifySignature(address, signature)
	matched := req.StatusMessage == mempool.StatusVerified
	switch {
	case !req.Live():
		monitoring.RecordVerification(monitoring.VerificationNoRequest)
	case matched:
		monitoring.RecordVerification(monitoring.VerificationValid)
	default:
		monitoring.RecordVerification(monitoring.VerificationMismatch)
	}
	if req.Live() {
		s.publish(events.NewSignatureVerified(address, matched))
	}
	return ValidationResult{Authorized: req.Live() && req.Verified, Request: req}, nil
}

func (s *LedgerService) ValidateBlock(ctx context.Context, height uint64) (bool, error) {
	return s.ledger.ValidateBlock(ctx, height)
}

func (s *LedgerService) ValidateChain(ctx context.Context) (ledger.Violations, error) {
	violations, err := s.ledger.ValidateChain(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range violations {
		monitoring.RecordChainViolation(string(v.Kind))
	}
	return violations, nil
}
