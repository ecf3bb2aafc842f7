package jsonrpc

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/mezonai/starledger/block"
	"github.com/mezonai/starledger/errors"
	"github.com/mezonai/starledger/events"
	"github.com/mezonai/starledger/exception"
	"github.com/mezonai/starledger/logx"
	"github.com/mezonai/starledger/mempool"
	"github.com/mezonai/starledger/service"
)

// Client-facing JSON-RPC error codes, one per NetworkErrorCode.
const (
	codeNotFound     jrpc2.Code = -32004
	codeUnauthorized jrpc2.Code = -32003
	codeChainLink    jrpc2.Code = -32009
	codeRateLimited  jrpc2.Code = -32029
	codeStore        jrpc2.Code = -32010
	codeTimeout      jrpc2.Code = -32011
)

func toJRPC2Error(err error) error {
	if err == nil {
		return nil
	}
	ne := errors.FromError(err)

	code := jrpc2.InternalError
	switch ne.Code {
	case errors.ErrCodeInvalidRequest, errors.ErrCodeInvalidBody:
		code = jrpc2.InvalidParams
	case errors.ErrCodeNotFound:
		code = codeNotFound
	case errors.ErrCodeUnauthorized:
		code = codeUnauthorized
	case errors.ErrCodeChainLink:
		code = codeChainLink
	case errors.ErrCodeRateLimited:
		code = codeRateLimited
	case errors.ErrCodeStore:
		code = codeStore
	case errors.ErrCodeTimeout:
		code = codeTimeout
	default:
		logx.Error("JSONRPC", fmt.Sprintf("Request failed: %v", err))
	}
	return jrpc2.Errorf(code, "%s", ne.Message).WithData(ne)
}

// --- Params / responses ---

type heightParams struct {
	Height uint64 `json:"height"`
}

type hashParams struct {
	Hash string `json:"hash"`
}

type addressParams struct {
	Address string `json:"address"`
}

type signatureParams struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

type validateBlockResponse struct {
	Height uint64 `json:"height"`
	Valid  bool   `json:"valid"`
}

type chainHeightResponse struct {
	Height uint64 `json:"height"`
}

type limitParams struct {
	Limit int `json:"limit"`
}

type eventsResponse struct {
	Events []events.Record `json:"events"`
}

type validateChainResponse struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations"`
}

// --- Server ---

type Server struct {
	addr       string
	svc        *service.LedgerService
	journal    *events.Journal
	corsConfig CORSConfig
	bridge     io.Closer
}

func NewServer(addr string, svc *service.LedgerService) *Server {
	return &Server{
		addr: addr,
		svc:  svc,
	}
}

// Handler returns the HTTP handler serving the JSON-RPC bridge.
func (s *Server) Handler() http.Handler {
	jh := jhttp.NewBridge(s.buildMethodMap(), &jhttp.BridgeOptions{Server: &jrpc2.ServerOptions{}})
	s.bridge = jh
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsConfig.Apply(w, r)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		jh.ServeHTTP(w, r)
	})
}

// Start serves JSON-RPC in the background and returns the server for shutdown.
func (s *Server) Start() *http.Server {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	exception.SafeGo("JSONRPC", func() {
		logx.Info("JSONRPC", fmt.Sprintf("JSON-RPC listening on %s", s.addr))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logx.Error("JSONRPC", fmt.Sprintf("JSON-RPC stopped: %v", err))
		}
	})
	return srv
}

// Close releases the bridge's internal server.
func (s *Server) Close() error {
	if s.bridge == nil {
		return nil
	}
	return s.bridge.Close()
}

// SetCORSConfig allows configuring CORS settings
func (s *Server) SetCORSConfig(config CORSConfig) {
	s.corsConfig = config
}

// SetJournal exposes the recent ledger events through events.recent.
func (s *Server) SetJournal(journal *events.Journal) {
	s.journal = journal
}

// Build jrpc2 method map
func (s *Server) buildMethodMap() handler.Map {
	return handler.Map{
		MethodBlockGet: handler.New(func(ctx context.Context, p heightParams) (*block.Block, error) {
			b, err := s.svc.GetBlock(ctx, p.Height)
			return b, toJRPC2Error(err)
		}),
		MethodBlockGetByHash: handler.New(func(ctx context.Context, p hashParams) (*block.Block, error) {
			b, err := s.svc.GetBlockByHash(ctx, p.Hash)
			return b, toJRPC2Error(err)
		}),
		MethodBlockGetByOwner: handler.New(func(ctx context.Context, p addressParams) ([]*block.Block, error) {
			blocks, err := s.svc.GetBlocksByOwner(ctx, p.Address)
			return blocks, toJRPC2Error(err)
		}),
		MethodBlockAdd: handler.New(func(ctx context.Context, p service.BlockRequest) (*block.Block, error) {
			b, err := s.svc.AddBlock(ctx, p.ToBody())
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return b, nil
		}),
		MethodBlockValidate: handler.New(func(ctx context.Context, p heightParams) (*validateBlockResponse, error) {
			valid, err := s.svc.ValidateBlock(ctx, p.Height)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return &validateBlockResponse{Height: p.Height, Valid: valid}, nil
		}),
		MethodValidationRequest: handler.New(func(ctx context.Context, p addressParams) (*mempool.Request, error) {
			req, err := s.svc.RequestValidation(p.Address)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return &req, nil
		}),
		MethodValidationSubmitSignature: handler.New(func(ctx context.Context, p signatureParams) (*service.ValidationResult, error) {
			res, err := s.svc.SubmitSignature(p.Address, p.Signature)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return &res, nil
		}),
		MethodChainHeight: handler.New(func(ctx context.Context) (*chainHeightResponse, error) {
			height, err := s.svc.Height(ctx)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			return &chainHeightResponse{Height: height}, nil
		}),
		MethodChainValidate: handler.New(func(ctx context.Context) (*validateChainResponse, error) {
			violations, err := s.svc.ValidateChain(ctx)
			if err != nil {
				return nil, toJRPC2Error(err)
			}
			res := &validateChainResponse{Valid: len(violations) == 0, Violations: make([]string, 0, len(violations))}
			for _, v := range violations {
				res.Violations = append(res.Violations, v.Error())
			}
			return res, nil
		}),
		MethodEventsRecent: handler.New(func(ctx context.Context, p limitParams) (*eventsResponse, error) {
			res := &eventsResponse{Events: []events.Record{}}
			if s.journal != nil {
				res.Events = append(res.Events, s.journal.Recent(p.Limit)...)
			}
			return res, nil
		}),
	}
}
