package api

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/mezonai/starledger/block"
	"github.com/mezonai/starledger/errors"
	"github.com/mezonai/starledger/events"
	"github.com/mezonai/starledger/exception"
	"github.com/mezonai/starledger/jsonrpc"
	"github.com/mezonai/starledger/jsonx"
	"github.com/mezonai/starledger/logx"
	"github.com/mezonai/starledger/monitoring"
	"github.com/mezonai/starledger/ratelimit"
	"github.com/mezonai/starledger/service"
)

const maxBodyBytes = 16 << 10

type APIServer struct {
	svc        *service.LedgerService
	limiter    *ratelimit.GlobalRateLimiter
	journal    *events.Journal
	cors       jsonrpc.CORSConfig
	router     *mux.Router
	ListenAddr string
}

func NewAPIServer(svc *service.LedgerService, limiter *ratelimit.GlobalRateLimiter, addr string) *APIServer {
	s := &APIServer{
		svc:        svc,
		limiter:    limiter,
		router:     mux.NewRouter(),
		ListenAddr: addr,
	}
	s.setupRoutes()
	return s
}

func (s *APIServer) setupRoutes() {
	s.router.Use(s.corsMiddleware)

	s.router.HandleFunc("/block/{height:[0-9]+}", s.getBlock).Methods(http.MethodGet)
	s.router.HandleFunc("/block", s.postBlock).Methods(http.MethodPost)
	s.router.HandleFunc("/block/{height:[0-9]+}/validate", s.validateBlock).Methods(http.MethodGet)

	s.router.HandleFunc("/requestValidation", s.requestValidation).Methods(http.MethodPost)
	s.router.HandleFunc("/message-signature/validate", s.validateSignature).Methods(http.MethodPost)

	s.router.HandleFunc("/stars/hash:{hash}", s.getStarByHash).Methods(http.MethodGet)
	s.router.HandleFunc("/stars/address:{address}", s.getStarsByAddress).Methods(http.MethodGet)

	s.router.HandleFunc("/chain/height", s.getHeight).Methods(http.MethodGet)
	s.router.HandleFunc("/chain/validate", s.validateChain).Methods(http.MethodGet)

	s.router.HandleFunc("/events", s.getEvents).Methods(http.MethodGet)

	s.router.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// SetCORSConfig allows configuring CORS settings
func (s *APIServer) SetCORSConfig(config jsonrpc.CORSConfig) {
	s.cors = config
}

// SetJournal exposes the recent ledger events on GET /events.
func (s *APIServer) SetJournal(journal *events.Journal) {
	s.journal = journal
}

// GetRouter returns the configured router
func (s *APIServer) GetRouter() *mux.Router {
	return s.router
}

// Start serves the REST API in the background and returns the server for shutdown.
func (s *APIServer) Start() *http.Server {
	srv := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	exception.SafeGo("RestAPI", func() {
		logx.Info("API", fmt.Sprintf("REST API listening on %s", s.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logx.Error("API", fmt.Sprintf("REST API stopped: %v", err))
		}
	})
	return srv
}

func (s *APIServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.cors.Apply(w, r)
		next.ServeHTTP(w, r)
	})
}

type addressRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

// starBlock adds the readable story next to the stored block.
type starBlock struct {
	*block.Block
	StoryDecoded string `json:"storyDecoded,omitempty"`
}

func withStory(b *block.Block) starBlock {
	sb := starBlock{Block: b}
	if b.Body.Star != nil {
		sb.StoryDecoded = b.Body.Star.StoryDecoded()
	}
	return sb
}

func (s *APIServer) getBlock(w http.ResponseWriter, r *http.Request) {
	height, ok := parseHeight(w, r)
	if !ok {
		return
	}
	b, err := s.svc.GetBlock(r.Context(), height)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withStory(b))
}

func (s *APIServer) postBlock(w http.ResponseWriter, r *http.Request) {
	var req service.BlockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b, err := s.svc.AddBlock(r.Context(), req.ToBody())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, withStory(b))
}

func (s *APIServer) validateBlock(w http.ResponseWriter, r *http.Request) {
	height, ok := parseHeight(w, r)
	if !ok {
		return
	}
	valid, err := s.svc.ValidateBlock(r.Context(), height)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"height": height, "valid": valid})
}

func (s *APIServer) requestValidation(w http.ResponseWriter, r *http.Request) {
	clientIP := jsonrpc.ClientIP(r)
	if err := s.checkLimit(func(l *ratelimit.GlobalRateLimiter) error { return l.CheckIP(clientIP) }); err != nil {
		writeError(w, err)
		return
	}

	var req addressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Address != "" {
		if err := s.checkLimit(func(l *ratelimit.GlobalRateLimiter) error { return l.CheckWallet(req.Address) }); err != nil {
			writeError(w, err)
			return
		}
	}

	res, err := s.svc.RequestValidation(req.Address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *APIServer) checkLimit(check func(*ratelimit.GlobalRateLimiter) error) error {
	if s.limiter == nil {
		return nil
	}
	err := check(s.limiter)
	if err != nil {
		logx.Warn("API", err.Error())
		monitoring.IncreaseRateLimited()
	}
	return err
}

func (s *APIServer) validateSignature(w http.ResponseWriter, r *http.Request) {
	var req addressRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := s.svc.SubmitSignature(req.Address, req.Signature)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *APIServer) getStarByHash(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.GetBlockByHash(r.Context(), mux.Vars(r)["hash"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, withStory(b))
}

func (s *APIServer) getStarsByAddress(w http.ResponseWriter, r *http.Request) {
	blocks, err := s.svc.GetBlocksByOwner(r.Context(), mux.Vars(r)["address"])
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]starBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, withStory(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *APIServer) getHeight(w http.ResponseWriter, r *http.Request) {
	height, err := s.svc.Height(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"height": height})
}

func (s *APIServer) getEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, errors.NewError(errors.ErrCodeInvalidRequest, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	records := []events.Record{}
	if s.journal != nil {
		records = append(records, s.journal.Recent(limit)...)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": records})
}

type chainReport struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations"`
}

func (s *APIServer) validateChain(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	violations, err := s.svc.ValidateChain(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	report := chainReport{Valid: len(violations) == 0, Violations: make([]string, 0, len(violations))}
	for _, v := range violations {
		report.Violations = append(report.Violations, v.Error())
	}
	writeJSON(w, http.StatusOK, report)
}

// --- Helpers ---

func parseHeight(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	height, err := strconv.ParseUint(mux.Vars(r)["height"], 10, 64)
	if err != nil {
		writeError(w, errors.NewError(errors.ErrCodeInvalidRequest, errors.ErrMsgInvalidRequest))
		return 0, false
	}
	return height, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	if err := jsonx.NewDecoder(r.Body).Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeError(w, errors.NewError(errors.ErrCodeInvalidRequest, fmt.Sprintf(errors.ErrMsgRequestBodyTooLarge, maxBodyBytes)))
			return false
		}
		writeError(w, errors.NewError(errors.ErrCodeInvalidRequest, errors.ErrMsgInvalidRequest))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsonx.NewEncoder(w).Encode(v); err != nil {
		logx.Error("API", fmt.Sprintf("Failed to encode response: %v", err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	ne := errors.FromError(err)
	if ne.Code == errors.ErrCodeInternal || ne.Code == errors.ErrCodeStore {
		logx.Error("API", fmt.Sprintf("Request failed: %v", err))
	}
	writeJSON(w, errors.HTTPStatus(ne.Code), ne)
}
