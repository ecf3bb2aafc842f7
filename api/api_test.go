package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/mezonai/starledger/db"
	"github.com/mezonai/starledger/events"
	"github.com/mezonai/starledger/jsonrpc"
	"github.com/mezonai/starledger/jsonx"
	"github.com/mezonai/starledger/ledger"
	"github.com/mezonai/starledger/mempool"
	"github.com/mezonai/starledger/ratelimit"
	"github.com/mezonai/starledger/service"
	"github.com/mezonai/starledger/sigverify"
	"github.com/mezonai/starledger/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, limits *ratelimit.GlobalRateLimiterConfig) *APIServer {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Unix(1_700_000_000, 0))

	bs, err := store.NewGenericBlockStore(db.NewMemoryProvider())
	require.NoError(t, err)
	ld, err := ledger.Open(context.Background(), bs, ledger.WithClock(mock))
	require.NoError(t, err)
	mp := mempool.NewMempool(sigverify.NewMessageVerifier(), mempool.WithClock(mock))
	t.Cleanup(mp.Close)

	limiter := ratelimit.NewGlobalRateLimiter(limits, mock)
	t.Cleanup(limiter.Stop)

	bus := events.NewEventBus()
	journal := events.NewJournal(16)
	t.Cleanup(journal.Run(bus))

	s := NewAPIServer(service.NewLedgerService(ld, mp, bus), limiter, ":0")
	s.SetJournal(journal)
	return s
}

func do(t *testing.T, s *APIServer, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := jsonx.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.GetRouter().ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, jsonx.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestGetGenesisAndMissingBlock(t *testing.T) {
	s := newTestServer(t, nil)

	rec, out := do(t, s, http.MethodGet, "/block/0", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), out["height"])
	assert.Equal(t, "", out["previousBlockHash"])

	rec, out = do(t, s, http.MethodGet, "/block/42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", out["code"])
}

func TestPostFreeTextBlock(t *testing.T) {
	s := newTestServer(t, nil)

	rec, out := do(t, s, http.MethodPost, "/block", map[string]string{"body": "Test Block - 1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, float64(1), out["height"])

	rec, out = do(t, s, http.MethodPost, "/block", map[string]string{"body": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_body", out["code"])

	req := httptest.NewRequest(http.MethodPost, "/block", bytes.NewReader([]byte("{not json")))
	raw := httptest.NewRecorder()
	s.GetRouter().ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestStarRegistrationFlow(t *testing.T) {
	s := newTestServer(t, nil)
	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	addr := sigverify.AddressFromPubKey(key.PubKey(), true, sigverify.VersionMainnet)

	star := map[string]interface{}{
		"address": addr,
		"star":    map[string]string{"ra": "16h 29m 1.0s", "dec": "-26° 29' 24.9", "story": "Found star"},
	}
	rec, out := do(t, s, http.MethodPost, "/block", star)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "unauthorized", out["code"])

	rec, out = do(t, s, http.MethodPost, "/requestValidation", map[string]string{"address": addr})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(300), out["validationWindow"])
	message := out["message"].(string)

	rec, out = do(t, s, http.MethodPost, "/message-signature/validate", map[string]string{
		"address":   addr,
		"signature": sigverify.SignMessage(key, message, true),
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["registerStar"])
	status := out["status"].(map[string]interface{})
	assert.Equal(t, true, status["messageSignature"])

	rec, out = do(t, s, http.MethodPost, "/block", star)
	require.Equal(t, http.StatusCreated, rec.Code)
	hash := out["hash"].(string)
	assert.Equal(t, "Found star", out["storyDecoded"])

	rec, out = do(t, s, http.MethodGet, "/stars/hash:"+hash, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Found star", out["storyDecoded"])

	rec, _ = do(t, s, http.MethodGet, "/stars/address:"+addr, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var owned []map[string]interface{}
	require.NoError(t, jsonx.Unmarshal(rec.Body.Bytes(), &owned))
	require.Len(t, owned, 1)
	assert.Equal(t, hash, owned[0]["hash"])

	rec, _ = do(t, s, http.MethodPost, "/block", star)
	assert.Equal(t, http.StatusForbidden, rec.Code, "request is consumed by the first append")
}

func TestUnknownOwnerHasNoStars(t *testing.T) {
	s := newTestServer(t, nil)
	rec, _ := do(t, s, http.MethodGet, "/stars/address:1NoSuchOwner", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestRequestValidationRateLimited(t *testing.T) {
	s := newTestServer(t, &ratelimit.GlobalRateLimiterConfig{
		IPConfig:     &ratelimit.RateLimiterConfig{MaxRequests: 2, WindowSize: time.Minute, CleanupInterval: time.Hour},
		WalletConfig: &ratelimit.RateLimiterConfig{MaxRequests: 10, WindowSize: time.Minute, CleanupInterval: time.Hour},
	})

	for i := 0; i < 2; i++ {
		rec, _ := do(t, s, http.MethodPost, "/requestValidation", map[string]string{"address": "1Addr"})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, out := do(t, s, http.MethodPost, "/requestValidation", map[string]string{"address": "1Addr"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", out["code"])
}

func TestValidateChainAndBlock(t *testing.T) {
	s := newTestServer(t, nil)
	do(t, s, http.MethodPost, "/block", map[string]string{"body": "one"})

	rec, out := do(t, s, http.MethodGet, "/chain/validate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["valid"])
	assert.Empty(t, out["violations"])

	rec, out = do(t, s, http.MethodGet, "/block/1/validate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["valid"])

	rec, out = do(t, s, http.MethodGet, "/chain/height", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), out["height"])
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)
	s.SetCORSConfig(jsonrpc.CORSFromOrigins([]string{"http://localhost:3000"}))

	req := httptest.NewRequest(http.MethodOptions, "/block", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.GetRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecentEvents(t *testing.T) {
	s := newTestServer(t, nil)

	rec, _ := do(t, s, http.MethodPost, "/block", map[string]string{"body": "Test Block - 1"})
	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		_, out := do(t, s, http.MethodGet, "/events?limit=5", nil)
		list, _ := out["events"].([]interface{})
		return len(list) == 1
	}, time.Second, 5*time.Millisecond)

	_, out := do(t, s, http.MethodGet, "/events", nil)
	first := out["events"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, string(events.EventBlockAppended), first["type"])

	rec, out = do(t, s, http.MethodGet, "/events?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", out["code"])
}
