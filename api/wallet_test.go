package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linlinbupt123-crypto/wallet_bot/custody"
	"github.com/linlinbupt123-crypto/wallet_bot/domain"
	"github.com/linlinbupt123-crypto/wallet_bot/entity"
	wrapErrors "github.com/linlinbupt123-crypto/wallet_bot/errors"
	"github.com/linlinbupt123-crypto/wallet_bot/repository"
	"github.com/linlinbupt123-crypto/wallet_bot/service"
)

type stubWalletAPI struct {
	balanceErr error
	signReqs   []custody.SignInfoRequest
	broadcasts int
}

func (s *stubWalletAPI) TokenBalances(_ context.Context, _, chainIndex string) ([]entity.TokenAsset, error) {
	if s.balanceErr != nil {
		return nil, s.balanceErr
	}
	return []entity.TokenAsset{{ChainIndex: chainIndex, Symbol: "ETH", Balance: "0.5"}}, nil
}

func (s *stubWalletAPI) SignInfo(_ context.Context, req custody.SignInfoRequest) (*entity.SignInfo, error) {
	s.signReqs = append(s.signReqs, req)
	return &entity.SignInfo{Nonce: 7, GasPrice: big.NewInt(1_000_000_000), GasLimit: 21000}, nil
}

func (s *stubWalletAPI) Broadcast(context.Context, string, string, string) (string, error) {
	s.broadcasts++
	return "order-1", nil
}

type response struct {
	Address  string              `json:"address"`
	Assets   []entity.TokenAsset `json:"assets"`
	Handled  bool                `json:"handled"`
	Error    string              `json:"error"`
	Messages []Message           `json:"messages"`
}

func setupRouter(t *testing.T) (*gin.Engine, *stubWalletAPI) {
	t.Helper()
	return setupRouterWithHistory(t, nil)
}

func setupRouterWithHistory(t *testing.T, history WithdrawalHistory) (*gin.Engine, *stubWalletAPI) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemorySessionRepo()
	keys := domain.NewKeyManager(repo, "")
	stub := &stubWalletAPI{}
	outbox := NewOutbox()
	ws := service.NewWalletService(repo, keys, stub, outbox, "1")
	wd := service.NewWithdrawalService(repo, keys, stub, outbox, service.ChainParams{Index: "1", ChainID: big.NewInt(1)})
	return NewRouter(NewWalletHandler(ws, wd, outbox, history)), stub
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) (int, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func TestHealthz(t *testing.T) {
	r, _ := setupRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestCreateAddress(t *testing.T) {
	r, _ := setupRouter(t)

	code, resp := do(t, r, http.MethodPost, "/users/alice/address", nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, resp.Address)
	require.Len(t, resp.Messages, 1)
	assert.Contains(t, resp.Messages[0].Text, resp.Address)

	_, again := do(t, r, http.MethodPost, "/users/alice/address", nil)
	assert.Equal(t, resp.Address, again.Address)
}

func TestBalance(t *testing.T) {
	r, stub := setupRouter(t)

	code, resp := do(t, r, http.MethodGet, "/users/alice/balance", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "validation", resp.Error)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, service.MsgNoWallet, resp.Messages[0].Text)

	do(t, r, http.MethodPost, "/users/alice/address", nil)
	code, resp = do(t, r, http.MethodGet, "/users/alice/balance", nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Assets, 1)
	assert.Equal(t, "0.5", resp.Assets[0].Balance)

	stub.balanceErr = wrapErrors.WrapWithCode(wrapErrors.BalanceErr, "TokenBalances", &custody.APIError{HTTPStatus: 500})
	code, resp = do(t, r, http.MethodGet, "/users/alice/balance", nil)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "remote", resp.Error)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, service.MsgTryLater, resp.Messages[0].Text)
}

func TestWithdrawConversation(t *testing.T) {
	r, stub := setupRouter(t)
	do(t, r, http.MethodPost, "/users/alice/address", nil)

	code, resp := do(t, r, http.MethodPost, "/users/alice/withdraw", nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Messages, 1)
	amountPrompt := resp.Messages[0]
	assert.Equal(t, "amount", amountPrompt.Expects)
	require.NotEmpty(t, amountPrompt.PromptID)

	// wrong answers keep the prompt open
	_, resp = do(t, r, http.MethodPost, "/users/alice/messages", map[string]string{"text": "lots", "reply_to": amountPrompt.PromptID})
	assert.True(t, resp.Handled)
	assert.Equal(t, service.MsgInvalidAmount, resp.Messages[0].Text)

	_, resp = do(t, r, http.MethodPost, "/users/alice/messages", map[string]string{"text": "0.1", "reply_to": amountPrompt.PromptID})
	require.True(t, resp.Handled)
	destPrompt := resp.Messages[0]
	assert.Equal(t, "destination", destPrompt.Expects)

	// the amount prompt is stale now
	_, resp = do(t, r, http.MethodPost, "/users/alice/messages", map[string]string{"text": "0.2", "reply_to": amountPrompt.PromptID})
	assert.False(t, resp.Handled)
	assert.Empty(t, resp.Messages)

	_, resp = do(t, r, http.MethodPost, "/users/alice/messages", map[string]string{
		"text":     "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		"reply_to": destPrompt.PromptID,
	})
	require.True(t, resp.Handled)
	require.Len(t, resp.Messages, 1)
	assert.Contains(t, resp.Messages[0].Text, "order-1")

	require.Len(t, stub.signReqs, 1)
	assert.Equal(t, "100000000000000000", stub.signReqs[0].TxAmount)
	assert.Equal(t, 1, stub.broadcasts)
}

func TestMessageWithoutWithdrawalIgnored(t *testing.T) {
	r, _ := setupRouter(t)
	code, resp := do(t, r, http.MethodPost, "/users/bob/messages", map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, resp.Handled)
	assert.Empty(t, resp.Messages)
}

func TestMessageBadJSON(t *testing.T) {
	r, _ := setupRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/users/bob/messages", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelWithdrawal(t *testing.T) {
	r, stub := setupRouter(t)
	do(t, r, http.MethodPost, "/users/alice/address", nil)
	do(t, r, http.MethodPost, "/users/alice/withdraw", nil)

	_, resp := do(t, r, http.MethodPost, "/users/alice/withdraw/cancel", nil)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, service.MsgCancelled, resp.Messages[0].Text)

	_, resp = do(t, r, http.MethodPost, "/users/alice/messages", map[string]string{"text": "1"})
	assert.False(t, resp.Handled)
	assert.Empty(t, stub.signReqs)
}

func TestExportKey(t *testing.T) {
	r, _ := setupRouter(t)

	code, resp := do(t, r, http.MethodPost, "/users/alice/export-key", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, service.MsgNoWallet, resp.Messages[0].Text)

	do(t, r, http.MethodPost, "/users/alice/address", nil)
	code, resp = do(t, r, http.MethodPost, "/users/alice/export-key", nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Messages, 1)
	assert.Contains(t, resp.Messages[0].Text, "0x")

	// nothing leaks into another user's outbox
	_, other := do(t, r, http.MethodPost, "/users/bob/withdraw/cancel", nil)
	require.Len(t, other.Messages, 1)
	assert.Equal(t, service.MsgNothingToCancel, other.Messages[0].Text)
}

func TestOutboxDrain(t *testing.T) {
	o := NewOutbox()
	ctx := context.Background()
	require.NoError(t, o.Notify(ctx, "u1", "one"))
	ref, err := o.Prompt(ctx, "u1", service.Prompt{ID: "p1", Kind: service.InputAmount, Text: "two"})
	require.NoError(t, err)

	msgs := o.Drain("u1")
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Text)
	assert.Equal(t, ref, msgs[1].Ref)
	assert.Equal(t, "p1", msgs[1].PromptID)
	assert.Equal(t, "amount", msgs[1].Expects)
	assert.Empty(t, o.Drain("u1"))
}

type fakeHistory struct {
	userID string
	limit  int64
	recs   []*entity.WithdrawalRecord
	err    error
}

func (f *fakeHistory) ListByUserID(_ context.Context, userID string, limit int64) ([]*entity.WithdrawalRecord, error) {
	f.userID, f.limit = userID, limit
	return f.recs, f.err
}

func getWithdrawals(t *testing.T, r *gin.Engine, path string) (int, map[string]json.RawMessage) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w.Code, body
}

func TestListWithdrawals_JournalDisabled(t *testing.T) {
	r, _ := setupRouter(t)
	code, body := getWithdrawals(t, r, "/users/alice/withdrawals")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body, "error")
}

func TestListWithdrawals(t *testing.T) {
	history := &fakeHistory{recs: []*entity.WithdrawalRecord{{
		UserID:    "alice",
		To:        "0xto",
		Amount:    "0.1",
		Status:    "success",
		OrderID:   "order-1",
		CreatedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}}}
	r, _ := setupRouterWithHistory(t, history)

	code, body := getWithdrawals(t, r, "/users/alice/withdrawals")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", history.userID)
	assert.Equal(t, int64(20), history.limit)

	var recs []entity.WithdrawalRecord
	require.NoError(t, json.Unmarshal(body["withdrawals"], &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "order-1", recs[0].OrderID)

	getWithdrawals(t, r, "/users/alice/withdrawals?limit=500")
	assert.Equal(t, int64(100), history.limit)

	code, _ = getWithdrawals(t, r, "/users/alice/withdrawals?limit=abc")
	assert.Equal(t, http.StatusBadRequest, code)

	history.err = errors.New("no primary")
	code, body = getWithdrawals(t, r, "/users/alice/withdrawals")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.JSONEq(t, `"internal"`, string(body["error"]))
}
