// =============================
// File: internal/jito/client_test.go
// =============================
package jito

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturedRequest struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

// relayHandler dispatches scripted JSON-RPC results per method and records
// every request it sees.
type relayHandler struct {
	results  map[string]interface{}
	requests []capturedRequest
	hits     map[string]int
}

func newRelayHandler() *relayHandler {
	return &relayHandler{
		results: map[string]interface{}{},
		hits:    map[string]int{},
	}
}

func (h *relayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req capturedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.requests = append(h.requests, req)
	h.hits[req.Method]++

	result, ok := h.results[req.Method]
	if !ok {
		http.Error(w, "unexpected method "+req.Method, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"result":  result,
	})
}

func signedTransactions(t *testing.T, n int) []*solana.Transaction {
	t.Helper()
	txs := make([]*solana.Transaction, 0, n)
	for i := 0; i < n; i++ {
		key := solana.NewWallet()
		ix := system.NewTransferInstruction(1, key.PublicKey(), solana.NewWallet().PublicKey()).Build()
		tx, err := solana.NewTransaction(
			[]solana.Instruction{ix},
			solana.Hash{1},
			solana.TransactionPayer(key.PublicKey()),
		)
		require.NoError(t, err)
		_, err = tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
			if pub.Equals(key.PublicKey()) {
				return &key.PrivateKey
			}
			return nil
		})
		require.NoError(t, err)
		txs = append(txs, tx)
	}
	return txs
}

func TestSendBundle_WireFormat(t *testing.T) {
	handler := newRelayHandler()
	handler.results["sendBundle"] = "bundle-abc"
	server := httptest.NewServer(handler)
	defer server.Close()

	client := NewClient(server.URL, 10*time.Millisecond, zap.NewNop())
	txs := signedTransactions(t, 3)

	bundleID, err := client.SendBundle(context.Background(), txs)
	require.NoError(t, err)
	assert.Equal(t, "bundle-abc", bundleID)

	require.Len(t, handler.requests, 1)
	req := handler.requests[0]
	assert.Equal(t, "sendBundle", req.Method)
	require.Len(t, req.Params, 2)

	encoded, ok := req.Params[0].([]interface{})
	require.True(t, ok)
	require.Len(t, encoded, 3)
	for i, e := range encoded {
		raw, err := base64.StdEncoding.DecodeString(e.(string))
		require.NoError(t, err, "transaction %d must be base64", i)
		decoded, err := solana.TransactionFromBytes(raw)
		require.NoError(t, err)
		assert.Equal(t, txs[i].Signatures[0], decoded.Signatures[0], "bundle order must be preserved")
	}

	opts, ok := req.Params[1].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "base64", opts["encoding"])
}

func TestSendBundle_Validation(t *testing.T) {
	client := NewClient("http://relay.invalid", 10*time.Millisecond, zap.NewNop())

	_, err := client.SendBundle(context.Background(), nil)
	assert.Error(t, err, "empty bundle refused before any network call")

	_, err = client.SendBundle(context.Background(), signedTransactions(t, MaxBundleTransactions+1))
	assert.Error(t, err, "oversized bundle refused before any network call")

	unsigned := signedTransactions(t, 1)
	unsigned[0].Signatures = nil
	_, err = client.SendBundle(context.Background(), unsigned)
	assert.Error(t, err, "unsigned transaction refused")
}

func TestSendBundle_RelayOverloaded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, 10*time.Millisecond, zap.NewNop())
	_, err := client.SendBundle(context.Background(), signedTransactions(t, 1))
	require.Error(t, err)
	assert.True(t, IsTransient(err), "429 must classify as transient")
}

func TestBundleStatus_Mapping(t *testing.T) {
	cases := []struct {
		relayStatus string
		want        State
		wantReason  bool
	}{
		{"Pending", StatePending, false},
		{"Failed", StateRejected, true},
		{"Invalid", StateNotFound, false},
	}

	for _, tc := range cases {
		t.Run(tc.relayStatus, func(t *testing.T) {
			handler := newRelayHandler()
			handler.results["getInflightBundleStatuses"] = map[string]interface{}{
				"value": []map[string]interface{}{
					{"bundle_id": "b1", "status": tc.relayStatus},
				},
			}
			server := httptest.NewServer(handler)
			defer server.Close()

			client := NewClient(server.URL, 10*time.Millisecond, zap.NewNop())
			status, err := client.BundleStatus(context.Background(), "b1")
			require.NoError(t, err)
			assert.Equal(t, tc.want, status.State)
			if tc.wantReason {
				assert.NotEmpty(t, status.Reason)
			}
		})
	}
}

func TestBundleStatus_Landed(t *testing.T) {
	sig := solana.Signature{7}

	handler := newRelayHandler()
	handler.results["getInflightBundleStatuses"] = map[string]interface{}{
		"value": []map[string]interface{}{
			{"bundle_id": "b1", "status": "Landed", "landed_slot": 42},
		},
	}
	handler.results["getBundleStatuses"] = map[string]interface{}{
		"value": []map[string]interface{}{
			{
				"bundle_id":    "b1",
				"transactions": []string{sig.String()},
				"slot":         42,
			},
		},
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	client := NewClient(server.URL, 10*time.Millisecond, zap.NewNop())
	status, err := client.BundleStatus(context.Background(), "b1")
	require.NoError(t, err)

	assert.Equal(t, StateLanded, status.State)
	assert.Equal(t, uint64(42), status.Slot)
	require.Len(t, status.Transactions, 1)
	assert.Equal(t, sig, status.Transactions[0])
}

func TestTipAccount_Cached(t *testing.T) {
	advertised := []string{
		solana.NewWallet().PublicKey().String(),
		solana.NewWallet().PublicKey().String(),
	}
	handler := newRelayHandler()
	handler.results["getTipAccounts"] = advertised
	server := httptest.NewServer(handler)
	defer server.Close()

	client := NewClient(server.URL, 10*time.Millisecond, zap.NewNop())

	for i := 0; i < 5; i++ {
		account, err := client.TipAccount(context.Background())
		require.NoError(t, err)
		assert.Contains(t, advertised, account.String())
	}
	assert.Equal(t, 1, handler.hits["getTipAccounts"], "advertised list fetched once and cached")
}

func TestAwaitOutcome_Expiry(t *testing.T) {
	handler := newRelayHandler()
	handler.results["getInflightBundleStatuses"] = map[string]interface{}{
		"value": []map[string]interface{}{
			{"bundle_id": "b1", "status": "Pending"},
		},
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	client := NewClient(server.URL, 5*time.Millisecond, zap.NewNop())
	status, err := client.AwaitOutcome(context.Background(), "b1", time.Now().Add(30*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, StateExpired, status.State)
}

func TestAwaitOutcome_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient("http://relay.invalid", 5*time.Millisecond, zap.NewNop())
	_, err := client.AwaitOutcome(ctx, "b1", time.Now().Add(time.Minute))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTransientClassifiers(t *testing.T) {
	assert.True(t, IsTransient(fmt.Errorf("relay overloaded: status 503")))
	assert.True(t, IsTransient(fmt.Errorf("context deadline exceeded")))
	assert.False(t, IsTransient(fmt.Errorf("relay error -32602: invalid params")))
	assert.False(t, IsTransient(nil))

	assert.True(t, IsTransientReason("block engine congested"))
	assert.True(t, IsTransientReason("rate limit hit"))
	assert.False(t, IsTransientReason("transaction signature verification failure"))
	assert.False(t, IsTransientReason("some brand new reason"), "unknown reasons are permanent")
}
