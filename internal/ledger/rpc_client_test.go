package ledger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"signalgate/internal/providers"
	"signalgate/internal/structures"
)

// local mock logger to avoid import cycle with testutil
type testLogger struct{}

func (m *testLogger) Errorf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *testLogger) Warnf(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (m *testLogger) Debugf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *testLogger) Infof(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (m *testLogger) Fatalf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *testLogger) Close()                                                  {}

func ledgerConf(endpoint string, retries int) *structures.Config {
	return &structures.Config{
		Ledger: structures.LedgerConfig{
			RpcEndpoint:    endpoint,
			RequestTimeout: 2 * time.Second,
			MaxRetries:     retries,
		},
	}
}

func rpcServer(t *testing.T, handler func(method string, params []any) (string, int)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		body, status := handler(req.Method, req.Params)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

const confirmedTxJSON = `{
  "jsonrpc": "2.0", "id": 1,
  "result": {
    "blockTime": 1700000000,
    "meta": {
      "err": null,
      "preTokenBalances": [
        {"owner": "RecipOwner", "mint": "UsdcMint", "uiTokenAmount": {"amount": "500000"}}
      ],
      "postTokenBalances": [
        {"owner": "RecipOwner", "mint": "UsdcMint", "uiTokenAmount": {"amount": "600000"}},
        {"owner": "PayerOwner", "mint": "UsdcMint", "uiTokenAmount": {"amount": "400000"}}
      ]
    },
    "transaction": {"message": {"accountKeys": ["PayerOwner", "RecipOwner"]}}
  }
}`

func TestGetTransaction_Confirmed(t *testing.T) {
	server := rpcServer(t, func(method string, params []any) (string, int) {
		assert.Equal(t, "getTransaction", method)
		return confirmedTxJSON, http.StatusOK
	})
	defer server.Close()

	client := NewRpcClient(ledgerConf(server.URL, 0), &testLogger{})
	tx, err := client.GetTransaction(context.Background(), "proof-1")
	require.NoError(t, err)

	assert.True(t, tx.Success)
	assert.Equal(t, "PayerOwner", tx.Payer)
	assert.Equal(t, int64(1700000000), tx.BlockTime)
	require.Len(t, tx.PostBalances, 2)

	post, ok := FindBalance(tx.PostBalances, "RecipOwner", "UsdcMint")
	require.True(t, ok)
	assert.Equal(t, uint64(600000), post)
	pre, ok := FindBalance(tx.PreBalances, "RecipOwner", "UsdcMint")
	require.True(t, ok)
	assert.Equal(t, uint64(500000), pre)
}

func TestGetTransaction_NullResultIsNotFound(t *testing.T) {
	server := rpcServer(t, func(_ string, _ []any) (string, int) {
		return `{"jsonrpc": "2.0", "id": 1, "result": null}`, http.StatusOK
	})
	defer server.Close()

	client := NewRpcClient(ledgerConf(server.URL, 0), &testLogger{})
	_, err := client.GetTransaction(context.Background(), "proof-unknown")
	assert.ErrorIs(t, err, ErrTxNotFound)
}

func TestGetTransaction_FailedTx(t *testing.T) {
	server := rpcServer(t, func(_ string, _ []any) (string, int) {
		return `{
  "jsonrpc": "2.0", "id": 1,
  "result": {
    "blockTime": 1700000000,
    "meta": {"err": {"InstructionError": [0, "Custom"]}, "preTokenBalances": [], "postTokenBalances": []},
    "transaction": {"message": {"accountKeys": ["PayerOwner"]}}
  }
}`, http.StatusOK
	})
	defer server.Close()

	client := NewRpcClient(ledgerConf(server.URL, 0), &testLogger{})
	tx, err := client.GetTransaction(context.Background(), "proof-failed")
	require.NoError(t, err)
	assert.False(t, tx.Success)
}

func TestGetTransaction_NodeError(t *testing.T) {
	server := rpcServer(t, func(_ string, _ []any) (string, int) {
		return `{"jsonrpc": "2.0", "id": 1, "error": {"code": -32005, "message": "node is behind"}}`, http.StatusOK
	})
	defer server.Close()

	client := NewRpcClient(ledgerConf(server.URL, 0), &testLogger{})
	_, err := client.GetTransaction(context.Background(), "proof-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node is behind")
}

func TestGetTransaction_RetriesOnServerError(t *testing.T) {
	var calls atomic.Int64
	server := rpcServer(t, func(_ string, _ []any) (string, int) {
		if calls.Inc() < 3 {
			return "busy", http.StatusServiceUnavailable
		}
		return confirmedTxJSON, http.StatusOK
	})
	defer server.Close()

	client := NewRpcClient(ledgerConf(server.URL, 3), &testLogger{})
	tx, err := client.GetTransaction(context.Background(), "proof-1")
	require.NoError(t, err)
	assert.True(t, tx.Success)
	assert.Equal(t, int64(3), calls.Load())
}

func TestGetTransaction_RetriesExhausted(t *testing.T) {
	server := rpcServer(t, func(_ string, _ []any) (string, int) {
		return "busy", http.StatusServiceUnavailable
	})
	defer server.Close()

	client := NewRpcClient(ledgerConf(server.URL, 1), &testLogger{})
	_, err := client.GetTransaction(context.Background(), "proof-1")
	assert.Error(t, err)
}

func TestGetTokenAccountBalance_SumsAccounts(t *testing.T) {
	server := rpcServer(t, func(method string, params []any) (string, int) {
		assert.Equal(t, "getTokenAccountsByOwner", method)
		return `{
  "jsonrpc": "2.0", "id": 1,
  "result": {
    "value": [
      {"account": {"data": {"parsed": {"info": {"tokenAmount": {"amount": "40000000000"}}}}}},
      {"account": {"data": {"parsed": {"info": {"tokenAmount": {"amount": "29000000000"}}}}}}
    ]
  }
}`, http.StatusOK
	})
	defer server.Close()

	client := NewRpcClient(ledgerConf(server.URL, 0), &testLogger{})
	balance, err := client.GetTokenAccountBalance(context.Background(), "HolderOwner", "QuotaMint")
	require.NoError(t, err)
	assert.Equal(t, uint64(69000000000), balance)
}

func TestGetTokenAccountBalance_NoAccounts(t *testing.T) {
	server := rpcServer(t, func(_ string, _ []any) (string, int) {
		return `{"jsonrpc": "2.0", "id": 1, "result": {"value": []}}`, http.StatusOK
	})
	defer server.Close()

	client := NewRpcClient(ledgerConf(server.URL, 0), &testLogger{})
	balance, err := client.GetTokenAccountBalance(context.Background(), "HolderOwner", "QuotaMint")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)
}

func TestFindBalance(t *testing.T) {
	rows := []TokenBalance{
		{Owner: "a", Mint: "m1", Amount: 1},
		{Owner: "b", Mint: "m1", Amount: 2},
	}

	amount, ok := FindBalance(rows, "b", "m1")
	assert.True(t, ok)
	assert.Equal(t, uint64(2), amount)

	_, ok = FindBalance(rows, "b", "m2")
	assert.False(t, ok)
}
