package ledger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"signalgate/internal/providers"
	"signalgate/internal/structures"
)

// RpcClient talks JSON-RPC to a Solana-style node. Only the two read calls
// the unlock core needs are implemented.
type RpcClient struct {
	endpoint   string
	maxRetries int
	httpClient *http.Client
	logger     providers.Logger
}

func NewRpcClient(conf *structures.Config, logger providers.Logger) Client {
	return &RpcClient{
		endpoint:   conf.Ledger.RpcEndpoint,
		maxRetries: max(conf.Ledger.MaxRetries, 0),
		httpClient: &http.Client{
			Timeout: conf.Ledger.RequestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     30 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		},
		logger: logger,
	}
}

type rpcRequest struct {
	JsonRpc string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *RpcClient) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{JsonRpc: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Warnf(providers.TypeLedger, "RPC %s attempt %d failed: %s", method, attempt+1, err)
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("RPC %s: unexpected status %d", method, resp.StatusCode)
			continue
		}

		var parsed rpcResponse
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("RPC %s: bad response: %w", method, err)
		}
		if parsed.Error != nil {
			return nil, fmt.Errorf("RPC %s: node error %d: %s", method, parsed.Error.Code, parsed.Error.Message)
		}
		return parsed.Result, nil
	}
	return nil, fmt.Errorf("RPC %s: %w", method, lastErr)
}

type txResponse struct {
	BlockTime int64 `json:"blockTime"`
	Meta      *struct {
		Err               any              `json:"err"`
		PreTokenBalances  []tokenBalanceRow `json:"preTokenBalances"`
		PostTokenBalances []tokenBalanceRow `json:"postTokenBalances"`
	} `json:"meta"`
	Transaction struct {
		Message struct {
			AccountKeys []string `json:"accountKeys"`
		} `json:"message"`
	} `json:"transaction"`
}

type tokenBalanceRow struct {
	Owner         string `json:"owner"`
	Mint          string `json:"mint"`
	UiTokenAmount struct {
		Amount string `json:"amount"`
	} `json:"uiTokenAmount"`
}

func convertBalances(rows []tokenBalanceRow) []TokenBalance {
	out := make([]TokenBalance, 0, len(rows))
	for _, row := range rows {
		amount, err := strconv.ParseUint(row.UiTokenAmount.Amount, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, TokenBalance{Owner: row.Owner, Mint: row.Mint, Amount: amount})
	}
	return out
}

func (c *RpcClient) GetTransaction(ctx context.Context, proofID string) (*TransactionResult, error) {
	result, err := c.call(ctx, "getTransaction", []any{
		proofID,
		map[string]any{"encoding": "json", "commitment": "confirmed", "maxSupportedTransactionVersion": 0},
	})
	if err != nil {
		return nil, err
	}
	if string(result) == "null" {
		return nil, ErrTxNotFound
	}

	var tx txResponse
	if err := json.Unmarshal(result, &tx); err != nil {
		return nil, fmt.Errorf("getTransaction: bad payload: %w", err)
	}
	if tx.Meta == nil {
		return nil, fmt.Errorf("getTransaction: missing meta for %s", proofID)
	}

	payer := ""
	if len(tx.Transaction.Message.AccountKeys) > 0 {
		payer = tx.Transaction.Message.AccountKeys[0]
	}

	return &TransactionResult{
		ProofID:      proofID,
		Success:      tx.Meta.Err == nil,
		Payer:        payer,
		BlockTime:    tx.BlockTime,
		PreBalances:  convertBalances(tx.Meta.PreTokenBalances),
		PostBalances: convertBalances(tx.Meta.PostTokenBalances),
	}, nil
}

type tokenAccountsResponse struct {
	Value []struct {
		Account struct {
			Data struct {
				Parsed struct {
					Info struct {
						TokenAmount struct {
							Amount string `json:"amount"`
						} `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	} `json:"value"`
}

func (c *RpcClient) GetTokenAccountBalance(ctx context.Context, owner, mint string) (uint64, error) {
	result, err := c.call(ctx, "getTokenAccountsByOwner", []any{
		owner,
		map[string]any{"mint": mint},
		map[string]any{"encoding": "jsonParsed"},
	})
	if err != nil {
		return 0, err
	}

	var accounts tokenAccountsResponse
	if err := json.Unmarshal(result, &accounts); err != nil {
		return 0, fmt.Errorf("getTokenAccountsByOwner: bad payload: %w", err)
	}

	var total uint64
	for _, entry := range accounts.Value {
		amount, err := strconv.ParseUint(entry.Account.Data.Parsed.Info.TokenAmount.Amount, 10, 64)
		if err != nil {
			continue
		}
		total += amount
	}
	return total, nil
}
