package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"

	"solana-token-market/internal/observability"
)

// DefaultTimeout bounds every request. Calls are never retried.
const DefaultTimeout = 15 * time.Second

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint  string
	client    *http.Client
	requestID atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Solana RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the configured RPC endpoint.
func (c *HTTPClient) Endpoint() string {
	return c.endpoint
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError represents a JSON-RPC 2.0 error.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// call performs a single JSON-RPC call. result may be *json.RawMessage to keep the raw payload.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) (err error) {
	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
		if err != nil {
			observability.RecordRPCError(method, errorKind(err))
		}
	}()

	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Method: method, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return &TransportError{
			Method:     method,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", truncate(respBody, 256)),
		}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return &TransportError{Method: method, Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	if rpcResp.Error != nil {
		return &ProtocolError{Method: method, Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}

	if result != nil && rpcResp.Result != nil {
		if raw, ok := result.(*json.RawMessage); ok {
			*raw = rpcResp.Result
			return nil
		}
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return &TransportError{Method: method, Err: fmt.Errorf("unmarshal result: %w", err)}
		}
	}

	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

func errorKind(err error) string {
	switch err.(type) {
	case *ProtocolError:
		return "protocol"
	case *TransportError:
		return "transport"
	default:
		return "client"
	}
}

// tokenAmountResult is the uiTokenAmount object shared by several token methods.
type tokenAmountResult struct {
	Amount   string `json:"amount"`
	Decimals uint8  `json:"decimals"`
}

func (r tokenAmountResult) toTokenAmount() TokenAmount {
	return NewTokenAmount(r.Amount, r.Decimals)
}

// GetTokenAccountBalance returns the balance of an SPL token account.
func (c *HTTPClient) GetTokenAccountBalance(ctx context.Context, account string) (TokenAmount, error) {
	var result struct {
		Value *tokenAmountResult `json:"value"`
	}
	if err := c.call(ctx, "getTokenAccountBalance", []interface{}{account}, &result); err != nil {
		return TokenAmount{}, err
	}
	if result.Value == nil {
		return NewTokenAmount("0", 0), nil
	}
	return result.Value.toTokenAmount(), nil
}

// GetTokenSupply returns the total supply of an SPL token mint.
func (c *HTTPClient) GetTokenSupply(ctx context.Context, mint string) (TokenAmount, error) {
	var result struct {
		Value *tokenAmountResult `json:"value"`
	}
	if err := c.call(ctx, "getTokenSupply", []interface{}{mint}, &result); err != nil {
		return TokenAmount{}, err
	}
	if result.Value == nil {
		return NewTokenAmount("0", 0), nil
	}
	return result.Value.toTokenAmount(), nil
}

// GetTokenLargestAccounts returns the largest holder accounts of a mint.
func (c *HTTPClient) GetTokenLargestAccounts(ctx context.Context, mint string) ([]TokenHolder, error) {
	var result struct {
		Value []struct {
			Address string `json:"address"`
			tokenAmountResult
		} `json:"value"`
	}
	if err := c.call(ctx, "getTokenLargestAccounts", []interface{}{mint}, &result); err != nil {
		return nil, err
	}

	holders := make([]TokenHolder, len(result.Value))
	for i, v := range result.Value {
		holders[i] = TokenHolder{
			Address: v.Address,
			Amount:  v.toTokenAmount(),
		}
	}
	return holders, nil
}

// GetMultipleAccounts returns jsonParsed accounts in request order.
func (c *HTTPClient) GetMultipleAccounts(ctx context.Context, addresses []string) ([]*ParsedAccount, error) {
	params := []interface{}{
		addresses,
		map[string]interface{}{
			"encoding": "jsonParsed",
		},
	}

	var raw json.RawMessage
	if err := c.call(ctx, "getMultipleAccounts", params, &raw); err != nil {
		return nil, err
	}

	accounts := make([]*ParsedAccount, len(addresses))
	values := gjson.GetBytes(raw, "value").Array()
	for i, v := range values {
		if i >= len(addresses) {
			break
		}
		if !v.IsObject() {
			continue
		}
		accounts[i] = &ParsedAccount{
			Address:    addresses[i],
			Lamports:   v.Get("lamports").Uint(),
			Program:    v.Get("owner").String(),
			TokenOwner: v.Get("data.parsed.info.owner").String(),
			Mint:       v.Get("data.parsed.info.mint").String(),
		}
	}
	return accounts, nil
}

// GetAccountInfo retrieves account info by public key.
// Returns nil if account not found.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error) {
	params := []interface{}{
		pubkey,
		map[string]interface{}{
			"encoding": "base64",
		},
	}

	var result getAccountInfoResult
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}

	if result.Value == nil {
		return nil, nil
	}

	info := &AccountInfo{
		Lamports:   result.Value.Lamports,
		Owner:      result.Value.Owner,
		Executable: result.Value.Executable,
		RentEpoch:  result.Value.RentEpoch,
	}

	if len(result.Value.Data) >= 1 {
		info.Data = result.Value.Data[0]
	}

	return info, nil
}

type getAccountInfoResult struct {
	Value *getAccountInfoValue `json:"value"`
}

type getAccountInfoValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64_data, encoding]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

// GetTokenAccountsByOwner returns jsonParsed token accounts of owner holding mint.
func (c *HTTPClient) GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]TokenAccount, error) {
	params := []interface{}{
		owner,
		map[string]interface{}{"mint": mint},
		map[string]interface{}{"encoding": "jsonParsed"},
	}

	var raw json.RawMessage
	if err := c.call(ctx, "getTokenAccountsByOwner", params, &raw); err != nil {
		return nil, err
	}

	var accounts []TokenAccount
	gjson.GetBytes(raw, "value").ForEach(func(_, v gjson.Result) bool {
		info := v.Get("account.data.parsed.info")
		accounts = append(accounts, TokenAccount{
			Address: v.Get("pubkey").String(),
			Mint:    info.Get("mint").String(),
			Owner:   info.Get("owner").String(),
			Amount: NewTokenAmount(
				info.Get("tokenAmount.amount").String(),
				uint8(info.Get("tokenAmount.decimals").Uint()),
			),
		})
		return true
	})
	return accounts, nil
}

// GetProgramAccounts returns base64-decoded accounts owned by programID matching filters.
func (c *HTTPClient) GetProgramAccounts(ctx context.Context, programID string, filters []ProgramAccountFilter) ([]ProgramAccount, error) {
	rawFilters := make([]interface{}, 0, len(filters))
	for _, f := range filters {
		if f.Memcmp != nil {
			rawFilters = append(rawFilters, map[string]interface{}{
				"memcmp": map[string]interface{}{
					"offset": f.Memcmp.Offset,
					"bytes":  f.Memcmp.Bytes,
				},
			})
			continue
		}
		rawFilters = append(rawFilters, map[string]interface{}{"dataSize": f.DataSize})
	}

	config := map[string]interface{}{"encoding": "base64"}
	if len(rawFilters) > 0 {
		config["filters"] = rawFilters
	}

	var result []getProgramAccountsResult
	if err := c.call(ctx, "getProgramAccounts", []interface{}{programID, config}, &result); err != nil {
		return nil, err
	}

	accounts := make([]ProgramAccount, 0, len(result))
	for _, r := range result {
		acc := ProgramAccount{
			Pubkey:   r.Pubkey,
			Lamports: r.Account.Lamports,
			Owner:    r.Account.Owner,
		}
		if len(r.Account.Data) >= 1 {
			data, err := base64.StdEncoding.DecodeString(r.Account.Data[0])
			if err != nil {
				return nil, &TransportError{Method: "getProgramAccounts", Err: fmt.Errorf("decode account %s data: %w", r.Pubkey, err)}
			}
			acc.Data = data
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

type getProgramAccountsResult struct {
	Pubkey  string              `json:"pubkey"`
	Account getAccountInfoValue `json:"account"`
}

// GetSignaturesForAddress retrieves signatures for an address with pagination.
func (c *HTTPClient) GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error) {
	config := make(map[string]interface{})
	if opts != nil {
		if opts.Before != "" {
			config["before"] = opts.Before
		}
		if opts.Until != "" {
			config["until"] = opts.Until
		}
		if opts.Limit > 0 {
			config["limit"] = opts.Limit
		}
	}

	params := []interface{}{address}
	if len(config) > 0 {
		params = append(params, config)
	}

	var result []getSignaturesResult
	if err := c.call(ctx, "getSignaturesForAddress", params, &result); err != nil {
		return nil, err
	}

	sigs := make([]SignatureInfo, len(result))
	for i, r := range result {
		sigs[i] = SignatureInfo{
			Signature: r.Signature,
			Slot:      r.Slot,
			BlockTime: r.BlockTime,
			Err:       r.Err,
		}
	}

	return sigs, nil
}

// getSignaturesResult is the raw RPC response item for getSignaturesForAddress.
type getSignaturesResult struct {
	Signature string      `json:"signature"`
	Slot      int64       `json:"slot"`
	BlockTime *int64      `json:"blockTime"`
	Err       interface{} `json:"err"`
}
