package stub

import (
	"context"
	"strings"
	"sync"

	"github.com/mr-tron/base58"

	"solana-token-market/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
// Errors keyed by RPC method name are returned instead of data.
type RPCClient struct {
	mu sync.Mutex

	Balances        map[string]solana.TokenAmount     // token account -> balance
	Supplies        map[string]solana.TokenAmount     // mint -> supply
	Holders         map[string][]solana.TokenHolder   // mint -> largest accounts
	Accounts        map[string]*solana.ParsedAccount  // address -> parsed account
	AccountInfos    map[string]*solana.AccountInfo    // address -> base64 account
	TokenAccounts   map[string][]solana.TokenAccount  // owner -> token accounts
	ProgramAccounts map[string][]solana.ProgramAccount // program -> accounts
	Signatures      map[string][]solana.SignatureInfo // address -> signatures
	Errors          map[string]error

	calls map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Balances:        make(map[string]solana.TokenAmount),
		Supplies:        make(map[string]solana.TokenAmount),
		Holders:         make(map[string][]solana.TokenHolder),
		Accounts:        make(map[string]*solana.ParsedAccount),
		AccountInfos:    make(map[string]*solana.AccountInfo),
		TokenAccounts:   make(map[string][]solana.TokenAccount),
		ProgramAccounts: make(map[string][]solana.ProgramAccount),
		Signatures:      make(map[string][]solana.SignatureInfo),
		Errors:          make(map[string]error),
		calls:           make(map[string]int),
	}
}

// Calls returns how many times method was invoked.
func (c *RPCClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// SetError makes every subsequent call to method fail with err.
func (c *RPCClient) SetError(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Errors[method] = err
}

func (c *RPCClient) enter(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++
	return c.Errors[method]
}

// GetTokenAccountBalance returns the stored balance, zero if unknown.
func (c *RPCClient) GetTokenAccountBalance(_ context.Context, account string) (solana.TokenAmount, error) {
	if err := c.enter("getTokenAccountBalance"); err != nil {
		return solana.TokenAmount{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.Balances[account]; ok {
		return b, nil
	}
	return solana.NewTokenAmount("0", 0), nil
}

// GetTokenSupply returns the stored supply, zero if unknown.
func (c *RPCClient) GetTokenSupply(_ context.Context, mint string) (solana.TokenAmount, error) {
	if err := c.enter("getTokenSupply"); err != nil {
		return solana.TokenAmount{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.Supplies[mint]; ok {
		return s, nil
	}
	return solana.NewTokenAmount("0", 0), nil
}

// GetTokenLargestAccounts returns the stored holders.
func (c *RPCClient) GetTokenLargestAccounts(_ context.Context, mint string) ([]solana.TokenHolder, error) {
	if err := c.enter("getTokenLargestAccounts"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Holders[mint], nil
}

// GetMultipleAccounts returns stored parsed accounts in request order.
func (c *RPCClient) GetMultipleAccounts(_ context.Context, addresses []string) ([]*solana.ParsedAccount, error) {
	if err := c.enter("getMultipleAccounts"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*solana.ParsedAccount, len(addresses))
	for i, addr := range addresses {
		out[i] = c.Accounts[addr]
	}
	return out, nil
}

// GetAccountInfo returns the stored account, nil if unknown.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	if err := c.enter("getAccountInfo"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.AccountInfos[pubkey], nil
}

// GetTokenAccountsByOwner returns stored token accounts of owner filtered by mint.
func (c *RPCClient) GetTokenAccountsByOwner(_ context.Context, owner, mint string) ([]solana.TokenAccount, error) {
	if err := c.enter("getTokenAccountsByOwner"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []solana.TokenAccount
	for _, acc := range c.TokenAccounts[owner] {
		if acc.Mint == mint {
			out = append(out, acc)
		}
	}
	return out, nil
}

// GetProgramAccounts applies dataSize and memcmp filters to stored program accounts.
func (c *RPCClient) GetProgramAccounts(_ context.Context, programID string, filters []solana.ProgramAccountFilter) ([]solana.ProgramAccount, error) {
	if err := c.enter("getProgramAccounts"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []solana.ProgramAccount
	for _, acc := range c.ProgramAccounts[programID] {
		if matches(acc, filters) {
			out = append(out, acc)
		}
	}
	return out, nil
}

func matches(acc solana.ProgramAccount, filters []solana.ProgramAccountFilter) bool {
	for _, f := range filters {
		if f.Memcmp != nil {
			want, err := base58.Decode(f.Memcmp.Bytes)
			if err != nil {
				return false
			}
			end := f.Memcmp.Offset + len(want)
			if end > len(acc.Data) || string(acc.Data[f.Memcmp.Offset:end]) != string(want) {
				return false
			}
			continue
		}
		if uint64(len(acc.Data)) != f.DataSize {
			return false
		}
	}
	return true
}

// GetSignaturesForAddress retrieves signatures for an address from the stub store.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	if err := c.enter("getSignaturesForAddress"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	sigs := c.Signatures[address]

	// Apply limit if specified
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		return sigs[:opts.Limit], nil
	}

	return sigs, nil
}

// AddBalance stores a token account balance given as a decimal string (e.g. "1.5").
func (c *RPCClient) AddBalance(account, ui string, decimals uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[account] = amount(ui, decimals)
}

// AddSupply stores a mint supply given as a decimal string.
func (c *RPCClient) AddSupply(mint, ui string, decimals uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Supplies[mint] = amount(ui, decimals)
}

// AddHolder appends a largest-holder entry for mint owned by owner.
func (c *RPCClient) AddHolder(mint, tokenAccount, owner, ui string, decimals uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Holders[mint] = append(c.Holders[mint], solana.TokenHolder{
		Address: tokenAccount,
		Amount:  amount(ui, decimals),
	})
	c.Accounts[tokenAccount] = &solana.ParsedAccount{
		Address:    tokenAccount,
		Program:    "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
		TokenOwner: owner,
		Mint:       mint,
	}
}

// AddTokenAccount stores a token account held by owner.
func (c *RPCClient) AddTokenAccount(owner, address, mint, ui string, decimals uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TokenAccounts[owner] = append(c.TokenAccounts[owner], solana.TokenAccount{
		Address: address,
		Mint:    mint,
		Owner:   owner,
		Amount:  amount(ui, decimals),
	})
}

// AddProgramAccount stores a raw account owned by program.
func (c *RPCClient) AddProgramAccount(program, pubkey string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ProgramAccounts[program] = append(c.ProgramAccounts[program], solana.ProgramAccount{
		Pubkey: pubkey,
		Owner:  program,
		Data:   data,
	})
}

// AddSignatures adds signatures for an address to the stub store.
func (c *RPCClient) AddSignatures(address string, sigs []solana.SignatureInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Signatures[address] = sigs
}

// amount converts a decimal string into a TokenAmount with the given decimals.
func amount(ui string, decimals uint8) solana.TokenAmount {
	whole, frac, _ := strings.Cut(ui, ".")
	for len(frac) < int(decimals) {
		frac += "0"
	}
	frac = frac[:decimals]
	raw := strings.TrimLeft(whole+frac, "0")
	if raw == "" {
		raw = "0"
	}
	return solana.NewTokenAmount(raw, decimals)
}
