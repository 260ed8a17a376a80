package solana

import "context"

// RPCClient defines the Solana JSON-RPC read surface used by the market-data core.
type RPCClient interface {
	// GetTokenAccountBalance returns the balance of an SPL token account.
	GetTokenAccountBalance(ctx context.Context, account string) (TokenAmount, error)

	// GetTokenSupply returns the total supply of an SPL token mint.
	GetTokenSupply(ctx context.Context, mint string) (TokenAmount, error)

	// GetTokenLargestAccounts returns the largest holder accounts of a mint, largest first.
	GetTokenLargestAccounts(ctx context.Context, mint string) ([]TokenHolder, error)

	// GetMultipleAccounts returns jsonParsed accounts in request order.
	// Missing accounts are nil entries.
	GetMultipleAccounts(ctx context.Context, addresses []string) ([]*ParsedAccount, error)

	// GetAccountInfo returns base64 account info, or nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetTokenAccountsByOwner returns token accounts of owner holding mint.
	GetTokenAccountsByOwner(ctx context.Context, owner, mint string) ([]TokenAccount, error)

	// GetProgramAccounts returns accounts owned by programID matching all filters.
	GetProgramAccounts(ctx context.Context, programID string, filters []ProgramAccountFilter) ([]ProgramAccount, error)

	// GetSignaturesForAddress retrieves signatures for an address with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)
}
