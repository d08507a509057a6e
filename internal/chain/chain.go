// Package chain performs the on-chain side of settlement: balance
// checks and signed token or native transfers from the server's hot
// wallet, returning a receipt once mined.
package chain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds means the hot wallet cannot cover the
	// transfer (plus the gas reserve for native transfers).
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNetwork covers RPC failures and timeouts; the transfer may be
	// retried by an operator.
	ErrNetwork = errors.New("chain network error")
	// ErrReverted means the transaction was mined and failed; retrying
	// the same call will not help.
	ErrReverted = errors.New("transaction reverted")
)

// Token describes a transferable asset. A native token has no contract
// address and 18 decimals.
type Token struct {
	Symbol   string
	Address  string
	Decimals int32
	Native   bool
}

// Registry resolves configured token symbols.
type Registry struct {
	tokens map[string]Token
}

func NewRegistry(tokens []Token) *Registry {
	m := make(map[string]Token, len(tokens))
	for _, t := range tokens {
		if t.Native && t.Decimals == 0 {
			t.Decimals = 18
		}
		m[t.Symbol] = t
	}
	return &Registry{tokens: m}
}

func (r *Registry) Get(symbol string) (Token, bool) {
	t, ok := r.tokens[symbol]
	return t, ok
}

// Receipt is the mined result of a transfer.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
}

// Adapter is the transfer capability the settlement orchestrator
// invokes. It holds no persistent state.
type Adapter interface {
	Sender() string
	BalanceOf(ctx context.Context, token Token) (decimal.Decimal, error)
	Transfer(ctx context.Context, token Token, to string, quantity decimal.Decimal) (*Receipt, error)
}
