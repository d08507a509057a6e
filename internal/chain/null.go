package chain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NullAdapter is a development stand-in that moves no funds and
// synthesizes receipt hashes. It must only be wired when
// chain.adapter is explicitly set to "null"; the constructor logs a
// warning so it cannot end up in a production deployment unnoticed.
type NullAdapter struct {
	mu      sync.Mutex
	balance decimal.Decimal
	sender  string
}

func NewNullAdapter(balance decimal.Decimal) *NullAdapter {
	log.Printf("WARNING: null chain adapter active, no funds will move on-chain")
	return &NullAdapter{
		balance: balance,
		sender:  "0x0000000000000000000000000000000000000000",
	}
}

func (a *NullAdapter) Sender() string { return a.sender }

func (a *NullAdapter) BalanceOf(ctx context.Context, token Token) (decimal.Decimal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance, nil
}

func (a *NullAdapter) Transfer(ctx context.Context, token Token, to string, quantity decimal.Decimal) (*Receipt, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if quantity.GreaterThan(a.balance) {
		return nil, ErrInsufficientFunds
	}
	a.balance = a.balance.Sub(quantity)
	sum := sha256.Sum256([]byte(uuid.NewString()))
	return &Receipt{TxHash: "0x" + hex.EncodeToString(sum[:])}, nil
}
