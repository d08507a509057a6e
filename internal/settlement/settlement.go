// Package settlement drives a Transaction from payment confirmation to
// crypto delivery, exactly once: verified gateway event, claim of the
// transaction, on-chain release, then the atomic ledger update.
package settlement

import (
	"context"
	"errors"
	"time"

	"cryptobazaar/internal/gateway"
	"cryptobazaar/internal/models"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrInvalidState          = errors.New("sell ad is not available for purchase")
	ErrInsufficientInventory = errors.New("not enough quantity available")
	ErrAmountTooSmall        = errors.New("amount below gateway minimum")
	ErrUnsupportedAsset      = errors.New("unsupported cryptocurrency")
	ErrSignatureInvalid      = errors.New("invalid signature")
	ErrMalformedPayload      = errors.New("malformed payload")
	ErrAmountMismatch        = errors.New("payment amount mismatch")
)

// Ledger is the storage the orchestrator mutates. *store.Store
// implements it; lookups report missing rows with pgx.ErrNoRows.
type Ledger interface {
	GetSellAd(ctx context.Context, id string) (*models.SellAd, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	GetTransactionByGatewayOrder(ctx context.Context, orderID string) (*models.Transaction, error)
	ClaimPaymentReceived(ctx context.Context, txID, paymentID, signature string) (bool, error)
	MarkTransactionFailed(ctx context.Context, txID, reason string) error
	FinalizeSettlement(ctx context.Context, txID, releaseTxHash string) error
	ListPendingTransactions(ctx context.Context) ([]*models.Transaction, error)
	ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Gateway is the payment-side collaborator.
type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*gateway.Order, error)
	OrderPayments(ctx context.Context, orderID string) ([]gateway.Payment, error)
	VerifyWebhookSignature(rawBody []byte, signature string) bool
	VerifyCheckoutSignature(orderID, paymentID, signature string) bool
}
