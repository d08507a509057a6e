package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AdStatus string

const (
	AdActive    AdStatus = "ACTIVE"
	AdLocked    AdStatus = "LOCKED"
	AdCompleted AdStatus = "COMPLETED"
	AdCancelled AdStatus = "CANCELLED"
)

// Open reports whether an ad can still be purchased from.
func (s AdStatus) Open() bool {
	return s == AdActive || s == AdLocked
}

type TxStatus string

const (
	TxPaymentPending  TxStatus = "PAYMENT_PENDING"
	TxPaymentReceived TxStatus = "PAYMENT_RECEIVED"
	TxEscrowReleased  TxStatus = "ESCROW_RELEASED"
	TxCompleted       TxStatus = "COMPLETED"
	TxFailed          TxStatus = "FAILED"
)

// Terminal reports whether the transaction can no longer change.
func (s TxStatus) Terminal() bool {
	return s == TxCompleted || s == TxFailed
}

type User struct {
	ID                string
	Email             string
	PasswordHash      string
	WalletAddress     string
	AccountHolderName *string
	AccountNumber     *string
	IFSC              *string
	BankName          *string
	GatewayContactID  *string
	GatewayFundAccID  *string
	OnboardingDone    bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SellAd is a seller's standing offer to sell a quantity of a
// cryptocurrency at a fixed fiat price per unit. AvailableQuantity only
// ever decreases, and only together with a settled Transaction.
type SellAd struct {
	ID                string
	SellerID          string
	SellerWallet      string
	Cryptocurrency    string
	FiatCurrency      string
	Price             decimal.Decimal
	TotalQuantity     decimal.Decimal
	AvailableQuantity decimal.Decimal
	Status            AdStatus
	EscrowTxHash      *string
	EscrowContract    *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Transaction is one buyer's attempt to purchase a slice of a SellAd.
// FiatAmount is fixed at creation time (price * quantity) and never
// recomputed.
type Transaction struct {
	ID               string
	BuyerID          string
	SellerID         string
	SellAdID         string
	Cryptocurrency   string
	CryptoQuantity   decimal.Decimal
	FiatAmount       decimal.Decimal
	FiatCurrency     string
	GatewayOrderID   string
	GatewayPaymentID *string
	GatewaySignature *string
	ReleaseTxHash    *string
	Status           TxStatus
	FailureReason    *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Payout records a fiat payout initiated for a seller through the
// gateway's payout rail.
type Payout struct {
	ID              string
	UserID          string
	GatewayPayoutID string
	AmountMinor     int64
	Currency        string
	Mode            string
	Status          string
	CreatedAt       time.Time
}
