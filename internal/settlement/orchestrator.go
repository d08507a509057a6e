package settlement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cryptobazaar/internal/chain"
	"cryptobazaar/internal/gateway"
	"cryptobazaar/internal/metrics"
	"cryptobazaar/internal/models"
	"cryptobazaar/internal/money"
	"cryptobazaar/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type Orchestrator struct {
	Ledger          Ledger
	Gateway         Gateway
	Chain           chain.Adapter
	Tokens          *chain.Registry
	MinOrderMinor   int64
	GasReserve      decimal.Decimal
	TransferTimeout time.Duration
}

func New(ledger Ledger, gw Gateway, adapter chain.Adapter, tokens *chain.Registry, minOrderMinor int64, gasReserve decimal.Decimal, transferTimeout time.Duration) *Orchestrator {
	if minOrderMinor <= 0 {
		minOrderMinor = 500
	}
	if transferTimeout <= 0 {
		transferTimeout = 90 * time.Second
	}
	return &Orchestrator{
		Ledger:          ledger,
		Gateway:         gw,
		Chain:           adapter,
		Tokens:          tokens,
		MinOrderMinor:   minOrderMinor,
		GasReserve:      gasReserve,
		TransferTimeout: transferTimeout,
	}
}

// PurchaseResult carries what the checkout frontend needs to collect
// the fiat payment.
type PurchaseResult struct {
	Transaction *models.Transaction
	AmountMinor int64
	Currency    string
	KeyID       string
}

// CreatePurchase fixes the fiat price of a slice of an ad, creates a
// gateway order for it and records the pending transaction. Inventory
// is not reserved here; the decrement happens at settlement.
func (o *Orchestrator) CreatePurchase(ctx context.Context, buyerID, sellAdID string, quantity decimal.Decimal) (*PurchaseResult, error) {
	if quantity.Sign() <= 0 {
		return nil, ErrInvalidQuantity
	}

	ad, err := o.Ledger.GetSellAd(ctx, sellAdID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !ad.Status.Open() {
		return nil, ErrInvalidState
	}
	if quantity.GreaterThan(ad.AvailableQuantity) {
		return nil, ErrInsufficientInventory
	}
	if _, ok := o.Tokens.Get(ad.Cryptocurrency); !ok {
		return nil, ErrUnsupportedAsset
	}

	buyer, err := o.Ledger.GetUserByID(ctx, buyerID)
	if err != nil {
		return nil, mapNotFound(err)
	}

	fiatAmount := ad.Price.Mul(quantity)
	amountMinor := money.MinorUnits(fiatAmount)
	if amountMinor < o.MinOrderMinor {
		return nil, ErrAmountTooSmall
	}

	txID := uuid.NewString()
	order, err := o.Gateway.CreateOrder(ctx, amountMinor, ad.FiatCurrency, "tx_"+txID, map[string]string{
		"sellAdId": ad.ID,
		"buyerId":  buyer.ID,
		"sellerId": ad.SellerID,
		"quantity": quantity.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	tx := &models.Transaction{
		ID:             txID,
		BuyerID:        buyer.ID,
		SellerID:       ad.SellerID,
		SellAdID:       ad.ID,
		Cryptocurrency: ad.Cryptocurrency,
		CryptoQuantity: quantity,
		FiatAmount:     fiatAmount,
		FiatCurrency:   ad.FiatCurrency,
		GatewayOrderID: order.ID,
		Status:         models.TxPaymentPending,
	}
	if err := o.Ledger.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	log.Printf("purchase created tx=%s ad=%s order=%s amount_minor=%d", tx.ID, ad.ID, order.ID, amountMinor)

	return &PurchaseResult{
		Transaction: tx,
		AmountMinor: amountMinor,
		Currency:    order.Currency,
		KeyID:       o.Gateway.KeyID(),
	}, nil
}

// HandleWebhook processes one signed gateway event. Signature and
// parse failures are the only errors the webhook endpoint answers
// non-2xx for; everything past the signature check is recorded on the
// transaction instead so the gateway stops retrying unrecoverable
// conditions.
func (o *Orchestrator) HandleWebhook(ctx context.Context, rawBody []byte, signature string) error {
	if !o.Gateway.VerifyWebhookSignature(rawBody, signature) {
		metrics.WebhookRejectedTotal.WithLabelValues("signature").Inc()
		return ErrSignatureInvalid
	}
	event, err := gateway.ParseWebhookEvent(rawBody)
	if err != nil {
		metrics.WebhookRejectedTotal.WithLabelValues("parse").Inc()
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if !event.PaymentEvent() {
		log.Printf("webhook ignored event=%s", event.Event)
		return nil
	}
	payment := event.Payload.Payment.Entity
	if !payment.Captured() {
		// Not actionable yet; acknowledge and wait for capture.
		log.Printf("webhook payment=%s status=%s, not captured yet", payment.ID, payment.Status)
		return nil
	}
	return o.SettlePayment(ctx, payment, signature)
}

// SettlePayment is the single authoritative settlement routine; the
// webhook, the checkout verify endpoint and the reconciliation worker
// all funnel through it. Exactly-once release holds because only the
// caller whose claim advanced PAYMENT_PENDING to PAYMENT_RECEIVED
// proceeds to the transfer.
func (o *Orchestrator) SettlePayment(ctx context.Context, payment gateway.Payment, signature string) error {
	tx, err := o.Ledger.GetTransactionByGatewayOrder(ctx, payment.OrderID)
	if err != nil {
		return mapNotFound(err)
	}

	if tx.Status.Terminal() || tx.Status == models.TxEscrowReleased {
		log.Printf("payment event for tx=%s already processed (status=%s)", tx.ID, tx.Status)
		return nil
	}

	expected := money.MinorUnits(tx.FiatAmount)
	if payment.Amount != expected {
		metrics.WebhookRejectedTotal.WithLabelValues("amount").Inc()
		reason := fmt.Sprintf("amount mismatch: expected %d, received %d", expected, payment.Amount)
		if err := o.Ledger.MarkTransactionFailed(ctx, tx.ID, reason); err != nil {
			return err
		}
		log.Printf("tx=%s failed: %s", tx.ID, reason)
		return ErrAmountMismatch
	}

	claimed, err := o.Ledger.ClaimPaymentReceived(ctx, tx.ID, payment.ID, signature)
	if err != nil {
		return err
	}
	if !claimed {
		// Lost the race to a concurrent delivery of the same event.
		log.Printf("payment event for tx=%s already claimed", tx.ID)
		return nil
	}
	log.Printf("tx=%s -> %s payment=%s", tx.ID, models.TxPaymentReceived, payment.ID)

	return o.release(ctx, tx)
}

// VerifyCheckout handles the checkout-callback path: the signature the
// gateway hands the frontend after payment. It converges on the same
// claim-and-release routine as the webhook.
func (o *Orchestrator) VerifyCheckout(ctx context.Context, orderID, paymentID, signature string) (*models.Transaction, error) {
	if !o.Gateway.VerifyCheckoutSignature(orderID, paymentID, signature) {
		return nil, ErrSignatureInvalid
	}
	tx, err := o.Ledger.GetTransactionByGatewayOrder(ctx, orderID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !tx.Status.Terminal() && tx.Status != models.TxEscrowReleased {
		claimed, err := o.Ledger.ClaimPaymentReceived(ctx, tx.ID, paymentID, signature)
		if err != nil {
			return nil, err
		}
		if claimed {
			if err := o.release(ctx, tx); err != nil {
				log.Printf("release after checkout verify failed tx=%s: %v", tx.ID, err)
			}
		}
	}
	refreshed, err := o.Ledger.GetTransaction(ctx, tx.ID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return refreshed, nil
}

// RecordCheckoutFailure marks a still-pending transaction failed after
// the frontend reports an aborted or declined payment.
func (o *Orchestrator) RecordCheckoutFailure(ctx context.Context, orderID, reason string) error {
	tx, err := o.Ledger.GetTransactionByGatewayOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if tx.Status != models.TxPaymentPending {
		return nil
	}
	if reason == "" {
		reason = "payment failed at checkout"
	}
	return o.Ledger.MarkTransactionFailed(ctx, tx.ID, reason)
}

// release performs the on-chain transfer and the atomic ledger update.
// The inventory decrement is the last step so a transfer failure needs
// no compensating action.
func (o *Orchestrator) release(ctx context.Context, tx *models.Transaction) error {
	token, ok := o.Tokens.Get(tx.Cryptocurrency)
	if !ok {
		return o.fail(ctx, tx, "unsupported cryptocurrency: "+tx.Cryptocurrency, ErrUnsupportedAsset)
	}
	buyer, err := o.Ledger.GetUserByID(ctx, tx.BuyerID)
	if err != nil {
		return o.fail(ctx, tx, "buyer lookup failed", mapNotFound(err))
	}

	balance, err := o.Chain.BalanceOf(ctx, token)
	if err != nil {
		return o.fail(ctx, tx, "balance check failed: "+err.Error(), err)
	}
	required := tx.CryptoQuantity
	if token.Native {
		// Keep enough native balance back to pay the transfer's fee.
		required = required.Add(o.GasReserve)
	}
	if balance.LessThan(required) {
		reason := fmt.Sprintf("insufficient hot wallet balance: have %s, need %s %s", balance, required, token.Symbol)
		return o.fail(ctx, tx, reason, chain.ErrInsufficientFunds)
	}

	transferCtx, cancel := context.WithTimeout(ctx, o.TransferTimeout)
	defer cancel()
	start := time.Now()
	receipt, err := o.Chain.Transfer(transferCtx, token, buyer.WalletAddress, tx.CryptoQuantity)
	metrics.TransferSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return o.fail(ctx, tx, "transfer failed: "+err.Error(), err)
	}

	if err := o.Ledger.FinalizeSettlement(ctx, tx.ID, receipt.TxHash); err != nil {
		if errors.Is(err, store.ErrInventoryGone) {
			// Funds already moved; the ledger refused the decrement.
			// Terminal failure that needs an operator.
			return o.fail(ctx, tx, "inventory exhausted after transfer "+receipt.TxHash+", manual reconciliation required", err)
		}
		return err
	}

	metrics.SettlementsTotal.WithLabelValues(string(models.TxCompleted)).Inc()
	log.Printf("tx=%s settled release=%s block=%d gas=%d", tx.ID, receipt.TxHash, receipt.BlockNumber, receipt.GasUsed)
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, tx *models.Transaction, reason string, cause error) error {
	metrics.SettlementsTotal.WithLabelValues(string(models.TxFailed)).Inc()
	if err := o.Ledger.MarkTransactionFailed(ctx, tx.ID, reason); err != nil {
		log.Printf("mark failed tx=%s: %v", tx.ID, err)
	}
	log.Printf("tx=%s failed: %s", tx.ID, reason)
	return cause
}

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
