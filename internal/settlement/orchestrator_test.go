package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"cryptobazaar/internal/chain"
	"cryptobazaar/internal/gateway"
	"cryptobazaar/internal/models"
	"cryptobazaar/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLedger mirrors the store's claim and finalize semantics in memory.
type fakeLedger struct {
	users map[string]*models.User
	ads   map[string]*models.SellAd
	txs   map[string]*models.Transaction
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		users: map[string]*models.User{},
		ads:   map[string]*models.SellAd{},
		txs:   map[string]*models.Transaction{},
	}
}

func (l *fakeLedger) GetSellAd(ctx context.Context, id string) (*models.SellAd, error) {
	ad, ok := l.ads[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *ad
	return &cp, nil
}

func (l *fakeLedger) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := l.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (l *fakeLedger) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	cp := *tx
	l.txs[tx.ID] = &cp
	return nil
}

func (l *fakeLedger) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	tx, ok := l.txs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *tx
	return &cp, nil
}

func (l *fakeLedger) GetTransactionByGatewayOrder(ctx context.Context, orderID string) (*models.Transaction, error) {
	for _, tx := range l.txs {
		if tx.GatewayOrderID == orderID {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (l *fakeLedger) ClaimPaymentReceived(ctx context.Context, txID, paymentID, signature string) (bool, error) {
	tx, ok := l.txs[txID]
	if !ok || tx.Status != models.TxPaymentPending {
		return false, nil
	}
	tx.Status = models.TxPaymentReceived
	tx.GatewayPaymentID = &paymentID
	if signature != "" {
		tx.GatewaySignature = &signature
	}
	return true, nil
}

func (l *fakeLedger) MarkTransactionFailed(ctx context.Context, txID, reason string) error {
	tx, ok := l.txs[txID]
	if !ok {
		return nil
	}
	if tx.Status == models.TxCompleted || tx.Status == models.TxFailed {
		return nil
	}
	tx.Status = models.TxFailed
	tx.FailureReason = &reason
	return nil
}

func (l *fakeLedger) FinalizeSettlement(ctx context.Context, txID, releaseTxHash string) error {
	tx, ok := l.txs[txID]
	if !ok || tx.Status != models.TxPaymentReceived {
		return store.ErrNotSettleable
	}
	ad := l.ads[tx.SellAdID]
	if ad.AvailableQuantity.LessThan(tx.CryptoQuantity) {
		return store.ErrInventoryGone
	}
	tx.Status = models.TxEscrowReleased
	tx.ReleaseTxHash = &releaseTxHash
	ad.AvailableQuantity = ad.AvailableQuantity.Sub(tx.CryptoQuantity)
	if ad.AvailableQuantity.IsZero() {
		ad.Status = models.AdCompleted
	}
	tx.Status = models.TxCompleted
	return nil
}

func (l *fakeLedger) ListPendingTransactions(ctx context.Context) ([]*models.Transaction, error) {
	var out []*models.Transaction
	for _, tx := range l.txs {
		if tx.Status == models.TxPaymentPending {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (l *fakeLedger) ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for _, tx := range l.txs {
		if tx.Status == models.TxPaymentPending && tx.CreatedAt.Before(cutoff) {
			reason := "payment window expired"
			tx.Status = models.TxFailed
			tx.FailureReason = &reason
			n++
		}
	}
	return n, nil
}

type fakeGateway struct {
	orders        int
	webhookValid  bool
	checkoutValid bool
	payments      map[string][]gateway.Payment
}

func (g *fakeGateway) KeyID() string { return "rzp_test_key" }

func (g *fakeGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*gateway.Order, error) {
	g.orders++
	return &gateway.Order{
		ID:       fmt.Sprintf("order_%d", g.orders),
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) OrderPayments(ctx context.Context, orderID string) ([]gateway.Payment, error) {
	return g.payments[orderID], nil
}

func (g *fakeGateway) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	return g.webhookValid
}

func (g *fakeGateway) VerifyCheckoutSignature(orderID, paymentID, signature string) bool {
	return g.checkoutValid
}

type fakeAdapter struct {
	balance   decimal.Decimal
	transfers []string
	failWith  error
}

func (a *fakeAdapter) Sender() string { return "0x00000000000000000000000000000000000000aa" }

func (a *fakeAdapter) BalanceOf(ctx context.Context, token chain.Token) (decimal.Decimal, error) {
	return a.balance, nil
}

func (a *fakeAdapter) Transfer(ctx context.Context, token chain.Token, to string, quantity decimal.Decimal) (*chain.Receipt, error) {
	if a.failWith != nil {
		return nil, a.failWith
	}
	a.transfers = append(a.transfers, to)
	return &chain.Receipt{TxHash: "0xrelease", BlockNumber: 12, GasUsed: 21000}, nil
}

func testTokens() *chain.Registry {
	return chain.NewRegistry([]chain.Token{
		{Symbol: "MON", Native: true, Decimals: 18},
		{Symbol: "USDT", Address: "0x0000000000000000000000000000000000000001", Decimals: 6},
	})
}

func seed(ledger *fakeLedger) {
	ledger.users["buyer"] = &models.User{ID: "buyer", Email: "buyer@test.dev", WalletAddress: "0x00000000000000000000000000000000000000b1"}
	ledger.users["seller"] = &models.User{ID: "seller", Email: "seller@test.dev", WalletAddress: "0x00000000000000000000000000000000000000c1"}
	ledger.ads["ad1"] = &models.SellAd{
		ID:                "ad1",
		SellerID:          "seller",
		SellerWallet:      "0x00000000000000000000000000000000000000c1",
		Cryptocurrency:    "USDT",
		FiatCurrency:      "INR",
		Price:             decimal.NewFromInt(90),
		TotalQuantity:     decimal.NewFromInt(100),
		AvailableQuantity: decimal.NewFromInt(100),
		Status:            models.AdActive,
	}
}

func newTestOrchestrator(ledger *fakeLedger, gw *fakeGateway, adapter *fakeAdapter) *Orchestrator {
	return New(ledger, gw, adapter, testTokens(), 500, decimal.RequireFromString("0.01"), 5*time.Second)
}

func TestCreatePurchase(t *testing.T) {
	ledger := newFakeLedger()
	seed(ledger)
	gw := &fakeGateway{}
	orch := newTestOrchestrator(ledger, gw, &fakeAdapter{balance: decimal.NewFromInt(1000)})

	res, err := orch.CreatePurchase(context.Background(), "buyer", "ad1", decimal.NewFromInt(10))
	require.NoError(t, err)

	// 10 units at 90 INR each is 900 INR, 90000 paise.
	assert.Equal(t, int64(90000), res.AmountMinor)
	assert.Equal(t, "INR", res.Currency)
	assert.Equal(t, "rzp_test_key", res.KeyID)
	assert.Equal(t, models.TxPaymentPending, res.Transaction.Status)
	assert.True(t, res.Transaction.FiatAmount.Equal(decimal.NewFromInt(900)))

	stored, err := ledger.GetTransaction(context.Background(), res.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, "order_1", stored.GatewayOrderID)

	// Inventory is untouched until settlement.
	ad, _ := ledger.GetSellAd(context.Background(), "ad1")
	assert.True(t, ad.AvailableQuantity.Equal(decimal.NewFromInt(100)))
}

func TestCreatePurchaseValidation(t *testing.T) {
	ledger := newFakeLedger()
	seed(ledger)
	orch := newTestOrchestrator(ledger, &fakeGateway{}, &fakeAdapter{balance: decimal.NewFromInt(1000)})
	ctx := context.Background()

	_, err := orch.CreatePurchase(ctx, "buyer", "ad1", decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = orch.CreatePurchase(ctx, "buyer", "missing", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = orch.CreatePurchase(ctx, "buyer", "ad1", decimal.NewFromInt(101))
	assert.ErrorIs(t, err, ErrInsufficientInventory)

	// 90 INR * 0.05 = 4.5 INR = 450 paise, below the 500 paise floor.
	_, err = orch.CreatePurchase(ctx, "buyer", "ad1", decimal.RequireFromString("0.05"))
	assert.ErrorIs(t, err, ErrAmountTooSmall)

	ledger.ads["ad1"].Status = models.AdCancelled
	_, err = orch.CreatePurchase(ctx, "buyer", "ad1", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrInvalidState)
	ledger.ads["ad1"].Status = models.AdActive

	ledger.ads["ad1"].Cryptocurrency = "DOGE"
	_, err = orch.CreatePurchase(ctx, "buyer", "ad1", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrUnsupportedAsset)
}

func webhookBody(t *testing.T, orderID string, amount int64) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"event": "payment.captured",
		"payload": map[string]any{
			"payment": map[string]any{
				"entity": map[string]any{
					"id":       "pay_123",
					"order_id": orderID,
					"amount":   amount,
					"status":   "captured",
				},
			},
		},
	})
	require.NoError(t, err)
	return body
}

func TestWebhookSettlesAndDecrementsInventory(t *testing.T) {
	ledger := newFakeLedger()
	seed(ledger)
	gw := &fakeGateway{webhookValid: true}
	adapter := &fakeAdapter{balance: decimal.NewFromInt(1000)}
	orch := newTestOrchestrator(ledger, gw, adapter)
	ctx := context.Background()

	res, err := orch.CreatePurchase(ctx, "buyer", "ad1", decimal.NewFromInt(10))
	require.NoError(t, err)

	err = orch.HandleWebhook(ctx, webhookBody(t, res.Transaction.GatewayOrderID, 90000), "sig")
	require.NoError(t, err)

	tx, _ := ledger.GetTransaction(ctx, res.Transaction.ID)
	assert.Equal(t, models.TxCompleted, tx.Status)
	require.NotNil(t, tx.ReleaseTxHash)
	assert.Equal(t, "0xrelease", *tx.ReleaseTxHash)

	ad, _ := ledger.GetSellAd(ctx, "ad1")
	assert.True(t, ad.AvailableQuantity.Equal(decimal.NewFromInt(90)), "got %s", ad.AvailableQuantity)
	assert.Equal(t, models.AdActive, ad.Status)

	// The crypto went to the buyer's wallet.
	require.Len(t, adapter.transfers, 1)
	assert.Equal(t, "0x00000000000000000000000000000000000000b1", adapter.transfers[0])
}

func TestWebhookDuplicateIsNoOp(t *testing.T) {
	ledger := newFakeLedger()
	seed(ledger)
	gw := &fakeGateway{webhookValid: true}
	adapter := &fakeAdapter{balance: decimal.NewFromInt(1000)}
	orch := newTestOrchestrator(ledger, gw, adapter)
	ctx := context.Background()

	res, err := orch.CreatePurchase(ctx, "buyer", "ad1", decimal.NewFromInt(10))
	require.NoError(t, err)
	body := webhookBody(t, res.Transaction.GatewayOrderID, 90000)

	require.NoError(t, orch.HandleWebhook(ctx, body, "sig"))
	require.NoError(t, orch.HandleWebhook(ctx, body, "sig"))
	require.NoError(t, orch.HandleWebhook(ctx, body, "sig"))

	// One transfer, one decrement.
	assert.Len(t, adapter.transfers, 1)
	ad, _ := ledger.GetSellAd(ctx, "ad1")
	assert.True(t, ad.AvailableQuantity.Equal(decimal.NewFromInt(90)))
}

func TestWebhookInvalidSignatureMutatesNothing(t *testing.T) {
	ledger := newFakeLedger()
	seed(ledger)
	gw := &fakeGateway{webhookValid: false}
	adapter := &fakeAdapter{balance: decimal.NewFromInt(1000)}
	orch := newTestOrchestrator(ledger, gw, adapter)
	ctx := context.Background()

	res, err := orch.CreatePurchase(ctx, "buyer", "ad1", decimal.NewFromInt(10))
	require.NoError(t, err)

	err = orch.HandleWebhook(ctx, webhookBody(t, res.Transaction.GatewayOrderID, 90000), "tampered")
	assert.ErrorIs(t, err, ErrSignatureInvalid)

	tx, _ := ledger.GetTransaction(ctx, res.Transaction.ID)
	assert.Equal(t, models.TxPaymentPending, tx.Status)
	assert.Empty(t, adapter.transfers)
	ad, _ := ledger.GetSellAd(ctx, "ad1")
	assert.True(t, ad.AvailableQuantity.Equal(decimal.NewFromInt(100)))
}

func TestWebhookAmountMismatchFailsTransaction(t *testing.T) {
	ledger := newFakeLedger()
	seed(ledger)
	gw := &fakeGateway{webhookValid: true}
	adapter := &fakeAdapter{balance: decimal.NewFromInt(1000)}
	orch := newTestOrchestrator(ledger, gw, adapter)
	ctx := context.Background()

	res, err := orch.CreatePurchase(ctx, "buyer", "ad1", decimal.NewFromInt(10))
	require.NoError(t, err)

	err = orch.HandleWebhook(ctx, webhookBody(t, res.Transaction.GatewayOrderID, 90001), "sig")
	assert.ErrorIs(t, err, ErrAmountMismatch)

	tx, _ := ledger.GetTransaction(ctx, res.Transaction.ID)
	assert.Equal(t, models.TxFailed, tx.Status)
	require.NotNil(t, tx.FailureReason)
	assert.Contains(t, *tx.FailureReason, "amount mismatch")
	assert.Empty(t, adapter.transfers)
}

func TestWebhookUnknownOrder(t *testing.T) {
	ledger := newFakeLedger()
	seed(ledger)
	orch := newTestOrchestrator(ledger, &fakeGateway{webhookValid: true}, &fakeAdapter{balance: decimal.NewFromInt(1000)})

	err := orch.HandleWebhook(context.Background(), webhookBody(t, "order_missing", 90000), "sig")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWebhookMalformedPayload(t *testing.T) {
	orch := newTestOrchestrator(newFakeLedger(), &fakeGateway{webhookValid: true}, &fakeAdapter{})

	err := orch.HandleWebhook(context.Background(), []byte("{not json"), "sig")
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestWebhookIgnoresNonPaymentEvents(t *testing.T) {
	orch := newTestOrchestrator(newFakeLedger(), &fakeGateway{webhookValid: true}, &fakeAdapter{})

	body, _ := json.Marshal(map[string]any{"event": "refund.created"})
	assert.NoError(t, orch.HandleWebhook(context.Background(), body, "sig"))
}

func TestInsufficientHotWalletBalanceFailsWithoutDecrement(t *testing.T) {
	ledger := newFakeLedger()
	seed(ledger)
	gw := &fakeGateway{webhookValid: true}
	adapter := &fakeAdapter{balance: decimal.NewFromInt(5)}
	orch := newTestOrchestrator(ledger, gw, adapter)
	ctx := context.Background()

	res, err := orch.CreatePurchase(ctx, "buyer", "ad1", decimal.NewFromInt(10))
	require.NoError(t, err)

	err = orch.HandleWebhook(ctx, webhookBody(t, res.Transaction.GatewayOrderID, 90000), "sig")
	assert.ErrorIs(t, err, chain.ErrInsufficientFunds)

	tx, _ := ledger.GetTransaction(ctx, res.Transaction.ID)
	assert.Equal(t, models.TxFailed, tx.Status)
	assert.Empty(t, adapter.transfers)

	ad, _ := ledger.GetSellAd(ctx, "ad1")
	assert.True(t, ad.AvailableQuantity.Equal(decimal.NewFromInt(100)))
}

func TestTransferFailureMarksFailed(t *testing.T) {
	ledger := newFakeLedger()
	seed(ledger)
	gw := &fakeGateway{webhookValid: true}
	adapter := &fakeAdapter{balance: decimal.NewFromInt(1000), failWith: chain.ErrReverted}
	orch := newTestOrchestrator(ledger, gw, adapter)
	ctx := context.Background()

	res, err := orch.CreatePurchase(ctx, "buyer", "ad1", decimal.NewFromInt(10))
	require.NoError(t, err)

	err = orch.HandleWebhook(ctx, webhookBody(t, res.Transaction.GatewayOrderID, 90000), "sig")
	assert.ErrorIs(t, err, chain.ErrReverted)

	tx, _ := ledger.GetTransaction(ctx, res.Transaction.ID)
	assert.Equal(t, models.TxFailed, tx.Status)
	ad, _ := ledger.GetSellAd(ctx, "ad1")
	assert.True(t, ad.AvailableQuantity.Equal(decimal.NewFromInt(100)))
}

func TestGasReserveCountsAgainstNativeBalance(t *testing.T) {
	ledger := newFakeLedger()
	seed(ledger)
	ledger.ads["ad1"].Cryptocurrency = "MON"
	gw := &fakeGateway{webhookValid: true}
	// Exactly the quantity with nothing left for gas.
	adapter := &fakeAdapter{balance: decimal.NewFromInt(10)}
	orch := newTestOrchestrator(ledger, gw, adapter)
	ctx := context.Background()

	res, err := orch.CreatePurchase(ctx, "buyer", "ad1", decimal.NewFromInt(10))
	require.NoError(t, err)

	err = orch.HandleWebhook(ctx, webhookBody(t, res.Transaction.GatewayOrderID, 90000), "sig")
	assert.ErrorIs(t, err, chain.ErrInsufficientFunds)
}

func TestAdCompletesWhenInventoryExhausted(t *testing.T) {
	ledger := newFakeLedger()
	seed(ledger)
	gw := &fakeGateway{webhookValid: true}
	adapter := &fakeAdapter{balance: decimal.NewFromInt(1000)}
	orch := newTestOrchestrator(ledger, gw, adapter)
	ctx := context.Background()

	res, err := orch.CreatePurchase(ctx, "buyer", "ad1", decimal.NewFromInt(100))
	require.NoError(t, err)

	err = orch.HandleWebhook(ctx, webhookBody(t, res.Transaction.GatewayOrderID, 900000), "sig")
	require.NoError(t, err)

	ad, _ := ledger.GetSellAd(ctx, "ad1")
	assert.True(t, ad.AvailableQuantity.IsZero())
	assert.Equal(t, models.AdCompleted, ad.Status)
}

func TestVerifyCheckoutSettles(t *testing.T) {
	ledger := newFakeLedger()
	seed(ledger)
	gw := &fakeGateway{checkoutValid: true}
	adapter := &fakeAdapter{balance: decimal.NewFromInt(1000)}
	orch := newTestOrchestrator(ledger, gw, adapter)
	ctx := context.Background()

	res, err := orch.CreatePurchase(ctx, "buyer", "ad1", decimal.NewFromInt(10))
	require.NoError(t, err)

	tx, err := orch.VerifyCheckout(ctx, res.Transaction.GatewayOrderID, "pay_123", "checkout_sig")
	require.NoError(t, err)
	assert.Equal(t, models.TxCompleted, tx.Status)
	assert.Len(t, adapter.transfers, 1)
}

func TestVerifyCheckoutBadSignature(t *testing.T) {
	orch := newTestOrchestrator(newFakeLedger(), &fakeGateway{checkoutValid: false}, &fakeAdapter{})

	_, err := orch.VerifyCheckout(context.Background(), "order_1", "pay_123", "bad")
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerifyCheckoutAfterWebhookIsIdempotent(t *testing.T) {
	ledger := newFakeLedger()
	seed(ledger)
	gw := &fakeGateway{webhookValid: true, checkoutValid: true}
	adapter := &fakeAdapter{balance: decimal.NewFromInt(1000)}
	orch := newTestOrchestrator(ledger, gw, adapter)
	ctx := context.Background()

	res, err := orch.CreatePurchase(ctx, "buyer", "ad1", decimal.NewFromInt(10))
	require.NoError(t, err)
	require.NoError(t, orch.HandleWebhook(ctx, webhookBody(t, res.Transaction.GatewayOrderID, 90000), "sig"))

	tx, err := orch.VerifyCheckout(ctx, res.Transaction.GatewayOrderID, "pay_123", "checkout_sig")
	require.NoError(t, err)
	assert.Equal(t, models.TxCompleted, tx.Status)
	assert.Len(t, adapter.transfers, 1)
}

func TestRecordCheckoutFailure(t *testing.T) {
	ledger := newFakeLedger()
	seed(ledger)
	orch := newTestOrchestrator(ledger, &fakeGateway{}, &fakeAdapter{balance: decimal.NewFromInt(1000)})
	ctx := context.Background()

	res, err := orch.CreatePurchase(ctx, "buyer", "ad1", decimal.NewFromInt(10))
	require.NoError(t, err)

	require.NoError(t, orch.RecordCheckoutFailure(ctx, res.Transaction.GatewayOrderID, "card declined"))
	tx, _ := ledger.GetTransaction(ctx, res.Transaction.ID)
	assert.Equal(t, models.TxFailed, tx.Status)
	assert.Equal(t, "card declined", *tx.FailureReason)

	// Unknown orders are swallowed; the frontend may report before the
	// order was persisted.
	assert.NoError(t, orch.RecordCheckoutFailure(ctx, "order_missing", "whatever"))
}

func TestRecordCheckoutFailureSkipsSettled(t *testing.T) {
	ledger := newFakeLedger()
	seed(ledger)
	gw := &fakeGateway{webhookValid: true}
	adapter := &fakeAdapter{balance: decimal.NewFromInt(1000)}
	orch := newTestOrchestrator(ledger, gw, adapter)
	ctx := context.Background()

	res, err := orch.CreatePurchase(ctx, "buyer", "ad1", decimal.NewFromInt(10))
	require.NoError(t, err)
	require.NoError(t, orch.HandleWebhook(ctx, webhookBody(t, res.Transaction.GatewayOrderID, 90000), "sig"))

	require.NoError(t, orch.RecordCheckoutFailure(ctx, res.Transaction.GatewayOrderID, "late failure report"))
	tx, _ := ledger.GetTransaction(ctx, res.Transaction.ID)
	assert.Equal(t, models.TxCompleted, tx.Status)
}

func TestInventoryGoneAfterTransferIsTerminal(t *testing.T) {
	ledger := newFakeLedger()
	seed(ledger)
	gw := &fakeGateway{webhookValid: true}
	adapter := &fakeAdapter{balance: decimal.NewFromInt(1000)}
	orch := newTestOrchestrator(ledger, gw, adapter)
	ctx := context.Background()

	res, err := orch.CreatePurchase(ctx, "buyer", "ad1", decimal.NewFromInt(10))
	require.NoError(t, err)

	// Inventory vanishes between claim and finalize.
	ledger.ads["ad1"].AvailableQuantity = decimal.NewFromInt(5)

	err = orch.HandleWebhook(ctx, webhookBody(t, res.Transaction.GatewayOrderID, 90000), "sig")
	assert.True(t, errors.Is(err, store.ErrInventoryGone))

	tx, _ := ledger.GetTransaction(ctx, res.Transaction.ID)
	assert.Equal(t, models.TxFailed, tx.Status)
	require.NotNil(t, tx.FailureReason)
	assert.Contains(t, *tx.FailureReason, "manual reconciliation required")
}
