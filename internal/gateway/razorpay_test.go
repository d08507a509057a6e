package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(key string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	c := NewClient("http://example", "key", "secret", "whsecret")
	body := []byte(`{"event":"payment.captured"}`)

	assert.True(t, c.VerifyWebhookSignature(body, sign("whsecret", body)))
	assert.False(t, c.VerifyWebhookSignature(body, sign("wrong", body)))
	assert.False(t, c.VerifyWebhookSignature([]byte(`tampered`), sign("whsecret", body)))
	assert.False(t, c.VerifyWebhookSignature(body, "not-hex!"))
	assert.False(t, c.VerifyWebhookSignature(body, ""))
}

func TestVerifyCheckoutSignature(t *testing.T) {
	c := NewClient("http://example", "key", "secret", "whsecret")

	good := sign("secret", []byte("order_1|pay_1"))
	assert.True(t, c.VerifyCheckoutSignature("order_1", "pay_1", good))
	assert.False(t, c.VerifyCheckoutSignature("order_1", "pay_2", good))
	assert.False(t, c.VerifyCheckoutSignature("order_2", "pay_1", good))
	assert.False(t, c.VerifyCheckoutSignature("order_1", "pay_1", sign("whsecret", []byte("order_1|pay_1"))))
}

func TestParseWebhookEvent(t *testing.T) {
	raw := []byte(`{
		"event": "payment.captured",
		"payload": {"payment": {"entity": {
			"id": "pay_abc", "order_id": "order_xyz", "amount": 90000, "status": "captured"
		}}}
	}`)

	event, err := ParseWebhookEvent(raw)
	require.NoError(t, err)
	assert.True(t, event.PaymentEvent())
	assert.Equal(t, "pay_abc", event.Payload.Payment.Entity.ID)
	assert.Equal(t, "order_xyz", event.Payload.Payment.Entity.OrderID)
	assert.Equal(t, int64(90000), event.Payload.Payment.Entity.Amount)
	assert.True(t, event.Payload.Payment.Entity.Captured())

	_, err = ParseWebhookEvent([]byte(`{broken`))
	assert.Error(t, err)

	other, err := ParseWebhookEvent([]byte(`{"event":"refund.created"}`))
	require.NoError(t, err)
	assert.False(t, other.PaymentEvent())
}

func TestPaymentCaptured(t *testing.T) {
	assert.True(t, Payment{Status: "captured"}.Captured())
	assert.True(t, Payment{Status: "authorized"}.Captured())
	assert.False(t, Payment{Status: "created"}.Captured())
	assert.False(t, Payment{Status: "failed"}.Captured())
}

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key_id", user)
		assert.Equal(t, "key_secret", pass)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(90000), req["amount"])
		assert.Equal(t, "INR", req["currency"])

		json.NewEncoder(w).Encode(Order{ID: "order_1", Amount: 90000, Currency: "INR", Status: "created"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key_id", "key_secret", "wh")
	order, err := c.CreateOrder(context.Background(), 90000, "INR", "tx_1", map[string]string{"sellAdId": "ad1"})
	require.NoError(t, err)
	assert.Equal(t, "order_1", order.ID)
	assert.Equal(t, int64(90000), order.Amount)
}

func TestOrderPayments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/order_1/payments", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"items": []Payment{{ID: "pay_1", OrderID: "order_1", Amount: 90000, Status: "captured"}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "s", "wh")
	payments, err := c.OrderPayments(context.Background(), "order_1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "pay_1", payments[0].ID)
}

func TestCreatePayoutDefaultsAndIdempotency(t *testing.T) {
	var seenKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenKey = r.Header.Get("X-Payout-Idempotency")
		var req PayoutRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "INR", req.Currency)
		assert.Equal(t, "IMPS", req.Mode)
		assert.Equal(t, "payout", req.Purpose)
		json.NewEncoder(w).Encode(Payout{ID: "pout_1", Amount: req.Amount, Status: "queued", Mode: req.Mode})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "s", "wh")
	payout, err := c.CreatePayout(context.Background(), PayoutRequest{
		AccountNumber: "2323230000000000",
		FundAccountID: "fa_1",
		Amount:        50000,
	})
	require.NoError(t, err)
	assert.Equal(t, "pout_1", payout.ID)
	assert.NotEmpty(t, seenKey)
}

func TestAPIErrorSurfacesDescription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "BAD_REQUEST_ERROR", "description": "amount must be at least 100"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", "s", "wh")
	_, err := c.CreateOrder(context.Background(), 1, "INR", "tx_1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount must be at least 100")
	assert.Contains(t, err.Error(), "status 400")
}
