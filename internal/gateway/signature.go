package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// VerifyWebhookSignature checks the x-razorpay-signature header against
// an HMAC-SHA256 of the raw webhook body keyed with the webhook secret.
// The comparison is constant time.
func (c *Client) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	return verifyHMAC([]byte(c.webhookSecret), rawBody, signature)
}

// VerifyCheckoutSignature checks the signature the gateway's checkout
// hands back to the frontend: HMAC-SHA256 over "orderID|paymentID"
// keyed with the API key secret.
func (c *Client) VerifyCheckoutSignature(orderID, paymentID, signature string) bool {
	return verifyHMAC([]byte(c.keySecret), []byte(orderID+"|"+paymentID), signature)
}

func verifyHMAC(key, message []byte, signature string) bool {
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hmac.Equal(mac.Sum(nil), provided)
}

// WebhookEvent is the inbound payment event envelope.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity Payment `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// PaymentEvent reports whether the event carries a payment entity the
// settlement flow cares about.
func (e WebhookEvent) PaymentEvent() bool {
	return e.Event == "payment.captured" || e.Event == "payment.authorized"
}

func ParseWebhookEvent(rawBody []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
