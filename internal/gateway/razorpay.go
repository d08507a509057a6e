// Package gateway is the Razorpay adapter: order creation, payout
// rails and the signature primitives used to authenticate inbound
// payment events.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Client struct {
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	client        *http.Client
}

func NewClient(baseURL, keyID, keySecret, webhookSecret string) *Client {
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		client:        &http.Client{Timeout: 15 * time.Second},
	}
}

// KeyID returns the public key id the checkout frontend needs.
func (c *Client) KeyID() string { return c.keyID }

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type orderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// CreateOrder creates a gateway order for amount in minor units
// (paise for INR).
func (c *Client) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (*Order, error) {
	var order Order
	err := c.do(ctx, http.MethodPost, "/orders", orderRequest{
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	}, nil, &order)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

type Payment struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	Status  string `json:"status"`
	Method  string `json:"method"`
}

// Captured reports whether the payment is actionable for settlement.
func (p Payment) Captured() bool {
	return p.Status == "captured" || p.Status == "authorized"
}

// OrderPayments fetches the payments recorded against a gateway order.
// The reconciliation worker uses it as a backstop for lost webhooks.
func (c *Client) OrderPayments(ctx context.Context, orderID string) ([]Payment, error) {
	var out struct {
		Items []Payment `json:"items"`
	}
	path := fmt.Sprintf("/orders/%s/payments", url.PathEscape(orderID))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

type Contact struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

func (c *Client) CreateContact(ctx context.Context, name, email, phone string) (*Contact, error) {
	var contact Contact
	err := c.do(ctx, http.MethodPost, "/contacts", map[string]string{
		"name":    name,
		"email":   email,
		"contact": phone,
		"type":    "customer",
	}, nil, &contact)
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

type FundAccount struct {
	ID        string `json:"id"`
	ContactID string `json:"contact_id"`
}

type fundAccountRequest struct {
	ContactID   string      `json:"contact_id"`
	AccountType string      `json:"account_type"`
	BankAccount bankAccount `json:"bank_account"`
}

type bankAccount struct {
	Name          string `json:"name"`
	IFSC          string `json:"ifsc"`
	AccountNumber string `json:"account_number"`
}

func (c *Client) CreateFundAccount(ctx context.Context, contactID, holderName, ifsc, accountNumber string) (*FundAccount, error) {
	var acc FundAccount
	err := c.do(ctx, http.MethodPost, "/fund_accounts", fundAccountRequest{
		ContactID:   contactID,
		AccountType: "bank_account",
		BankAccount: bankAccount{
			Name:          holderName,
			IFSC:          ifsc,
			AccountNumber: accountNumber,
		},
	}, nil, &acc)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

type Payout struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

type PayoutRequest struct {
	AccountNumber string `json:"account_number"`
	FundAccountID string `json:"fund_account_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Mode          string `json:"mode"`
	Purpose       string `json:"purpose"`
	QueueIfLow    bool   `json:"queue_if_low_balance"`
	ReferenceID   string `json:"reference_id,omitempty"`
	Narration     string `json:"narration,omitempty"`
}

// CreatePayout initiates a payout. Each call carries a fresh
// idempotency key so a gateway-side retry cannot double-pay.
func (c *Client) CreatePayout(ctx context.Context, req PayoutRequest) (*Payout, error) {
	if req.Currency == "" {
		req.Currency = "INR"
	}
	if req.Mode == "" {
		req.Mode = "IMPS"
	}
	if req.Purpose == "" {
		req.Purpose = "payout"
	}
	headers := map[string]string{"X-Payout-Idempotency": uuid.NewString()}
	var payout Payout
	if err := c.do(ctx, http.MethodPost, "/payouts", req, headers, &payout); err != nil {
		return nil, err
	}
	return &payout, nil
}

func (c *Client) ListPayouts(ctx context.Context, accountNumber string) ([]Payout, error) {
	var out struct {
		Items []Payout `json:"items"`
	}
	path := "/payouts?account_number=" + url.QueryEscape(accountNumber)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, payload any, headers map[string]string, out any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Description != "" {
			return fmt.Errorf("razorpay %s %s: %s (status %d)", method, path, apiErr.Error.Description, resp.StatusCode)
		}
		return fmt.Errorf("razorpay %s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
