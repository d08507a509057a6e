package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"cryptobazaar/internal/auth"
	"cryptobazaar/internal/chain"
	"cryptobazaar/internal/models"
	"cryptobazaar/internal/services"
	"cryptobazaar/internal/settlement"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

type contextKey string

const userIDKey contextKey = "userID"

type Handler struct {
	Users      *services.UserService
	Ads        *services.AdService
	Payouts    *services.PayoutService
	Settlement *settlement.Orchestrator
	Auth       *auth.Service
	Ledger     settlement.Ledger
}

func NewHandler(users *services.UserService, ads *services.AdService, payouts *services.PayoutService, orch *settlement.Orchestrator, authSvc *auth.Service, ledger settlement.Ledger) *Handler {
	return &Handler{
		Users:      users,
		Ads:        ads,
		Payouts:    payouts,
		Settlement: orch,
		Auth:       authSvc,
		Ledger:     ledger,
	}
}

// ---- auth ----

func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, err := h.Auth.UserIDFromToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// The websocket path cannot set headers from a browser.
	return r.URL.Query().Get("token")
}

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

type registerRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	WalletAddress string `json:"walletAddress"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type userResponse struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	WalletAddress  string `json:"walletAddress"`
	OnboardingDone bool   `json:"onboardingComplete"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:             u.ID,
		Email:          u.Email,
		WalletAddress:  u.WalletAddress,
		OnboardingDone: u.OnboardingDone,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	user, token, err := h.Users.Register(r.Context(), req.Email, req.Password, req.WalletAddress)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAlreadyRegistered):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, services.ErrMissingField), errors.Is(err, services.ErrInvalidWallet):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: toUserResponse(user)})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	user, token, err := h.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: toUserResponse(user)})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Ledger.GetUserByID(r.Context(), userID(r))
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// ---- bank details / onboarding ----

type bankDetailsRequest struct {
	AccountHolderName string `json:"accountHolderName"`
	AccountNumber     string `json:"accountNumber"`
	IFSC              string `json:"ifsc"`
	BankName          string `json:"bankName"`
}

func (h *Handler) SaveBankDetails(w http.ResponseWriter, r *http.Request) {
	var req bankDetailsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	err := h.Users.SaveBankDetails(r.Context(), userID(r), req.AccountHolderName, req.AccountNumber, req.IFSC, req.BankName)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingField), errors.Is(err, services.ErrInvalidIFSC):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, pgx.ErrNoRows):
			writeError(w, http.StatusNotFound, "user not found")
		default:
			writeError(w, http.StatusInternalServerError, "save bank details failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) GetBankDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.Users.GetBankDetails(r.Context(), userID(r))
	if err != nil {
		if errors.Is(err, services.ErrBankDetailsMissing) {
			writeError(w, http.StatusNotFound, "bank details not set")
			return
		}
		writeError(w, http.StatusInternalServerError, "fetch bank details failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "bankDetails": details})
}

type onboardingRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (h *Handler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	var req onboardingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	user, err := h.Users.CompleteOnboarding(r.Context(), userID(r), req.Name, req.Phone)
	if err != nil {
		if errors.Is(err, services.ErrBankDetailsMissing) {
			writeError(w, http.StatusPreconditionFailed, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "onboarding failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// ---- sell ads ----

type createAdRequest struct {
	Cryptocurrency string `json:"cryptocurrency"`
	Price          string `json:"price"`
	TotalQuantity  string `json:"totalQuantity"`
	EscrowTxHash   string `json:"escrowTxHash"`
	EscrowContract string `json:"escrowContractAddress"`
}

type adResponse struct {
	ID                string `json:"id"`
	Cryptocurrency    string `json:"cryptocurrency"`
	FiatCurrency      string `json:"fiatCurrency"`
	Price             string `json:"price"`
	TotalQuantity     string `json:"totalQuantity"`
	AvailableQuantity string `json:"availableQuantity"`
	Status            string `json:"status"`
	SellerWallet      string `json:"sellerWallet"`
	EscrowTxHash      string `json:"escrowTxHash,omitempty"`
	CreatedAt         string `json:"createdAt"`
}

func toAdResponse(ad *models.SellAd) adResponse {
	resp := adResponse{
		ID:                ad.ID,
		Cryptocurrency:    ad.Cryptocurrency,
		FiatCurrency:      ad.FiatCurrency,
		Price:             ad.Price.String(),
		TotalQuantity:     ad.TotalQuantity.String(),
		AvailableQuantity: ad.AvailableQuantity.String(),
		Status:            string(ad.Status),
		SellerWallet:      ad.SellerWallet,
		CreatedAt:         ad.CreatedAt.Format(time.RFC3339),
	}
	if ad.EscrowTxHash != nil {
		resp.EscrowTxHash = *ad.EscrowTxHash
	}
	return resp
}

func (h *Handler) CreateAd(w http.ResponseWriter, r *http.Request) {
	var req createAdRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}
	quantity, err := decimal.NewFromString(req.TotalQuantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid totalQuantity")
		return
	}
	ad, err := h.Ads.CreateAd(r.Context(), services.CreateAdParams{
		SellerID:       userID(r),
		Cryptocurrency: req.Cryptocurrency,
		Price:          price,
		TotalQuantity:  quantity,
		EscrowTxHash:   req.EscrowTxHash,
		EscrowContract: req.EscrowContract,
	})
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			writeError(w, http.StatusNotFound, "seller not found")
		case errors.Is(err, services.ErrInvalidPrice), errors.Is(err, services.ErrInvalidQuantity), errors.Is(err, services.ErrMissingField):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "create ad failed")
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "ad": toAdResponse(ad)})
}

func (h *Handler) ListAds(w http.ResponseWriter, r *http.Request) {
	ads, err := h.Ads.ListAds(r.Context(), r.URL.Query().Get("cryptocurrency"), r.URL.Query().Get("sortBy"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list ads failed")
		return
	}
	out := make([]adResponse, 0, len(ads))
	for _, ad := range ads {
		out = append(out, toAdResponse(ad))
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "ads": out})
}

func (h *Handler) GetAd(w http.ResponseWriter, r *http.Request) {
	ad, err := h.Ads.GetAd(r.Context(), chi.URLParam(r, "adID"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "sell ad not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get ad failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "ad": toAdResponse(ad)})
}

func (h *Handler) CancelAd(w http.ResponseWriter, r *http.Request) {
	err := h.Ads.CancelAd(r.Context(), chi.URLParam(r, "adID"), userID(r))
	if err != nil {
		if errors.Is(err, services.ErrAdNotCancelable) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "cancel ad failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ---- purchases ----

type createPurchaseRequest struct {
	SellAdID string `json:"sellAdId"`
	Quantity string `json:"quantity"`
}

type txResponse struct {
	ID             string `json:"id"`
	SellAdID       string `json:"sellAdId"`
	Cryptocurrency string `json:"cryptocurrency"`
	CryptoQuantity string `json:"cryptoQuantity"`
	FiatAmount     string `json:"fiatAmount"`
	FiatCurrency   string `json:"fiatCurrency"`
	GatewayOrderID string `json:"gatewayOrderId"`
	Status         string `json:"status"`
	ReleaseTxHash  string `json:"releaseTxHash,omitempty"`
	FailureReason  string `json:"failureReason,omitempty"`
}

func toTxResponse(tx *models.Transaction) txResponse {
	resp := txResponse{
		ID:             tx.ID,
		SellAdID:       tx.SellAdID,
		Cryptocurrency: tx.Cryptocurrency,
		CryptoQuantity: tx.CryptoQuantity.String(),
		FiatAmount:     tx.FiatAmount.String(),
		FiatCurrency:   tx.FiatCurrency,
		GatewayOrderID: tx.GatewayOrderID,
		Status:         string(tx.Status),
	}
	if tx.ReleaseTxHash != nil {
		resp.ReleaseTxHash = *tx.ReleaseTxHash
	}
	if tx.FailureReason != nil {
		resp.FailureReason = *tx.FailureReason
	}
	return resp
}

func (h *Handler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	var req createPurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid quantity")
		return
	}
	result, err := h.Settlement.CreatePurchase(r.Context(), userID(r), req.SellAdID, quantity)
	if err != nil {
		writeError(w, purchaseStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":     true,
		"transaction": toTxResponse(result.Transaction),
		"checkout": map[string]any{
			"orderId":  result.Transaction.GatewayOrderID,
			"amount":   result.AmountMinor,
			"currency": result.Currency,
			"keyId":    result.KeyID,
		},
	})
}

func purchaseStatus(err error) int {
	switch {
	case errors.Is(err, settlement.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, settlement.ErrInvalidQuantity),
		errors.Is(err, settlement.ErrInvalidState),
		errors.Is(err, settlement.ErrInsufficientInventory),
		errors.Is(err, settlement.ErrAmountTooSmall),
		errors.Is(err, settlement.ErrUnsupportedAsset):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Ledger.GetTransaction(r.Context(), chi.URLParam(r, "txID"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get transaction failed")
		return
	}
	if tx.BuyerID != userID(r) && tx.SellerID != userID(r) {
		writeError(w, http.StatusForbidden, "not a party to this transaction")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "transaction": toTxResponse(tx)})
}

// ---- payment verification ----

type verifyPaymentRequest struct {
	OrderCreationID   string `json:"orderCreationId"`
	RazorpayPaymentID string `json:"razorpayPaymentId"`
	RazorpaySignature string `json:"razorpaySignature"`
	IsFailedPayment   bool   `json:"isFailedPayment"`
	FailureReason     string `json:"failureReason"`
}

func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	if req.IsFailedPayment {
		if req.OrderCreationID != "" {
			if err := h.Settlement.RecordCheckoutFailure(r.Context(), req.OrderCreationID, req.FailureReason); err != nil {
				writeError(w, http.StatusInternalServerError, "record failure failed")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"isOk": false, "message": "payment failure logged"})
		return
	}

	if req.OrderCreationID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		writeError(w, http.StatusBadRequest, "missing required payment parameters")
		return
	}

	tx, err := h.Settlement.VerifyCheckout(r.Context(), req.OrderCreationID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrSignatureInvalid):
			writeError(w, http.StatusBadRequest, "payment verification failed: invalid signature")
		case errors.Is(err, settlement.ErrNotFound):
			writeError(w, http.StatusNotFound, "transaction not found")
		default:
			writeError(w, http.StatusInternalServerError, "payment verification failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"isOk":        true,
		"transaction": toTxResponse(tx),
	})
}

// ---- webhook ----

// Webhook acknowledges business failures with 200 so the gateway does
// not retry unrecoverable conditions; only signature and parse errors
// are answered non-2xx.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	signature := r.Header.Get("x-razorpay-signature")
	if signature == "" {
		writeError(w, http.StatusBadRequest, "missing signature header")
		return
	}

	err = h.Settlement.HandleWebhook(r.Context(), rawBody, signature)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"received": true})
	case errors.Is(err, settlement.ErrSignatureInvalid):
		writeError(w, http.StatusUnauthorized, "invalid signature")
	case errors.Is(err, settlement.ErrMalformedPayload):
		writeError(w, http.StatusBadRequest, "invalid payload")
	case errors.Is(err, settlement.ErrNotFound):
		// The purchase row may not be committed yet; a non-2xx makes
		// the gateway redeliver later.
		writeError(w, http.StatusNotFound, "transaction not found")
	case errors.Is(err, settlement.ErrAmountMismatch),
		errors.Is(err, chain.ErrInsufficientFunds),
		errors.Is(err, chain.ErrReverted),
		errors.Is(err, chain.ErrNetwork),
		errors.Is(err, settlement.ErrUnsupportedAsset):
		// Recorded as FAILED on the transaction; acknowledged so the
		// gateway stops retrying.
		writeJSON(w, http.StatusOK, map[string]any{"received": true, "recorded": "failed"})
	default:
		writeError(w, http.StatusInternalServerError, "webhook processing failed")
	}
}

// ---- payouts ----

type createPayoutRequest struct {
	Amount    int64  `json:"amount"`
	Narration string `json:"narration"`
}

func (h *Handler) CreatePayout(w http.ResponseWriter, r *http.Request) {
	var req createPayoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	payout, err := h.Payouts.CreatePayout(r.Context(), userID(r), req.Amount, req.Narration)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrNotOnboarded), errors.Is(err, services.ErrPayoutRailUnset):
			writeError(w, http.StatusPreconditionFailed, err.Error())
		default:
			writeError(w, http.StatusBadGateway, "payout failed")
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "payout": payout})
}

func (h *Handler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	payouts, err := h.Payouts.ListPayouts(r.Context(), userID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list payouts failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "payouts": payouts})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}
