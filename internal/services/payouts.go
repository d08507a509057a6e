package services

import (
	"context"
	"errors"

	"cryptobazaar/internal/gateway"
	"cryptobazaar/internal/models"

	"github.com/google/uuid"
)

var (
	ErrNotOnboarded    = errors.New("payout rail not set up for user")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrPayoutRailUnset = errors.New("payout account number not configured")
)

type PayoutStore interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	InsertPayout(ctx context.Context, p *models.Payout) error
	ListPayoutsByUser(ctx context.Context, userID string) ([]*models.Payout, error)
}

type PayoutGateway interface {
	CreatePayout(ctx context.Context, req gateway.PayoutRequest) (*gateway.Payout, error)
}

type PayoutService struct {
	Store         PayoutStore
	Gateway       PayoutGateway
	AccountNumber string
}

// CreatePayout pays fiat out to the user's registered fund account.
func (s *PayoutService) CreatePayout(ctx context.Context, userID string, amountMinor int64, narration string) (*models.Payout, error) {
	if amountMinor <= 0 {
		return nil, ErrInvalidAmount
	}
	if s.AccountNumber == "" {
		return nil, ErrPayoutRailUnset
	}
	user, err := s.Store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.GatewayFundAccID == nil {
		return nil, ErrNotOnboarded
	}

	payout, err := s.Gateway.CreatePayout(ctx, gateway.PayoutRequest{
		AccountNumber: s.AccountNumber,
		FundAccountID: *user.GatewayFundAccID,
		Amount:        amountMinor,
		QueueIfLow:    true,
		Narration:     narration,
	})
	if err != nil {
		return nil, err
	}

	record := &models.Payout{
		ID:              uuid.NewString(),
		UserID:          user.ID,
		GatewayPayoutID: payout.ID,
		AmountMinor:     payout.Amount,
		Currency:        "INR",
		Mode:            payout.Mode,
		Status:          payout.Status,
	}
	if err := s.Store.InsertPayout(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *PayoutService) ListPayouts(ctx context.Context, userID string) ([]*models.Payout, error) {
	return s.Store.ListPayoutsByUser(ctx, userID)
}
