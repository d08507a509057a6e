package services

import (
	"context"
	"errors"
	"strings"

	"cryptobazaar/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrAdNotCancelable = errors.New("sell ad not found or not cancelable")
)

// AdStore is the slice of the store the ad service needs.
type AdStore interface {
	CreateSellAd(ctx context.Context, ad *models.SellAd) error
	GetSellAd(ctx context.Context, id string) (*models.SellAd, error)
	ListOpenSellAds(ctx context.Context, cryptocurrency, sortBy string, limit int) ([]*models.SellAd, error)
	CancelSellAd(ctx context.Context, adID, sellerID string) (int64, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type AdService struct {
	Store        AdStore
	FiatCurrency string
}

type CreateAdParams struct {
	SellerID       string
	Cryptocurrency string
	Price          decimal.Decimal
	TotalQuantity  decimal.Decimal
	EscrowTxHash   string
	EscrowContract string
}

// CreateAd posts a sell ad. An ad backed by an escrow lock starts
// LOCKED, an unescrowed one ACTIVE.
func (s *AdService) CreateAd(ctx context.Context, p CreateAdParams) (*models.SellAd, error) {
	if p.Price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	if p.TotalQuantity.Sign() <= 0 {
		return nil, ErrInvalidQuantity
	}
	symbol := strings.ToUpper(strings.TrimSpace(p.Cryptocurrency))
	if symbol == "" {
		return nil, ErrMissingField
	}

	seller, err := s.Store.GetUserByID(ctx, p.SellerID)
	if err != nil {
		return nil, err
	}

	fiat := s.FiatCurrency
	if fiat == "" {
		fiat = "INR"
	}
	status := models.AdActive
	var escrowHash, escrowContract *string
	if p.EscrowTxHash != "" {
		status = models.AdLocked
		escrowHash = &p.EscrowTxHash
		if p.EscrowContract != "" {
			escrowContract = &p.EscrowContract
		}
	}

	ad := &models.SellAd{
		ID:                uuid.NewString(),
		SellerID:          seller.ID,
		SellerWallet:      seller.WalletAddress,
		Cryptocurrency:    symbol,
		FiatCurrency:      fiat,
		Price:             p.Price,
		TotalQuantity:     p.TotalQuantity,
		AvailableQuantity: p.TotalQuantity,
		Status:            status,
		EscrowTxHash:      escrowHash,
		EscrowContract:    escrowContract,
	}
	if err := s.Store.CreateSellAd(ctx, ad); err != nil {
		return nil, err
	}
	return ad, nil
}

func (s *AdService) ListAds(ctx context.Context, cryptocurrency, sortBy string) ([]*models.SellAd, error) {
	symbol := strings.ToUpper(strings.TrimSpace(cryptocurrency))
	if symbol == "" {
		symbol = "USDT"
	}
	return s.Store.ListOpenSellAds(ctx, symbol, strings.ToLower(sortBy), 50)
}

func (s *AdService) GetAd(ctx context.Context, id string) (*models.SellAd, error) {
	return s.Store.GetSellAd(ctx, id)
}

func (s *AdService) CancelAd(ctx context.Context, adID, sellerID string) error {
	n, err := s.Store.CancelSellAd(ctx, adID, sellerID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAdNotCancelable
	}
	return nil
}
