package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"cryptobazaar/internal/auth"
	"cryptobazaar/internal/gateway"
	"cryptobazaar/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrMissingField       = errors.New("missing required field")
	ErrInvalidWallet      = errors.New("invalid wallet address format")
	ErrInvalidIFSC        = errors.New("invalid IFSC format")
	ErrAlreadyRegistered  = errors.New("email or wallet already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrBankDetailsMissing = errors.New("bank details not set")
)

var (
	walletRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	ifscRe   = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
)

// UserStore is the slice of the store the user service needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateBankDetails(ctx context.Context, userID, holder, number, ifsc, bank string) error
	SetGatewayBinding(ctx context.Context, userID, contactID, fundAccID string) error
}

// ContactGateway is the payout-rail onboarding slice of the gateway.
type ContactGateway interface {
	CreateContact(ctx context.Context, name, email, phone string) (*gateway.Contact, error)
	CreateFundAccount(ctx context.Context, contactID, holderName, ifsc, accountNumber string) (*gateway.FundAccount, error)
}

type UserService struct {
	Store   UserStore
	Auth    *auth.Service
	Gateway ContactGateway
}

func (s *UserService) Register(ctx context.Context, email, password, walletAddress string) (*models.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, "", ErrMissingField
	}
	if !walletRe.MatchString(walletAddress) {
		return nil, "", ErrInvalidWallet
	}
	if len(password) < 8 || len(password) > 100 {
		return nil, "", errors.New("password must be 8-100 characters")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	user := &models.User{
		ID:            uuid.NewString(),
		Email:         email,
		PasswordHash:  hash,
		WalletAddress: walletAddress,
	}
	if err := s.Store.CreateUser(ctx, user); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, "", ErrAlreadyRegistered
		}
		return nil, "", err
	}

	token, err := s.Auth.IssueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.Store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.Auth.IssueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *UserService) SaveBankDetails(ctx context.Context, userID, holder, number, ifsc, bank string) error {
	if holder == "" || number == "" || ifsc == "" {
		return ErrMissingField
	}
	ifsc = strings.ToUpper(strings.TrimSpace(ifsc))
	if !ifscRe.MatchString(ifsc) {
		return ErrInvalidIFSC
	}
	return s.Store.UpdateBankDetails(ctx, userID, holder, number, ifsc, bank)
}

// BankDetails is the masked view returned to the frontend; the full
// account number never leaves the server.
type BankDetails struct {
	AccountHolderName string `json:"accountHolderName"`
	BankName          string `json:"bankName,omitempty"`
	IFSC              string `json:"ifsc"`
	AccountNumber     string `json:"accountNumber"`
}

func (s *UserService) GetBankDetails(ctx context.Context, userID string) (*BankDetails, error) {
	user, err := s.Store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.AccountNumber == nil || user.IFSC == nil || user.AccountHolderName == nil {
		return nil, ErrBankDetailsMissing
	}
	return &BankDetails{
		AccountHolderName: *user.AccountHolderName,
		BankName:          deref(user.BankName),
		IFSC:              *user.IFSC,
		AccountNumber:     maskAccountNumber(*user.AccountNumber),
	}, nil
}

// CompleteOnboarding binds the user to the gateway's payout rail: a
// contact plus a fund account pointing at the saved bank account.
func (s *UserService) CompleteOnboarding(ctx context.Context, userID, name, phone string) (*models.User, error) {
	user, err := s.Store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.AccountNumber == nil || user.IFSC == nil || user.AccountHolderName == nil {
		return nil, ErrBankDetailsMissing
	}
	if name == "" {
		name = *user.AccountHolderName
	}

	contact, err := s.Gateway.CreateContact(ctx, name, user.Email, phone)
	if err != nil {
		return nil, err
	}
	fundAcc, err := s.Gateway.CreateFundAccount(ctx, contact.ID, *user.AccountHolderName, *user.IFSC, *user.AccountNumber)
	if err != nil {
		return nil, err
	}
	if err := s.Store.SetGatewayBinding(ctx, userID, contact.ID, fundAcc.ID); err != nil {
		return nil, err
	}

	user.GatewayContactID = &contact.ID
	user.GatewayFundAccID = &fundAcc.ID
	user.OnboardingDone = true
	return user, nil
}

func maskAccountNumber(n string) string {
	if len(n) <= 8 {
		return "****"
	}
	return n[:4] + "****" + n[len(n)-4:]
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
