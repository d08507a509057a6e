package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cryptobazaar/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotSettleable is returned by FinalizeSettlement when the
	// transaction is not in PAYMENT_RECEIVED, i.e. it was never
	// claimed or another path already finished it.
	ErrNotSettleable = errors.New("transaction is not settleable")
	// ErrInventoryGone is returned when the ad no longer has enough
	// available quantity at settlement time.
	ErrInventoryGone = errors.New("sell ad inventory exhausted")
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// ---- users ----

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, wallet_address)
		VALUES ($1,$2,$3,$4)
	`, u.ID, u.Email, u.PasswordHash, u.WalletAddress)
	return err
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *Store) GetUserByWallet(ctx context.Context, wallet string) (*models.User, error) {
	return s.getUser(ctx, "wallet_address", wallet)
}

func (s *Store) getUser(ctx context.Context, column, value string) (*models.User, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, email, password_hash, wallet_address,
			account_holder_name, account_number, ifsc, bank_name,
			gateway_contact_id, gateway_fund_account_id,
			onboarding_complete, created_at, updated_at
		FROM users WHERE `+column+`=$1
	`, value)

	var u models.User
	var holder, number, ifsc, bank, contactID, fundAccID sql.NullString
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.WalletAddress,
		&holder,
		&number,
		&ifsc,
		&bank,
		&contactID,
		&fundAccID,
		&u.OnboardingDone,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.AccountHolderName = nullToPtr(holder)
	u.AccountNumber = nullToPtr(number)
	u.IFSC = nullToPtr(ifsc)
	u.BankName = nullToPtr(bank)
	u.GatewayContactID = nullToPtr(contactID)
	u.GatewayFundAccID = nullToPtr(fundAccID)
	return &u, nil
}

func (s *Store) UpdateBankDetails(ctx context.Context, userID, holder, number, ifsc, bank string) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE users
		SET account_holder_name=$2, account_number=$3, ifsc=$4,
			bank_name=NULLIF($5,''), updated_at=now()
		WHERE id=$1
	`, userID, holder, number, ifsc, bank)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) SetGatewayBinding(ctx context.Context, userID, contactID, fundAccID string) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE users
		SET gateway_contact_id=$2, gateway_fund_account_id=$3,
			onboarding_complete=true, updated_at=now()
		WHERE id=$1
	`, userID, contactID, fundAccID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ---- sell ads ----

const adColumns = `
	id, seller_id, seller_wallet, cryptocurrency, fiat_currency,
	price::text, total_quantity::text, available_quantity::text,
	status, escrow_tx_hash, escrow_contract_address,
	created_at, updated_at`

func (s *Store) CreateSellAd(ctx context.Context, ad *models.SellAd) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO sell_ads (
			id, seller_id, seller_wallet, cryptocurrency, fiat_currency,
			price, total_quantity, available_quantity, status,
			escrow_tx_hash, escrow_contract_address
		) VALUES ($1,$2,$3,$4,$5,$6::numeric,$7::numeric,$8::numeric,$9,$10,$11)
	`,
		ad.ID,
		ad.SellerID,
		ad.SellerWallet,
		ad.Cryptocurrency,
		ad.FiatCurrency,
		ad.Price.String(),
		ad.TotalQuantity.String(),
		ad.AvailableQuantity.String(),
		ad.Status,
		ad.EscrowTxHash,
		ad.EscrowContract,
	)
	return err
}

func (s *Store) GetSellAd(ctx context.Context, id string) (*models.SellAd, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+adColumns+` FROM sell_ads WHERE id=$1`, id)
	return scanAd(row)
}

// ListOpenSellAds returns purchasable ads for one cryptocurrency. sortBy
// is "price" (ascending) or "amount" (most available first).
func (s *Store) ListOpenSellAds(ctx context.Context, cryptocurrency, sortBy string, limit int) ([]*models.SellAd, error) {
	order := "price ASC"
	if sortBy == "amount" {
		order = "available_quantity DESC"
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+adColumns+`
		FROM sell_ads
		WHERE cryptocurrency=$1 AND status IN ('ACTIVE','LOCKED') AND available_quantity > 0
		ORDER BY `+order+`
		LIMIT $2
	`, cryptocurrency, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ads []*models.SellAd
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			return nil, err
		}
		ads = append(ads, ad)
	}
	return ads, rows.Err()
}

func (s *Store) CancelSellAd(ctx context.Context, adID, sellerID string) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE sell_ads
		SET status='CANCELLED', updated_at=now()
		WHERE id=$1 AND seller_id=$2 AND status IN ('ACTIVE','LOCKED')
	`, adID, sellerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanAd(row pgx.Row) (*models.SellAd, error) {
	var ad models.SellAd
	var price, total, available string
	var escrowHash, escrowContract sql.NullString
	err := row.Scan(
		&ad.ID,
		&ad.SellerID,
		&ad.SellerWallet,
		&ad.Cryptocurrency,
		&ad.FiatCurrency,
		&price,
		&total,
		&available,
		&ad.Status,
		&escrowHash,
		&escrowContract,
		&ad.CreatedAt,
		&ad.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if ad.Price, err = decimal.NewFromString(price); err != nil {
		return nil, err
	}
	if ad.TotalQuantity, err = decimal.NewFromString(total); err != nil {
		return nil, err
	}
	if ad.AvailableQuantity, err = decimal.NewFromString(available); err != nil {
		return nil, err
	}
	ad.EscrowTxHash = nullToPtr(escrowHash)
	ad.EscrowContract = nullToPtr(escrowContract)
	return &ad, nil
}

// ---- transactions ----

const txColumns = `
	id, buyer_id, seller_id, sell_ad_id, cryptocurrency,
	crypto_quantity::text, fiat_amount::text, fiat_currency,
	gateway_order_id, gateway_payment_id, gateway_signature,
	release_tx_hash, status, failure_reason, created_at, updated_at`

func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO transactions (
			id, buyer_id, seller_id, sell_ad_id, cryptocurrency,
			crypto_quantity, fiat_amount, fiat_currency,
			gateway_order_id, status
		) VALUES ($1,$2,$3,$4,$5,$6::numeric,$7::numeric,$8,$9,$10)
	`,
		tx.ID,
		tx.BuyerID,
		tx.SellerID,
		tx.SellAdID,
		tx.Cryptocurrency,
		tx.CryptoQuantity.String(),
		tx.FiatAmount.String(),
		tx.FiatCurrency,
		tx.GatewayOrderID,
		tx.Status,
	)
	return err
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE id=$1`, id)
	return scanTx(row)
}

func (s *Store) GetTransactionByGatewayOrder(ctx context.Context, orderID string) (*models.Transaction, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE gateway_order_id=$1`, orderID)
	return scanTx(row)
}

// ClaimPaymentReceived advances a pending transaction to
// PAYMENT_RECEIVED. It returns false when the transaction was not in
// PAYMENT_PENDING, which means another delivery of the same payment
// event already claimed it; the caller must not release funds in that
// case.
func (s *Store) ClaimPaymentReceived(ctx context.Context, txID, paymentID, signature string) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE transactions
		SET status='PAYMENT_RECEIVED', gateway_payment_id=$2,
			gateway_signature=NULLIF($3,''), updated_at=now()
		WHERE id=$1 AND status='PAYMENT_PENDING'
	`, txID, paymentID, signature)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) MarkTransactionFailed(ctx context.Context, txID, reason string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE transactions
		SET status='FAILED', failure_reason=$2, updated_at=now()
		WHERE id=$1 AND status NOT IN ('COMPLETED','FAILED')
	`, txID, reason)
	return err
}

// FinalizeSettlement records a successful on-chain release. The status
// walk to ESCROW_RELEASED and COMPLETED and the inventory decrement
// commit in one storage transaction, so a crash cannot leave the
// decrement without a completed transaction or vice versa.
func (s *Store) FinalizeSettlement(ctx context.Context, txID, releaseTxHash string) error {
	return pgx.BeginFunc(ctx, s.Pool, func(dbtx pgx.Tx) error {
		var adID, quantity string
		err := dbtx.QueryRow(ctx, `
			SELECT sell_ad_id, crypto_quantity::text
			FROM transactions
			WHERE id=$1 AND status='PAYMENT_RECEIVED'
			FOR UPDATE
		`, txID).Scan(&adID, &quantity)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotSettleable
			}
			return err
		}

		if _, err := dbtx.Exec(ctx, `
			UPDATE transactions
			SET status='ESCROW_RELEASED', release_tx_hash=$2, updated_at=now()
			WHERE id=$1
		`, txID, releaseTxHash); err != nil {
			return err
		}

		tag, err := dbtx.Exec(ctx, `
			UPDATE sell_ads
			SET available_quantity = available_quantity - $2::numeric, updated_at=now()
			WHERE id=$1 AND available_quantity >= $2::numeric
		`, adID, quantity)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrInventoryGone
		}

		if _, err := dbtx.Exec(ctx, `
			UPDATE sell_ads
			SET status='COMPLETED', updated_at=now()
			WHERE id=$1 AND available_quantity = 0 AND status IN ('ACTIVE','LOCKED')
		`, adID); err != nil {
			return err
		}

		_, err = dbtx.Exec(ctx, `
			UPDATE transactions
			SET status='COMPLETED', updated_at=now()
			WHERE id=$1
		`, txID)
		return err
	})
}

func (s *Store) ListPendingTransactions(ctx context.Context) ([]*models.Transaction, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE status='PAYMENT_PENDING'
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		tx, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *Store) ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE transactions
		SET status='FAILED', failure_reason='payment window expired', updated_at=now()
		WHERE status='PAYMENT_PENDING' AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanTx(row pgx.Row) (*models.Transaction, error) {
	var tx models.Transaction
	var quantity, fiat string
	var paymentID, signature, releaseHash, failure sql.NullString
	err := row.Scan(
		&tx.ID,
		&tx.BuyerID,
		&tx.SellerID,
		&tx.SellAdID,
		&tx.Cryptocurrency,
		&quantity,
		&fiat,
		&tx.FiatCurrency,
		&tx.GatewayOrderID,
		&paymentID,
		&signature,
		&releaseHash,
		&tx.Status,
		&failure,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tx.CryptoQuantity, err = decimal.NewFromString(quantity); err != nil {
		return nil, err
	}
	if tx.FiatAmount, err = decimal.NewFromString(fiat); err != nil {
		return nil, err
	}
	tx.GatewayPaymentID = nullToPtr(paymentID)
	tx.GatewaySignature = nullToPtr(signature)
	tx.ReleaseTxHash = nullToPtr(releaseHash)
	tx.FailureReason = nullToPtr(failure)
	return &tx, nil
}

// ---- payouts ----

func (s *Store) InsertPayout(ctx context.Context, p *models.Payout) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO payouts (id, user_id, gateway_payout_id, amount_minor, currency, mode, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, p.ID, p.UserID, p.GatewayPayoutID, p.AmountMinor, p.Currency, p.Mode, p.Status)
	return err
}

func (s *Store) ListPayoutsByUser(ctx context.Context, userID string) ([]*models.Payout, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, user_id, gateway_payout_id, amount_minor, currency, mode, status, created_at
		FROM payouts WHERE user_id=$1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payouts []*models.Payout
	for rows.Next() {
		var p models.Payout
		if err := rows.Scan(&p.ID, &p.UserID, &p.GatewayPayoutID, &p.AmountMinor, &p.Currency, &p.Mode, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		payouts = append(payouts, &p)
	}
	return payouts, rows.Err()
}

func nullToPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
