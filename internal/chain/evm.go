package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"cryptobazaar/internal/money"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

const erc20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

const paymentABI = `[
	{"constant":false,"inputs":[{"name":"receiver","type":"address"}],"name":"sendPayment","outputs":[],"stateMutability":"payable","type":"function"}
]`

const nativeDecimals = 18

// EVMAdapter signs and submits transfers on an EVM chain. Native
// transfers go through the payment contract's sendPayment when one is
// configured, otherwise as a plain value transfer.
type EVMAdapter struct {
	client          *ethclient.Client
	key             *ecdsa.PrivateKey
	sender          common.Address
	chainID         *big.Int
	paymentContract *common.Address
	erc20           abi.ABI
	payment         abi.ABI
}

func NewEVMAdapter(rpcURL string, chainID int64, privateKeyHex, paymentContract string) (*EVMAdapter, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	key, err := gethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	erc20Parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, err
	}
	paymentParsed, err := abi.JSON(strings.NewReader(paymentABI))
	if err != nil {
		return nil, err
	}
	a := &EVMAdapter{
		client:  client,
		key:     key,
		sender:  gethcrypto.PubkeyToAddress(key.PublicKey),
		chainID: big.NewInt(chainID),
		erc20:   erc20Parsed,
		payment: paymentParsed,
	}
	if paymentContract != "" {
		if !common.IsHexAddress(paymentContract) {
			return nil, fmt.Errorf("invalid payment contract address: %s", paymentContract)
		}
		addr := common.HexToAddress(paymentContract)
		a.paymentContract = &addr
	}
	return a, nil
}

func (a *EVMAdapter) Sender() string {
	return a.sender.Hex()
}

func (a *EVMAdapter) BalanceOf(ctx context.Context, token Token) (decimal.Decimal, error) {
	if token.Native {
		bal, err := a.client.BalanceAt(ctx, a.sender, nil)
		if err != nil {
			return decimal.Zero, classify(err)
		}
		return money.FromBaseUnits(bal, nativeDecimals), nil
	}

	if !common.IsHexAddress(token.Address) {
		return decimal.Zero, fmt.Errorf("invalid token contract address: %s", token.Address)
	}
	contract := common.HexToAddress(token.Address)
	data, err := a.erc20.Pack("balanceOf", a.sender)
	if err != nil {
		return decimal.Zero, err
	}
	out, err := a.client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return decimal.Zero, classify(err)
	}
	results, err := a.erc20.Unpack("balanceOf", out)
	if err != nil {
		return decimal.Zero, err
	}
	bal, ok := results[0].(*big.Int)
	if !ok {
		return decimal.Zero, errors.New("unexpected balanceOf result type")
	}
	return money.FromBaseUnits(bal, token.Decimals), nil
}

func (a *EVMAdapter) Transfer(ctx context.Context, token Token, to string, quantity decimal.Decimal) (*Receipt, error) {
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("invalid receiver address: %s", to)
	}
	receiver := common.HexToAddress(to)

	var (
		txTo  common.Address
		value = new(big.Int)
		data  []byte
		err   error
	)
	switch {
	case token.Native && a.paymentContract != nil:
		value, err = money.BaseUnits(quantity, nativeDecimals)
		if err != nil {
			return nil, err
		}
		txTo = *a.paymentContract
		if data, err = a.payment.Pack("sendPayment", receiver); err != nil {
			return nil, err
		}
	case token.Native:
		value, err = money.BaseUnits(quantity, nativeDecimals)
		if err != nil {
			return nil, err
		}
		txTo = receiver
	default:
		if !common.IsHexAddress(token.Address) {
			return nil, fmt.Errorf("invalid token contract address: %s", token.Address)
		}
		amount, err := money.BaseUnits(quantity, token.Decimals)
		if err != nil {
			return nil, err
		}
		txTo = common.HexToAddress(token.Address)
		if data, err = a.erc20.Pack("transfer", receiver, amount); err != nil {
			return nil, err
		}
	}

	nonce, err := a.client.PendingNonceAt(ctx, a.sender)
	if err != nil {
		return nil, classify(err)
	}
	gasPrice, err := a.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, classify(err)
	}
	gas, err := a.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  a.sender,
		To:    &txTo,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, classify(err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &txTo,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(a.chainID), a.key)
	if err != nil {
		return nil, err
	}
	if err := a.client.SendTransaction(ctx, signed); err != nil {
		return nil, classify(err)
	}

	// One confirmation; the receipt carries success or revert.
	receipt, err := bind.WaitMined(ctx, a.client, signed)
	if err != nil {
		return nil, classify(err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: tx %s", ErrReverted, signed.Hash().Hex())
	}
	return &Receipt{
		TxHash:      signed.Hash().Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		GasUsed:     receipt.GasUsed,
	}, nil
}

// classify buckets RPC errors into the adapter taxonomy. Timeouts are
// network errors, not reverts: the transaction may still land.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	case strings.Contains(msg, "execution reverted") || strings.Contains(msg, "revert"):
		return fmt.Errorf("%w: %v", ErrReverted, err)
	default:
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
}
