package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/kelsos/coinfolio/internal/logger"
	"github.com/kelsos/coinfolio/internal/models"
)

const (
	nativeDecimals = 18
	nativeSymbol   = "ETH"
)

// BalanceQuerier reads the native balance of an address.
type BalanceQuerier interface {
	NativeBalance(ctx context.Context, address string) (*models.NativeBalance, error)
}

// BalanceReader is the part of ethclient.Client used for balances.
type BalanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// EthBalance queries native balances over JSON-RPC.
type EthBalance struct {
	reader BalanceReader
}

// NewEthBalance wraps an existing balance reader.
func NewEthBalance(reader BalanceReader) *EthBalance {
	return &EthBalance{reader: reader}
}

// DialEthBalance connects to rpcURL.
func DialEthBalance(ctx context.Context, rpcURL string) (*EthBalance, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
	}
	return NewEthBalance(client), nil
}

// NativeBalance returns the latest balance of address.
func (e *EthBalance) NativeBalance(ctx context.Context, address string) (*models.NativeBalance, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}

	wei, err := e.reader.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance of %s: %w", address, err)
	}

	balance := FormatNative(wei, nativeDecimals, nativeSymbol)
	logger.Debug("Balance of %s: %s %s", address, balance.Formatted, balance.Symbol)
	return balance, nil
}

// FormatNative converts a raw integer amount into a NativeBalance without
// going through floating point.
func FormatNative(raw *big.Int, decimals int, symbol string) *models.NativeBalance {
	if raw == nil {
		raw = new(big.Int)
	}
	formatted := decimal.NewFromBigInt(raw, int32(-decimals)).String()
	return &models.NativeBalance{
		Decimals:  decimals,
		Formatted: formatted,
		Symbol:    symbol,
		Value:     raw.String(),
	}
}
