package services

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Minimal ERC-20 surface: transfer + decimals, same as the treasury contract.
const erc20ABI = `[
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`

// ERC20Settler settles rewards by calling transfer() on the token contract
// from the treasury key and waiting for the receipt. One attempt per call,
// bounded by the configured timeout.
type ERC20Settler struct {
	client   *ethclient.Client
	contract *bind.BoundContract
	key      *ecdsa.PrivateKey
	chainID  *big.Int
	scale    *big.Int // 10^decimals
	timeout  time.Duration

	// Transfers from a single treasury key must not race on the nonce.
	mu sync.Mutex
}

// NewERC20Settler dials RPC_URL and binds the TOKEN_CONTRACT with the
// PRIVATE_KEY treasury signer. The token's decimals are read once at startup.
func NewERC20Settler() (*ERC20Settler, error) {
	rpcURL := os.Getenv("RPC_URL")
	if rpcURL == "" {
		return nil, fmt.Errorf("RPC_URL environment variable not set")
	}
	contractAddr := os.Getenv("TOKEN_CONTRACT")
	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("TOKEN_CONTRACT is not a valid address")
	}
	rawKey := strings.TrimPrefix(os.Getenv("PRIVATE_KEY"), "0x")
	if rawKey == "" {
		return nil, fmt.Errorf("PRIVATE_KEY environment variable not set")
	}
	key, err := crypto.HexToECDSA(rawKey)
	if err != nil {
		return nil, fmt.Errorf("parse PRIVATE_KEY: %w", err)
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}

	timeout := 90 * time.Second
	if raw := os.Getenv("SETTLEMENT_TIMEOUT"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parse SETTLEMENT_TIMEOUT: %w", err)
		}
		timeout = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}
	if raw := os.Getenv("CHAIN_ID"); raw != "" {
		parsed, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return nil, fmt.Errorf("CHAIN_ID is not a valid integer")
		}
		chainID = parsed
	}

	parsedABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse token ABI: %w", err)
	}
	contract := bind.NewBoundContract(common.HexToAddress(contractAddr), parsedABI, client, client, client)

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "decimals"); err != nil {
		return nil, fmt.Errorf("read token decimals: %w", err)
	}
	decimals := out[0].(uint8)

	return &ERC20Settler{
		client:   client,
		contract: contract,
		key:      key,
		chainID:  chainID,
		scale:    new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil),
		timeout:  timeout,
	}, nil
}

// Transfer sends amount reward units to wallet and blocks until the
// transaction is mined or the timeout elapses. All failure modes come back
// as *TransferError.
func (s *ERC20Settler) Transfer(ctx context.Context, wallet string, amount int64) (string, error) {
	if amount < 0 {
		return "", &TransferError{Err: fmt.Errorf("negative amount %d", amount)}
	}
	if !common.IsHexAddress(wallet) {
		return "", &TransferError{Err: fmt.Errorf("invalid recipient address %q", wallet)}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return "", &TransferError{Err: fmt.Errorf("build transactor: %w", err)}
	}
	opts.Context = ctx

	value := new(big.Int).Mul(big.NewInt(amount), s.scale)
	tx, err := s.contract.Transact(opts, "transfer", common.HexToAddress(wallet), value)
	if err != nil {
		return "", &TransferError{Err: fmt.Errorf("submit transfer: %w", err)}
	}

	receipt, err := bind.WaitMined(ctx, s.client, tx)
	if err != nil {
		return "", &TransferError{Err: fmt.Errorf("wait for receipt %s: %w", tx.Hash().Hex(), err)}
	}
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		return "", &TransferError{Err: fmt.Errorf("transaction %s reverted", tx.Hash().Hex())}
	}
	return tx.Hash().Hex(), nil
}
