//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package mint calls safeMint on the NFT contract.
package mint

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nifty-mvp/nifty/apierr"
	"github.com/nifty-mvp/nifty/config"
	itelemetry "github.com/nifty-mvp/nifty/internal/telemetry"
	"github.com/nifty-mvp/nifty/log"
	"github.com/nifty-mvp/nifty/telemetry/metric"
	"github.com/nifty-mvp/nifty/telemetry/trace"
)

// Service is the metrics label for chain calls.
const Service = "chain"

// MethodSafeMint is the contract method invoked.
const MethodSafeMint = "safeMint"

// ContractABI declares the one method used.
const ContractABI = `[{"type":"function","name":"safeMint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"uri","type":"string"}],"outputs":[]}]`

var parsedABI = mustParseABI(ContractABI)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("mint: invalid abi: %v", err))
	}
	return parsed
}

// Backend is what the Minter needs from a chain connection. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// Result describes a confirmed mint.
type Result struct {
	TxHash      string `json:"txHash"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
	BlockNumber uint64 `json:"blockNumber"`
	To          string `json:"to"`
	TokenURI    string `json:"tokenUri"`
}

// Minter signs and submits safeMint transactions.
type Minter struct {
	rpcURL   string
	contract common.Address
	key      config.Credential
	explorer string
	backend  Backend
	observer metric.Observer
}

// Option configures a Minter.
type Option func(*Minter)

// WithExplorer sets the transaction link prefix, e.g.
// "https://amoy.polygonscan.com/tx/".
func WithExplorer(prefix string) Option {
	return func(m *Minter) { m.explorer = prefix }
}

// WithBackend uses b instead of dialing the RPC URL.
func WithBackend(b Backend) Option {
	return func(m *Minter) { m.backend = b }
}

// WithObserver sets the metrics observer.
func WithObserver(o metric.Observer) Option {
	return func(m *Minter) {
		if o != nil {
			m.observer = o
		}
	}
}

// New creates a Minter for the contract at contractAddr. The signing key is
// resolved on each Mint call.
func New(rpcURL, contractAddr string, key config.Credential, opts ...Option) (*Minter, error) {
	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("invalid contract address %q", contractAddr)
	}
	m := &Minter{
		rpcURL:   rpcURL,
		contract: common.HexToAddress(contractAddr),
		key:      key,
		explorer: config.DefaultExplorerTxURL,
		observer: metric.Nop,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Contract returns the contract address.
func (m *Minter) Contract() common.Address { return m.contract }

// Mint calls safeMint(signer, tokenURI) and waits for the receipt. A
// reverted transaction is an error naming its hash.
func (m *Minter) Mint(ctx context.Context, tokenURI string) (res *Result, err error) {
	hexKey, err := m.key.Value()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(tokenURI) == "" {
		return nil, apierr.Validation("token uri is required")
	}
	key, err := parseKey(hexKey)
	if err != nil {
		return nil, apierr.Internal(fmt.Sprintf("invalid %s", m.key.Name()), err)
	}

	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanNameMint)
	defer func() { itelemetry.EndSpan(span, err) }()
	start := time.Now()
	defer func() { m.observer.RecordCall(Service, MethodSafeMint, time.Since(start), err) }()

	backend, closeFn, err := m.dial(ctx)
	if err != nil {
		return nil, apierr.Transport("failed to connect to chain", err)
	}
	defer closeFn()
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, apierr.Transport("failed to read chain id", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, apierr.Internal("failed to create signer", err)
	}
	opts.Context = ctx

	to := opts.From
	contract := bind.NewBoundContract(m.contract, parsedABI, backend, backend, backend)
	tx, err := contract.Transact(opts, MethodSafeMint, to, tokenURI)
	if err != nil {
		return nil, apierr.Transport("mint transaction failed", err)
	}
	hash := tx.Hash().Hex()
	span.SetAttributes(attribute.String(itelemetry.KeyTxHash, hash))
	log.Infof("mint: submitted %s to %s", hash, m.contract.Hex())

	receipt, err := bind.WaitMined(ctx, backend, tx)
	if err != nil {
		return nil, apierr.Transport(fmt.Sprintf("waiting for %s failed", hash), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, apierr.Internal(fmt.Sprintf("transaction %s reverted", hash), nil)
	}

	res = &Result{
		TxHash:   hash,
		To:       to.Hex(),
		TokenURI: tokenURI,
	}
	if receipt.BlockNumber != nil {
		res.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if m.explorer != "" {
		res.ExplorerURL = m.explorer + hash
	}
	return res, nil
}

func (m *Minter) dial(ctx context.Context) (Backend, func(), error) {
	if m.backend != nil {
		return m.backend, func() {}, nil
	}
	c, err := ethclient.DialContext(ctx, m.rpcURL)
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

func parseKey(hexKey string) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
}

// Address returns the account that mints for key.
func Address(key config.Credential) (common.Address, error) {
	hexKey, err := key.Value()
	if err != nil {
		return common.Address{}, err
	}
	pk, err := parseKey(hexKey)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid %s: %w", key.Name(), err)
	}
	return crypto.PubkeyToAddress(pk.PublicKey), nil
}
