//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package mint

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nifty-mvp/nifty/apierr"
	"github.com/nifty-mvp/nifty/config"
)

const contractHex = "0xada5b4b0f2446f3f8532c309c0de222821ef572d"

// fakeBackend accepts every transaction and mines it immediately.
type fakeBackend struct {
	chainID *big.Int
	sent    []*types.Transaction
	sendErr error
	status  uint64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{chainID: big.NewInt(80002), status: types.ReceiptStatusSuccessful}
}

func (b *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) { return b.chainID, nil }

func (b *fakeBackend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (b *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return nil, nil
}

func (b *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(100)}, nil
}

func (b *fakeBackend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return []byte{0x60}, nil
}

func (b *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 3, nil
}

func (b *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(30_000_000_000), nil
}

func (b *fakeBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *fakeBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 120_000, nil
}

func (b *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, tx)
	return nil
}

func (b *fakeBackend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (b *fakeBackend) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("not supported")
}

func (b *fakeBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	for _, tx := range b.sent {
		if tx.Hash() == hash {
			return &types.Receipt{Status: b.status, TxHash: hash, BlockNumber: big.NewInt(101)}, nil
		}
	}
	return nil, ethereum.NotFound
}

func newKey(t *testing.T) (config.Credential, common.Address) {
	t.Helper()
	pk, err := crypto.GenerateKey()
	require.NoError(t, err)
	return config.StaticCredential("NIFTY_MINT_PRIVATE_KEY", "0x"+hex.EncodeToString(crypto.FromECDSA(pk))),
		crypto.PubkeyToAddress(pk.PublicKey)
}

func TestMint(t *testing.T) {
	key, from := newKey(t)
	backend := newFakeBackend()
	m, err := New("", contractHex, key, WithBackend(backend))
	require.NoError(t, err)

	res, err := m.Mint(context.Background(), "ipfs://bafkreimeta")
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)

	tx := backend.sent[0]
	assert.Equal(t, common.HexToAddress(contractHex), *tx.To())
	assert.Equal(t, uint64(3), tx.Nonce())

	sender, err := types.Sender(types.LatestSignerForChainID(backend.chainID), tx)
	require.NoError(t, err)
	assert.Equal(t, from, sender)

	method := parsedABI.Methods[MethodSafeMint]
	assert.Equal(t, method.ID, tx.Data()[:4])
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, []any{from, "ipfs://bafkreimeta"}, args)

	assert.Equal(t, &Result{
		TxHash:      tx.Hash().Hex(),
		ExplorerURL: config.DefaultExplorerTxURL + tx.Hash().Hex(),
		BlockNumber: 101,
		To:          from.Hex(),
		TokenURI:    "ipfs://bafkreimeta",
	}, res)
}

func TestMintReverted(t *testing.T) {
	key, _ := newKey(t)
	backend := newFakeBackend()
	backend.status = types.ReceiptStatusFailed
	m, err := New("", contractHex, key, WithBackend(backend), WithExplorer(""))
	require.NoError(t, err)

	_, err = m.Mint(context.Background(), "ipfs://x")
	require.Error(t, err)
	assert.Contains(t, apierr.MessageOf(err), "reverted")
	assert.Contains(t, apierr.MessageOf(err), backend.sent[0].Hash().Hex())
}

func TestMintSendError(t *testing.T) {
	key, _ := newKey(t)
	backend := newFakeBackend()
	backend.sendErr = errors.New("insufficient funds for gas * price + value")
	m, err := New("", contractHex, key, WithBackend(backend))
	require.NoError(t, err)

	_, err = m.Mint(context.Background(), "ipfs://x")
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindTransport))
	assert.Contains(t, err.Error(), "insufficient funds")
}

func TestMintMissingKey(t *testing.T) {
	backend := newFakeBackend()
	m, err := New("", contractHex, config.StaticCredential("NIFTY_MINT_PRIVATE_KEY", ""), WithBackend(backend))
	require.NoError(t, err)

	_, err = m.Mint(context.Background(), "ipfs://x")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apierr.StatusOf(err))
	assert.Equal(t, "NIFTY_MINT_PRIVATE_KEY is missing", apierr.MessageOf(err))
	assert.Empty(t, backend.sent)
}

func TestMintInvalidInput(t *testing.T) {
	key, _ := newKey(t)
	m, err := New("", contractHex, key, WithBackend(newFakeBackend()))
	require.NoError(t, err)
	_, err = m.Mint(context.Background(), " ")
	assert.True(t, apierr.IsKind(err, apierr.KindValidation))

	m, err = New("", contractHex, config.StaticCredential("NIFTY_MINT_PRIVATE_KEY", "zz"), WithBackend(newFakeBackend()))
	require.NoError(t, err)
	_, err = m.Mint(context.Background(), "ipfs://x")
	require.Error(t, err)
	assert.Equal(t, "invalid NIFTY_MINT_PRIVATE_KEY", apierr.MessageOf(err))

	_, err = New("", "0x1234", key)
	assert.EqualError(t, err, `invalid contract address "0x1234"`)
}

func TestAddress(t *testing.T) {
	key, from := newKey(t)
	got, err := Address(key)
	require.NoError(t, err)
	assert.Equal(t, from, got)

	_, err = Address(config.StaticCredential("NIFTY_MINT_PRIVATE_KEY", ""))
	assert.Error(t, err)
}
