//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nifty-mvp/nifty/apierr"
	"github.com/nifty-mvp/nifty/content/inmemory"
	"github.com/nifty-mvp/nifty/imagegen"
	"github.com/nifty-mvp/nifty/mint"
	"github.com/nifty-mvp/nifty/pinning"
	"github.com/nifty-mvp/nifty/server/api"
)

type fakeGenerator struct {
	err error
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (*imagegen.Image, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &imagegen.Image{MimeType: "image/png", Data: []byte{0, 0, 0}}, nil
}

type fakeMinter struct {
	mu    sync.Mutex
	uris  []string
	err   error
	block chan struct{}
}

func (m *fakeMinter) Mint(ctx context.Context, tokenURI string) (*mint.Result, error) {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uris = append(m.uris, tokenURI)
	if m.err != nil {
		return nil, m.err
	}
	return &mint.Result{TxHash: "0xabc", TokenURI: tokenURI}, nil
}

func newServer(t *testing.T, gen imagegen.Generator) *httptest.Server {
	t.Helper()
	s := api.New(imagegen.New(gen), pinning.New(inmemory.NewService(), pinning.WithGateway("/ipfs/")))
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestClientGenerate(t *testing.T) {
	srv := newServer(t, &fakeGenerator{})
	c := New(srv.URL+"/", WithHTTPClient(srv.Client()))

	resp, err := c.Generate(context.Background(), "a red bicycle")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AAAA", resp.ImageURL)
}

func TestClientErrors(t *testing.T) {
	srv := newServer(t, &fakeGenerator{err: apierr.Upstream(http.StatusServiceUnavailable, "model is loading")})
	c := New(srv.URL, WithHTTPClient(srv.Client()))

	_, err := c.Generate(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apierr.StatusOf(err))
	assert.Equal(t, "prompt is required", apierr.MessageOf(err))

	_, err = c.Generate(context.Background(), "a red bicycle")
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, apierr.StatusOf(err))
	assert.Equal(t, "model is loading", apierr.MessageOf(err))
}

func TestClientNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Upload(context.Background(), pinning.Request{ImageURL: "x"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, apierr.StatusOf(err))
	assert.Equal(t, "bad gateway", apierr.MessageOf(err))
}

func TestClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Generate(context.Background(), "a red bicycle")
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindTransport))
}

func TestClientUpload(t *testing.T) {
	srv := newServer(t, &fakeGenerator{})
	c := New(srv.URL, WithHTTPClient(srv.Client()))

	resp, err := c.Upload(context.Background(), pinning.Request{ImageURL: "data:image/png;base64,AAAA"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.TokenURI, "ipfs://"))
	assert.Equal(t, "/ipfs/"+resp.ImageCID, resp.GatewayImage)
}

func TestSessionFlow(t *testing.T) {
	srv := newServer(t, &fakeGenerator{})
	m := &fakeMinter{}
	s := NewSession(New(srv.URL, WithHTTPClient(srv.Client())), m)
	assert.Equal(t, StateIdle, s.State())

	assert.ErrorIs(t, s.Mint(context.Background()), ErrNoImage)
	assert.Empty(t, m.uris)

	require.NoError(t, s.Generate(context.Background(), "a red bicycle"))
	snap := s.Snapshot()
	assert.Equal(t, StateGenerated, snap.State)
	assert.Equal(t, "data:image/png;base64,AAAA", snap.ImageURL)
	assert.Empty(t, m.uris)

	require.NoError(t, s.Mint(context.Background()))
	snap = s.Snapshot()
	assert.Equal(t, StateMinted, snap.State)
	assert.Equal(t, []string{"data:image/png;base64,AAAA"}, m.uris)
	assert.Equal(t, "0xabc", snap.Mint.TxHash)
	assert.Nil(t, snap.Upload)
}

func TestSessionWithPinning(t *testing.T) {
	srv := newServer(t, &fakeGenerator{})
	m := &fakeMinter{}
	s := NewSession(New(srv.URL, WithHTTPClient(srv.Client())), m, WithPinning("Bike", ""))

	require.NoError(t, s.Generate(context.Background(), "a red bicycle"))
	require.NoError(t, s.Mint(context.Background()))

	snap := s.Snapshot()
	require.NotNil(t, snap.Upload)
	assert.Equal(t, snap.Upload.TokenURI, snap.TokenURI)
	assert.Equal(t, []string{snap.Upload.TokenURI}, m.uris)
}

func TestSessionFailures(t *testing.T) {
	t.Run("generate", func(t *testing.T) {
		srv := newServer(t, &fakeGenerator{err: apierr.Transport("image generation failed", errors.New("reset"))})
		s := NewSession(New(srv.URL, WithHTTPClient(srv.Client())), &fakeMinter{})

		err := s.Generate(context.Background(), "a red bicycle")
		require.Error(t, err)
		snap := s.Snapshot()
		assert.Equal(t, StateFailed, snap.State)
		assert.Empty(t, snap.ImageURL)
		assert.Equal(t, "image generation failed", apierr.MessageOf(snap.Err))
		assert.ErrorIs(t, s.Mint(context.Background()), ErrNoImage)
	})
	t.Run("mint then retry", func(t *testing.T) {
		srv := newServer(t, &fakeGenerator{})
		m := &fakeMinter{err: errors.New("user rejected")}
		s := NewSession(New(srv.URL, WithHTTPClient(srv.Client())), m)

		require.NoError(t, s.Generate(context.Background(), "a red bicycle"))
		require.Error(t, s.Mint(context.Background()))
		assert.Equal(t, StateFailed, s.State())
		assert.NotEmpty(t, s.Snapshot().ImageURL)

		m.err = nil
		require.NoError(t, s.Mint(context.Background()))
		assert.Equal(t, StateMinted, s.State())
		assert.Len(t, m.uris, 2)
	})
}

func TestSessionBusy(t *testing.T) {
	srv := newServer(t, &fakeGenerator{})
	m := &fakeMinter{block: make(chan struct{})}
	s := NewSession(New(srv.URL, WithHTTPClient(srv.Client())), m)
	require.NoError(t, s.Generate(context.Background(), "a red bicycle"))

	done := make(chan error, 1)
	go func() { done <- s.Mint(context.Background()) }()
	require.Eventually(t, func() bool { return s.State() == StateMinting }, time.Second, time.Millisecond)

	assert.ErrorIs(t, s.Generate(context.Background(), "another"), ErrBusy)
	assert.ErrorIs(t, s.Mint(context.Background()), ErrBusy)

	close(m.block)
	require.NoError(t, <-done)
	assert.Equal(t, StateMinted, s.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "generating", StateGenerating.String())
	assert.Equal(t, "unknown", State(42).String())
}
