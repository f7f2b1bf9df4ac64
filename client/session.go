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
	"sync"

	"github.com/nifty-mvp/nifty/log"
	"github.com/nifty-mvp/nifty/mint"
	"github.com/nifty-mvp/nifty/pinning"
)

// State is a step of the generate-then-mint flow.
type State int

// States.
const (
	StateIdle State = iota
	StateGenerating
	StateGenerated
	StateMinting
	StateMinted
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateGenerating:
		return "generating"
	case StateGenerated:
		return "generated"
	case StateMinting:
		return "minting"
	case StateMinted:
		return "minted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session errors.
var (
	ErrBusy    = errors.New("another operation is in progress")
	ErrNoImage = errors.New("generate an image first")
)

// Minter submits the mint transaction.
type Minter interface {
	Mint(ctx context.Context, tokenURI string) (*mint.Result, error)
}

// Snapshot is a copy of the session's visible state.
type Snapshot struct {
	State    State
	Prompt   string
	ImageURL string
	TokenURI string
	Upload   *pinning.Response
	Mint     *mint.Result
	Err      error
}

// Session holds one user's progress through generate and mint. Minting
// happens only when Mint is called.
type Session struct {
	client *Client
	minter Minter
	pin    bool
	meta   pinning.Request

	mu   sync.Mutex
	snap Snapshot
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithPinning uploads the image and metadata before minting and mints the
// metadata token URI instead of the image reference.
func WithPinning(name, description string) SessionOption {
	return func(s *Session) {
		s.pin = true
		s.meta = pinning.Request{Name: name, Description: description}
	}
}

// NewSession creates an idle session.
func NewSession(c *Client, m Minter, opts ...SessionOption) *Session {
	s := &Session{client: c, minter: m}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// State returns the current state.
func (s *Session) State() State { return s.Snapshot().State }

// Generate requests a new image, replacing any previous one.
func (s *Session) Generate(ctx context.Context, prompt string) error {
	if err := s.begin(StateGenerating, func(Snapshot) error { return nil }); err != nil {
		return err
	}
	resp, err := s.client.Generate(ctx, prompt)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.snap = Snapshot{State: StateGenerating, Prompt: prompt}
		s.fail(err)
		return err
	}
	s.snap = Snapshot{State: StateGenerated, Prompt: prompt, ImageURL: resp.ImageURL}
	return nil
}

// Mint mints the current image to the signer's address. A failed mint keeps
// the image so Mint can be retried.
func (s *Session) Mint(ctx context.Context) error {
	var imageURL string
	err := s.begin(StateMinting, func(cur Snapshot) error {
		if cur.ImageURL == "" {
			return ErrNoImage
		}
		imageURL = cur.ImageURL
		return nil
	})
	if err != nil {
		return err
	}

	tokenURI := imageURL
	var upload *pinning.Response
	if s.pin {
		req := s.meta
		req.ImageURL = imageURL
		if upload, err = s.client.Upload(ctx, req); err != nil {
			s.finishFailed(err)
			return err
		}
		tokenURI = upload.TokenURI
	}

	res, err := s.minter.Mint(ctx, tokenURI)
	if err != nil {
		s.finishFailed(err)
		return err
	}
	log.Infof("session: minted %s", res.TxHash)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.State = StateMinted
	s.snap.TokenURI = tokenURI
	s.snap.Upload = upload
	s.snap.Mint = res
	s.snap.Err = nil
	return nil
}

// begin moves to next if no operation is running and check accepts the
// current snapshot.
func (s *Session) begin(next State, check func(Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.State == StateGenerating || s.snap.State == StateMinting {
		return ErrBusy
	}
	if err := check(s.snap); err != nil {
		return err
	}
	s.snap.State = next
	s.snap.Err = nil
	return nil
}

func (s *Session) finishFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail(err)
}

func (s *Session) fail(err error) {
	log.Warnf("session: %s failed: %v", s.snap.State, err)
	s.snap.State = StateFailed
	s.snap.Err = err
}
