//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package web3storage provides a content store backed by the web3.storage
// upload API.
package web3storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nifty-mvp/nifty/apierr"
	"github.com/nifty-mvp/nifty/config"
	"github.com/nifty-mvp/nifty/content"
	"github.com/nifty-mvp/nifty/transport"
)

// Name is the backend name.
const Name = "web3storage"

// maxErrorBody bounds how much of a failed response is echoed back.
const maxErrorBody = 4 << 10

// Service posts raw bytes to <endpoint>/upload and relays the returned cid.
type Service struct {
	token    config.Credential
	endpoint string
	client   transport.Doer
}

var (
	_ content.Store             = (*Service)(nil)
	_ content.CredentialChecker = (*Service)(nil)
)

// Option configures a Service.
type Option func(*Service)

// WithEndpoint sets the API base URL.
func WithEndpoint(endpoint string) Option {
	return func(s *Service) {
		if endpoint != "" {
			s.endpoint = strings.TrimSuffix(endpoint, "/")
		}
	}
}

// WithHTTPClient sets the outbound client.
func WithHTTPClient(c transport.Doer) Option {
	return func(s *Service) {
		if c != nil {
			s.client = c
		}
	}
}

// NewService creates a store authenticating with token.
func NewService(token config.Credential, opts ...Option) *Service {
	s := &Service{
		token:    token,
		endpoint: config.DefaultWeb3StorageURL,
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements content.Store.
func (s *Service) Name() string { return Name }

// CheckCredentials implements content.CredentialChecker.
func (s *Service) CheckCredentials() error {
	_, err := s.token.Value()
	return err
}

type uploadResponse struct {
	CID string `json:"cid"`
}

// Put implements content.Store.
func (s *Service) Put(ctx context.Context, c *content.Content) (string, error) {
	token, err := s.token.Value()
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/upload", bytes.NewReader(c.Data))
	if err != nil {
		return "", apierr.Internal("failed to create upload request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", c.MimeType)
	if c.Name != "" {
		req.Header.Set("X-Name", c.Name)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", apierr.Transport("storage upload failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", apierr.Internal(
			fmt.Sprintf("storage upload failed: %d %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apierr.Internal("storage upload failed: invalid response", err)
	}
	if out.CID == "" {
		return "", apierr.Internal("storage upload failed: response has no cid", nil)
	}
	return out.CID, nil
}
