//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package client calls the generate and upload endpoints and drives the
// generate-then-mint flow.
package client

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
	"github.com/nifty-mvp/nifty/imagegen"
	"github.com/nifty-mvp/nifty/pinning"
	"github.com/nifty-mvp/nifty/transport"
)

// Endpoint paths.
const (
	generatePath = "/api/generate"
	uploadPath   = "/api/ipfs-upload"
)

// Client talks to a running server.
type Client struct {
	baseURL string
	http    transport.Doer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the outbound client.
func WithHTTPClient(c transport.Doer) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = config.DefaultServerURL
	}
	c := &Client{baseURL: strings.TrimSuffix(baseURL, "/"), http: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate requests an image for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (*imagegen.Response, error) {
	var resp imagegen.Response
	if err := c.post(ctx, generatePath, imagegen.Request{Prompt: prompt}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Upload pins an image and its metadata.
func (c *Client) Upload(ctx context.Context, req pinning.Request) (*pinning.Response, error) {
	var resp pinning.Response
	if err := c.post(ctx, uploadPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// post sends in as JSON and decodes a 2xx body into out. Other statuses
// become *apierr.Error values carrying the server's status and message.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apierr.Transport(fmt.Sprintf("request to %s failed", path), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apierr.Transport(fmt.Sprintf("read %s response", path), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		if msg == "" {
			msg = resp.Status
		}
		return &apierr.Error{Kind: apierr.KindUpstream, Status: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apierr.Internal(fmt.Sprintf("decode %s response", path), err)
	}
	return nil
}
