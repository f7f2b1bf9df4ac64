//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package huggingface provides an image generator backed by the Hugging
// Face inference API.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nifty-mvp/nifty/apierr"
	"github.com/nifty-mvp/nifty/config"
	"github.com/nifty-mvp/nifty/dataurl"
	"github.com/nifty-mvp/nifty/imagegen"
	itelemetry "github.com/nifty-mvp/nifty/internal/telemetry"
	"github.com/nifty-mvp/nifty/telemetry/trace"
	"github.com/nifty-mvp/nifty/transport"
)

// Name is the backend name.
const Name = "huggingface"

// failedMessage is the only text callers see for transport failures.
const failedMessage = "image generation failed"

// Generator posts prompts to a model inference URL.
type Generator struct {
	token    config.Credential
	endpoint string
	model    string
	accept   string
	client   transport.Doer
}

var _ imagegen.Generator = (*Generator)(nil)

// Option configures a Generator.
type Option func(*Generator)

// WithEndpoint sets the model inference URL.
func WithEndpoint(endpoint string) Option {
	return func(g *Generator) {
		if endpoint != "" {
			g.endpoint = endpoint
		}
	}
}

// WithModel sets the optional "model" field of the payload.
func WithModel(model string) Option {
	return func(g *Generator) { g.model = model }
}

// WithAccept sets the requested image type.
func WithAccept(accept string) Option {
	return func(g *Generator) {
		if accept != "" {
			g.accept = accept
		}
	}
}

// WithHTTPClient sets the outbound client.
func WithHTTPClient(c transport.Doer) Option {
	return func(g *Generator) {
		if c != nil {
			g.client = c
		}
	}
}

// New creates a Generator authenticating with token.
func New(token config.Credential, opts ...Option) *Generator {
	g := &Generator{
		token:    token,
		endpoint: config.DefaultHuggingFaceURL,
		accept:   config.DefaultAccept,
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name implements imagegen.Generator.
func (g *Generator) Name() string { return Name }

type payload struct {
	Model  string `json:"model,omitempty"`
	Inputs string `json:"inputs"`
}

// Generate implements imagegen.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string) (img *imagegen.Image, err error) {
	token, err := g.token.Value()
	if err != nil {
		return nil, err
	}

	ctx, span := trace.Tracer.Start(ctx, itelemetry.NewCreateSpanName(Name))
	defer func() { itelemetry.EndSpan(span, err) }()

	body, err := json.Marshal(payload{Model: g.model, Inputs: prompt})
	if err != nil {
		return nil, apierr.Internal("failed to encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apierr.Internal("failed to create request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", g.accept)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, apierr.Transport(failedMessage, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Transport(failedMessage, fmt.Errorf("read body: %w", err))
	}
	span.SetAttributes(attribute.Int(itelemetry.KeyHTTPStatus, resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apierr.Upstream(resp.StatusCode, string(data))
	}

	mimeType, ok := dataurl.IsImageType(resp.Header.Get("Content-Type"))
	if !ok {
		mimeType = g.accept
	}
	return &imagegen.Image{MimeType: mimeType, Data: data}, nil
}
