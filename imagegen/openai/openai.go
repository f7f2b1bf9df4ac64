//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package openai provides an image generator backed by the OpenAI Images
// API.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"

	"github.com/nifty-mvp/nifty/apierr"
	"github.com/nifty-mvp/nifty/config"
	"github.com/nifty-mvp/nifty/dataurl"
	"github.com/nifty-mvp/nifty/imagegen"
	itelemetry "github.com/nifty-mvp/nifty/internal/telemetry"
	"github.com/nifty-mvp/nifty/telemetry/trace"
)

// Name is the backend name.
const Name = "openai"

const failedMessage = "image generation failed"

// Generator calls the Images API once per prompt.
type Generator struct {
	apiKey     config.Credential
	model      string
	baseURL    string
	httpClient openaiopt.HTTPClient
	openaiOpts []openaiopt.RequestOption
}

var _ imagegen.Generator = (*Generator)(nil)

// Option configures a Generator.
type Option func(*Generator)

// WithModel sets the image model, dall-e-3 by default.
func WithModel(model string) Option {
	return func(g *Generator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithBaseURL points the client at a compatible endpoint.
func WithBaseURL(url string) Option {
	return func(g *Generator) { g.baseURL = url }
}

// WithHTTPClient sets the outbound client.
func WithHTTPClient(c openaiopt.HTTPClient) Option {
	return func(g *Generator) { g.httpClient = c }
}

// WithOpenAIOptions appends raw SDK request options.
func WithOpenAIOptions(opts ...openaiopt.RequestOption) Option {
	return func(g *Generator) { g.openaiOpts = append(g.openaiOpts, opts...) }
}

// New creates a Generator authenticating with apiKey.
func New(apiKey config.Credential, opts ...Option) *Generator {
	g := &Generator{apiKey: apiKey, model: config.DefaultOpenAIImageModel}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name implements imagegen.Generator.
func (g *Generator) Name() string { return Name }

// Generate implements imagegen.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string) (img *imagegen.Image, err error) {
	key, err := g.apiKey.Value()
	if err != nil {
		return nil, err
	}

	ctx, span := trace.Tracer.Start(ctx, itelemetry.NewCreateSpanName(Name))
	defer func() { itelemetry.EndSpan(span, err) }()

	// The SDK retries by default; the forwarder makes exactly one call.
	clientOpts := []openaiopt.RequestOption{openaiopt.WithAPIKey(key), openaiopt.WithMaxRetries(0)}
	if g.baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(g.baseURL))
	}
	if g.httpClient != nil {
		clientOpts = append(clientOpts, openaiopt.WithHTTPClient(g.httpClient))
	}
	clientOpts = append(clientOpts, g.openaiOpts...)
	client := openai.NewClient(clientOpts...)

	params := openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(g.model),
		N:      openai.Int(1),
	}
	// gpt-image models always answer with base64 and reject response_format.
	if strings.HasPrefix(g.model, "dall-e") {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
	}

	resp, err := client.Images.Generate(ctx, params)
	if err != nil {
		return nil, mapError(err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, apierr.Internal("image generation returned no image", nil)
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, apierr.Internal("invalid image payload", err)
	}
	return &imagegen.Image{MimeType: mimeType(string(resp.OutputFormat)), Data: data}, nil
}

func mimeType(format string) string {
	switch format {
	case "jpeg", "png", "webp":
		return "image/" + format
	default:
		return dataurl.DefaultMimeType
	}
}

func mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		msg := apiErr.RawJSON()
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return apierr.Upstream(apiErr.StatusCode, msg)
	}
	return apierr.Transport(failedMessage, err)
}
