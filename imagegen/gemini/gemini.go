//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package gemini provides an image generator backed by Imagen through the
// Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/nifty-mvp/nifty/apierr"
	"github.com/nifty-mvp/nifty/config"
	"github.com/nifty-mvp/nifty/dataurl"
	"github.com/nifty-mvp/nifty/imagegen"
	itelemetry "github.com/nifty-mvp/nifty/internal/telemetry"
	"github.com/nifty-mvp/nifty/telemetry/trace"
)

// Name is the backend name.
const Name = "gemini"

const failedMessage = "image generation failed"

// client interface is unstable and may change in the future.
type client interface {
	GenerateImages(ctx context.Context, model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

type genaiClient struct {
	models *genai.Models
}

func (c *genaiClient) GenerateImages(ctx context.Context, model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	return c.models.GenerateImages(ctx, model, prompt, cfg)
}

// SetClientBuilder replaces how SDK clients are built.
// This function signature is unstable and may change in the future.
// You should not rely on it.
func SetClientBuilder(builder clientBuilder) {
	globalBuilder = builder
}

var globalBuilder = defaultClientBuilder

type clientBuilder = func(ctx context.Context, apiKey string, opts ...Option) (any, error)

func defaultClientBuilder(ctx context.Context, apiKey string, opts ...Option) (any, error) {
	g := &Generator{}
	for _, opt := range opts {
		opt(g)
	}
	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.httpClient,
	}
	if g.baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	return &genaiClient{models: c.Models}, nil
}

// Generator calls Imagen once per prompt.
type Generator struct {
	apiKey     config.Credential
	model      string
	baseURL    string
	httpClient *http.Client
	opts       []Option
}

var _ imagegen.Generator = (*Generator)(nil)

// Option configures a Generator.
type Option func(*Generator)

// WithModel sets the Imagen model.
func WithModel(model string) Option {
	return func(g *Generator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(g *Generator) { g.baseURL = url }
}

// WithHTTPClient sets the outbound client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Generator) { g.httpClient = c }
}

// New creates a Generator authenticating with apiKey.
func New(apiKey config.Credential, opts ...Option) *Generator {
	g := &Generator{apiKey: apiKey, model: config.DefaultGeminiImageModel, opts: opts}
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

	c, err := globalBuilder(ctx, key, g.opts...)
	if err != nil {
		return nil, apierr.Internal("failed to create gemini client", err)
	}
	cli, ok := c.(client)
	if !ok {
		return nil, apierr.Internal(fmt.Sprintf("client builder returned invalid type %T", c), nil)
	}

	resp, err := cli.GenerateImages(ctx, g.model, prompt, &genai.GenerateImagesConfig{NumberOfImages: 1})
	if err != nil {
		return nil, mapError(err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil ||
		len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		reason := ""
		if resp != nil && len(resp.GeneratedImages) > 0 {
			reason = resp.GeneratedImages[0].RAIFilteredReason
		}
		if reason != "" {
			return nil, apierr.Internal("image generation returned no image: "+reason, nil)
		}
		return nil, apierr.Internal("image generation returned no image", nil)
	}

	out := resp.GeneratedImages[0].Image
	mimeType, ok := dataurl.IsImageType(out.MIMEType)
	if !ok {
		mimeType = dataurl.DefaultMimeType
	}
	return &imagegen.Image{MimeType: mimeType, Data: out.ImageBytes}, nil
}

func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return apierr.Upstream(apiErr.Code, upstreamMessage(apiErr))
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && apiErrPtr.Code != 0 {
		return apierr.Upstream(apiErrPtr.Code, upstreamMessage(*apiErrPtr))
	}
	return apierr.Transport(failedMessage, err)
}

func upstreamMessage(e genai.APIError) string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Code)
}
