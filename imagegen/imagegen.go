//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package imagegen forwards text prompts to an image inference backend
// and returns the result as a data URL.
package imagegen

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nifty-mvp/nifty/apierr"
	"github.com/nifty-mvp/nifty/dataurl"
	itelemetry "github.com/nifty-mvp/nifty/internal/telemetry"
	"github.com/nifty-mvp/nifty/log"
	"github.com/nifty-mvp/nifty/telemetry/metric"
	"github.com/nifty-mvp/nifty/telemetry/trace"
)

// Image is a generated image.
type Image struct {
	MimeType string
	Data     []byte
}

// Generator produces one image for a prompt. Implementations must resolve
// their credential before any network activity and make at most one
// upstream call.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (*Image, error)
}

// Request is the body of a generation request.
type Request struct {
	Prompt string `json:"prompt"`
}

// Response is the result of a generation request.
type Response struct {
	ImageURL string `json:"imageUrl"`
}

// Service validates requests and forwards them to a Generator.
type Service struct {
	gen      Generator
	observer metric.Observer
}

// Option configures a Service.
type Option func(*Service)

// WithObserver sets the metrics observer.
func WithObserver(o metric.Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// New creates a Service forwarding to gen.
func New(gen Generator, opts ...Option) *Service {
	s := &Service{gen: gen, observer: metric.Nop}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the generator name.
func (s *Service) Backend() string { return s.gen.Name() }

// Generate turns req into an image data URL.
func (s *Service) Generate(ctx context.Context, req Request) (resp *Response, err error) {
	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanNameGenerate)
	span.SetAttributes(
		attribute.String(itelemetry.KeyBackend, s.gen.Name()),
		attribute.Int(itelemetry.KeyPromptLen, len(req.Prompt)),
	)
	defer func() { itelemetry.EndSpan(span, err) }()

	if strings.TrimSpace(req.Prompt) == "" {
		return nil, apierr.Validation("prompt is required")
	}

	start := time.Now()
	img, err := s.gen.Generate(ctx, req.Prompt)
	if !apierr.IsKind(err, apierr.KindConfiguration) {
		s.observer.RecordCall(s.gen.Name(), "generate", time.Since(start), err)
	}
	if err != nil {
		log.Errorf("imagegen: %s failed: %v", s.gen.Name(), err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String(itelemetry.KeyMimeType, img.MimeType),
		attribute.Int(itelemetry.KeyBytes, len(img.Data)),
	)
	return &Response{ImageURL: dataurl.Encode(img.MimeType, img.Data)}, nil
}
