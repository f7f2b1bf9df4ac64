//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package pinning uploads an image and its NFT metadata document to a
// content store and reports the resulting identifiers.
package pinning

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nifty-mvp/nifty/apierr"
	"github.com/nifty-mvp/nifty/config"
	"github.com/nifty-mvp/nifty/content"
	"github.com/nifty-mvp/nifty/dataurl"
	itelemetry "github.com/nifty-mvp/nifty/internal/telemetry"
	"github.com/nifty-mvp/nifty/log"
	"github.com/nifty-mvp/nifty/telemetry/metric"
	"github.com/nifty-mvp/nifty/telemetry/trace"
	"github.com/nifty-mvp/nifty/transport"
)

const (
	downloadService = "download"
	maxErrorBody    = 4 << 10
	metadataMime    = "application/json"
)

// Request is the body of an upload request.
type Request struct {
	ImageURL    string `json:"imageUrl"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// Response reports where the image and metadata were stored.
type Response struct {
	TokenURI     string `json:"tokenUri"`
	GatewayImage string `json:"gatewayImage"`
	ImageCID     string `json:"imageCid"`
	MetadataCID  string `json:"metadataCid"`
}

// Metadata is the NFT metadata document.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// Service is the upload forwarder.
type Service struct {
	store         content.Store
	gateway       content.Gateway
	client        transport.Doer
	maxImageBytes int64
	defaultName   string
	defaultDesc   string
	observer      metric.Observer
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient sets the client used to download remote images.
func WithHTTPClient(c transport.Doer) Option {
	return func(s *Service) {
		if c != nil {
			s.client = c
		}
	}
}

// WithGateway sets the prefix for gateway URLs.
func WithGateway(g content.Gateway) Option {
	return func(s *Service) { s.gateway = g }
}

// WithMaxImageBytes caps remote image downloads.
func WithMaxImageBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxImageBytes = n
		}
	}
}

// WithMetadataDefaults sets the name and description used when a request
// leaves them empty.
func WithMetadataDefaults(name, description string) Option {
	return func(s *Service) {
		if name != "" {
			s.defaultName = name
		}
		if description != "" {
			s.defaultDesc = description
		}
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o metric.Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// New creates an upload forwarder writing to store.
func New(store content.Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		gateway:       content.Gateway(config.DefaultWeb3Gateway),
		client:        http.DefaultClient,
		maxImageBytes: config.DefaultMaxBodyBytes,
		defaultName:   config.DefaultMetadataName,
		defaultDesc:   config.DefaultMetadataDesc,
		observer:      metric.Nop,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the backing store.
func (s *Service) Store() content.Store { return s.store }

// Upload stores the image referenced by req, then a metadata document
// pointing at it.
//
// There is no rollback: when the metadata upload fails the image stays
// pinned and only the error is returned.
func (s *Service) Upload(ctx context.Context, req Request) (resp *Response, err error) {
	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanNameUpload)
	span.SetAttributes(attribute.String(itelemetry.KeyBackend, s.store.Name()))
	defer func() { itelemetry.EndSpan(span, err) }()

	if checker, ok := s.store.(content.CredentialChecker); ok {
		if err := checker.CheckCredentials(); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		return nil, apierr.Validation("imageUrl is required")
	}

	img, err := s.acquire(ctx, strings.TrimSpace(req.ImageURL))
	if err != nil {
		return nil, err
	}
	imageCID, err := s.put(ctx, img)
	if err != nil {
		return nil, err
	}

	meta := Metadata{
		Name:        firstNonEmpty(req.Name, s.defaultName),
		Description: firstNonEmpty(req.Description, s.defaultDesc),
		Image:       content.TokenURI(imageCID),
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return nil, apierr.Internal("failed to encode metadata", err)
	}
	metadataCID, err := s.put(ctx, &content.Content{Data: metaBytes, MimeType: metadataMime, Name: "metadata.json"})
	if err != nil {
		log.Warnf("pinning: metadata upload failed, image %s left pinned: %v", imageCID, err)
		return nil, err
	}

	span.SetAttributes(attribute.String(itelemetry.KeyCID, metadataCID))
	log.Debugf("pinning: image %s metadata %s via %s", imageCID, metadataCID, s.store.Name())
	return &Response{
		TokenURI:     content.TokenURI(metadataCID),
		GatewayImage: s.gateway.URL(imageCID),
		ImageCID:     imageCID,
		MetadataCID:  metadataCID,
	}, nil
}

func (s *Service) put(ctx context.Context, c *content.Content) (id string, err error) {
	ctx, span := trace.Tracer.Start(ctx, itelemetry.NewPutSpanName(s.store.Name()))
	span.SetAttributes(
		attribute.String(itelemetry.KeyMimeType, c.MimeType),
		attribute.Int(itelemetry.KeyBytes, len(c.Data)),
	)
	defer func() { itelemetry.EndSpan(span, err) }()

	start := time.Now()
	id, err = s.store.Put(ctx, c)
	s.observer.RecordUpload(s.store.Name(), time.Since(start), len(c.Data), err)
	if err != nil {
		if _, ok := apierr.As(err); ok {
			return "", err
		}
		return "", apierr.Internal(fmt.Sprintf("storage upload failed: %v", err), nil)
	}
	span.SetAttributes(attribute.String(itelemetry.KeyCID, id))
	return id, nil
}

// acquire decodes a data URL locally or downloads a remote image with a
// single GET.
func (s *Service) acquire(ctx context.Context, ref string) (*content.Content, error) {
	if dataurl.IsDataURL(ref) {
		mimeType, data, err := dataurl.Decode(ref)
		if err != nil {
			return nil, err
		}
		return &content.Content{Data: data, MimeType: mimeType}, nil
	}
	return s.download(ctx, ref)
}

func (s *Service) download(ctx context.Context, ref string) (c *content.Content, err error) {
	u, perr := url.Parse(ref)
	if perr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apierr.Validation("failed to download image: invalid URL %q", ref)
	}

	ctx, span := trace.Tracer.Start(ctx, itelemetry.SpanNameFetchImage)
	span.SetAttributes(attribute.String(itelemetry.KeyImageSource, u.Host))
	start := time.Now()
	defer func() {
		s.observer.RecordCall(downloadService, "get", time.Since(start), err)
		itelemetry.EndSpan(span, err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apierr.Validation("failed to download image: %v", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apierr.Validation("failed to download image: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		detail := strings.TrimSpace(string(body))
		if detail == "" {
			detail = resp.Status
		}
		return nil, apierr.Validation("failed to download image: %s", detail)
	}

	data, err := transport.ReadAllWithLimit(resp.Body, s.maxImageBytes)
	if err != nil {
		return nil, apierr.Validation("failed to download image: %v", err)
	}
	mimeType, ok := dataurl.IsImageType(resp.Header.Get("Content-Type"))
	if !ok {
		mimeType = dataurl.DefaultMimeType
	}
	return &content.Content{Data: data, MimeType: mimeType}, nil
}

func firstNonEmpty(v, fallback string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}
