//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package setup builds the forwarders selected by configuration.
package setup

import (
	"fmt"
	"net/http"

	"github.com/nifty-mvp/nifty/config"
	"github.com/nifty-mvp/nifty/content"
	"github.com/nifty-mvp/nifty/content/cos"
	"github.com/nifty-mvp/nifty/content/inmemory"
	"github.com/nifty-mvp/nifty/content/web3storage"
	"github.com/nifty-mvp/nifty/imagegen"
	"github.com/nifty-mvp/nifty/imagegen/gemini"
	"github.com/nifty-mvp/nifty/imagegen/huggingface"
	"github.com/nifty-mvp/nifty/imagegen/openai"
	"github.com/nifty-mvp/nifty/pinning"
	"github.com/nifty-mvp/nifty/telemetry/metric"
	"github.com/nifty-mvp/nifty/transport"
)

// Services holds the two forwarders.
type Services struct {
	Generate *imagegen.Service
	Upload   *pinning.Service
}

// NewGenerator returns the image backend named by cfg.Image.Backend.
func NewGenerator(cfg *config.Config, httpClient *http.Client) (imagegen.Generator, error) {
	ic := cfg.Image
	switch ic.Backend {
	case config.ImageBackendHuggingFace, "":
		return huggingface.New(ic.HuggingFaceToken,
			huggingface.WithEndpoint(ic.Endpoint),
			huggingface.WithModel(ic.Model),
			huggingface.WithAccept(ic.Accept),
			huggingface.WithHTTPClient(httpClient),
		), nil
	case config.ImageBackendOpenAI:
		return openai.New(ic.OpenAIKey,
			openai.WithModel(ic.Model),
			openai.WithBaseURL(ic.OpenAIBaseURL),
			openai.WithHTTPClient(httpClient),
		), nil
	case config.ImageBackendGemini:
		return gemini.New(ic.GeminiKey,
			gemini.WithModel(ic.Model),
			gemini.WithHTTPClient(httpClient),
		), nil
	default:
		return nil, fmt.Errorf("unknown image backend %q", ic.Backend)
	}
}

// NewStore returns the storage backend named by cfg.Storage.Backend and
// the gateway prefix its content is served under.
func NewStore(cfg *config.Config, httpClient *http.Client) (content.Store, content.Gateway, error) {
	sc := cfg.Storage
	gateway := content.Gateway(sc.Gateway)
	switch sc.Backend {
	case config.StorageBackendWeb3Storage, "":
		if gateway == "" {
			gateway = config.DefaultWeb3Gateway
		}
		return web3storage.NewService(sc.Token,
			web3storage.WithEndpoint(sc.Endpoint),
			web3storage.WithHTTPClient(httpClient),
		), gateway, nil
	case config.StorageBackendCOS:
		svc, err := cos.NewService(sc.COSBucketURL,
			cos.WithHTTPClient(httpClient),
			cos.WithSecretID(sc.COSSecretID),
			cos.WithSecretKey(sc.COSSecretKey),
			cos.WithGateway(sc.Gateway),
		)
		if err != nil {
			return nil, "", fmt.Errorf("create cos store: %w", err)
		}
		return svc, svc.Gateway(), nil
	case config.StorageBackendMemory:
		if gateway == "" {
			gateway = "/ipfs/"
		}
		return inmemory.NewService(), gateway, nil
	default:
		return nil, "", fmt.Errorf("unknown storage backend %q", sc.Backend)
	}
}

// New builds both forwarders from cfg. A nil observer records nothing.
func New(cfg *config.Config, observer metric.Observer) (*Services, error) {
	if observer == nil {
		observer = metric.Nop
	}
	httpClient := transport.New(cfg.HTTPTimeout)

	gen, err := NewGenerator(cfg, httpClient)
	if err != nil {
		return nil, err
	}
	store, gateway, err := NewStore(cfg, httpClient)
	if err != nil {
		return nil, err
	}
	return &Services{
		Generate: imagegen.New(gen, imagegen.WithObserver(observer)),
		Upload: pinning.New(store,
			pinning.WithHTTPClient(httpClient),
			pinning.WithGateway(gateway),
			pinning.WithMaxImageBytes(cfg.MaxImageBytes),
			pinning.WithMetadataDefaults(cfg.Storage.DefaultName, cfg.Storage.DefaultDescription),
			pinning.WithObserver(observer),
		),
	}, nil
}
