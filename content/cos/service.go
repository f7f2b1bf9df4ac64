//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package cos provides a Tencent Cloud Object Storage (COS) content store.
//
// The store computes a CIDv1 (raw codec, sha2-256) for each upload and
// writes the bytes to the object "ipfs/{cid}", so the bucket doubles as an
// HTTP gateway for the identifiers it hands out.
//
// Authentication:
// The store requires COS credentials which can be provided via:
// - Environment variables: COS_SECRETID and COS_SECRETKEY (recommended)
// - Option functions: WithSecretID() and WithSecretKey()
//
// Example:
//
//	// Set environment variables
//	export COS_SECRETID="your-secret-id"
//	export COS_SECRETKEY="your-secret-key"
//
//	// Create store
//	store, err := cos.NewService("https://bucket.cos.region.myqcloud.com")
package cos

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	cos "github.com/tencentyun/cos-go-sdk-v5"

	"github.com/nifty-mvp/nifty/apierr"
	"github.com/nifty-mvp/nifty/config"
	"github.com/nifty-mvp/nifty/content"
	icontent "github.com/nifty-mvp/nifty/internal/content"
)

// Name is the backend name.
const Name = "cos"

// Service is a COS implementation of content.Store and content.Reader.
type Service struct {
	cosClient client
	// credentials are checked only when the store signs its own requests.
	checkCredentials bool
	secretID         config.Credential
	secretKey        config.Credential
	gateway          content.Gateway
}

var (
	_ content.Store             = (*Service)(nil)
	_ content.Reader            = (*Service)(nil)
	_ content.CredentialChecker = (*Service)(nil)
)

// NewService creates a COS content store for bucketURL.
//
// Example usage:
//
//	// Using environment variables (set COS_SECRETID and COS_SECRETKEY)
//	store, err := cos.NewService("https://bucket.cos.region.myqcloud.com")
//
//	// Using option functions
//	store, err := cos.NewService(
//	    "https://bucket.cos.region.myqcloud.com",
//	    cos.WithSecretID(config.StaticCredential("COS_SECRETID", id)),
//	    cos.WithSecretKey(config.StaticCredential("COS_SECRETKEY", key)),
//	    cos.WithTimeout(30*time.Second),
//	)
func NewService(bucketURL string, opts ...Option) (*Service, error) {
	c, err := globalBuilder(bucketURL, opts...)
	if err != nil {
		return nil, err
	}
	cli, ok := c.(client)
	if !ok {
		return nil, fmt.Errorf("client builder returned invalid type: expected client interface, got %T", c)
	}
	o := newOptions(opts...)
	gateway := o.gateway
	if gateway == "" {
		gateway = strings.TrimSuffix(bucketURL, "/") + "/" + icontent.ObjectPrefix
	}
	return &Service{
		cosClient:        cli,
		checkCredentials: o.client == nil,
		secretID:         o.secretID,
		secretKey:        o.secretKey,
		gateway:          content.Gateway(gateway),
	}, nil
}

// Name implements content.Store.
func (s *Service) Name() string { return Name }

// Gateway returns the public prefix for stored objects.
func (s *Service) Gateway() content.Gateway { return s.gateway }

// CheckCredentials implements content.CredentialChecker.
func (s *Service) CheckCredentials() error {
	if !s.checkCredentials {
		return nil
	}
	if _, err := s.secretID.Value(); err != nil {
		return err
	}
	_, err := s.secretKey.Value()
	return err
}

// Put implements content.Store. Object names are derived from the bytes,
// so uploading the same content twice rewrites an identical object.
func (s *Service) Put(ctx context.Context, c *content.Content) (string, error) {
	if err := s.CheckCredentials(); err != nil {
		return "", err
	}
	id, err := icontent.ComputeCID(c.Data)
	if err != nil {
		return "", apierr.Internal("storage upload failed", err)
	}
	objectName := icontent.BuildObjectName(id)

	if err := s.cosClient.PutObject(ctx, objectName, bytes.NewReader(c.Data), c.MimeType); err != nil {
		return "", apierr.Internal(fmt.Sprintf("storage upload failed: %v", err), nil)
	}
	return id, nil
}

// Get implements content.Reader.
func (s *Service) Get(ctx context.Context, cid string) (*content.Content, error) {
	respBody, respHeader, err := s.cosClient.GetObject(ctx, icontent.BuildObjectName(cid))
	if err != nil {
		if cos.IsNotFoundError(err) {
			return nil, content.ErrNotFound
		}
		return nil, fmt.Errorf("failed to download content: %w", err)
	}
	defer respBody.Close()

	data, err := io.ReadAll(respBody)
	if err != nil {
		return nil, fmt.Errorf("failed to read content data: %w", err)
	}
	contentType := respHeader.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &content.Content{Data: data, MimeType: contentType}, nil
}
