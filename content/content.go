//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package content defines the content-addressed storage used to pin
// images and their metadata.
package content

import (
	"context"
	"errors"
	"strings"
)

// Content is a blob to be stored, such as an image or a metadata document.
type Content struct {
	// Data contains the raw bytes (required).
	Data []byte `json:"data,omitempty"`
	// MimeType is the IANA MIME type of Data (required).
	MimeType string `json:"mime_type,omitempty"`
	// Name is an optional display name passed to stores that keep one.
	Name string `json:"name,omitempty"`
}

// ErrNotFound is returned by Reader.Get for unknown identifiers.
var ErrNotFound = errors.New("content not found")

// Store uploads content and returns the identifier assigned to it.
//
// Identifiers come from the storage provider; callers never derive or
// cache them.
type Store interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// Put stores c and returns its content identifier.
	Put(ctx context.Context, c *Content) (string, error)
}

// Reader is implemented by stores that can serve content back.
type Reader interface {
	// Get returns the content for cid or ErrNotFound.
	Get(ctx context.Context, cid string) (*Content, error)
}

// URIScheme prefixes token URIs.
const URIScheme = "ipfs://"

// TokenURI returns the ipfs:// URI for cid.
func TokenURI(cid string) string {
	return URIScheme + cid
}

// Gateway is an HTTP prefix that resolves content identifiers.
type Gateway string

// URL returns the gateway URL for cid.
func (g Gateway) URL(cid string) string {
	p := string(g)
	if p != "" && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p + cid
}

// Record ties one identifier to the URIs derived from it.
type Record struct {
	CID        string
	TokenURI   string
	GatewayURL string
}

// NewRecord builds the record for cid. TokenURI and GatewayURL always
// reference the same identifier.
func NewRecord(cid string, g Gateway) Record {
	return Record{CID: cid, TokenURI: TokenURI(cid), GatewayURL: g.URL(cid)}
}

// CredentialChecker is implemented by stores that need a credential. The
// upload forwarder calls it before any outbound request.
type CredentialChecker interface {
	CheckCredentials() error
}
