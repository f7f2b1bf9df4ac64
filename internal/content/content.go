//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package content provides internal utilities for content store
// implementations.
package content

import (
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// ObjectPrefix is the key prefix under which stores keep content.
const ObjectPrefix = "ipfs/"

// rawPrefix describes a CIDv1 over the raw bytes with a sha2-256 multihash,
// the same identifier IPFS assigns to a single-block raw upload.
var rawPrefix = cid.Prefix{
	Version:  1,
	Codec:    cid.Raw,
	MhType:   mh.SHA2_256,
	MhLength: -1,
}

// ComputeCID returns the base32 CIDv1 of data.
func ComputeCID(data []byte) (string, error) {
	c, err := rawPrefix.Sum(data)
	if err != nil {
		return "", fmt.Errorf("compute cid: %w", err)
	}
	return c.String(), nil
}

// ParseCID validates s and returns its canonical string form.
func ParseCID(s string) (string, error) {
	c, err := cid.Decode(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid cid %q: %w", s, err)
	}
	return c.String(), nil
}

// BuildObjectName returns the object key for cid, e.g. "ipfs/bafkrei...".
func BuildObjectName(cid string) string {
	return ObjectPrefix + cid
}

// CIDFromObjectName is the inverse of BuildObjectName.
func CIDFromObjectName(name string) (string, bool) {
	if !strings.HasPrefix(name, ObjectPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(name, ObjectPrefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
