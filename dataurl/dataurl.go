//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package dataurl encodes and decodes base64 image data URLs.
package dataurl

import (
	"encoding/base64"
	"regexp"
	"strings"

	"github.com/nifty-mvp/nifty/apierr"
)

// DefaultMimeType is used when no image type is known.
const DefaultMimeType = "image/png"

const prefix = "data:"

var pattern = regexp.MustCompile(`^data:(image/[\w.+-]+);base64,(.+)$`)

// IsDataURL reports whether s should be treated as a data URL.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, prefix)
}

// Encode returns data as a base64 data URL. An empty mimeType becomes
// DefaultMimeType.
func Encode(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	return prefix + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Decode parses an image data URL. A header that does not match is a
// validation error; a payload that is not base64 is an internal error.
func Decode(s string) (string, []byte, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return "", nil, apierr.Validation("invalid data URL")
	}
	data, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		// Unpadded payloads are common in hand-built URLs.
		raw, rawErr := base64.RawStdEncoding.DecodeString(m[2])
		if rawErr != nil {
			return "", nil, apierr.Internal("invalid base64 payload", err)
		}
		data = raw
	}
	return m[1], data, nil
}

// IsImageType reports whether a Content-Type header names an image type,
// returning the bare media type without parameters.
func IsImageType(contentType string) (string, bool) {
	mt := strings.TrimSpace(strings.ToLower(strings.SplitN(contentType, ";", 2)[0]))
	if strings.HasPrefix(mt, "image/") && len(mt) > len("image/") {
		return mt, true
	}
	return "", false
}
