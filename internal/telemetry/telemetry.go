//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry holds span names and attribute keys shared by the
// tracing and metrics packages.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nifty-mvp/nifty/apierr"
)

const (
	ServiceName      = "nifty"
	ServiceVersion   = "v0.1.0"
	ServiceNamespace = "nifty-mvp"
	InstrumentName   = "nifty"

	SpanNameGenerate     = "generate_image"
	SpanNameUpload       = "ipfs_upload"
	SpanNameFetchImage   = "fetch_image"
	SpanNamePrefixPut    = "content_put"
	SpanNamePrefixCreate = "image_create"
	SpanNameMint         = "safe_mint"
)

var (
	KeyBackend     = "nifty.backend"
	KeyPromptLen   = "nifty.prompt_length"
	KeyMimeType    = "nifty.mime_type"
	KeyBytes       = "nifty.bytes"
	KeyCID         = "nifty.cid"
	KeyErrorKind   = "nifty.error_kind"
	KeyHTTPStatus  = "nifty.http_status"
	KeyTxHash      = "nifty.tx_hash"
	KeyImageSource = "nifty.image_source"
)

// NewPutSpanName returns the span name for a content upload to backend.
func NewPutSpanName(backend string) string {
	return joinName(SpanNamePrefixPut, backend)
}

// NewCreateSpanName returns the span name for an image backend call.
func NewCreateSpanName(backend string) string {
	return joinName(SpanNamePrefixCreate, backend)
}

func joinName(prefix, name string) string {
	if name == "" {
		return prefix
	}
	return prefix + " " + name
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apierr.MessageOf(err))
		attrs := []attribute.KeyValue{attribute.Int(KeyHTTPStatus, apierr.StatusOf(err))}
		if e, ok := apierr.As(err); ok {
			attrs = append(attrs, attribute.String(KeyErrorKind, e.Kind.String()))
		}
		span.SetAttributes(attrs...)
	}
	span.End()
}
