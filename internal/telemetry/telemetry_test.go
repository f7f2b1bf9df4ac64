//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/nifty-mvp/nifty/apierr"
)

func TestSpanNameHelpers(t *testing.T) {
	assert.Equal(t, "content_put web3storage", NewPutSpanName("web3storage"))
	assert.Equal(t, "content_put", NewPutSpanName(""))
	assert.Equal(t, "image_create huggingface", NewCreateSpanName("huggingface"))
}

func TestEndSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tracer := tp.Tracer("test")

	_, ok := tracer.Start(context.Background(), "ok")
	EndSpan(ok, nil)
	_, bad := tracer.Start(context.Background(), "bad")
	EndSpan(bad, apierr.Upstream(503, "loading"))
	_, plain := tracer.Start(context.Background(), "plain")
	EndSpan(plain, errors.New("boom"))

	spans := rec.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "loading", spans[1].Status().Description)
	attrs := map[string]any{}
	for _, kv := range spans[1].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, int64(503), attrs[KeyHTTPStatus])
	assert.Equal(t, "upstream", attrs[KeyErrorKind])

	assert.Equal(t, codes.Error, spans[2].Status().Code)
	assert.Len(t, spans[2].Attributes(), 1)
}
