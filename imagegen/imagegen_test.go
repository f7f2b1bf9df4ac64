//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package imagegen

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/nifty-mvp/nifty/apierr"
	"github.com/nifty-mvp/nifty/config"
	itelemetry "github.com/nifty-mvp/nifty/internal/telemetry"
	"github.com/nifty-mvp/nifty/telemetry/trace"
)

type fakeGenerator struct {
	cred   config.Credential
	calls  int
	prompt string
	img    *Image
	err    error
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (*Image, error) {
	if _, err := f.cred.Value(); err != nil {
		return nil, err
	}
	f.calls++
	f.prompt = prompt
	return f.img, f.err
}

type call struct {
	service, operation string
	err                error
}

type fakeObserver struct {
	calls []call
}

func (o *fakeObserver) RecordCall(service, operation string, _ time.Duration, err error) {
	o.calls = append(o.calls, call{service, operation, err})
}
func (o *fakeObserver) RecordUpload(string, time.Duration, int, error) {}
func (o *fakeObserver) RecordRequest(string, int, time.Duration)       {}

func TestGenerate(t *testing.T) {
	gen := &fakeGenerator{
		cred: config.StaticCredential("HF_TOKEN", "t"),
		img:  &Image{MimeType: "image/png", Data: []byte{0, 0, 0}},
	}
	obs := &fakeObserver{}
	s := New(gen, WithObserver(obs))

	resp, err := s.Generate(context.Background(), Request{Prompt: "a red bicycle"})
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AAAA", resp.ImageURL)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, "a red bicycle", gen.prompt)
	require.Len(t, obs.calls, 1)
	assert.Equal(t, call{"fake", "generate", nil}, obs.calls[0])
	assert.Equal(t, "fake", s.Backend())
}

func TestGenerateRejectsEmptyPromptRegardlessOfCredential(t *testing.T) {
	for _, cred := range []config.Credential{
		config.StaticCredential("HF_TOKEN", "t"),
		config.StaticCredential("HF_TOKEN", ""),
	} {
		for _, prompt := range []string{"", "   ", "\n\t"} {
			gen := &fakeGenerator{cred: cred}
			_, err := New(gen).Generate(context.Background(), Request{Prompt: prompt})
			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, apierr.StatusOf(err))
			assert.Equal(t, "prompt is required", apierr.MessageOf(err))
			assert.Zero(t, gen.calls)
		}
	}
}

func TestGenerateMissingCredential(t *testing.T) {
	gen := &fakeGenerator{cred: config.StaticCredential("HF_TOKEN", "")}
	obs := &fakeObserver{}
	_, err := New(gen, WithObserver(obs)).Generate(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, apierr.StatusOf(err))
	assert.Contains(t, apierr.MessageOf(err), "HF_TOKEN")
	assert.Zero(t, gen.calls)
	assert.Empty(t, obs.calls)
}

func TestGenerateUpstreamPassthrough(t *testing.T) {
	gen := &fakeGenerator{
		cred: config.StaticCredential("HF_TOKEN", "t"),
		err:  apierr.Upstream(http.StatusServiceUnavailable, "Model is loading"),
	}
	obs := &fakeObserver{}
	_, err := New(gen, WithObserver(obs)).Generate(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, apierr.StatusOf(err))
	assert.Equal(t, "Model is loading", apierr.MessageOf(err))
	require.Len(t, obs.calls, 1)
	assert.Error(t, obs.calls[0].err)
}

func TestGenerateRecordsSpan(t *testing.T) {
	orig := trace.TracerProvider
	t.Cleanup(func() { trace.SetTracerProvider(orig) })
	rec := tracetest.NewSpanRecorder()
	trace.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	gen := &fakeGenerator{
		cred: config.StaticCredential("HF_TOKEN", "t"),
		img:  &Image{MimeType: "image/png", Data: []byte("x")},
	}
	_, err := New(gen).Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	_, err = New(gen).Generate(context.Background(), Request{})
	require.Error(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, itelemetry.SpanNameGenerate, spans[0].Name())
	assert.Equal(t, "Unset", spans[0].Status().Code.String())
	assert.Equal(t, "Error", spans[1].Status().Code.String())
}

func TestWithNilObserverKeepsNop(t *testing.T) {
	s := New(&fakeGenerator{}, WithObserver(nil))
	assert.NotNil(t, s.observer)
}
