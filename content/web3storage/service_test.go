//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package web3storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nifty-mvp/nifty/apierr"
	"github.com/nifty-mvp/nifty/config"
	"github.com/nifty-mvp/nifty/content"
	"github.com/nifty-mvp/nifty/transport"
)

func TestPut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload", r.URL.Path)
		assert.Equal(t, "Bearer w3-token", r.Header.Get("Authorization"))
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
		assert.Equal(t, "cat.png", r.Header.Get("X-Name"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0, 0}, body)
		_, _ = io.WriteString(w, `{"cid":"bafyimage"}`)
	}))
	defer srv.Close()

	s := NewService(config.StaticCredential("WEB3_STORAGE_TOKEN", "w3-token"),
		WithEndpoint(srv.URL+"/"), WithHTTPClient(srv.Client()))
	id, err := s.Put(context.Background(), &content.Content{Data: []byte{0, 0, 0}, MimeType: "image/png", Name: "cat.png"})
	require.NoError(t, err)
	assert.Equal(t, "bafyimage", id)
	assert.Equal(t, Name, s.Name())
	assert.NoError(t, s.CheckCredentials())
}

func TestPutProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "invalid token\n")
	}))
	defer srv.Close()

	s := NewService(config.StaticCredential("WEB3_STORAGE_TOKEN", "bad"),
		WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	_, err := s.Put(context.Background(), &content.Content{Data: []byte("x"), MimeType: "image/png"})
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindInternal))
	assert.Equal(t, http.StatusInternalServerError, apierr.StatusOf(err))
	assert.Equal(t, "storage upload failed: 401 invalid token", apierr.MessageOf(err))
}

func TestPutBadResponse(t *testing.T) {
	for _, body := range []string{`not json`, `{}`, `{"cid":""}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, body)
		}))
		s := NewService(config.StaticCredential("WEB3_STORAGE_TOKEN", "t"),
			WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
		_, err := s.Put(context.Background(), &content.Content{Data: []byte("x"), MimeType: "image/png"})
		srv.Close()
		require.Error(t, err, body)
		assert.True(t, apierr.IsKind(err, apierr.KindInternal), body)
	}
}

func TestPutMissingToken(t *testing.T) {
	calls := 0
	doer := transport.DoerFunc(func(*http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("unexpected")
	})
	s := NewService(config.StaticCredential("WEB3_STORAGE_TOKEN", ""), WithHTTPClient(doer))
	assert.EqualError(t, s.CheckCredentials(), "WEB3_STORAGE_TOKEN is missing")
	_, err := s.Put(context.Background(), &content.Content{Data: []byte("x")})
	assert.EqualError(t, err, "WEB3_STORAGE_TOKEN is missing")
	assert.Zero(t, calls)
}

func TestPutTransportError(t *testing.T) {
	doer := transport.DoerFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("no route to host")
	})
	s := NewService(config.StaticCredential("WEB3_STORAGE_TOKEN", "t"), WithHTTPClient(doer))
	_, err := s.Put(context.Background(), &content.Content{Data: []byte("x"), MimeType: "image/png"})
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindTransport))
	assert.Equal(t, http.StatusInternalServerError, apierr.StatusOf(err))
}
