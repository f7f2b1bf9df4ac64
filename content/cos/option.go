//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package cos

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	cos "github.com/tencentyun/cos-go-sdk-v5"

	"github.com/nifty-mvp/nifty/config"
)

const (
	envSecretID  = "COS_SECRETID"
	envSecretKey = "COS_SECRETKEY"
)

// Option defines a function type for configuring the COS store.
type Option func(*options)

// options holds the configuration options for the COS store.
type options struct {
	client     client
	httpClient *http.Client

	timeout   time.Duration
	secretID  config.Credential
	secretKey config.Credential
	gateway   string
}

func newOptions(opts ...Option) *options {
	o := &options{
		secretID:  config.NewEnvCredential(envSecretID, nil),
		secretKey: config.NewEnvCredential(envSecretKey, nil),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithClient sets the COS client directly.
// This option takes precedence over all other options when provided, and
// credentials are then the client's concern.
func WithClient(client *cos.Client) Option {
	return func(o *options) {
		o.client = newCosClient(client)
	}
}

// WithHTTPClient sets the HTTP client whose transport carries signed
// requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithTimeout sets the timeout duration for HTTP requests. Zero means no
// timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

// WithSecretID sets the COS secret ID.
// If not provided, the COS_SECRETID environment variable is read per request.
func WithSecretID(secretID config.Credential) Option {
	return func(o *options) {
		o.secretID = secretID
	}
}

// WithSecretKey sets the COS secret key.
// If not provided, the COS_SECRETKEY environment variable is read per request.
func WithSecretKey(secretKey config.Credential) Option {
	return func(o *options) {
		o.secretKey = secretKey
	}
}

// WithGateway sets the public prefix under which objects are served. It
// defaults to <bucketURL>/ipfs/.
func WithGateway(gateway string) Option {
	return func(o *options) {
		o.gateway = gateway
	}
}

// SetClientBuilder sets the COS client builder.
// This function signature is unstable and may change in the future.
// You should not rely on it.
func SetClientBuilder(builder clientBuilder) {
	globalBuilder = builder
}

var globalBuilder = defaultClientBuilder

type clientBuilder = func(bucketURL string, opts ...Option) (any, error)

func defaultClientBuilder(bucketURL string, opts ...Option) (any, error) {
	options := newOptions(opts...)

	// If a COS client is directly provided, use it
	if options.client != nil {
		return options.client, nil
	}

	u, err := url.Parse(bucketURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid bucket URL %q", bucketURL)
	}
	b := &cos.BaseURL{BucketURL: u}

	var base http.RoundTripper
	httpClient := &http.Client{Timeout: options.timeout}
	if options.httpClient != nil {
		base = options.httpClient.Transport
		if options.timeout == 0 {
			httpClient.Timeout = options.httpClient.Timeout
		}
	}
	httpClient.Transport = &credentialTransport{
		secretID:  options.secretID,
		secretKey: options.secretKey,
		base:      base,
	}
	return newCosClient(cos.NewClient(b, httpClient)), nil
}
