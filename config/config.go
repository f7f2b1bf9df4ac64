//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package config loads nifty's runtime configuration from the process
// environment and an optional .env file.
//
// Credentials are not captured at load time. A Credential remembers where
// its value lives and is resolved on every call, so rotating a token in the
// environment takes effect without a restart and a missing token is
// reported per request instead of at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names.
const (
	ImageBackendHuggingFace = "huggingface"
	ImageBackendOpenAI      = "openai"
	ImageBackendGemini      = "gemini"

	StorageBackendWeb3Storage = "web3storage"
	StorageBackendCOS         = "cos"
	StorageBackendMemory      = "memory"
)

// Defaults.
const (
	DefaultAddr              = ":3000"
	DefaultHuggingFaceURL    = "https://api-inference.huggingface.co/models/stabilityai/stable-diffusion-3-medium"
	DefaultOpenAIImageModel  = "dall-e-3"
	DefaultGeminiImageModel  = "imagen-3.0-generate-002"
	DefaultAccept            = "image/png"
	DefaultWeb3StorageURL    = "https://api.web3.storage"
	DefaultWeb3Gateway       = "https://w3s.link/ipfs/"
	DefaultMetadataName      = "AI NFT"
	DefaultMetadataDesc      = "Minted from Nifty MVP"
	DefaultMaxBodyBytes      = int64(20 << 20)
	DefaultContractAddress   = "0xada5b4b0f2446f3f8532c309c0de222821ef572d"
	DefaultRPCURL            = "https://rpc-amoy.polygon.technology"
	DefaultExplorerTxURL     = "https://amoy.polygonscan.com/tx/"
	DefaultServerURL         = "http://localhost:3000"
	DefaultTelemetryService  = "nifty"
	defaultEnvFile           = ".env"
	envVarHuggingFaceToken   = "HF_TOKEN"
	envVarOpenAIKey          = "OPENAI_API_KEY"
	envVarGeminiKey          = "GEMINI_API_KEY"
	envVarWeb3StorageToken   = "WEB3_STORAGE_TOKEN"
	envVarCOSSecretID        = "COS_SECRETID"
	envVarCOSSecretKey       = "COS_SECRETKEY"
	envVarMintPrivateKey     = "NIFTY_MINT_PRIVATE_KEY"
)

// EnvLookup resolves an environment variable.
type EnvLookup func(key string) (string, bool)

// Config holds all configuration for the application.
type Config struct {
	Addr           string
	LogLevel       string
	AllowedOrigins []string
	// HTTPTimeout bounds outbound calls. Zero leaves the transport default.
	HTTPTimeout     time.Duration
	MaxRequestBytes int64
	MaxImageBytes   int64

	Image     ImageConfig
	Storage   StorageConfig
	Mint      MintConfig
	Telemetry TelemetryConfig
}

// ImageConfig configures the image request forwarder.
type ImageConfig struct {
	Backend  string
	Endpoint string
	// Model is sent as the optional "model" field for huggingface and
	// selects the model for the SDK backends.
	Model  string
	Accept string

	HuggingFaceToken Credential
	OpenAIKey        Credential
	OpenAIBaseURL    string
	GeminiKey        Credential
}

// StorageConfig configures the content upload forwarder.
type StorageConfig struct {
	Backend  string
	Endpoint string
	Gateway  string
	Token    Credential

	COSBucketURL string
	COSSecretID  Credential
	COSSecretKey Credential

	DefaultName        string
	DefaultDescription string
}

// MintConfig configures the client application.
type MintConfig struct {
	ServerURL       string
	RPCURL          string
	ContractAddress string
	ExplorerTxURL   string
	PrivateKey      Credential
}

// TelemetryConfig configures tracing.
type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
}

// Option configures Load.
type Option func(*loader)

type loader struct {
	files  []string
	lookup EnvLookup
}

// WithEnvFiles sets the dotenv files to read. Missing files are skipped.
func WithEnvFiles(files ...string) Option {
	return func(l *loader) { l.files = files }
}

// WithLookup replaces the environment lookup, mainly for tests. Dotenv
// files are not read when a custom lookup is installed.
func WithLookup(lookup EnvLookup) Option {
	return func(l *loader) {
		l.lookup = lookup
		l.files = nil
	}
}

// Load builds a Config from the environment.
func Load(opts ...Option) (*Config, error) {
	l := &loader{files: []string{defaultEnvFile}, lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(l)
	}
	for _, f := range l.files {
		// godotenv never overrides variables that are already set.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s: %w", f, err)
		}
	}
	env := l.lookup

	cfg := &Config{
		Addr:           getString(env, "NIFTY_ADDR", DefaultAddr),
		LogLevel:       getString(env, "NIFTY_LOG_LEVEL", "info"),
		AllowedOrigins: getList(env, "NIFTY_ALLOWED_ORIGINS", []string{"*"}),
		Image: ImageConfig{
			Backend:          strings.ToLower(getString(env, "NIFTY_IMAGE_BACKEND", ImageBackendHuggingFace)),
			Endpoint:         getString(env, "NIFTY_IMAGE_ENDPOINT", DefaultHuggingFaceURL),
			Model:            getString(env, "NIFTY_IMAGE_MODEL", ""),
			Accept:           getString(env, "NIFTY_IMAGE_ACCEPT", DefaultAccept),
			HuggingFaceToken: NewEnvCredential(envVarHuggingFaceToken, env),
			OpenAIKey:        NewEnvCredential(envVarOpenAIKey, env),
			OpenAIBaseURL:    getString(env, "OPENAI_BASE_URL", ""),
			GeminiKey:        NewEnvCredential(envVarGeminiKey, env),
		},
		Storage: StorageConfig{
			Backend:            strings.ToLower(getString(env, "NIFTY_STORAGE_BACKEND", StorageBackendWeb3Storage)),
			Endpoint:           getString(env, "NIFTY_STORAGE_ENDPOINT", DefaultWeb3StorageURL),
			Gateway:            getString(env, "NIFTY_STORAGE_GATEWAY", ""),
			Token:              NewEnvCredential(envVarWeb3StorageToken, env),
			COSBucketURL:       getString(env, "NIFTY_COS_BUCKET_URL", ""),
			COSSecretID:        NewEnvCredential(envVarCOSSecretID, env),
			COSSecretKey:       NewEnvCredential(envVarCOSSecretKey, env),
			DefaultName:        getString(env, "NIFTY_METADATA_NAME", DefaultMetadataName),
			DefaultDescription: getString(env, "NIFTY_METADATA_DESCRIPTION", DefaultMetadataDesc),
		},
		Mint: MintConfig{
			ServerURL:       getString(env, "NIFTY_SERVER_URL", DefaultServerURL),
			RPCURL:          getString(env, "NIFTY_RPC_URL", DefaultRPCURL),
			ContractAddress: getString(env, "NIFTY_CONTRACT_ADDRESS", DefaultContractAddress),
			ExplorerTxURL:   getString(env, "NIFTY_EXPLORER_TX_URL", DefaultExplorerTxURL),
			PrivateKey:      NewEnvCredential(envVarMintPrivateKey, env),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getString(env, "NIFTY_OTLP_ENDPOINT", ""),
			ServiceName:  getString(env, "NIFTY_SERVICE_NAME", DefaultTelemetryService),
		},
	}

	var err error
	if cfg.HTTPTimeout, err = getDuration(env, "NIFTY_HTTP_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if cfg.MaxRequestBytes, err = getInt64(env, "NIFTY_MAX_REQUEST_BYTES", DefaultMaxBodyBytes); err != nil {
		return nil, err
	}
	if cfg.MaxImageBytes, err = getInt64(env, "NIFTY_MAX_IMAGE_BYTES", DefaultMaxBodyBytes); err != nil {
		return nil, err
	}
	if cfg.Storage.Gateway == "" {
		cfg.Storage.Gateway = defaultGateway(cfg.Storage)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be fixed per request. Credentials
// are deliberately not checked here.
func (c *Config) Validate() error {
	switch c.Image.Backend {
	case ImageBackendHuggingFace, ImageBackendOpenAI, ImageBackendGemini:
	default:
		return fmt.Errorf("unknown image backend %q", c.Image.Backend)
	}
	switch c.Storage.Backend {
	case StorageBackendWeb3Storage, StorageBackendMemory:
	case StorageBackendCOS:
		if c.Storage.COSBucketURL == "" {
			return fmt.Errorf("NIFTY_COS_BUCKET_URL is required for the cos storage backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.MaxRequestBytes <= 0 || c.MaxImageBytes <= 0 {
		return fmt.Errorf("body limits must be positive")
	}
	return nil
}

func defaultGateway(s StorageConfig) string {
	switch s.Backend {
	case StorageBackendCOS:
		return strings.TrimSuffix(s.COSBucketURL, "/") + "/ipfs/"
	case StorageBackendMemory:
		return "/ipfs/"
	default:
		return DefaultWeb3Gateway
	}
}

func getString(env EnvLookup, key, def string) string {
	if v, ok := env(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func getList(env EnvLookup, key string, def []string) []string {
	raw := getString(env, key, "")
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func getInt64(env EnvLookup, key string, def int64) (int64, error) {
	raw := getString(env, key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// getDuration accepts Go duration syntax or a plain number of seconds.
func getDuration(env EnvLookup, key string, def time.Duration) (time.Duration, error) {
	raw := getString(env, key, "")
	if raw == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
