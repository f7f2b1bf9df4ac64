//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package config

import (
	"os"
	"strings"

	"github.com/nifty-mvp/nifty/apierr"
)

// Credential is a named secret resolved at call time.
type Credential struct {
	name   string
	lookup EnvLookup
}

// NewEnvCredential returns a credential read from the environment variable
// name through lookup. A nil lookup means os.LookupEnv.
func NewEnvCredential(name string, lookup EnvLookup) Credential {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return Credential{name: name, lookup: lookup}
}

// StaticCredential returns a credential with a fixed value. An empty value
// behaves like an unset variable.
func StaticCredential(name, value string) Credential {
	return Credential{name: name, lookup: func(string) (string, bool) { return value, value != "" }}
}

// Name returns the variable name the credential is read from.
func (c Credential) Name() string { return c.name }

// Value returns the current secret, or a configuration error naming the
// variable when it is unset or blank.
func (c Credential) Value() (string, error) {
	if c.lookup != nil {
		if v, ok := c.lookup(c.name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
	}
	name := c.name
	if name == "" {
		name = "credential"
	}
	return "", apierr.MissingCredential(name)
}
