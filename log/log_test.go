//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel(LevelInfo)

	cases := []struct {
		in       string
		expected zapcore.Level
	}{
		{LevelDebug, zapcore.DebugLevel},
		{LevelInfo, zapcore.InfoLevel},
		{LevelWarn, zapcore.WarnLevel},
		{LevelError, zapcore.ErrorLevel},
		{LevelFatal, zapcore.FatalLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, c := range cases {
		SetLevel(c.in)
		assert.Equal(t, c.expected, zapLevel.Level(), "SetLevel(%q)", c.in)
	}
}

func TestNamedFallsBackToDefault(t *testing.T) {
	old := Default
	defer func() { Default = old }()

	stub := &noopLogger{}
	Default = stub
	assert.Same(t, stub, Named("server"))
}

func TestNamedZap(t *testing.T) {
	l := Named("imagegen")
	assert.NotNil(t, l)
	assert.NotSame(t, Default, l)
}

func TestPackageFuncsForward(t *testing.T) {
	old := Default
	defer func() { Default = old }()

	stub := &noopLogger{}
	Default = stub
	Debug("a")
	Debugf("%s", "a")
	Info("a")
	Infof("%s", "a")
	Warn("a")
	Warnf("%s", "a")
	Error("a")
	Errorf("%s", "a")
	Fatal("a")
	Fatalf("%s", "a")
	assert.Equal(t, 10, stub.calls)
}

type noopLogger struct{ calls int }

func (l *noopLogger) Debug(args ...any)                 { l.calls++ }
func (l *noopLogger) Debugf(format string, args ...any) { l.calls++ }
func (l *noopLogger) Info(args ...any)                  { l.calls++ }
func (l *noopLogger) Infof(format string, args ...any)  { l.calls++ }
func (l *noopLogger) Warn(args ...any)                  { l.calls++ }
func (l *noopLogger) Warnf(format string, args ...any)  { l.calls++ }
func (l *noopLogger) Error(args ...any)                 { l.calls++ }
func (l *noopLogger) Errorf(format string, args ...any) { l.calls++ }
func (l *noopLogger) Fatal(args ...any)                 { l.calls++ }
func (l *noopLogger) Fatalf(format string, args ...any) { l.calls++ }
