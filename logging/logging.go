// Copyright 2026 The Dataflowcomm Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package logging initializes the structured logger the host process and
// its diagnostics (hostio.Open, hostio.Runtime.Tick, hostio.Runtime.Dump)
// write through.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Config is the logging subsystem's configuration, embedded in
// config.Config.
type Config struct {
	Level zapcore.Level `yaml:"level"`
}

// Init builds a SugaredLogger writing to stderr: colorized level names
// when stderr is a terminal, plain capitals otherwise (e.g. when output
// is redirected to a log file). The returned AtomicLevel lets a caller
// change verbosity at runtime without rebuilding the logger.
func Init(cfg Config) (*zap.SugaredLogger, zap.AtomicLevel, error) {
	encoderConfig := zap.NewDevelopmentEncoderConfig()

	if term.IsTerminal(int(os.Stderr.Fd())) {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(cfg.Level),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("logging: failed to initialize logger: %w", err)
	}
	return logger.Sugar(), zapCfg.Level, nil
}
