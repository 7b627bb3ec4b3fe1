// Copyright 2026 The Dataflowcomm Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config loads the declarative channel table from YAML, so the
// fabric layout is host-editable without a rebuild rather than compiled
// into the binary.
package config

import (
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/sraase/dataflowcomm/fault"
	"github.com/sraase/dataflowcomm/logging"
	"github.com/sraase/dataflowcomm/platform"
	"github.com/sraase/dataflowcomm/table"
)

// ChannelType names a channel's entry in YAML. It is distinct from
// table.Type because "default" needs a src and dst worker while
// "host_input"/"host_output" need a single worker and a filename — the
// YAML shape differs per kind even though table.Type only has two
// transports.
type ChannelType string

const (
	ChannelDefault    ChannelType = "default"
	ChannelHostInput  ChannelType = "host_input"
	ChannelHostOutput ChannelType = "host_output"
)

// ChannelSpec is one YAML channel entry.
type ChannelSpec struct {
	Type      ChannelType `yaml:"type"`
	Src       int32       `yaml:"src"`
	Dst       int32       `yaml:"dst"`
	File      string      `yaml:"file"`
	TokenSize uint32      `yaml:"token_size"`
	TokenNum  uint32      `yaml:"token_num"`
}

// Config is the top-level document: logging, per-worker heap size, and the
// channel table.
type Config struct {
	Logging  logging.Config `yaml:"logging"`
	HeapSize int            `yaml:"heap_size"`
	Channels []ChannelSpec  `yaml:"channels"`
}

// DefaultConfig returns the configuration used when no file is supplied:
// info-level logging, a 1MiB per-worker heap, and an empty table.
func DefaultConfig() *Config {
	return &Config{
		Logging:  logging.Config{Level: zapcore.InfoLevel},
		HeapSize: 1 << 20,
	}
}

// LoadConfig reads and parses the YAML document at path, starting from
// DefaultConfig so any field the file omits keeps its default.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// BuildTable constructs a table.Table from cfg's channel list, trapping
// fault.TABLE on an unknown type (checked here) or a self-loop (checked by
// table.SetDefault). A host channel's file name is not validated here.
func (cfg *Config) BuildTable() *table.Table {
	t := table.New(len(cfg.Channels))
	for i, ch := range cfg.Channels {
		switch ch.Type {
		case ChannelDefault:
			t.SetDefault(i, platform.WorkerID(ch.Src), platform.WorkerID(ch.Dst), ch.TokenSize, ch.TokenNum)
		case ChannelHostOutput:
			t.SetHostOutput(i, platform.WorkerID(ch.Src), ch.File, ch.TokenSize, ch.TokenNum)
		case ChannelHostInput:
			t.SetHostInput(i, ch.File, platform.WorkerID(ch.Dst), ch.TokenSize, ch.TokenNum)
		default:
			fault.Trapf(fault.TABLE, "config: channel %d: unknown type %q", i, ch.Type)
		}
	}
	return t
}
