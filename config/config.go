// SPDX-License-Identifier: AGPL-3.0-only

// Package config loads the transport's tunables from a TOML file, using
// BurntSushi/toml the way the teacher's mailproxy/server configs do,
// generalized here from a format-string generator into a real decode path.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds every tunable the source hardcodes as a hardcoded constant:
// per-channel window size and retransmit timeout, the write chunk size, and
// the driver's receive-poll timeout.
type Config struct {
	Channel ChannelConfig
	Driver  DriverConfig

	// resolved fields, populated by Load/Default from the TOML tables
	// above; used directly by channel.NewWithLimits.
	MaxInFlight       int           `toml:"-"`
	ChunkSize         int           `toml:"-"`
	RetransmitTimeout time.Duration `toml:"-"`
}

// ChannelConfig is the [Channel] TOML table.
type ChannelConfig struct {
	MaxInFlight       int    `toml:"MaxInFlight"`
	ChunkSizeBytes    int    `toml:"ChunkSizeBytes"`
	RetransmitTimeout string `toml:"RetransmitTimeout"`
}

// DriverConfig is the [Driver] TOML table.
type DriverConfig struct {
	ReceiveTimeout string `toml:"ReceiveTimeout"`
}

// Default returns the source's own hardcoded values (500ms retransmit, 64
// in-flight, 1024-byte chunks, 50ms receive poll) as a Config.
func Default() Config {
	return Config{
		Channel: ChannelConfig{
			MaxInFlight:       64,
			ChunkSizeBytes:    1024,
			RetransmitTimeout: "500ms",
		},
		Driver: DriverConfig{
			ReceiveTimeout: "50ms",
		},
		MaxInFlight:       64,
		ChunkSize:         1024,
		RetransmitTimeout: 500 * time.Millisecond,
	}
}

// ReceiveTimeoutDuration parses Driver.ReceiveTimeout for the I/O driver's
// recv poll deadline.
func (c Config) ReceiveTimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(c.Driver.ReceiveTimeout)
}

// Load decodes path as a TOML config file and resolves its duration string
// fields, falling back to Default()'s values for anything unset.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if len(meta.Undecoded()) > 0 {
		return Config{}, fmt.Errorf("config: %s: unrecognized keys: %v", path, meta.Undecoded())
	}
	if cfg.Channel.MaxInFlight > 0 {
		cfg.MaxInFlight = cfg.Channel.MaxInFlight
	}
	if cfg.Channel.ChunkSizeBytes > 0 {
		cfg.ChunkSize = cfg.Channel.ChunkSizeBytes
	}
	if cfg.Channel.RetransmitTimeout != "" {
		d, err := time.ParseDuration(cfg.Channel.RetransmitTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("config: %s: RetransmitTimeout: %w", path, err)
		}
		cfg.RetransmitTimeout = d
	}
	return cfg, nil
}
