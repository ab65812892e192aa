/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package config

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ProviderStatic = "static"
	ProviderHost   = "host"

	BackendSQLite = "sqlite"
	BackendFile   = "file"

	DefaultNamespace    = "anchor"
	DefaultDatabasePath = "anchor.db"
	DefaultCounterDir   = "counters"
)

// DeviceConfig selects the device state source. Byte values are hex, with or
// without a 0x prefix.
type DeviceConfig struct {
	Provider          string `yaml:"provider"`
	ChipID            string `yaml:"chip_id"`
	SecureBoot        bool   `yaml:"secure_boot"`
	FlashEncryption   bool   `yaml:"flash_encryption"`
	Fingerprint       string `yaml:"fingerprint"`
	FirmwareImage     string `yaml:"firmware_image"`
	FirmwareHash      string `yaml:"firmware_hash"`
	ChipIDSource      string `yaml:"chip_id_source"`
	FingerprintSource string `yaml:"fingerprint_source"`
}

type CounterConfig struct {
	Backend   string `yaml:"backend"`
	Namespace string `yaml:"namespace"`
	Dir       string `yaml:"dir"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type MetricsConfig struct {
	// Textfile is a node-exporter textfile collector path. Empty disables it.
	Textfile string `yaml:"textfile"`
}

// AnchorConfig captures everything needed to build an anchor and a verifier.
type AnchorConfig struct {
	Device   DeviceConfig   `yaml:"device"`
	Counter  CounterConfig  `yaml:"counter"`
	Database DatabaseConfig `yaml:"database"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	// DisableJournal skips recording issued receipts in the database.
	DisableJournal bool `yaml:"disable_journal"`

	Logger *log.Logger `yaml:"-"`
}

// Default returns a development configuration using the host provider.
func Default() AnchorConfig {
	return AnchorConfig{
		Device:   DeviceConfig{Provider: ProviderHost},
		Counter:  CounterConfig{Backend: BackendSQLite, Namespace: DefaultNamespace, Dir: DefaultCounterDir},
		Database: DatabaseConfig{Path: DefaultDatabasePath},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (AnchorConfig, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return AnchorConfig{}, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return AnchorConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return AnchorConfig{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is coherent.
func (c AnchorConfig) Validate() error {
	switch c.Device.Provider {
	case ProviderHost:
	case ProviderStatic:
		if _, err := DecodeHex(c.Device.ChipID, 16); err != nil {
			return fmt.Errorf("invalid device.chip_id: %w", err)
		}
		if _, err := DecodeHex(c.Device.Fingerprint, 32); err != nil {
			return fmt.Errorf("invalid device.fingerprint: %w", err)
		}
		if c.Device.FirmwareImage == "" && c.Device.FirmwareHash == "" {
			return fmt.Errorf("invalid device: firmware_image or firmware_hash is required")
		}
		if c.Device.FirmwareImage != "" && c.Device.FirmwareHash != "" {
			return fmt.Errorf("invalid device: firmware_image and firmware_hash are mutually exclusive")
		}
		if c.Device.FirmwareHash != "" {
			if _, err := DecodeHex(c.Device.FirmwareHash, 32); err != nil {
				return fmt.Errorf("invalid device.firmware_hash: %w", err)
			}
		}
	default:
		return fmt.Errorf("invalid device.provider: must be %q or %q", ProviderStatic, ProviderHost)
	}

	if c.Counter.Namespace == "" {
		return fmt.Errorf("invalid counter.namespace: must not be empty")
	}
	switch c.Counter.Backend {
	case BackendSQLite:
	case BackendFile:
		if c.Counter.Dir == "" {
			return fmt.Errorf("invalid counter.dir: required for the %q backend", BackendFile)
		}
	default:
		return fmt.Errorf("invalid counter.backend: must be %q or %q", BackendSQLite, BackendFile)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("invalid database.path: must not be empty")
	}
	return nil
}

// DecodeHex decodes s into exactly n bytes.
func DecodeHex(s string, n int) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) != n {
		return nil, fmt.Errorf("want %d bytes, got %d", n, len(b))
	}
	return b, nil
}
