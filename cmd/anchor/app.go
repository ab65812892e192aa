/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kentakayama/ohr-anchor/internal/anchor"
	"github.com/kentakayama/ohr-anchor/internal/config"
	"github.com/kentakayama/ohr-anchor/internal/domain/model"
	"github.com/kentakayama/ohr-anchor/internal/domain/service"
	"github.com/kentakayama/ohr-anchor/internal/infra/device"
	"github.com/kentakayama/ohr-anchor/internal/infra/filestore"
	"github.com/kentakayama/ohr-anchor/internal/infra/sqlite"
	"github.com/kentakayama/ohr-anchor/internal/verifier"
	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/klog/v2"
)

// app holds the collaborators built from configuration for one invocation.
type app struct {
	cfg      config.AnchorConfig
	db       *sql.DB
	files    *filestore.CounterStore
	registry *prometheus.Registry

	anchor   *anchor.Anchor
	verifier *verifier.Verifier
}

func loadConfig(path string) (config.AnchorConfig, error) {
	var (
		cfg config.AnchorConfig
		err error
	)
	if path == "" {
		cfg = config.Default()
		klog.Warning("no -config given, using the development host provider")
	} else if cfg, err = config.Load(path); err != nil {
		return cfg, err
	}
	cfg.Logger = klog.NewStandardLogger("INFO")
	return cfg, nil
}

func newApp(ctx context.Context, cfg config.AnchorConfig) (*app, error) {
	a := &app{cfg: cfg, registry: prometheus.NewRegistry()}

	db, err := sqlite.InitDB(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	a.db = db

	provider, err := newProvider(cfg.Device)
	if err != nil {
		a.Close()
		return nil, err
	}

	var counters service.CounterStore
	switch cfg.Counter.Backend {
	case config.BackendFile:
		if a.files, err = filestore.Open(cfg.Counter.Dir); err != nil {
			a.Close()
			return nil, err
		}
		counters = a.files
	default:
		counters = sqlite.NewCounterRepository(db)
	}

	opts := anchor.Options{
		Namespace: cfg.Counter.Namespace,
		Logger:    cfg.Logger,
		Metrics:   anchor.NewMetrics(a.registry),
	}
	if !cfg.DisableJournal {
		opts.Journal = sqlite.NewIssuedReceiptRepository(db)
	}
	if a.anchor, err = anchor.NewAnchor(provider, counters, opts); err != nil {
		a.Close()
		return nil, err
	}

	a.verifier = verifier.NewVerifier(
		sqlite.NewAuthorizedNodeRepository(db),
		sqlite.NewApprovedFirmwareRepository(db),
		sqlite.NewObservedCounterRepository(db),
		verifier.Options{Logger: cfg.Logger, Registry: a.registry},
	)
	return a, nil
}

func newProvider(dc config.DeviceConfig) (service.DeviceStateProvider, error) {
	if dc.Provider == config.ProviderHost {
		return device.NewHost(), nil
	}

	v := device.StaticValues{
		SecureBoot:      dc.SecureBoot,
		FlashEncryption: dc.FlashEncryption,
		FirmwareImage:   dc.FirmwareImage,
		Provenance: model.Provenance{
			ChipIDSource:      dc.ChipIDSource,
			FingerprintSource: dc.FingerprintSource,
		},
	}
	chip, err := config.DecodeHex(dc.ChipID, len(v.ChipID))
	if err != nil {
		return nil, fmt.Errorf("device.chip_id: %w", err)
	}
	copy(v.ChipID[:], chip)
	clear(chip)

	fp, err := config.DecodeHex(dc.Fingerprint, len(v.Fingerprint))
	if err != nil {
		return nil, fmt.Errorf("device.fingerprint: %w", err)
	}
	copy(v.Fingerprint[:], fp)
	clear(fp)

	if dc.FirmwareHash != "" {
		if v.FirmwareHash, err = model.ParseDigest(dc.FirmwareHash); err != nil {
			return nil, fmt.Errorf("device.firmware_hash: %w", err)
		}
	}
	static, err := device.NewStatic(v)
	if err != nil {
		return nil, err
	}
	return static, nil
}

func (a *app) writeMetrics() error {
	if a.cfg.Metrics.Textfile == "" {
		return nil
	}
	return prometheus.WriteToTextfile(a.cfg.Metrics.Textfile, a.registry)
}

func (a *app) Close() error {
	var errs []error
	if a.files != nil {
		errs = append(errs, a.files.Close())
	}
	errs = append(errs, sqlite.CloseDB(a.db))
	return errors.Join(errs...)
}
