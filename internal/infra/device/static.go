/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package device provides the device state sources an anchor reads its
// identity inputs from.
package device

import (
	"context"
	"errors"

	"github.com/kentakayama/ohr-anchor/internal/domain/model"
)

// StaticValues are identity inputs provisioned out of band, for example read
// from eFuses at manufacturing time and written to configuration.
type StaticValues struct {
	ChipID          [16]byte
	SecureBoot      bool
	FlashEncryption bool
	Fingerprint     [32]byte
	// FirmwareImage, when set, is hashed on every read and takes precedence
	// over FirmwareHash.
	FirmwareImage string
	FirmwareHash  model.Digest
	Provenance    model.Provenance
}

// Static serves fixed values.
type Static struct {
	v StaticValues
}

func NewStatic(v StaticValues) (*Static, error) {
	if v.ChipID == ([16]byte{}) {
		return nil, errors.New("chip id is all zero")
	}
	if v.FirmwareImage == "" && v.FirmwareHash.IsZero() {
		return nil, errors.New("either a firmware image or a firmware hash is required")
	}
	if v.Provenance.ChipIDSource == "" {
		v.Provenance.ChipIDSource = model.ChipIDSourceConfigured
	}
	if v.Provenance.FingerprintSource == "" {
		v.Provenance.FingerprintSource = model.FingerprintSourceConfigured
	}
	v.Provenance.FingerprintDeviceUnique = model.FingerprintIsDeviceUnique(v.Provenance.FingerprintSource)
	return &Static{v: v}, nil
}

func (s *Static) ReadChipUniqueID(ctx context.Context, dst *[16]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	*dst = s.v.ChipID
	return nil
}

func (s *Static) SecureBootEnabled(context.Context) (bool, error) {
	return s.v.SecureBoot, nil
}

func (s *Static) FlashEncryptionEnabled(context.Context) (bool, error) {
	return s.v.FlashEncryption, nil
}

func (s *Static) ReadSecurityFingerprint(ctx context.Context, dst *[32]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	*dst = s.v.Fingerprint
	return nil
}

func (s *Static) ReadFirmwareHash(ctx context.Context, dst *model.Digest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.v.FirmwareImage == "" {
		*dst = s.v.FirmwareHash
		return nil
	}
	d, err := HashFile(s.v.FirmwareImage)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func (s *Static) Provenance() model.Provenance {
	p := s.v.Provenance
	p.Warnings = append([]string(nil), p.Warnings...)
	return p
}
