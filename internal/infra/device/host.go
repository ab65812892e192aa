/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package device

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/kentakayama/ohr-anchor/internal/domain/model"
)

// PlaceholderFingerprintByte fills the fingerprint on hosts that have no
// secure boot key digest.
const PlaceholderFingerprintByte = 0xAA

const (
	WarnMACDerivedChipID       = "Chip id derived from a network MAC address - not a hardware-unique identifier"
	WarnPlaceholderFingerprint = "Security fingerprint is a development placeholder"
)

// Host derives development stand-ins from the machine it runs on. It must
// not be used for production receipts.
type Host struct {
	interfaces func() ([]net.Interface, error)
	executable func() (string, error)
}

func NewHost() *Host {
	return &Host{interfaces: net.Interfaces, executable: os.Executable}
}

// ReadChipUniqueID copies the first hardware address of a non-loopback
// interface, zero padded to 16 bytes.
func (h *Host) ReadChipUniqueID(ctx context.Context, dst *[16]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ifaces, err := h.interfaces()
	if err != nil {
		return fmt.Errorf("list network interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		clear(dst[:])
		copy(dst[:], iface.HardwareAddr)
		return nil
	}
	return errors.New("no network interface with a hardware address")
}

func (h *Host) SecureBootEnabled(context.Context) (bool, error) { return false, nil }

func (h *Host) FlashEncryptionEnabled(context.Context) (bool, error) { return false, nil }

func (h *Host) ReadSecurityFingerprint(ctx context.Context, dst *[32]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = PlaceholderFingerprintByte
	}
	return nil
}

// ReadFirmwareHash hashes the running executable.
func (h *Host) ReadFirmwareHash(ctx context.Context, dst *model.Digest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := h.executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	d, err := HashFile(path)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func (h *Host) Provenance() model.Provenance {
	return model.Provenance{
		ChipIDSource:            model.ChipIDSourceMAC,
		FingerprintSource:       model.FingerprintSourcePlaceholder,
		FingerprintDeviceUnique: false,
		Development:             true,
		Warnings:                []string{WarnMACDerivedChipID, WarnPlaceholderFingerprint},
	}
}
