/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

// Sources of the chip-unique bytes.
const (
	ChipIDSourceEFuse      = "efuse"
	ChipIDSourceMAC        = "mac-derived"
	ChipIDSourceConfigured = "configured"
)

// Sources of the security fingerprint.
const (
	FingerprintSourceKeyDigest   = "secure-boot-key-digest"
	FingerprintSourceModel       = "model-revision"
	FingerprintSourcePlaceholder = "development-placeholder"
	FingerprintSourceConfigured  = "configured"
)

// Provenance describes where the identity inputs came from, so a verifier can
// tell production material from development stand-ins.
type Provenance struct {
	ChipIDSource      string `json:"chip_id_source" yaml:"chip_id_source"`
	FingerprintSource string `json:"fingerprint_source" yaml:"fingerprint_source"`
	// FingerprintDeviceUnique is false when the fingerprint is shared by every
	// device of the same model, leaving the chip id as the only unique input.
	FingerprintDeviceUnique bool     `json:"fingerprint_device_unique" yaml:"fingerprint_device_unique"`
	Development             bool     `json:"development" yaml:"development"`
	Warnings                []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// FingerprintIsDeviceUnique reports whether a fingerprint source can be
// expected to differ between devices of one model.
func FingerprintIsDeviceUnique(source string) bool {
	switch source {
	case FingerprintSourceKeyDigest:
		return true
	default:
		return false
	}
}

// HardwareIdentity is the derived device identity with the provenance of its
// inputs.
type HardwareIdentity struct {
	Digest          Digest     `json:"hardware_identity"`
	SecureBoot      bool       `json:"secure_boot"`
	FlashEncryption bool       `json:"flash_encryption"`
	Provenance      Provenance `json:"provenance"`
}
