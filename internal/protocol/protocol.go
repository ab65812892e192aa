/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package protocol defines the frozen byte layouts of hardware identities and
// receipt digests.
//
//	hardware_identity = keccak256(
//	    "NEXUS_OHR_V1"        // 12 bytes
//	    chip_unique_id        // 16 bytes
//	    secure_boot_enabled   //  1 byte
//	    flash_encrypt_enabled //  1 byte
//	    security_fingerprint  // 32 bytes
//	)
//
//	receipt_digest = keccak256(
//	    "NEXUS_RCT_V1"        // 12 bytes
//	    hardware_identity     // 32 bytes
//	    firmware_hash         // 32 bytes
//	    execution_hash        // 32 bytes
//	    counter               //  8 bytes, big endian
//	)
//
// Changing any tag or layout is a protocol break.
package protocol

import (
	"encoding/binary"

	"github.com/kentakayama/ohr-anchor/internal/domain/model"
	"github.com/kentakayama/ohr-anchor/internal/keccak"
)

const (
	TagSize         = 12
	ChipIDSize      = 16
	FingerprintSize = 32

	IdentityDomain = "NEXUS_OHR_V1"
	ReceiptDomain  = "NEXUS_RCT_V1"

	IdentityMaterialSize = TagSize + ChipIDSize + 2 + FingerprintSize
	ReceiptMaterialSize  = TagSize + 3*model.DigestSize + 8
)

// compile-time length checks
var (
	_ [TagSize]byte = [len(IdentityDomain)]byte{}
	_ [TagSize]byte = [len(ReceiptDomain)]byte{}
	_ [62]byte      = [IdentityMaterialSize]byte{}
	_ [116]byte     = [ReceiptMaterialSize]byte{}
)

// IdentityInputs holds the device-unique material. Callers must Wipe it once
// the identity has been derived.
type IdentityInputs struct {
	ChipID          [ChipIDSize]byte
	SecureBoot      bool
	FlashEncryption bool
	Fingerprint     [FingerprintSize]byte
}

func (in *IdentityInputs) Wipe() {
	clear(in.ChipID[:])
	clear(in.Fingerprint[:])
	in.SecureBoot = false
	in.FlashEncryption = false
}

// HardwareIdentity derives the identity digest. The firmware hash is not an
// input; firmware is bound at receipt time.
func HardwareIdentity(in *IdentityInputs) model.Digest {
	var material [IdentityMaterialSize]byte
	defer clear(material[:])

	off := copy(material[:], IdentityDomain)
	off += copy(material[off:], in.ChipID[:])
	material[off] = flagByte(in.SecureBoot)
	material[off+1] = flagByte(in.FlashEncryption)
	off += 2
	copy(material[off:], in.Fingerprint[:])

	return model.Digest(keccak.Sum256(material[:]))
}

// ReceiptDigest is a pure function of its inputs and the receipt domain tag.
func ReceiptDigest(hw, firmware, execution model.Digest, counter uint64) model.Digest {
	var material [ReceiptMaterialSize]byte
	defer clear(material[:])

	off := copy(material[:], ReceiptDomain)
	off += copy(material[off:], hw[:])
	off += copy(material[off:], firmware[:])
	off += copy(material[off:], execution[:])
	binary.BigEndian.PutUint64(material[off:], counter)

	return model.Digest(keccak.Sum256(material[:]))
}

func flagByte(b bool) byte {
	if b {
		return 0x01
	}
	return 0x00
}
