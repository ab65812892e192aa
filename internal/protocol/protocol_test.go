/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package protocol

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/kentakayama/ohr-anchor/internal/domain/model"
	"github.com/kentakayama/ohr-anchor/internal/keccak"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

func referenceKeccak(parts ...[]byte) model.Digest {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return model.Digest(h.Sum(nil))
}

func fixedInputs() IdentityInputs {
	in := IdentityInputs{SecureBoot: true, FlashEncryption: false}
	for i := range in.ChipID {
		in.ChipID[i] = byte(0x10 + i)
	}
	for i := range in.Fingerprint {
		in.Fingerprint[i] = byte(0xA0 ^ i)
	}
	return in
}

func TestDomainTags(t *testing.T) {
	assert.Len(t, IdentityDomain, TagSize)
	assert.Len(t, ReceiptDomain, TagSize)
	assert.NotEqual(t, IdentityDomain, ReceiptDomain)
}

func TestHardwareIdentity_MatchesLayout(t *testing.T) {
	in := fixedInputs()
	got := HardwareIdentity(&in)

	want := referenceKeccak(
		[]byte(IdentityDomain),
		in.ChipID[:],
		[]byte{0x01, 0x00},
		in.Fingerprint[:],
	)
	assert.Equal(t, want, got)
}

func TestHardwareIdentity_Deterministic(t *testing.T) {
	a := fixedInputs()
	b := fixedInputs()
	assert.Equal(t, HardwareIdentity(&a), HardwareIdentity(&b))
}

func TestHardwareIdentity_EveryBitMatters(t *testing.T) {
	base := fixedInputs()
	baseID := HardwareIdentity(&base)
	seen := map[model.Digest]struct{}{baseID: {}}

	for i := 0; i < ChipIDSize*8; i++ {
		in := fixedInputs()
		in.ChipID[i/8] ^= 1 << (i % 8)
		id := HardwareIdentity(&in)
		_, dup := seen[id]
		require.False(t, dup, "chip id bit %d", i)
		seen[id] = struct{}{}
	}
	for i := 0; i < FingerprintSize*8; i++ {
		in := fixedInputs()
		in.Fingerprint[i/8] ^= 1 << (i % 8)
		id := HardwareIdentity(&in)
		_, dup := seen[id]
		require.False(t, dup, "fingerprint bit %d", i)
		seen[id] = struct{}{}
	}

	sb := fixedInputs()
	sb.SecureBoot = !sb.SecureBoot
	assert.NotEqual(t, baseID, HardwareIdentity(&sb))

	fe := fixedInputs()
	fe.FlashEncryption = !fe.FlashEncryption
	assert.NotEqual(t, baseID, HardwareIdentity(&fe))
}

func TestIdentityInputs_Wipe(t *testing.T) {
	in := fixedInputs()
	in.Wipe()
	assert.Equal(t, IdentityInputs{}, in)
}

func TestReceiptDigest_MatchesLayout(t *testing.T) {
	hw := model.Digest{0x52, 0xfd, 0xfc, 0x07}
	fw := model.Digest{0x12, 0x34, 0x56, 0x78}
	exec := model.Digest{0xde, 0xad, 0xbe, 0xef, 0xca, 0xfe, 0xba, 0xbe}
	exec[31] = 0x01

	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], 6)
	want := referenceKeccak([]byte(ReceiptDomain), hw[:], fw[:], exec[:], counter[:])

	assert.Equal(t, want, ReceiptDigest(hw, fw, exec, 6))
}

func TestReceiptDigest_CounterBinding(t *testing.T) {
	var hw, fw, exec model.Digest
	seen := map[model.Digest]uint64{}
	for c := uint64(0); c < 256; c++ {
		d := ReceiptDigest(hw, fw, exec, c)
		prev, dup := seen[d]
		require.False(t, dup, "counter %d collides with %d", c, prev)
		seen[d] = c
	}
	assert.NotEqual(t, ReceiptDigest(hw, fw, exec, 1), ReceiptDigest(hw, fw, exec, 1<<56))
}

// The same raw payload hashed under the two tags must never agree.
func TestDomainSeparation(t *testing.T) {
	payloads := [][]byte{
		nil,
		bytes.Repeat([]byte{0x00}, IdentityMaterialSize-TagSize),
		bytes.Repeat([]byte{0xff}, ReceiptMaterialSize-TagSize),
		[]byte("NEXUS"),
	}
	for _, p := range payloads {
		idDigest := keccak.Sum256(append([]byte(IdentityDomain), p...))
		rctDigest := keccak.Sum256(append([]byte(ReceiptDomain), p...))
		assert.NotEqual(t, idDigest, rctDigest, "payload len=%d", len(p))
	}

	in := fixedInputs()
	id := HardwareIdentity(&in)
	var zero model.Digest
	assert.NotEqual(t, id, ReceiptDigest(zero, zero, zero, 0))
}
