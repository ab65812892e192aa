/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func digestOf(b byte) Digest {
	var d Digest
	for i := range d {
		d[i] = b
	}
	return d
}

func TestDigest_String(t *testing.T) {
	d := Digest{0xAB, 0xCD}
	s := d.String()
	assert.True(t, strings.HasPrefix(s, "0xabcd"))
	assert.Len(t, s, 2+64)
	assert.Equal(t, strings.ToLower(s), s)
}

func TestParseDigest(t *testing.T) {
	want := digestOf(0x5a)
	hexed := strings.Repeat("5a", 32)

	for _, in := range []string{hexed, "0x" + hexed, "0X" + strings.ToUpper(hexed), " 0x" + hexed + "\n"} {
		got, err := ParseDigest(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, in := range []string{"", "0x", "0x1234", "0x" + strings.Repeat("zz", 32), hexed + "00"} {
		_, err := ParseDigest(in)
		assert.Error(t, err, in)
	}
}

func TestReceiptReport_JSON(t *testing.T) {
	r := Receipt{
		Digest:           digestOf(0x01),
		HardwareIdentity: digestOf(0x02),
		Counter:          18446744073709551615,
		FirmwareHash:     digestOf(0x03),
		ExecutionHash:    digestOf(0x04),
		Provenance: Provenance{
			Warnings: []string{"Secure Boot disabled - development mode"},
		},
	}

	encoded, err := json.Marshal(r.Report())
	require.NoError(t, err)
	s := string(encoded)

	assert.Contains(t, s, `"receipt_digest":"0x`+strings.Repeat("01", 32)+`"`)
	assert.Contains(t, s, `"hardware_identity":"0x`+strings.Repeat("02", 32)+`"`)
	assert.Contains(t, s, `"counter":18446744073709551615`)
	assert.Contains(t, s, `"security_warnings":["Secure Boot disabled - development mode"]`)

	var back ReceiptReport
	require.NoError(t, json.Unmarshal(encoded, &back))
	assert.Equal(t, r.Report(), back)
}

func TestReceipt_CBORKeys(t *testing.T) {
	r := Receipt{
		Digest:           digestOf(0x11),
		HardwareIdentity: digestOf(0x22),
		Counter:          7,
	}
	encoded, err := cbor.Marshal(r)
	require.NoError(t, err)

	var m map[uint64]any
	require.NoError(t, cbor.Unmarshal(encoded, &m))
	assert.Equal(t, r.Digest[:], m[1])
	assert.Equal(t, r.HardwareIdentity[:], m[2])
	assert.Equal(t, uint64(7), m[3])
}
