/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import "time"

// Receipt binds a hardware identity, a firmware hash and an execution result
// to one counter value.
type Receipt struct {
	Digest           Digest     `cbor:"1,keyasint"`
	HardwareIdentity Digest     `cbor:"2,keyasint"`
	Counter          uint64     `cbor:"3,keyasint"`
	FirmwareHash     Digest     `cbor:"4,keyasint"`
	ExecutionHash    Digest     `cbor:"5,keyasint"`
	Provenance       Provenance `cbor:"6,keyasint"`
}

// ReceiptReport is the JSON form handed to off-chain verifiers. Digests render
// as 0x-prefixed lowercase hex and the counter as a decimal integer.
type ReceiptReport struct {
	ReceiptDigest    Digest   `json:"receipt_digest"`
	HardwareIdentity Digest   `json:"hardware_identity"`
	FirmwareHash     Digest   `json:"firmware_hash"`
	ExecutionHash    Digest   `json:"execution_hash"`
	Counter          uint64   `json:"counter"`
	SecurityWarnings []string `json:"security_warnings,omitempty"`
}

func (r *Receipt) Report() ReceiptReport {
	return ReceiptReport{
		ReceiptDigest:    r.Digest,
		HardwareIdentity: r.HardwareIdentity,
		FirmwareHash:     r.FirmwareHash,
		ExecutionHash:    r.ExecutionHash,
		Counter:          r.Counter,
		SecurityWarnings: r.Provenance.Warnings,
	}
}

// IssuedReceipt is a journal row for a receipt the device handed out.
type IssuedReceipt struct {
	ID               int64
	Namespace        string
	Counter          uint64
	ReceiptDigest    Digest
	HardwareIdentity Digest
	Envelope         []byte // CBOR encoded Receipt
	CreatedAt        time.Time
}
