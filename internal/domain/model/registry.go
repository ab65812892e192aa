/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import "time"

// AuthorizedNode is a hardware identity the verifier accepts receipts from.
type AuthorizedNode struct {
	ID               int64
	HardwareIdentity Digest
	Name             string
	CreatedAt        time.Time
	RevokedAt        *time.Time
}

// ApprovedFirmware is a firmware hash released for use.
type ApprovedFirmware struct {
	ID           int64
	FirmwareHash Digest
	Version      string
	CreatedAt    time.Time
}

// ObservedCounter is the highest counter accepted for a hardware identity.
type ObservedCounter struct {
	HardwareIdentity Digest
	LastCounter      uint64
	UpdatedAt        time.Time
}

// NodeStatus summarises what the verifier knows about one identity.
type NodeStatus struct {
	HardwareIdentity Digest `json:"hardware_identity"`
	Authorized       bool   `json:"authorized"`
	Name             string `json:"node_name,omitempty"`
	LastCounter      uint64 `json:"last_counter"`
}

// Verdict is the outcome of a successful verification.
type Verdict struct {
	HardwareIdentity Digest `json:"hardware_identity"`
	NodeName         string `json:"node_name"`
	FirmwareVersion  string `json:"firmware_version"`
	Counter          uint64 `json:"counter"`
	PreviousCounter  uint64 `json:"previous_counter"`
}
