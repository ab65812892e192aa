/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package service

import (
	"context"

	"github.com/kentakayama/ohr-anchor/internal/domain/model"
)

// CounterStore is the only access protocol code has to the persistent
// counter. The returned value is durable before the call returns and is never
// handed out again for the same namespace.
type CounterStore interface {
	IncrementAndGet(ctx context.Context, namespace string) (uint64, error)
}

// DeviceStateProvider supplies the device-unique and security-state inputs.
// Values are written into caller-owned arrays so the caller can wipe them.
type DeviceStateProvider interface {
	ReadChipUniqueID(ctx context.Context, dst *[16]byte) error
	SecureBootEnabled(ctx context.Context) (bool, error)
	FlashEncryptionEnabled(ctx context.Context) (bool, error)
	ReadSecurityFingerprint(ctx context.Context, dst *[32]byte) error
	ReadFirmwareHash(ctx context.Context, dst *model.Digest) error
	Provenance() model.Provenance
}

// ReceiptJournal records receipts the device handed out.
type ReceiptJournal interface {
	Record(ctx context.Context, r *model.IssuedReceipt) (int64, error)
}

// AuthorizedNodeRepository defines the interface for the hardware identity allowlist.
type AuthorizedNodeRepository interface {
	Create(ctx context.Context, n *model.AuthorizedNode) (int64, error)
	FindByIdentity(ctx context.Context, hw model.Digest) (*model.AuthorizedNode, error)
	Revoke(ctx context.Context, hw model.Digest) error
}

// ApprovedFirmwareRepository defines the interface for approved firmware persistence.
type ApprovedFirmwareRepository interface {
	Create(ctx context.Context, f *model.ApprovedFirmware) (int64, error)
	FindByHash(ctx context.Context, hash model.Digest) (*model.ApprovedFirmware, error)
}

// ObservedCounterRepository tracks the last accepted counter per identity.
type ObservedCounterRepository interface {
	Find(ctx context.Context, hw model.Digest) (*model.ObservedCounter, error)
	// Advance stores counter only if it is above the stored value and reports
	// whether it did.
	Advance(ctx context.Context, hw model.Digest, counter uint64) (bool, error)
}
