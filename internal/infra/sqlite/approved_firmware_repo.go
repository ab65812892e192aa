/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kentakayama/ohr-anchor/internal/domain/model"
)

// ApprovedFirmwareRepository handles approved firmware persistence.
type ApprovedFirmwareRepository struct {
	db *sql.DB
}

func NewApprovedFirmwareRepository(db *sql.DB) *ApprovedFirmwareRepository {
	return &ApprovedFirmwareRepository{db: db}
}

// Create inserts a firmware hash and returns the inserted id. Approving a
// known hash again updates its version label.
func (r *ApprovedFirmwareRepository) Create(ctx context.Context, f *model.ApprovedFirmware) (int64, error) {
	const q = `
		INSERT INTO approved_firmware (firmware_hash, version, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (firmware_hash) DO UPDATE
		SET version = excluded.version
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, q, f.FirmwareHash[:], f.Version, f.CreatedAt).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert approved firmware: %w", err)
	}
	return id, nil
}

// FindByHash returns approved firmware by hash, or nil.
func (r *ApprovedFirmwareRepository) FindByHash(ctx context.Context, hash model.Digest) (*model.ApprovedFirmware, error) {
	const q = `
		SELECT id, firmware_hash, version, created_at
		FROM approved_firmware
		WHERE firmware_hash = ?
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, q, hash[:])
	var (
		f         model.ApprovedFirmware
		hashBytes []byte
	)
	if err := row.Scan(&f.ID, &hashBytes, &f.Version, &f.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan approved firmware: %w", err)
	}
	var err error
	if f.FirmwareHash, err = toDigest(hashBytes); err != nil {
		return nil, err
	}
	return &f, nil
}
