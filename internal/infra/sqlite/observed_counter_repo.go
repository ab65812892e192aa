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

// ObservedCounterRepository tracks the highest counter accepted per identity.
type ObservedCounterRepository struct {
	db *sql.DB
}

func NewObservedCounterRepository(db *sql.DB) *ObservedCounterRepository {
	return &ObservedCounterRepository{db: db}
}

// Find returns the observed counter of hw, or nil if none was accepted yet.
func (r *ObservedCounterRepository) Find(ctx context.Context, hw model.Digest) (*model.ObservedCounter, error) {
	const q = `
		SELECT hardware_identity, last_counter, updated_at
		FROM observed_counters
		WHERE hardware_identity = ?
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, q, hw[:])
	var (
		oc      model.ObservedCounter
		hwBytes []byte
		last    int64
	)
	if err := row.Scan(&hwBytes, &last, &oc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan observed counter: %w", err)
	}
	var err error
	if oc.HardwareIdentity, err = toDigest(hwBytes); err != nil {
		return nil, err
	}
	oc.LastCounter = uint64(last)
	return &oc, nil
}

// Advance stores counter for hw if it is strictly above the stored value.
// The comparison and the write are one statement, so of two concurrent calls
// with the same counter at most one reports true.
func (r *ObservedCounterRepository) Advance(ctx context.Context, hw model.Digest, counter uint64) (bool, error) {
	c, err := toInt64(counter)
	if err != nil {
		return false, err
	}
	const q = `
		INSERT INTO observed_counters (hardware_identity, last_counter, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (hardware_identity) DO UPDATE
		SET last_counter = excluded.last_counter, updated_at = excluded.updated_at
		WHERE observed_counters.last_counter < excluded.last_counter
	`
	res, err := r.db.ExecContext(ctx, q, hw[:], c)
	if err != nil {
		return false, fmt.Errorf("advance observed counter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
