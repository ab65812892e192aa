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

// IssuedReceiptRepository journals receipts handed out by the device.
type IssuedReceiptRepository struct {
	db *sql.DB
}

func NewIssuedReceiptRepository(db *sql.DB) *IssuedReceiptRepository {
	return &IssuedReceiptRepository{db: db}
}

// Record inserts a receipt and returns the inserted id.
func (r *IssuedReceiptRepository) Record(ctx context.Context, rc *model.IssuedReceipt) (int64, error) {
	counter, err := toInt64(rc.Counter)
	if err != nil {
		return 0, err
	}
	const q = `
		INSERT INTO issued_receipts (namespace, counter, receipt_digest, hardware_identity, envelope, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, q, rc.Namespace, counter, rc.ReceiptDigest[:], rc.HardwareIdentity[:], rc.Envelope, rc.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("insert issued receipt: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, nil
}

// FindByCounter returns the receipt issued for counter in namespace, or nil.
func (r *IssuedReceiptRepository) FindByCounter(ctx context.Context, namespace string, counter uint64) (*model.IssuedReceipt, error) {
	c, err := toInt64(counter)
	if err != nil {
		return nil, err
	}
	const q = `
		SELECT id, namespace, counter, receipt_digest, hardware_identity, envelope, created_at
		FROM issued_receipts
		WHERE namespace = ? AND counter = ?
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, q, namespace, c))
}

// FindLatest returns the receipt with the highest counter in namespace, or nil.
func (r *IssuedReceiptRepository) FindLatest(ctx context.Context, namespace string) (*model.IssuedReceipt, error) {
	const q = `
		SELECT id, namespace, counter, receipt_digest, hardware_identity, envelope, created_at
		FROM issued_receipts
		WHERE namespace = ?
		ORDER BY counter DESC
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, q, namespace))
}

func (r *IssuedReceiptRepository) scanOne(row *sql.Row) (*model.IssuedReceipt, error) {
	var (
		rc              model.IssuedReceipt
		counter         int64
		digest, hwBytes []byte
		err             error
	)
	if err := row.Scan(&rc.ID, &rc.Namespace, &counter, &digest, &hwBytes, &rc.Envelope, &rc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan issued receipt: %w", err)
	}
	rc.Counter = uint64(counter)
	if rc.ReceiptDigest, err = toDigest(digest); err != nil {
		return nil, err
	}
	if rc.HardwareIdentity, err = toDigest(hwBytes); err != nil {
		return nil, err
	}
	return &rc, nil
}
