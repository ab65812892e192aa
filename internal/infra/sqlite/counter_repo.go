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
	"math"

	"github.com/kentakayama/ohr-anchor/internal/domain"
)

// CounterRepository is a persistent monotonic counter store backed by the
// counters table.
type CounterRepository struct {
	db *sql.DB
}

func NewCounterRepository(db *sql.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

// IncrementAndGet advances the namespace counter by one inside a transaction
// and returns the new value once the transaction has committed. A namespace
// seen for the first time starts at 1.
func (r *CounterRepository) IncrementAndGet(ctx context.Context, namespace string) (uint64, error) {
	if namespace == "" {
		return 0, fmt.Errorf("%w: empty namespace", domain.ErrCounterStoreFailure)
	}

	// the update is the first statement so the write lock is taken up front
	const q = `
		INSERT INTO counters (namespace, value)
		VALUES (?, 1)
		ON CONFLICT (namespace) DO UPDATE
		SET value = counters.value + 1, updated_at = CURRENT_TIMESTAMP
		WHERE counters.value < ?
		RETURNING value
	`
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin transaction: %w", domain.ErrCounterStoreFailure, err)
	}
	defer tx.Rollback()

	var value int64
	if err := tx.QueryRowContext(ctx, q, namespace, int64(math.MaxInt64)).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: counter %q exhausted", domain.ErrCounterStoreFailure, namespace)
		}
		return 0, fmt.Errorf("%w: increment counter: %w", domain.ErrCounterStoreFailure, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit counter: %w", domain.ErrCounterStoreFailure, err)
	}
	return uint64(value), nil
}

// Get returns the last committed value of a namespace, 0 if it was never
// incremented.
func (r *CounterRepository) Get(ctx context.Context, namespace string) (uint64, error) {
	const q = `
		SELECT value
		FROM counters
		WHERE namespace = ?
		LIMIT 1
	`
	var value int64
	if err := r.db.QueryRowContext(ctx, q, namespace).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: read counter: %w", domain.ErrCounterStoreFailure, err)
	}
	return uint64(value), nil
}
