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
	"time"

	"github.com/kentakayama/ohr-anchor/internal/domain"
	"github.com/kentakayama/ohr-anchor/internal/domain/model"
)

// AuthorizedNodeRepository handles the hardware identity allowlist.
type AuthorizedNodeRepository struct {
	db *sql.DB
}

func NewAuthorizedNodeRepository(db *sql.DB) *AuthorizedNodeRepository {
	return &AuthorizedNodeRepository{db: db}
}

// Create inserts a node and returns the inserted id. Authorizing a revoked
// identity again clears its revocation.
func (r *AuthorizedNodeRepository) Create(ctx context.Context, n *model.AuthorizedNode) (int64, error) {
	const q = `
		INSERT INTO authorized_nodes (hardware_identity, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (hardware_identity) DO UPDATE
		SET name = excluded.name, revoked_at = NULL
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, q, n.HardwareIdentity[:], n.Name, n.CreatedAt).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert authorized node: %w", err)
	}
	return id, nil
}

// FindByIdentity returns a node that is not revoked, or nil.
func (r *AuthorizedNodeRepository) FindByIdentity(ctx context.Context, hw model.Digest) (*model.AuthorizedNode, error) {
	const q = `
		SELECT id, hardware_identity, name, created_at, revoked_at
		FROM authorized_nodes
		WHERE hardware_identity = ? AND revoked_at IS NULL
		LIMIT 1
	`
	row := r.db.QueryRowContext(ctx, q, hw[:])
	var (
		n       model.AuthorizedNode
		hwBytes []byte
		revoked sql.NullTime
	)
	if err := row.Scan(&n.ID, &hwBytes, &n.Name, &n.CreatedAt, &revoked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan authorized node: %w", err)
	}
	var err error
	if n.HardwareIdentity, err = toDigest(hwBytes); err != nil {
		return nil, err
	}
	if revoked.Valid {
		n.RevokedAt = &revoked.Time
	}
	return &n, nil
}

// Revoke marks a node revoked. Its observed counter is kept.
func (r *AuthorizedNodeRepository) Revoke(ctx context.Context, hw model.Digest) error {
	const q = `
		UPDATE authorized_nodes
		SET revoked_at = ?
		WHERE hardware_identity = ? AND revoked_at IS NULL
	`
	res, err := r.db.ExecContext(ctx, q, time.Now().UTC(), hw[:])
	if err != nil {
		return fmt.Errorf("revoke authorized node: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
