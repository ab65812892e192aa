/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package sqlite

import (
	"fmt"

	"github.com/kentakayama/ohr-anchor/internal/domain/model"
)

func toDigest(b []byte) (model.Digest, error) {
	var d model.Digest
	if len(b) != model.DigestSize {
		return d, fmt.Errorf("stored digest has %d bytes", len(b))
	}
	copy(d[:], b)
	return d, nil
}

func toInt64(v uint64) (int64, error) {
	if v > 1<<63-1 {
		return 0, fmt.Errorf("counter %d exceeds storage range", v)
	}
	return int64(v), nil
}
