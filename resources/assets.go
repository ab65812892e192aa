/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package resources

import (
	_ "embed"
)

var (
	// ConformanceVectors holds the published Keccak-f[1600], Keccak-256 and
	// SHA3-256 vectors the hashing engine is checked against.
	//go:embed conformance.json
	ConformanceVectors []byte
)
