/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package keccak

import "errors"

var (
	ErrInvalidState     = errors.New("sponge already finalized")
	ErrInvalidParameter = errors.New("invalid sponge parameter")
)
