/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package verifier

import "errors"

var (
	ErrInvalidReceipt         = errors.New("invalid receipt")
	ErrUnauthorizedHardware   = errors.New("hardware identity not authorized")
	ErrFirmwareNotApproved    = errors.New("firmware hash not approved")
	ErrReplayDetected         = errors.New("replay detected: counter not above last observed value")
	ErrDigestMismatch         = errors.New("receipt digest mismatch")
	ErrInvalidFirmwareVersion = errors.New("invalid firmware version")
)
