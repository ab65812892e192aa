/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package domain

import "errors"

var (
	ErrNotFound = errors.New("item not found")

	// ErrDeviceStateUnavailable means the device could not supply its chip id,
	// security flags, fingerprint or firmware hash.
	ErrDeviceStateUnavailable = errors.New("device state unavailable")
	// ErrCounterStoreFailure covers open, read, write and commit failures of
	// the persistent counter.
	ErrCounterStoreFailure = errors.New("counter store failure")
	// ErrCounterRegression means the store returned a counter not above one
	// this process already issued. It is an integrity violation.
	ErrCounterRegression = errors.New("counter regression detected")
	// ErrCounterBurned means a counter value was committed but no receipt was
	// produced for it. The value is never reused.
	ErrCounterBurned = errors.New("counter value burned without receipt")
)
