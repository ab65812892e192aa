/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package model

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// DigestSize is the length of every protocol digest.
const DigestSize = 32

// Digest is a 32-byte Keccak-256 value. It renders as "0x" followed by
// lowercase hex, which is the form downstream verifiers expect.
type Digest [DigestSize]byte

// ParseDigest accepts 64 hex characters with or without a "0x" prefix.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 2*DigestSize {
		return d, fmt.Errorf("digest must be %d hex characters, got %d", 2*DigestSize, len(s))
	}
	if _, err := hex.Decode(d[:], []byte(s)); err != nil {
		return d, fmt.Errorf("decode digest: %w", err)
	}
	return d, nil
}

func (d Digest) String() string {
	return "0x" + hex.EncodeToString(d[:])
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}

func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
