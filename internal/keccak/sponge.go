/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package keccak implements the Keccak-f[1600] permutation and the sponge
// construction used for every protocol digest.
//
// Protocol digests use the original Keccak padding (domain byte 0x01), which
// is what Ethereum calls keccak256. The NIST SHA3 padding (0x06) is provided
// only so callers can demonstrate that the two disagree; it must never be used
// for identities or receipts.
package keccak

import (
	"encoding/binary"
	"fmt"
)

const (
	// DomainKeccak is the pre-NIST Keccak padding byte (Ethereum keccak256).
	DomainKeccak byte = 0x01
	// DomainSHA3 is the FIPS 202 SHA3 padding byte. Incompatible with DomainKeccak.
	DomainSHA3 byte = 0x06

	// Size is the protocol digest length in bytes.
	Size = 32
)

// Sponge absorbs an arbitrary number of bytes and squeezes a fixed-length
// digest. A Sponge is single use: once Finalize has been called it only
// returns ErrInvalidState.
type Sponge struct {
	state     [lanes]uint64
	buf       [stateSize]byte
	pending   int
	rate      int
	outputLen int
	domain    byte
	finalized bool
}

// NewSponge returns a sponge producing outputLen bytes with the given padding
// domain byte. The rate is 200 - 2*outputLen and must be a positive multiple
// of the lane size.
func NewSponge(outputLen int, domain byte) (*Sponge, error) {
	if outputLen <= 0 {
		return nil, fmt.Errorf("%w: output length %d", ErrInvalidParameter, outputLen)
	}
	rate := stateSize - 2*outputLen
	if rate <= 0 || rate%8 != 0 || outputLen > rate {
		return nil, fmt.Errorf("%w: output length %d gives rate %d", ErrInvalidParameter, outputLen, rate)
	}
	if domain == 0 || domain&0x80 != 0 {
		return nil, fmt.Errorf("%w: domain byte 0x%02x", ErrInvalidParameter, domain)
	}
	return &Sponge{rate: rate, outputLen: outputLen, domain: domain}, nil
}

// NewLegacyKeccak256 returns the 32-byte Keccak sponge used by the protocol.
func NewLegacyKeccak256() *Sponge {
	return &Sponge{rate: stateSize - 2*Size, outputLen: Size, domain: DomainKeccak}
}

// NewSHA3_256 returns a FIPS 202 SHA3-256 sponge. It exists to be compared
// against, not to produce protocol digests.
func NewSHA3_256() *Sponge {
	return &Sponge{rate: stateSize - 2*Size, outputLen: Size, domain: DomainSHA3}
}

// Sum256 returns the Keccak-256 digest of data.
func Sum256(data []byte) [Size]byte {
	s := NewLegacyKeccak256()
	// a fresh sponge cannot fail
	_ = s.Absorb(data)
	out, _ := s.Finalize()
	return [Size]byte(out)
}

// Rate returns the number of bytes absorbed per permutation.
func (s *Sponge) Rate() int { return s.rate }

// Size returns the digest length in bytes.
func (s *Sponge) Size() int { return s.outputLen }

// Absorb feeds p into the sponge. It may be called any number of times before
// Finalize.
func (s *Sponge) Absorb(p []byte) error {
	if s.finalized {
		return ErrInvalidState
	}

	if s.pending > 0 {
		n := copy(s.buf[s.pending:s.rate], p)
		s.pending += n
		p = p[n:]
		if s.pending < s.rate {
			return nil
		}
		s.xorBlock(s.buf[:s.rate])
		permute(&s.state)
		s.pending = 0
	}

	for len(p) >= s.rate {
		s.xorBlock(p[:s.rate])
		permute(&s.state)
		p = p[s.rate:]
	}

	s.pending = copy(s.buf[:], p)
	return nil
}

// Write implements io.Writer on top of Absorb.
func (s *Sponge) Write(p []byte) (int, error) {
	if err := s.Absorb(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Finalize pads the pending bytes, runs the last permutation and returns the
// digest. The internal state is wiped afterwards.
func (s *Sponge) Finalize() ([]byte, error) {
	if s.finalized {
		return nil, ErrInvalidState
	}
	s.finalized = true

	block := s.buf[:s.rate]
	clear(block[s.pending:])
	// With pending == rate-1 both bits land in the same byte.
	block[s.pending] |= s.domain
	block[s.rate-1] |= 0x80
	s.xorBlock(block)
	permute(&s.state)

	out := make([]byte, s.outputLen)
	var lane [8]byte
	for i := 0; i < s.outputLen; i += 8 {
		binary.LittleEndian.PutUint64(lane[:], s.state[i/8])
		copy(out[i:], lane[:])
	}

	clear(s.state[:])
	clear(s.buf[:])
	clear(lane[:])
	s.pending = 0
	return out, nil
}

// xorBlock XORs one rate-sized block into the low bytes of the state.
func (s *Sponge) xorBlock(block []byte) {
	for i := 0; i < len(block)/8; i++ {
		s.state[i] ^= binary.LittleEndian.Uint64(block[8*i:])
	}
}
