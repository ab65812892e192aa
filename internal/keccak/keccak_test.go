/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package keccak

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/kentakayama/ohr-anchor/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"
)

type conformance struct {
	Permutation []struct {
		Name   string   `json:"name"`
		Input  []string `json:"input"`
		Output []string `json:"output"`
	} `json:"permutation"`
	Digests []struct {
		Name    string `json:"name"`
		Domain  byte   `json:"domain"`
		Message string `json:"message"`
		Digest  string `json:"digest"`
	} `json:"digests"`
}

func loadConformance(t *testing.T) conformance {
	t.Helper()
	var c conformance
	require.NoError(t, json.Unmarshal(resources.ConformanceVectors, &c))
	require.NotEmpty(t, c.Permutation)
	require.NotEmpty(t, c.Digests)
	return c
}

func parseLanes(t *testing.T, in []string) [lanes]uint64 {
	t.Helper()
	require.Len(t, in, lanes)
	var a [lanes]uint64
	for i, s := range in {
		v, err := strconv.ParseUint(s, 16, 64)
		require.NoError(t, err)
		a[i] = v
	}
	return a
}

func TestPermute_Vectors(t *testing.T) {
	for _, v := range loadConformance(t).Permutation {
		t.Run(v.Name, func(t *testing.T) {
			state := parseLanes(t, v.Input)
			want := parseLanes(t, v.Output)
			permute(&state)
			assert.Equal(t, want, state)
		})
	}
}

func TestSponge_DigestVectors(t *testing.T) {
	for _, v := range loadConformance(t).Digests {
		t.Run(v.Name, func(t *testing.T) {
			msg, err := hex.DecodeString(v.Message)
			require.NoError(t, err)
			want, err := hex.DecodeString(v.Digest)
			require.NoError(t, err)

			s, err := NewSponge(Size, v.Domain)
			require.NoError(t, err)
			require.NoError(t, s.Absorb(msg))
			got, err := s.Finalize()
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestSum256Empty(t *testing.T) {
	got := Sum256(nil)
	want, _ := hex.DecodeString("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
	if !bytes.Equal(got[:], want) {
		t.Fatalf("Sum256(nil) = %x, want %x", got, want)
	}
}

func TestSum256ABC(t *testing.T) {
	got := Sum256([]byte("abc"))
	want, _ := hex.DecodeString("4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45")
	if !bytes.Equal(got[:], want) {
		t.Fatalf("Sum256(abc) = %x, want %x", got, want)
	}
}

func TestSponge_PaddingDomainsDiverge(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("abc"),
		bytes.Repeat([]byte{0x5a}, 135),
		bytes.Repeat([]byte{0x00}, 136),
		bytes.Repeat([]byte{0xff}, 1000),
	}
	for _, in := range inputs {
		k := NewLegacyKeccak256()
		require.NoError(t, k.Absorb(in))
		kd, err := k.Finalize()
		require.NoError(t, err)

		s := NewSHA3_256()
		require.NoError(t, s.Absorb(in))
		sd, err := s.Finalize()
		require.NoError(t, err)

		assert.NotEqual(t, kd, sd, "len=%d", len(in))
		assert.Equal(t, sha3.Sum256(in), [Size]byte(sd), "len=%d", len(in))
	}
}

// Lengths congruent to rate-1 put the domain byte and the 0x80 terminator
// into the same byte.
func TestSponge_RateMinusOneMerge(t *testing.T) {
	rate := NewLegacyKeccak256().Rate()
	require.Equal(t, 136, rate)

	for _, n := range []int{rate - 1, 2*rate - 1, 5*rate - 1} {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i*13 + 7)
		}

		ref := sha3.NewLegacyKeccak256()
		ref.Write(data)
		want := ref.Sum(nil)

		got := Sum256(data)
		assert.Equal(t, want, got[:], "len=%d", n)

		s := NewSHA3_256()
		require.NoError(t, s.Absorb(data))
		sd, err := s.Finalize()
		require.NoError(t, err)
		assert.Equal(t, sha3.Sum256(data), [Size]byte(sd), "sha3 len=%d", n)
	}
}

func TestSponge_StreamingMatchesOneShot(t *testing.T) {
	data := make([]byte, 3*136+50)
	for i := range data {
		data[i] = byte(i * 7)
	}
	want := Sum256(data)

	for _, chunk := range []int{1, 7, 37, 135, 136, 137, 500} {
		s := NewLegacyKeccak256()
		for i := 0; i < len(data); i += chunk {
			end := min(i+chunk, len(data))
			n, err := s.Write(data[i:end])
			require.NoError(t, err)
			require.Equal(t, end-i, n)
		}
		got, err := s.Finalize()
		require.NoError(t, err)
		assert.Equal(t, want[:], got, "chunk=%d", chunk)
	}
}

func TestSponge_AbsorbAfterFinalize(t *testing.T) {
	s := NewLegacyKeccak256()
	require.NoError(t, s.Absorb([]byte("abc")))
	_, err := s.Finalize()
	require.NoError(t, err)

	assert.ErrorIs(t, s.Absorb([]byte("more")), ErrInvalidState)
	_, err = s.Write([]byte("more"))
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = s.Finalize()
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSponge_FinalizeWipesState(t *testing.T) {
	s := NewLegacyKeccak256()
	require.NoError(t, s.Absorb(bytes.Repeat([]byte{0xa5}, 200)))
	_, err := s.Finalize()
	require.NoError(t, err)

	assert.Equal(t, [lanes]uint64{}, s.state)
	assert.Equal(t, [stateSize]byte{}, s.buf)
}

func TestNewSponge_Parameters(t *testing.T) {
	for _, n := range []int{28, 32, 48, 64} {
		s, err := NewSponge(n, DomainKeccak)
		require.NoError(t, err, "outputLen=%d", n)
		assert.Equal(t, 200-2*n, s.Rate())
		assert.Equal(t, n, s.Size())
	}

	for _, n := range []int{0, -1, 30, 100} {
		_, err := NewSponge(n, DomainKeccak)
		assert.ErrorIs(t, err, ErrInvalidParameter, "outputLen=%d", n)
	}
	_, err := NewSponge(Size, 0x00)
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = NewSponge(Size, 0x81)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestNewSponge_OtherWidthsMatchReference(t *testing.T) {
	data := bytes.Repeat([]byte("keccak"), 71)

	s, err := NewSponge(64, DomainKeccak)
	require.NoError(t, err)
	require.NoError(t, s.Absorb(data))
	got, err := s.Finalize()
	require.NoError(t, err)

	ref := sha3.NewLegacyKeccak512()
	ref.Write(data)
	assert.Equal(t, ref.Sum(nil), got)
}

func FuzzSum256(f *testing.F) {
	f.Add([]byte(nil))
	f.Add([]byte("abc"))
	f.Add(make([]byte, 135))
	f.Add(make([]byte, 136))
	f.Add(make([]byte, 137))
	f.Add(make([]byte, 136*3+50))

	f.Fuzz(func(t *testing.T, data []byte) {
		ref := sha3.NewLegacyKeccak256()
		ref.Write(data)
		want := ref.Sum(nil)

		got := Sum256(data)
		if !bytes.Equal(got[:], want) {
			t.Fatalf("Sum256 mismatch for len=%d\ngot:  %x\nwant: %x", len(data), got, want)
		}

		s := NewLegacyKeccak256()
		for _, b := range data {
			if err := s.Absorb([]byte{b}); err != nil {
				t.Fatalf("Absorb: %v", err)
			}
		}
		gotS, err := s.Finalize()
		if err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		if !bytes.Equal(gotS, want) {
			t.Fatalf("byte-by-byte mismatch for len=%d\ngot:  %x\nwant: %x", len(data), gotS, want)
		}
	})
}

func BenchmarkSum256_4K(b *testing.B) {
	data := make([]byte, 4096)
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Sum256(data)
	}
}
