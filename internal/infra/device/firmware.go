/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package device

import (
	"fmt"
	"io"
	"os"

	"github.com/kentakayama/ohr-anchor/internal/domain/model"
	"github.com/kentakayama/ohr-anchor/internal/keccak"
)

// HashReader returns the Keccak-256 digest of everything read from r.
func HashReader(r io.Reader) (model.Digest, error) {
	var d model.Digest
	s := keccak.NewLegacyKeccak256()
	if _, err := io.Copy(s, r); err != nil {
		return d, err
	}
	sum, err := s.Finalize()
	if err != nil {
		return d, err
	}
	copy(d[:], sum)
	return d, nil
}

// HashFile returns the Keccak-256 digest of a firmware image.
func HashFile(path string) (model.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Digest{}, fmt.Errorf("open firmware image: %w", err)
	}
	defer f.Close()

	d, err := HashReader(f)
	if err != nil {
		return model.Digest{}, fmt.Errorf("hash firmware image %s: %w", path, err)
	}
	return d, nil
}
