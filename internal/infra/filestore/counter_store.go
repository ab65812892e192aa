/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package filestore keeps persistent counters as small files, one per
// namespace, for devices without a database.
package filestore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/facebookgo/atomicfile"
	fslock "github.com/ipfs/go-fs-lock"
	"github.com/kentakayama/ohr-anchor/internal/domain"
)

// LockFile is the name of the lock held in the store directory.
const LockFile = "counters.lock"

const counterFileSize = 8

var namespacePattern = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9_.-]{0,63}$`)

// CounterStore writes each namespace to <dir>/<namespace>.counter as an 8 byte
// big endian value. Writes go to a temporary file that is synced and renamed
// over the old one, so a crash leaves either the old or the new value.
type CounterStore struct {
	dir  string
	lock io.Closer

	mu sync.Mutex
}

// Open takes the directory lock. It fails if another process holds it.
func Open(dir string) (*CounterStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: create counter directory: %w", domain.ErrCounterStoreFailure, err)
	}
	lk, err := fslock.Lock(dir, LockFile)
	if err != nil {
		return nil, fmt.Errorf("%w: lock counter directory: %w", domain.ErrCounterStoreFailure, err)
	}
	return &CounterStore{dir: dir, lock: lk}, nil
}

// Close releases the directory lock.
func (s *CounterStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lock == nil {
		return nil
	}
	err := s.lock.Close()
	s.lock = nil
	return err
}

func (s *CounterStore) path(namespace string) (string, error) {
	if !namespacePattern.MatchString(namespace) {
		return "", fmt.Errorf("%w: invalid namespace %q", domain.ErrCounterStoreFailure, namespace)
	}
	return filepath.Join(s.dir, namespace+".counter"), nil
}

func (s *CounterStore) IncrementAndGet(ctx context.Context, namespace string) (uint64, error) {
	path, err := s.path(namespace)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock == nil {
		return 0, fmt.Errorf("%w: store closed", domain.ErrCounterStoreFailure)
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrCounterStoreFailure, err)
	}

	current, err := readCounter(path)
	if err != nil {
		return 0, err
	}
	if current == math.MaxUint64 {
		return 0, fmt.Errorf("%w: counter %q exhausted", domain.ErrCounterStoreFailure, namespace)
	}
	next := current + 1
	if err := s.writeCounter(path, next); err != nil {
		return 0, err
	}
	return next, nil
}

// Get returns the committed value of a namespace, 0 if it was never
// incremented.
func (s *CounterStore) Get(namespace string) (uint64, error) {
	path, err := s.path(namespace)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return readCounter(path)
}

func readCounter(path string) (uint64, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %w", domain.ErrCounterStoreFailure, path, err)
	}
	if len(b) != counterFileSize {
		return 0, fmt.Errorf("%w: %s is corrupt (%d bytes)", domain.ErrCounterStoreFailure, path, len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

func (s *CounterStore) writeCounter(path string, value uint64) error {
	f, err := atomicfile.New(path, 0o600)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", domain.ErrCounterStoreFailure, path, err)
	}

	var buf [counterFileSize]byte
	binary.BigEndian.PutUint64(buf[:], value)
	if _, err := f.Write(buf[:]); err != nil {
		f.Abort()
		return fmt.Errorf("%w: write %s: %w", domain.ErrCounterStoreFailure, path, err)
	}
	if err := f.Sync(); err != nil {
		f.Abort()
		return fmt.Errorf("%w: sync %s: %w", domain.ErrCounterStoreFailure, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: commit %s: %w", domain.ErrCounterStoreFailure, path, err)
	}
	return syncDir(s.dir)
}

// syncDir makes the rename durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", domain.ErrCounterStoreFailure, dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("%w: sync %s: %w", domain.ErrCounterStoreFailure, dir, err)
	}
	return nil
}
