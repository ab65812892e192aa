/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

// Package verifier checks receipts against an allowlist of hardware
// identities, a set of approved firmware hashes and the last counter seen
// from each identity.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/coreos/go-semver/semver"
	"github.com/kentakayama/ohr-anchor/internal/domain/model"
	"github.com/kentakayama/ohr-anchor/internal/domain/service"
	"github.com/kentakayama/ohr-anchor/internal/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Verifier struct {
	nodes    service.AuthorizedNodeRepository
	firmware service.ApprovedFirmwareRepository
	counters service.ObservedCounterRepository
	logger   *log.Logger
	results  *prometheus.CounterVec
}

// Options configures optional Verifier collaborators.
type Options struct {
	Logger   *log.Logger
	Registry prometheus.Registerer
}

func NewVerifier(nodes service.AuthorizedNodeRepository, firmware service.ApprovedFirmwareRepository, counters service.ObservedCounterRepository, opts Options) *Verifier {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Verifier{
		nodes:    nodes,
		firmware: firmware,
		counters: counters,
		logger:   logger,
		results: promauto.With(opts.Registry).NewCounterVec(prometheus.CounterOpts{
			Namespace: "anchor",
			Subsystem: "verifier",
			Name:      "verifications_total",
			Help:      "Receipt verifications by result.",
		}, []string{"result"}),
	}
}

// Verify runs the checks in order and stops at the first failure: identity
// allowlist, firmware approval, counter freshness, digest reconstruction. The
// observed counter is advanced only when every check passed.
func (v *Verifier) Verify(ctx context.Context, r *model.ReceiptReport) (*model.Verdict, error) {
	verdict, err := v.verify(ctx, r)
	v.results.WithLabelValues(resultLabel(err)).Inc()
	if err != nil {
		v.logger.Printf("receipt rejected: %v", err)
		return nil, err
	}
	v.logger.Printf("receipt accepted: node=%s counter=%d", verdict.NodeName, verdict.Counter)
	return verdict, nil
}

func (v *Verifier) verify(ctx context.Context, r *model.ReceiptReport) (*model.Verdict, error) {
	if r == nil || r.ReceiptDigest.IsZero() || r.HardwareIdentity.IsZero() {
		return nil, ErrInvalidReceipt
	}

	node, err := v.nodes.FindByIdentity(ctx, r.HardwareIdentity)
	if err != nil {
		return nil, fmt.Errorf("lookup node: %w", err)
	}
	if node == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorizedHardware, r.HardwareIdentity)
	}

	fw, err := v.firmware.FindByHash(ctx, r.FirmwareHash)
	if err != nil {
		return nil, fmt.Errorf("lookup firmware: %w", err)
	}
	if fw == nil {
		return nil, fmt.Errorf("%w: %s", ErrFirmwareNotApproved, r.FirmwareHash)
	}

	var previous uint64
	observed, err := v.counters.Find(ctx, r.HardwareIdentity)
	if err != nil {
		return nil, fmt.Errorf("lookup observed counter: %w", err)
	}
	if observed != nil {
		previous = observed.LastCounter
	}
	if r.Counter <= previous {
		return nil, fmt.Errorf("%w: got %d, last %d", ErrReplayDetected, r.Counter, previous)
	}

	expected := protocol.ReceiptDigest(r.HardwareIdentity, r.FirmwareHash, r.ExecutionHash, r.Counter)
	if expected != r.ReceiptDigest {
		return nil, fmt.Errorf("%w: expected %s", ErrDigestMismatch, expected)
	}

	advanced, err := v.counters.Advance(ctx, r.HardwareIdentity, r.Counter)
	if err != nil {
		return nil, fmt.Errorf("advance observed counter: %w", err)
	}
	if !advanced {
		// a concurrent verification accepted this counter first
		return nil, fmt.Errorf("%w: counter %d", ErrReplayDetected, r.Counter)
	}

	return &model.Verdict{
		HardwareIdentity: r.HardwareIdentity,
		NodeName:         node.Name,
		FirmwareVersion:  fw.Version,
		Counter:          r.Counter,
		PreviousCounter:  previous,
	}, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ErrInvalidReceipt):
		return "invalid"
	case errors.Is(err, ErrUnauthorizedHardware):
		return "unauthorized"
	case errors.Is(err, ErrFirmwareNotApproved):
		return "firmware"
	case errors.Is(err, ErrReplayDetected):
		return "replay"
	case errors.Is(err, ErrDigestMismatch):
		return "digest"
	default:
		return "error"
	}
}

// AuthorizeNode adds hw to the allowlist under a human readable name.
func (v *Verifier) AuthorizeNode(ctx context.Context, hw model.Digest, name string) error {
	if hw.IsZero() {
		return fmt.Errorf("%w: zero hardware identity", ErrInvalidReceipt)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("node name is required")
	}
	if _, err := v.nodes.Create(ctx, &model.AuthorizedNode{
		HardwareIdentity: hw,
		Name:             name,
		CreatedAt:        time.Now().UTC(),
	}); err != nil {
		return err
	}
	v.logger.Printf("node authorized: %s (%s)", name, hw)
	return nil
}

// RevokeNode removes hw from the allowlist.
func (v *Verifier) RevokeNode(ctx context.Context, hw model.Digest) error {
	if err := v.nodes.Revoke(ctx, hw); err != nil {
		return err
	}
	v.logger.Printf("node revoked: %s", hw)
	return nil
}

// ApproveFirmware approves a firmware hash. version must be a semantic
// version, optionally prefixed with "v".
func (v *Verifier) ApproveFirmware(ctx context.Context, hash model.Digest, version string) error {
	if hash.IsZero() {
		return fmt.Errorf("%w: zero firmware hash", ErrInvalidFirmwareVersion)
	}
	parsed, err := semver.NewVersion(strings.TrimPrefix(strings.TrimSpace(version), "v"))
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidFirmwareVersion, version, err)
	}
	if _, err := v.firmware.Create(ctx, &model.ApprovedFirmware{
		FirmwareHash: hash,
		Version:      parsed.String(),
		CreatedAt:    time.Now().UTC(),
	}); err != nil {
		return err
	}
	v.logger.Printf("firmware approved: %s version %s", hash, parsed)
	return nil
}

// NodeStatus reports what the verifier knows about hw.
func (v *Verifier) NodeStatus(ctx context.Context, hw model.Digest) (*model.NodeStatus, error) {
	status := &model.NodeStatus{HardwareIdentity: hw}

	node, err := v.nodes.FindByIdentity(ctx, hw)
	if err != nil {
		return nil, err
	}
	if node != nil {
		status.Authorized = true
		status.Name = node.Name
	}

	observed, err := v.counters.Find(ctx, hw)
	if err != nil {
		return nil, err
	}
	if observed != nil {
		status.LastCounter = observed.LastCounter
	}
	return status, nil
}
