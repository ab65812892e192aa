/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package verifier

import (
	"bytes"
	"context"
	"log"
	"testing"

	"github.com/kentakayama/ohr-anchor/internal/domain/model"
	"github.com/kentakayama/ohr-anchor/internal/infra/sqlite"
	"github.com/kentakayama/ohr-anchor/internal/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testHW       = model.Digest{0x52, 0xfd, 0xfc, 0x07}
	testFirmware = model.Digest{0x12, 0x34, 0x56, 0x78}
	testExec     = model.Digest{0xde, 0xad, 0xbe, 0xef}
)

func newTestVerifier(t *testing.T) (*Verifier, *bytes.Buffer) {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.InitDB(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.CloseDB(db) })

	var logs bytes.Buffer
	v := NewVerifier(
		sqlite.NewAuthorizedNodeRepository(db),
		sqlite.NewApprovedFirmwareRepository(db),
		sqlite.NewObservedCounterRepository(db),
		Options{Logger: log.New(&logs, "", 0), Registry: prometheus.NewRegistry()},
	)
	require.NoError(t, v.AuthorizeNode(ctx, testHW, "node-1"))
	require.NoError(t, v.ApproveFirmware(ctx, testFirmware, "v1.2.0"))
	return v, &logs
}

func report(counter uint64) *model.ReceiptReport {
	return &model.ReceiptReport{
		ReceiptDigest:    protocol.ReceiptDigest(testHW, testFirmware, testExec, counter),
		HardwareIdentity: testHW,
		FirmwareHash:     testFirmware,
		ExecutionHash:    testExec,
		Counter:          counter,
	}
}

func TestVerify_Accepts(t *testing.T) {
	v, _ := newTestVerifier(t)
	ctx := context.Background()

	verdict, err := v.Verify(ctx, report(1))
	require.NoError(t, err)
	assert.Equal(t, "node-1", verdict.NodeName)
	assert.Equal(t, "1.2.0", verdict.FirmwareVersion)
	assert.Equal(t, uint64(1), verdict.Counter)
	assert.Equal(t, uint64(0), verdict.PreviousCounter)

	// gaps are allowed, burned counters leave them
	verdict, err = v.Verify(ctx, report(5))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), verdict.PreviousCounter)

	assert.Equal(t, 2.0, testutil.ToFloat64(v.results.WithLabelValues("accepted")))
}

func TestVerify_Replay(t *testing.T) {
	v, logs := newTestVerifier(t)
	ctx := context.Background()

	_, err := v.Verify(ctx, report(3))
	require.NoError(t, err)

	for _, c := range []uint64{3, 2, 0} {
		_, err = v.Verify(ctx, report(c))
		assert.ErrorIs(t, err, ErrReplayDetected, "counter %d", c)
	}
	assert.Contains(t, logs.String(), "receipt rejected")
	assert.Equal(t, 3.0, testutil.ToFloat64(v.results.WithLabelValues("replay")))
}

func TestVerify_UnauthorizedHardware(t *testing.T) {
	v, _ := newTestVerifier(t)
	r := report(1)
	r.HardwareIdentity = model.Digest{0x01}
	r.ReceiptDigest = protocol.ReceiptDigest(r.HardwareIdentity, r.FirmwareHash, r.ExecutionHash, r.Counter)

	_, err := v.Verify(context.Background(), r)
	assert.ErrorIs(t, err, ErrUnauthorizedHardware)
}

func TestVerify_RevokedNode(t *testing.T) {
	v, _ := newTestVerifier(t)
	ctx := context.Background()

	require.NoError(t, v.RevokeNode(ctx, testHW))
	_, err := v.Verify(ctx, report(1))
	assert.ErrorIs(t, err, ErrUnauthorizedHardware)
}

func TestVerify_FirmwareNotApproved(t *testing.T) {
	v, _ := newTestVerifier(t)
	r := report(1)
	r.FirmwareHash = model.Digest{0x99}
	r.ReceiptDigest = protocol.ReceiptDigest(r.HardwareIdentity, r.FirmwareHash, r.ExecutionHash, r.Counter)

	_, err := v.Verify(context.Background(), r)
	assert.ErrorIs(t, err, ErrFirmwareNotApproved)
}

func TestVerify_DigestMismatchDoesNotAdvance(t *testing.T) {
	v, _ := newTestVerifier(t)
	ctx := context.Background()

	tampered := report(4)
	tampered.ExecutionHash = model.Digest{0x00, 0x01}
	_, err := v.Verify(ctx, tampered)
	assert.ErrorIs(t, err, ErrDigestMismatch)

	status, err := v.NodeStatus(ctx, testHW)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), status.LastCounter)

	_, err = v.Verify(ctx, report(4))
	assert.NoError(t, err)
}

func TestVerify_Ordering(t *testing.T) {
	v, _ := newTestVerifier(t)
	ctx := context.Background()

	// unauthorized and unapproved: the identity check runs first
	r := report(1)
	r.HardwareIdentity = model.Digest{0x02}
	r.FirmwareHash = model.Digest{0x03}
	_, err := v.Verify(ctx, r)
	assert.ErrorIs(t, err, ErrUnauthorizedHardware)

	// unapproved firmware with a stale counter: firmware is reported
	_, err = v.Verify(ctx, report(2))
	require.NoError(t, err)
	r = report(1)
	r.FirmwareHash = model.Digest{0x03}
	_, err = v.Verify(ctx, r)
	assert.ErrorIs(t, err, ErrFirmwareNotApproved)

	// stale counter with a bad digest: replay is reported
	r = report(1)
	r.ReceiptDigest = model.Digest{0x04}
	_, err = v.Verify(ctx, r)
	assert.ErrorIs(t, err, ErrReplayDetected)
}

func TestVerify_InvalidReceipt(t *testing.T) {
	v, _ := newTestVerifier(t)
	_, err := v.Verify(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidReceipt)

	r := report(1)
	r.ReceiptDigest = model.Digest{}
	_, err = v.Verify(context.Background(), r)
	assert.ErrorIs(t, err, ErrInvalidReceipt)
}

func TestApproveFirmware_Version(t *testing.T) {
	v, _ := newTestVerifier(t)
	ctx := context.Background()

	assert.ErrorIs(t, v.ApproveFirmware(ctx, model.Digest{0x05}, "latest"), ErrInvalidFirmwareVersion)
	assert.ErrorIs(t, v.ApproveFirmware(ctx, model.Digest{0x05}, "1.2"), ErrInvalidFirmwareVersion)
	assert.ErrorIs(t, v.ApproveFirmware(ctx, model.Digest{}, "1.0.0"), ErrInvalidFirmwareVersion)
	assert.NoError(t, v.ApproveFirmware(ctx, model.Digest{0x05}, "2.0.0-rc.1"))
}

func TestAuthorizeNode_Validation(t *testing.T) {
	v, _ := newTestVerifier(t)
	ctx := context.Background()
	assert.Error(t, v.AuthorizeNode(ctx, model.Digest{}, "zero"))
	assert.Error(t, v.AuthorizeNode(ctx, model.Digest{0x07}, "  "))
}

func TestNodeStatus(t *testing.T) {
	v, _ := newTestVerifier(t)
	ctx := context.Background()

	_, err := v.Verify(ctx, report(9))
	require.NoError(t, err)

	status, err := v.NodeStatus(ctx, testHW)
	require.NoError(t, err)
	assert.True(t, status.Authorized)
	assert.Equal(t, "node-1", status.Name)
	assert.Equal(t, uint64(9), status.LastCounter)

	unknown, err := v.NodeStatus(ctx, model.Digest{0x0f})
	require.NoError(t, err)
	assert.False(t, unknown.Authorized)
	assert.Zero(t, unknown.LastCounter)
}
