/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package anchor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/kentakayama/ohr-anchor/internal/domain"
	"github.com/kentakayama/ohr-anchor/internal/domain/model"
	"github.com/kentakayama/ohr-anchor/internal/domain/service"
	"github.com/kentakayama/ohr-anchor/internal/protocol"
)

// DefaultNamespace is the counter namespace used when none is configured.
const DefaultNamespace = "anchor"

// Security warnings attached to provenance.
const (
	WarnSecureBootDisabled      = "Secure Boot disabled - development mode"
	WarnFlashEncryptionDisabled = "Flash encryption disabled - counter store vulnerable to rollback"
	WarnFingerprintShared       = "Security fingerprint is not device-unique - identity uniqueness rests on the chip id alone"
)

// Anchor derives the hardware identity of one device and issues receipts
// against one counter namespace. Receipt generation is serialized.
type Anchor struct {
	provider  service.DeviceStateProvider
	counters  service.CounterStore
	journal   service.ReceiptJournal
	namespace string
	logger    *log.Logger
	metrics   *Metrics

	mu         sync.Mutex
	lastIssued uint64
	broken     error
}

// Options configures optional Anchor collaborators.
type Options struct {
	Namespace string
	Journal   service.ReceiptJournal // may be nil
	Logger    *log.Logger
	Metrics   *Metrics
}

func NewAnchor(provider service.DeviceStateProvider, counters service.CounterStore, opts Options) (*Anchor, error) {
	if provider == nil {
		return nil, errors.New("device state provider is nil")
	}
	if counters == nil {
		return nil, errors.New("counter store is nil")
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	namespace := opts.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}

	return &Anchor{
		provider:  provider,
		counters:  counters,
		journal:   opts.Journal,
		namespace: namespace,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

// HardwareIdentity derives the device identity. Chip id and fingerprint are
// wiped before returning, on success and on failure.
func (a *Anchor) HardwareIdentity(ctx context.Context) (*model.HardwareIdentity, error) {
	var in protocol.IdentityInputs
	defer in.Wipe()

	if err := a.readIdentityInputs(ctx, &in); err != nil {
		return nil, err
	}

	id := &model.HardwareIdentity{
		Digest:          protocol.HardwareIdentity(&in),
		SecureBoot:      in.SecureBoot,
		FlashEncryption: in.FlashEncryption,
		Provenance:      a.provenance(in.SecureBoot, in.FlashEncryption),
	}
	a.metrics.IdentityDerivations.Inc()
	return id, nil
}

func (a *Anchor) readIdentityInputs(ctx context.Context, in *protocol.IdentityInputs) error {
	var err error
	if err = a.provider.ReadChipUniqueID(ctx, &in.ChipID); err != nil {
		return deviceStateError("chip unique id", err)
	}
	if in.SecureBoot, err = a.provider.SecureBootEnabled(ctx); err != nil {
		return deviceStateError("secure boot state", err)
	}
	if in.FlashEncryption, err = a.provider.FlashEncryptionEnabled(ctx); err != nil {
		return deviceStateError("flash encryption state", err)
	}
	if err = a.provider.ReadSecurityFingerprint(ctx, &in.Fingerprint); err != nil {
		return deviceStateError("security fingerprint", err)
	}
	return nil
}

// provenance merges the provider's provenance with warnings derived from the
// security state actually read.
func (a *Anchor) provenance(secureBoot, flashEncryption bool) model.Provenance {
	p := a.provider.Provenance()
	p.FingerprintDeviceUnique = model.FingerprintIsDeviceUnique(p.FingerprintSource)

	warnings := append([]string(nil), p.Warnings...)
	if !secureBoot {
		warnings = append(warnings, WarnSecureBootDisabled)
	}
	if !flashEncryption {
		warnings = append(warnings, WarnFlashEncryptionDisabled)
	}
	if !p.FingerprintDeviceUnique {
		warnings = append(warnings, WarnFingerprintShared)
	}
	p.Warnings = warnings
	return p
}

// GenerateReceipt issues a receipt for the execution result hash. The counter
// is incremented only after the identity and firmware hash are available. A
// failure after the increment burns that counter value for good.
func (a *Anchor) GenerateReceipt(ctx context.Context, execution model.Digest) (*model.Receipt, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.broken != nil {
		return nil, a.broken
	}

	identity, err := a.HardwareIdentity(ctx)
	if err != nil {
		a.metrics.Failures.WithLabelValues("identity").Inc()
		return nil, err
	}

	var firmware model.Digest
	if err := a.provider.ReadFirmwareHash(ctx, &firmware); err != nil {
		a.metrics.Failures.WithLabelValues("firmware").Inc()
		return nil, deviceStateError("firmware hash", err)
	}

	if err := ctx.Err(); err != nil {
		a.metrics.Failures.WithLabelValues("canceled").Inc()
		return nil, err
	}

	counter, err := a.counters.IncrementAndGet(ctx, a.namespace)
	if err != nil {
		a.metrics.Failures.WithLabelValues("counter").Inc()
		if !errors.Is(err, domain.ErrCounterStoreFailure) {
			err = fmt.Errorf("%w: %w", domain.ErrCounterStoreFailure, err)
		}
		return nil, err
	}
	if counter <= a.lastIssued {
		a.broken = fmt.Errorf("%w: store returned %d after %d in namespace %q",
			domain.ErrCounterRegression, counter, a.lastIssued, a.namespace)
		a.metrics.Failures.WithLabelValues("regression").Inc()
		a.logger.Printf("FATAL: %v", a.broken)
		return nil, a.broken
	}
	a.lastIssued = counter

	receipt := &model.Receipt{
		Digest:           protocol.ReceiptDigest(identity.Digest, firmware, execution, counter),
		HardwareIdentity: identity.Digest,
		Counter:          counter,
		FirmwareHash:     firmware,
		ExecutionHash:    execution,
		Provenance:       identity.Provenance,
	}

	if a.journal != nil {
		if err := a.record(ctx, receipt); err != nil {
			a.metrics.CountersBurned.Inc()
			a.logger.Printf("counter %d in namespace %q burned, no receipt returned: %v", counter, a.namespace, err)
			return nil, fmt.Errorf("%w: counter %d: %w", domain.ErrCounterBurned, counter, err)
		}
	}

	a.metrics.ReceiptsIssued.Inc()
	a.logger.Printf("receipt generated: counter=%d digest=%s", counter, receipt.Digest)
	return receipt, nil
}

func (a *Anchor) record(ctx context.Context, r *model.Receipt) error {
	envelope, err := EncodeReceipt(r)
	if err != nil {
		return err
	}
	_, err = a.journal.Record(ctx, &model.IssuedReceipt{
		Namespace:        a.namespace,
		Counter:          r.Counter,
		ReceiptDigest:    r.Digest,
		HardwareIdentity: r.HardwareIdentity,
		Envelope:         envelope,
		CreatedAt:        time.Now().UTC(),
	})
	return err
}

var receiptEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// EncodeReceipt encodes r as deterministic CBOR with integer keys.
func EncodeReceipt(r *model.Receipt) ([]byte, error) {
	return receiptEncMode.Marshal(r)
}

// DecodeReceipt is the inverse of EncodeReceipt.
func DecodeReceipt(data []byte) (*model.Receipt, error) {
	var r model.Receipt
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &r, nil
}

func deviceStateError(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrDeviceStateUnavailable, what, err)
}
