/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package anchor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the operational counters of an Anchor.
type Metrics struct {
	IdentityDerivations prometheus.Counter
	ReceiptsIssued      prometheus.Counter
	CountersBurned      prometheus.Counter
	Failures            *prometheus.CounterVec
}

// NewMetrics registers the anchor metrics with reg. A nil reg creates
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		IdentityDerivations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "anchor",
			Name:      "identity_derivations_total",
			Help:      "Number of hardware identities derived.",
		}),
		ReceiptsIssued: f.NewCounter(prometheus.CounterOpts{
			Namespace: "anchor",
			Name:      "receipts_issued_total",
			Help:      "Number of receipts returned to callers.",
		}),
		CountersBurned: f.NewCounter(prometheus.CounterOpts{
			Namespace: "anchor",
			Name:      "counters_burned_total",
			Help:      "Counter values committed without a receipt being returned.",
		}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anchor",
			Name:      "receipt_failures_total",
			Help:      "Receipt generation failures by stage.",
		}, []string{"stage"}),
	}
}
