// Copyright (C) 2025 HomeWiz (engineering@homewiz.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	// promauto registers on the default registry; a single InitMetrics
	// call serves every subtest.
	m := InitMetrics()
	require.NotNil(t, m)
	require.Same(t, m, DefaultMetrics)

	t.Run("ObserveRequest", func(t *testing.T) {
		before := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("query", "success"))
		ObserveRequest("query", true, 0.2)
		ObserveRequest("query", false, 0.1)
		assert.Equal(t, before+1, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("query", "success")))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("query", "error")))
	})

	t.Run("ObserveHallucinationRejection", func(t *testing.T) {
		before := testutil.ToFloat64(m.HallucinationRejectionsTotal)
		ObserveHallucinationRejection()
		assert.Equal(t, before+1, testutil.ToFloat64(m.HallucinationRejectionsTotal))
	})

	t.Run("ObservePermissionDenial", func(t *testing.T) {
		ObservePermissionDenial("update")
		assert.Equal(t, 1.0, testutil.ToFloat64(m.PermissionDenialsTotal.WithLabelValues("update")))
	})

	t.Run("ObserveSafetyLimitHit", func(t *testing.T) {
		before := testutil.ToFloat64(m.SafetyLimitHitsTotal)
		ObserveSafetyLimitHit()
		assert.Equal(t, before+1, testutil.ToFloat64(m.SafetyLimitHitsTotal))
	})
}

func TestObserve_UninitializedIsNoOp(t *testing.T) {
	saved := DefaultMetrics
	DefaultMetrics = nil
	defer func() { DefaultMetrics = saved }()

	// None of these may panic without an initialized registry.
	ObserveRequest("query", true, 0.1)
	ObserveHallucinationRejection()
	ObservePermissionDenial("query")
	ObserveSafetyLimitHit()
}
