// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package linkflow

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_TransitionsAndOutcomes(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, &stubCreator{id: "s1"})
	id := NewFlowID()

	idleToLoading := testutil.ToFloat64(flowTransitions.WithLabelValues("idle", "loading"))
	loadingToSuccess := testutil.ToFloat64(flowTransitions.WithLabelValues("loading", "success"))
	successes := testutil.ToFloat64(flowOutcomes.WithLabelValues("success"))
	busy := testutil.ToFloat64(flowBusyRejections)

	_, err := m.Submit(ctx, id, testForm)
	require.NoError(t, err)
	_, err = m.Submit(ctx, id, testForm)
	require.ErrorIs(t, err, ErrFlowBusy)
	_, err = m.Report(ctx, id, Success{})
	require.NoError(t, err)

	assert.Equal(t, idleToLoading+1, testutil.ToFloat64(flowTransitions.WithLabelValues("idle", "loading")))
	assert.Equal(t, loadingToSuccess+1, testutil.ToFloat64(flowTransitions.WithLabelValues("loading", "success")))
	assert.Equal(t, successes+1, testutil.ToFloat64(flowOutcomes.WithLabelValues("success")))
	assert.Equal(t, busy+1, testutil.ToFloat64(flowBusyRejections))
}

func TestObserveTransition_IgnoresSelfLoops(t *testing.T) {
	before := testutil.ToFloat64(flowTransitions.WithLabelValues("loading", "loading"))
	observeTransition(StateLoading, StateLoading)
	assert.Equal(t, before, testutil.ToFloat64(flowTransitions.WithLabelValues("loading", "loading")))
}
