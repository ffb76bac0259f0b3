// SPDX-License-Identifier: MIT

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSessionAttributes(t *testing.T) {
	attrs := SessionAttributes("card_switcher", 401, false)
	assert.Contains(t, attrs, attribute.Int(PartnerStatusKey, 401))
	assert.Contains(t, attrs, attribute.String(PartnerProductKey, "card_switcher"))
	assert.Len(t, SessionAttributes("", 0, true), 2)
}

func TestFlowAttributes_OmitsEmpty(t *testing.T) {
	assert.Empty(t, FlowAttributes("", "", ""))
	assert.Equal(t, []attribute.KeyValue{attribute.String(FlowStateKey, "loading")}, FlowAttributes("", "loading", ""))
}
