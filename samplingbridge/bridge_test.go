package samplingbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/metoro-io/mcp-golang/mcp"
)

func TestMapStopReasonDefaultsToEndTurn(t *testing.T) {
	assert.Equal(t, mcp.StopReasonEndTurn, mapStopReason(""))
	assert.Equal(t, mcp.StopReasonEndTurn, mapStopReason("end_turn"))
}

func TestMapStopReasonPassesThroughOtherValues(t *testing.T) {
	assert.Equal(t, "max_tokens", mapStopReason("max_tokens"))
	assert.Equal(t, "stop_sequence", mapStopReason("stop_sequence"))
}
