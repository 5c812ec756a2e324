package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveOutputModeJSONFlagWins(t *testing.T) {
	assert.Equal(t, OutputJSON, resolveOutputMode(true, true, "raw"))
	assert.Equal(t, OutputJSON, resolveOutputMode(true, false, ""))
}

func TestResolveOutputModeRawFlagBeatsOutputString(t *testing.T) {
	assert.Equal(t, OutputRaw, resolveOutputMode(false, true, "json"))
}

func TestResolveOutputModeOutputString(t *testing.T) {
	assert.Equal(t, OutputJSON, resolveOutputMode(false, false, "json"))
	assert.Equal(t, OutputRaw, resolveOutputMode(false, false, "raw"))
}

func TestResolveOutputModeDefaultsToPretty(t *testing.T) {
	assert.Equal(t, OutputPretty, resolveOutputMode(false, false, ""))
	assert.Equal(t, OutputPretty, resolveOutputMode(false, false, "JSON"))
	assert.Equal(t, OutputPretty, resolveOutputMode(false, false, "nonsense"))
}
