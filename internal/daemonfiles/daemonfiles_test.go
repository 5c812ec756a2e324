package daemonfiles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelPathsShareRoot(t *testing.T) {
	assert.Contains(t, SocketPath(), Root())
	assert.Contains(t, PIDPath(), Root())
	assert.NotEqual(t, SocketPath(), PIDPath())
}
