package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseOAuthTimeoutDefault(t *testing.T) {
	t.Setenv(EnvOAuthTimeoutMS, "")
	assert.Equal(t, defaultOAuthTimeout, parseOAuthTimeout())
}

func TestParseOAuthTimeoutValidValue(t *testing.T) {
	t.Setenv(EnvOAuthTimeoutMS, "120000")
	assert.Equal(t, 120*time.Second, parseOAuthTimeout())
}

func TestParseOAuthTimeoutInvalidFallsBackToDefault(t *testing.T) {
	t.Setenv(EnvOAuthTimeoutMS, "soon")
	assert.Equal(t, defaultOAuthTimeout, parseOAuthTimeout())
}
