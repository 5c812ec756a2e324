package calllog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndRecentRoundtrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "calls.db")

	require.NoError(t, Append(dbPath, "github", "list_issues", map[string]interface{}{"repo": "foo/bar"}, "3 issues found", false, 120*time.Millisecond))
	require.NoError(t, Append(dbPath, "github", "create_issue", map[string]interface{}{"title": "bug"}, "boom", true, 50*time.Millisecond))

	records, err := Recent(dbPath, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "create_issue", records[0].Tool, "newest call first")
	assert.True(t, records[0].IsError)
	assert.Equal(t, "list_issues", records[1].Tool)
	assert.False(t, records[1].IsError)
}

func TestRecentRespectsLimit(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "calls.db")
	for i := 0; i < 5; i++ {
		require.NoError(t, Append(dbPath, "srv", "tool", nil, "ok", false, 0))
	}

	records, err := Recent(dbPath, 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestRecentOnMissingDatabaseReturnsEmpty(t *testing.T) {
	records, err := Recent(filepath.Join(t.TempDir(), "nonexistent.db"), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
