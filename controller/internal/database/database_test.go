package database

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/kazuhidet/Web-Interface-for-WoL/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	db, err := New(filepath.Join(t.TempDir(), "history", "wake.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndListWakes(t *testing.T) {
	db := setupTestDB(t)

	local := &models.WakeEvent{HostID: "host_1", HostName: "pc", MAC: "00:11:22:33:44:55", Via: "local",
		Broadcast: "255.255.255.255", Port: 9, Success: true}
	require.NoError(t, db.RecordWake(local))
	assert.Greater(t, local.ID, int64(0))

	remote := &models.WakeEvent{HostID: "host_2", HostName: "nas", MAC: "aa:bb:cc:dd:ee:ff", Via: "agent",
		AgentID: "agent_x", Success: false, Error: "agent unavailable"}
	require.NoError(t, db.RecordWake(remote))

	events, err := db.RecentWakes("", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "host_2", events[0].HostID, "newest first")
	assert.Equal(t, "agent_x", events[0].AgentID)
	assert.False(t, events[0].Success)
	assert.Equal(t, "agent unavailable", events[0].Error)
	assert.Equal(t, 0, events[0].Port)

	assert.Equal(t, "host_1", events[1].HostID)
	assert.True(t, events[1].Success)
	assert.Equal(t, 9, events[1].Port)
	assert.Empty(t, events[1].AgentID)
	assert.False(t, events[1].CreatedAt.IsZero())
}

func TestRecentWakesFilterAndLimit(t *testing.T) {
	db := setupTestDB(t)

	for i := 0; i < 5; i++ {
		host := "host_a"
		if i%2 == 1 {
			host = "host_b"
		}
		require.NoError(t, db.RecordWake(&models.WakeEvent{
			HostID: host, HostName: host, MAC: fmt.Sprintf("00:00:00:00:00:0%d", i), Via: "local", Success: true,
		}))
	}

	events, err := db.RecentWakes("host_a", 0)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	events, err = db.RecentWakes("", 2)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = db.RecentWakes("host_none", 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPruneWakes(t *testing.T) {
	db := setupTestDB(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, db.RecordWake(&models.WakeEvent{HostID: "h", HostName: "h", MAC: "m", Via: "local", Success: true}))
	}

	removed, err := db.PruneWakes(2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	events, err := db.RecentWakes("", 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
