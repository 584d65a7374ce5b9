package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLoggerWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewFileLogger(FileLoggerConfig{BasePath: dir})
	require.NoError(t, err)
	defer logger.Close()

	ctx := context.Background()
	require.NoError(t, logger.LogAuthentication(ctx, EventTypeAuthLogin, "u1", EventStatusSuccess, "login"))
	require.NoError(t, logger.LogDataMutation(ctx, EventTypeTaskCreate, "u1", ResourceTypeTask, "t1", "task created"))

	file, err := os.Open(filepath.Join(dir, "audit.log"))
	require.NoError(t, err)
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var event Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
		events = append(events, event)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, events, 2)
	assert.Equal(t, EventTypeAuthLogin, events[0].EventType)
	assert.Equal(t, "u1", events[0].UserID)
	assert.Equal(t, EventTypeTaskCreate, events[1].EventType)
	assert.Equal(t, "t1", events[1].ResourceID)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestFileLoggerRotation(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewFileLogger(FileLoggerConfig{
		BasePath: dir,
		Rotate:   true,
		MaxSize:  64, // tiny, so the second write rotates
		MaxFiles: 3,
	})
	require.NoError(t, err)
	defer logger.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, logger.LogAuthentication(ctx, EventTypeAuthLogin, "u1", EventStatusSuccess, "login"))
	}

	rotated, err := filepath.Glob(filepath.Join(dir, "audit-*.log"))
	require.NoError(t, err)
	assert.NotEmpty(t, rotated)

	_, err = os.Stat(filepath.Join(dir, "audit.log"))
	assert.NoError(t, err)
}

func TestFileLoggerCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewFileLogger(FileLoggerConfig{BasePath: dir})
	require.NoError(t, err)

	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())
}
