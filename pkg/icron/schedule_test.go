package icron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfo(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, 3, 10, 14, 37, 12, 0, time.UTC)

	info, err := GetTriggerInfo("*/10 * * * *", ref)
	require.NoError(t, err)

	assert.Equal(t, "*/10 * * * *", info.Expression)
	assert.Equal(t, time.Date(2025, 3, 10, 14, 40, 0, 0, time.UTC), info.Next)
	assert.Equal(t, time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC), info.Last)
	assert.Equal(t, 7*time.Minute+12*time.Second, info.TimeSinceLast)
	assert.Equal(t, 2*time.Minute+48*time.Second, info.TimeUntilNext)
}

func TestGetTriggerInfoDescriptor(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, 3, 10, 14, 37, 0, 0, time.UTC)

	info, err := GetTriggerInfo("@hourly", ref)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC), info.Next)
	assert.Equal(t, time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC), info.Last)
}

func TestGetTriggerInfoInvalidExpression(t *testing.T) {
	t.Parallel()

	_, err := GetTriggerInfo("not a cron", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}
