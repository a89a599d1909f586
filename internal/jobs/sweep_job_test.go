package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSweepJob_RunsOnSchedule(t *testing.T) {
	var calls atomic.Int64
	j := NewSweepJob("test", "* * * * * *", func(ctx context.Context) (int, error) {
		calls.Add(1)
		return 1, nil
	})

	require.NoError(t, j.Start())
	defer j.Stop()

	require.Eventually(t, func() bool {
		return calls.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestSweepJob_BadScheduleFailsStart(t *testing.T) {
	j := NewSweepJob("test", "not-a-schedule", func(ctx context.Context) (int, error) {
		return 0, nil
	})
	require.Error(t, j.Start())
}

type noopWarehouse struct{}

func (noopWarehouse) StartPendingPicks(ctx context.Context, warehouseID string) (int, error) {
	return 0, nil
}

func (noopWarehouse) CompletePendingPicks(ctx context.Context, warehouseID string) (int, error) {
	return 0, nil
}

type noopConveyance struct{}

func (noopConveyance) StartPendingMissions(ctx context.Context, conveyanceUnit string) (int, error) {
	return 0, nil
}

func (noopConveyance) CompleteActiveMissions(ctx context.Context, conveyanceUnit string) (int, error) {
	return 0, nil
}

func TestManager_StartAllRejectsBadSchedule(t *testing.T) {
	m := NewManager(noopWarehouse{}, noopConveyance{}, "W1", "Wally", Schedules{
		PickStart:       "*/5 * * * * *",
		PickComplete:    "broken",
		MissionStart:    "*/5 * * * * *",
		MissionComplete: "*/5 * * * * *",
	})
	require.Error(t, m.StartAll())
}

func TestManager_StartStopAll(t *testing.T) {
	m := NewManager(noopWarehouse{}, noopConveyance{}, "W1", "Wally", Schedules{
		PickStart:       "0 0 * * * *",
		PickComplete:    "0 0 * * * *",
		MissionStart:    "0 0 * * * *",
		MissionComplete: "0 0 * * * *",
	})
	require.NoError(t, m.StartAll())
	m.StopAll()
}
