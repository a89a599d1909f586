package jobs

import (
	"context"

	"github.com/pkg/errors"
)

type WarehouseSweeper interface {
	StartPendingPicks(ctx context.Context, warehouseID string) (int, error)
	CompletePendingPicks(ctx context.Context, warehouseID string) (int, error)
}

type ConveyanceSweeper interface {
	StartPendingMissions(ctx context.Context, conveyanceUnit string) (int, error)
	CompleteActiveMissions(ctx context.Context, conveyanceUnit string) (int, error)
}

type Schedules struct {
	PickStart       string
	PickComplete    string
	MissionStart    string
	MissionComplete string
}

// Manager держит четыре sweep-задачи жизненного цикла заказа и управляет
// ими как одним целым.
type Manager struct {
	jobs []*SweepJob
}

func NewManager(wh WarehouseSweeper, cv ConveyanceSweeper, warehouseID, conveyanceUnit string, s Schedules) *Manager {
	return &Manager{jobs: []*SweepJob{
		NewSweepJob("pick-start", s.PickStart, func(ctx context.Context) (int, error) {
			return wh.StartPendingPicks(ctx, warehouseID)
		}),
		NewSweepJob("pick-complete", s.PickComplete, func(ctx context.Context) (int, error) {
			return wh.CompletePendingPicks(ctx, warehouseID)
		}),
		NewSweepJob("mission-start", s.MissionStart, func(ctx context.Context) (int, error) {
			return cv.StartPendingMissions(ctx, conveyanceUnit)
		}),
		NewSweepJob("mission-complete", s.MissionComplete, func(ctx context.Context) (int, error) {
			return cv.CompleteActiveMissions(ctx, conveyanceUnit)
		}),
	}}
}

func (m *Manager) StartAll() error {
	for i, j := range m.jobs {
		if err := j.Start(); err != nil {
			for _, started := range m.jobs[:i] {
				started.Stop()
			}
			return errors.Wrapf(err, "start %s job", j.name)
		}
	}
	return nil
}

func (m *Manager) StopAll() {
	for _, j := range m.jobs {
		j.Stop()
	}
}
