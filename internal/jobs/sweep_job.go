package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SweepFunc — один проход конечного автомата; возвращает число переведённых
// записей.
type SweepFunc func(ctx context.Context) (int, error)

// SweepJob периодически прогоняет один переход конечного автомата
// (pending -> started или started -> completed) по cron-расписанию.
type SweepJob struct {
	name     string
	schedule string
	sweep    SweepFunc
	timeout  time.Duration
	cron     *cron.Cron
}

func NewSweepJob(name, schedule string, sweep SweepFunc) *SweepJob {
	return &SweepJob{
		name:     name,
		schedule: schedule,
		sweep:    sweep,
		timeout:  30 * time.Second,
		cron:     cron.New(cron.WithSeconds()),
	}
}

func (j *SweepJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		defer cancel()

		n, err := j.sweep(ctx)
		if err != nil {
			slog.Error("sweep failed", "job", j.name, "error", err.Error())
			return
		}
		if n > 0 {
			slog.Info("sweep done", "job", j.name, "transitioned", n)
		}
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	slog.Info("sweep job started", "job", j.name, "schedule", j.schedule)
	return nil
}

func (j *SweepJob) Stop() {
	ctx := j.cron.Stop()
	// Дожидаемся уже запущенного прохода.
	<-ctx.Done()
	slog.Info("sweep job stopped", "job", j.name)
}
