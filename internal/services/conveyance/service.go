package conveyance

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/coolrevive/corefulfill/internal/broker/messages"
	"github.com/coolrevive/corefulfill/internal/models"
	"github.com/coolrevive/corefulfill/internal/storage/pgfulfill"
)

type Repository interface {
	ListMissions(ctx context.Context, conveyanceUnit, status string) ([]*models.ConveyanceMission, error)
	UpdateMissionStatus(ctx context.Context, m *models.ConveyanceMission, status string) error
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Service — машина состояний миссий доставки; та же политика conditional
// update и частичных сбоев, что и у склада.
type Service struct {
	repo     Repository
	producer Producer

	transitTopic string
}

func New(repo Repository, producer Producer, transitTopic string) *Service {
	return &Service{repo: repo, producer: producer, transitTopic: transitTopic}
}

// StartPendingMissions переводит pending-миссии юнита в started, проставляя
// MissionStart, и шлёт транзитное уведомление по каждой.
func (s *Service) StartPendingMissions(ctx context.Context, conveyanceUnit string) (int, error) {
	return s.sweep(ctx, conveyanceUnit, models.StatusPending, models.StatusStarted, models.PhaseCoreInTransit)
}

// CompleteActiveMissions закрывает started-миссии, проставляя MissionEnd.
func (s *Service) CompleteActiveMissions(ctx context.Context, conveyanceUnit string) (int, error) {
	return s.sweep(ctx, conveyanceUnit, models.StatusStarted, models.StatusCompleted, models.PhaseCoreDelivered)
}

func (s *Service) sweep(ctx context.Context, conveyanceUnit, fromStatus, toStatus, phase string) (int, error) {
	missions, err := s.repo.ListMissions(ctx, conveyanceUnit, fromStatus)
	if err != nil {
		return 0, errors.Wrap(err, "list missions")
	}

	moved := 0
	for _, m := range missions {
		if err := ctx.Err(); err != nil {
			return moved, err
		}
		if err := s.repo.UpdateMissionStatus(ctx, m, toStatus); err != nil {
			if errors.Is(err, pgfulfill.ErrConcurrencyConflict) {
				slog.Warn("mission transition lost race", "mission_id", m.MissionID)
				continue
			}
			slog.Error("mission transition failed", "mission_id", m.MissionID, "error", err.Error())
			continue
		}
		moved++
		if err := s.notifyCoreInTransit(ctx, m, phase); err != nil {
			slog.Error("mission notice failed", "mission_id", m.MissionID, "error", err.Error())
		}
	}
	return moved, nil
}

func (s *Service) notifyCoreInTransit(ctx context.Context, m *models.ConveyanceMission, phase string) error {
	msg := messages.NewNextCoreInTransit(m.Destination, m.TagID, phase, time.Now().UTC())
	b, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal transit notice")
	}
	return s.producer.Publish(ctx, s.transitTopic, []byte(msg.PodID), b)
}
