package ordering

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/coolrevive/corefulfill/internal/broker/kafka"
	"github.com/coolrevive/corefulfill/internal/broker/messages"
	"github.com/coolrevive/corefulfill/internal/integrations/podlookup"
	"github.com/coolrevive/corefulfill/internal/problem"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// Service разруливает запрос pod'а в конкретное ядро: принимает заявку,
// резолвит её через production schedule и публикует итоговый заказ.
// Локального состояния нет; все исходы — типизированные ответы.
type Service struct {
	producer Producer
	lookup   podlookup.Client

	resolveTopic string
	orderTopic   string
}

func New(producer Producer, lookup podlookup.Client, resolveTopic, orderTopic string) *Service {
	return &Service{
		producer:     producer,
		lookup:       lookup,
		resolveTopic: resolveTopic,
		orderTopic:   orderTopic,
	}
}

// RequestNextCore принимает заявку pod'а. Если ядро уже известно, сперва
// публикует итоговый заказ (фиксация окончательного размещения), затем в любом
// случае отправляет заявку на резолв.
func (s *Service) RequestNextCore(ctx context.Context, msg messages.OrderNextCoreMessage, instance string) problem.Response {
	if msg.PodID == "" {
		return problem.Validation("podId is required", instance)
	}
	normalize(&msg)
	if msg.CoreID != "" {
		if resp := s.OrderNextCore(ctx, msg, instance); resp.IsProblem() {
			return resp
		}
	}
	if err := s.publish(ctx, s.resolveTopic, msg); err != nil {
		return problem.Internal(err.Error(), instance)
	}
	return problem.Created(
		"Request for next core id sent.",
		"The request for the next core id has been sent to the production schedule.",
		instance,
		map[string]any{"PodId": msg.PodID},
	)
}

// OrderNextCore публикует полностью разрешённый заказ в order-топик.
func (s *Service) OrderNextCore(ctx context.Context, msg messages.OrderNextCoreMessage, instance string) problem.Response {
	if msg.PodID == "" {
		return problem.Validation("podId is required", instance)
	}
	if msg.CoreID == "" {
		return problem.Validation("coreId is required", instance)
	}
	normalize(&msg)
	if err := s.publish(ctx, s.orderTopic, msg); err != nil {
		return problem.Internal(err.Error(), instance)
	}
	return problem.Created(
		"Request for next core sent.",
		"The request for the next core has been sent to the warehouse.",
		instance,
		map[string]any{"PodId": msg.PodID, "CoreId": msg.CoreID},
	)
}

// ResolveNextCore опрашивает production schedule pod'а. Внутренних ретраев
// нет: неуспех отдаётся вызывающему как есть.
func (s *Service) ResolveNextCore(ctx context.Context, podID string) (podlookup.Result, error) {
	if podID == "" {
		return podlookup.Result{}, errors.New("podId is required")
	}
	return s.lookup.GetNextCore(ctx, podID)
}

// HandleResolveRequest — обработчик resolve-топика: заявка без ядра
// превращается в полностью разрешённый заказ.
func (s *Service) HandleResolveRequest(ctx context.Context, value []byte) (kafka.Outcome, error) {
	msg, err := messages.DecodeOrderNextCore(value)
	if err != nil {
		slog.Error("resolve request: bad message", "error", err.Error())
		return kafka.DeadLetter, nil
	}

	res, err := s.ResolveNextCore(ctx, msg.PodID)
	if err != nil {
		// Терминально для этого сообщения: и unknown-pod, и неуспех
		// production schedule. Ретраи — не наша забота.
		slog.Error("resolve request: lookup failed", "pod_id", msg.PodID, "error", err.Error())
		return kafka.DeadLetter, nil
	}

	msg.CoreID = res.CoreID
	msg.FinishedProductID = res.FinishedProductID

	if err := s.publish(ctx, s.orderTopic, msg); err != nil {
		// Транспортная ошибка собственного брокера: оставляем сообщение
		// на передоставку.
		return kafka.Complete, err
	}
	return kafka.Complete, nil
}

// normalize достраивает конверт входящего по HTTP запроса: клиенты шлют только
// полезную нагрузку, дискриминант и id — наша забота.
func normalize(msg *messages.OrderNextCoreMessage) {
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	msg.MessageType = messages.TypeOrderNextCore
	if msg.RequestDateTime.IsZero() {
		msg.RequestDateTime = time.Now().UTC()
	}
}

func (s *Service) publish(ctx context.Context, topic string, msg messages.OrderNextCoreMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal order message")
	}
	return s.producer.Publish(ctx, topic, []byte(msg.PodID), b)
}
