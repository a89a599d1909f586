package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/coolrevive/corefulfill/internal/broker/kafka"
	"github.com/coolrevive/corefulfill/internal/broker/messages"
	"github.com/coolrevive/corefulfill/internal/cache"
	"github.com/coolrevive/corefulfill/internal/integrations/mailgate"
	"github.com/coolrevive/corefulfill/internal/models"
	"github.com/coolrevive/corefulfill/internal/storage/pgfulfill"
)

type Contacts interface {
	GetContact(ctx context.Context, messageType, podID string) (*models.ContactRecord, error)
}

// SendLimiter ограничивает исходящий поток писем на получателя.
type SendLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Service превращает транзитные события в адресные письма получателям pod'ов.
type Service struct {
	contacts Contacts
	cache    cache.BytesCache
	gateway  mailgate.Client

	contactTTL time.Duration

	limiter     SendLimiter
	limitPerWin int64
	limitWindow time.Duration
}

func New(contacts Contacts, c cache.BytesCache, gateway mailgate.Client, contactTTL time.Duration) *Service {
	return &Service{contacts: contacts, cache: c, gateway: gateway, contactTTL: contactTTL}
}

// WithRateLimit включает ограничение исходящих писем на адрес получателя.
func (s *Service) WithRateLimit(limiter SendLimiter, perWindow int64, window time.Duration) *Service {
	s.limiter = limiter
	s.limitPerWin = perWindow
	s.limitWindow = window
	return s
}

// NotifyNextCoreInTransit рендерит и отправляет уведомление; возвращает
// delivery id шлюза.
func (s *Service) NotifyNextCoreInTransit(ctx context.Context, msg messages.NextCoreInTransitMessage) (string, error) {
	contact, err := s.getContact(ctx, msg.MessageType, msg.PodID)
	if err != nil {
		return "", err
	}
	return s.dispatch(ctx, msg, contact)
}

func (s *Service) dispatch(ctx context.Context, msg messages.NextCoreInTransitMessage, contact *models.ContactRecord) (string, error) {
	if err := s.checkRate(ctx, contact.EmailAddress); err != nil {
		return "", err
	}

	subject := "Next Core In Transit"
	htmlBody := fmt.Sprintf("<p>Core ID: %s</p><p>Status: %s</p><p>Status Date Time: %s</p>",
		msg.CoreID, msg.Status, msg.StatusDateTime.Format(time.RFC3339))
	textBody := fmt.Sprintf("Core ID: %s\nStatus: %s\nStatus Date Time: %s",
		msg.CoreID, msg.Status, msg.StatusDateTime.Format(time.RFC3339))

	id, err := s.gateway.Send(ctx, subject, htmlBody, textBody, contact.EmailAddress)
	if err != nil {
		return "", errors.Wrap(err, "gateway send")
	}
	return id, nil
}

// HandleTransitMessage — обработчик transit-топика. Сообщение завершается
// только после успешной отправки; кривой формат, отсутствующий контакт и отказ
// шлюза — в dead-letter, прочие сбои хранилища оставляют сообщение на
// передоставку.
func (s *Service) HandleTransitMessage(ctx context.Context, value []byte) (kafka.Outcome, error) {
	msg, err := messages.DecodeNextCoreInTransit(value)
	if err != nil {
		slog.Error("transit notice: bad body", "error", err.Error())
		return kafka.DeadLetter, nil
	}

	contact, err := s.getContact(ctx, msg.MessageType, msg.PodID)
	if errors.Is(err, pgfulfill.ErrNotFound) {
		slog.Error("transit notice: no contact", "pod_id", msg.PodID)
		return kafka.DeadLetter, nil
	}
	if err != nil {
		return kafka.Complete, errors.Wrap(err, "contact lookup")
	}

	deliveryID, err := s.dispatch(ctx, msg, contact)
	if errors.Is(err, ErrRateLimited) {
		// Подождём передоставки, письмо не теряем.
		return kafka.Complete, err
	}
	if err != nil {
		slog.Error("transit notice: dispatch failed", "pod_id", msg.PodID, "error", err.Error())
		return kafka.DeadLetter, nil
	}

	slog.Info("transit notice dispatched", "pod_id", msg.PodID, "delivery_id", deliveryID)
	return kafka.Complete, nil
}

// ErrRateLimited — на этот адрес уже ушло слишком много писем в окне.
var ErrRateLimited = errors.New("notifier: recipient rate limited")

// checkRate — best-effort: отказ самого лимитера не блокирует отправку.
func (s *Service) checkRate(ctx context.Context, recipient string) error {
	if s.limiter == nil {
		return nil
	}
	ok, n, err := s.limiter.Allow(ctx, "mailrate:"+recipient, s.limitPerWin, s.limitWindow)
	if err != nil {
		slog.Warn("mail rate limiter unavailable", "error", err.Error())
		return nil
	}
	if !ok {
		slog.Warn("mail rate limit hit", "recipient", recipient, "count", n)
		return ErrRateLimited
	}
	return nil
}

// getContact — read-through: промах кэша идёт в хранилище; ошибки кэша
// не фатальны.
func (s *Service) getContact(ctx context.Context, messageType, podID string) (*models.ContactRecord, error) {
	key := contactKey(messageType, podID)
	if s.cache != nil && s.contactTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var c models.ContactRecord
			if json.Unmarshal(b, &c) == nil {
				return &c, nil
			}
		}
	}

	c, err := s.contacts.GetContact(ctx, messageType, podID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.contactTTL > 0 {
		b, _ := json.Marshal(c)
		_ = s.cache.Set(ctx, key, b, s.contactTTL)
	}
	return c, nil
}

func contactKey(messageType, podID string) string {
	return fmt.Sprintf("contact:%s:%s", messageType, podID)
}
