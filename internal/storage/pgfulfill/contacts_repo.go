package pgfulfill

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/coolrevive/corefulfill/internal/models"
)

func (s *Storage) GetContact(ctx context.Context, messageType, podID string) (*models.ContactRecord, error) {
	var c models.ContactRecord
	err := s.db.QueryRow(ctx, `
SELECT message_type, pod_id, email_address
FROM contact_list
WHERE message_type = $1 AND pod_id = $2
`, messageType, podID).Scan(&c.MessageType, &c.PodID, &c.EmailAddress)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select contact")
	}
	return &c, nil
}

func (s *Storage) UpsertContact(ctx context.Context, c *models.ContactRecord) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO contact_list (message_type, pod_id, email_address)
VALUES ($1,$2,$3)
ON CONFLICT (message_type, pod_id) DO UPDATE SET email_address = EXCLUDED.email_address
`, c.MessageType, c.PodID, c.EmailAddress)
	return errors.Wrap(err, "upsert contact")
}
