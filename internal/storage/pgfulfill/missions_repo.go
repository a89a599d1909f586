package pgfulfill

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/coolrevive/corefulfill/internal/models"
)

func (s *Storage) InsertMission(ctx context.Context, m *models.ConveyanceMission) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(ctx, `
INSERT INTO conveyance_missions (
  conveyance_unit, mission_id, origin, destination, tag_id,
  mission_status, dispatch_datetime, version, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,0,$8,$8)
`, m.ConveyanceUnit, m.MissionID, m.Origin, m.Destination, m.TagID,
		m.MissionStatus, m.DispatchDateTime, now)
	if err != nil {
		return errors.Wrap(err, "insert mission")
	}
	m.Version = 0
	return nil
}

func (s *Storage) ListMissions(ctx context.Context, conveyanceUnit, status string) ([]*models.ConveyanceMission, error) {
	rows, err := s.db.Query(ctx, `
SELECT conveyance_unit, mission_id, origin, destination, tag_id,
       mission_status, dispatch_datetime, mission_start, mission_end,
       version, created_at, updated_at
FROM conveyance_missions
WHERE conveyance_unit = $1 AND mission_status = $2
ORDER BY dispatch_datetime ASC
`, conveyanceUnit, status)
	if err != nil {
		return nil, errors.Wrap(err, "select missions")
	}
	defer rows.Close()

	var out []*models.ConveyanceMission
	for rows.Next() {
		var m models.ConveyanceMission
		if err := rows.Scan(
			&m.ConveyanceUnit, &m.MissionID, &m.Origin, &m.Destination, &m.TagID,
			&m.MissionStatus, &m.DispatchDateTime, &m.MissionStart, &m.MissionEnd,
			&m.Version, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan mission")
		}
		out = append(out, &m)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// UpdateMissionStatus переводит миссию в новый статус по version-токену.
// started проставляет mission_start, completed — mission_end.
func (s *Storage) UpdateMissionStatus(ctx context.Context, m *models.ConveyanceMission, status string) error {
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
UPDATE conveyance_missions
SET mission_status = $1,
    mission_start = CASE WHEN $1 = 'started' THEN $2 ELSE mission_start END,
    mission_end   = CASE WHEN $1 = 'completed' THEN $2 ELSE mission_end END,
    version = version + 1,
    updated_at = now()
WHERE conveyance_unit = $3 AND mission_id = $4 AND version = $5
`, status, now, m.ConveyanceUnit, m.MissionID, m.Version)
	if err != nil {
		return errors.Wrap(err, "update mission status")
	}
	if tag.RowsAffected() == 0 {
		return ErrConcurrencyConflict
	}
	m.MissionStatus = status
	switch status {
	case models.StatusStarted:
		m.MissionStart = &now
	case models.StatusCompleted:
		m.MissionEnd = &now
	}
	m.Version++
	return nil
}
