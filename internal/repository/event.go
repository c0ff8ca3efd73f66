// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/quickres/quickres/internal/models"
)

// CreateEvent inserts a new event.
func (r *Repository) CreateEvent(ctx context.Context, event *models.Event) error {
	_, err := r.q(ctx).ExecContext(ctx,
		`INSERT INTO events (id, name, description, location, start_time, end_time, capacity, max_spots_per_reservation, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Name, event.Description, event.Location,
		event.StartTime, event.EndTime, event.Capacity, event.MaxSpotsPerReservation,
		event.CreatedAt, event.UpdatedAt)
	return err
}

// GetEvent retrieves an event by ID.
func (r *Repository) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := r.q(ctx).GetContext(ctx, &event, `SELECT * FROM events WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &event, nil
}

// UpdateEvent persists changes to an existing event.
func (r *Repository) UpdateEvent(ctx context.Context, event *models.Event) error {
	res, err := r.q(ctx).ExecContext(ctx,
		`UPDATE events SET name = ?, description = ?, location = ?, start_time = ?, end_time = ?,
		        capacity = ?, max_spots_per_reservation = ?, updated_at = ?
		 WHERE id = ?`,
		event.Name, event.Description, event.Location, event.StartTime, event.EndTime,
		event.Capacity, event.MaxSpotsPerReservation, event.UpdatedAt, event.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUpcomingEvents returns events that have not ended yet, ordered by
// start time.
func (r *Repository) ListUpcomingEvents(ctx context.Context, now time.Time) ([]models.Event, error) {
	var events []models.Event
	err := r.q(ctx).SelectContext(ctx, &events,
		`SELECT * FROM events WHERE end_time > ? ORDER BY start_time ASC`, now)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// SumHeldSpots returns the number of spots held against an event:
// confirmed reservations plus pending ones created after the expiry
// cutoff. Stale pendings are excluded here, which is what releases their
// spots back into remaining capacity without a background sweep.
func (r *Repository) SumHeldSpots(ctx context.Context, eventID string, pendingCutoff time.Time) (int, error) {
	var total int
	err := r.q(ctx).GetContext(ctx, &total,
		`SELECT COALESCE(SUM(spot_count), 0) FROM reservations
		 WHERE event_id = ?
		   AND (status = 'confirmed' OR (status = 'pending' AND created_at > ?))`,
		eventID, pendingCutoff)
	if err != nil {
		return 0, err
	}
	return total, nil
}
