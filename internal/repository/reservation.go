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

// CreateReservation inserts a new reservation. The partial unique index
// on (event_id, user_email) rejects concurrent duplicates; the unique
// verification_token column rejects token collisions.
func (r *Repository) CreateReservation(ctx context.Context, res *models.Reservation) error {
	_, err := r.q(ctx).ExecContext(ctx,
		`INSERT INTO reservations (id, event_id, user_name, user_email, spot_count, status, verification_token, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.EventID, res.UserName, res.UserEmail, res.SpotCount,
		res.Status, res.VerificationToken, res.CreatedAt, res.UpdatedAt)
	if isUniqueViolation(err, "reservations.event_id, reservations.user_email") {
		return ErrDuplicateReservation
	}
	if isUniqueViolation(err, "reservations.verification_token") {
		return ErrDuplicateToken
	}
	return err
}

// GetReservation retrieves a reservation by ID.
func (r *Repository) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	return r.getReservation(ctx, `SELECT * FROM reservations WHERE id = ?`, id)
}

// GetReservationByVerificationToken retrieves the reservation owning the
// given verification token, whatever its status.
func (r *Repository) GetReservationByVerificationToken(ctx context.Context, token string) (*models.Reservation, error) {
	return r.getReservation(ctx, `SELECT * FROM reservations WHERE verification_token = ?`, token)
}

// FindActiveReservation returns the non-cancelled reservation for
// (event, email), or nil when there is none.
func (r *Repository) FindActiveReservation(ctx context.Context, eventID, email string) (*models.Reservation, error) {
	res, err := r.getReservation(ctx,
		`SELECT * FROM reservations WHERE event_id = ? AND user_email = ? AND status != 'cancelled'`,
		eventID, email)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return res, err
}

func (r *Repository) getReservation(ctx context.Context, query string, args ...any) (*models.Reservation, error) {
	var res models.Reservation
	err := r.q(ctx).GetContext(ctx, &res, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

// ConfirmReservation transitions a pending reservation to confirmed and
// stamps verified_at. The status guard makes the transition a no-op for
// anything but a pending row.
func (r *Repository) ConfirmReservation(ctx context.Context, id string, verifiedAt time.Time) error {
	return r.transitionReservation(ctx,
		`UPDATE reservations SET status = 'confirmed', verified_at = ?, updated_at = ?
		 WHERE id = ? AND status = 'pending'`,
		verifiedAt, verifiedAt, id)
}

// CancelReservation transitions a pending or confirmed reservation to
// cancelled, releasing its held spots.
func (r *Repository) CancelReservation(ctx context.Context, id string, now time.Time) error {
	return r.transitionReservation(ctx,
		`UPDATE reservations SET status = 'cancelled', updated_at = ?
		 WHERE id = ? AND status IN ('pending', 'confirmed')`,
		now, id)
}

func (r *Repository) transitionReservation(ctx context.Context, query string, args ...any) error {
	res, err := r.q(ctx).ExecContext(ctx, query, args...)
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

// ExpirePendingBefore cancels pending reservations created at or before
// the cutoff and reports how many were swept.
func (r *Repository) ExpirePendingBefore(ctx context.Context, cutoff, now time.Time) (int64, error) {
	res, err := r.q(ctx).ExecContext(ctx,
		`UPDATE reservations SET status = 'cancelled', updated_at = ?
		 WHERE status = 'pending' AND created_at <= ?`,
		now, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
