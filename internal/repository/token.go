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

// CreateCheckInToken inserts a new check-in token. The unique token
// column is the hard uniqueness guarantee; callers regenerate and retry
// on ErrDuplicateToken.
func (r *Repository) CreateCheckInToken(ctx context.Context, tok *models.CheckInToken) error {
	_, err := r.q(ctx).ExecContext(ctx,
		`INSERT INTO reservation_tokens (id, reservation_id, token, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		tok.ID, tok.ReservationID, tok.Token, tok.Status, tok.CreatedAt)
	if isUniqueViolation(err, "reservation_tokens.token") {
		return ErrDuplicateToken
	}
	return err
}

// GetCheckInToken retrieves a check-in token by its token string.
func (r *Repository) GetCheckInToken(ctx context.Context, token string) (*models.CheckInToken, error) {
	var tok models.CheckInToken
	err := r.q(ctx).GetContext(ctx, &tok, `SELECT * FROM reservation_tokens WHERE token = ?`, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tok, nil
}

// ListCheckInTokens returns all check-in tokens of a reservation in
// insertion order. A batch minted in one transaction shares a single
// created_at, so rowid is the only stable ordering.
func (r *Repository) ListCheckInTokens(ctx context.Context, reservationID string) ([]models.CheckInToken, error) {
	var tokens []models.CheckInToken
	err := r.q(ctx).SelectContext(ctx, &tokens,
		`SELECT * FROM reservation_tokens WHERE reservation_id = ? ORDER BY rowid`, reservationID)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// UseCheckInToken atomically flips a token from active to used. The
// status guard in the WHERE clause makes the transition exactly-once:
// of any number of concurrent scans, one update reports a row affected
// and all others report zero.
func (r *Repository) UseCheckInToken(ctx context.Context, token string, usedAt time.Time) (bool, error) {
	res, err := r.q(ctx).ExecContext(ctx,
		`UPDATE reservation_tokens SET status = 'used', used_at = ?
		 WHERE token = ? AND status = 'active'`,
		usedAt, token)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ExpireReservationTokens invalidates all still-active tokens of a
// reservation so they can no longer be scanned.
func (r *Repository) ExpireReservationTokens(ctx context.Context, reservationID string) error {
	_, err := r.q(ctx).ExecContext(ctx,
		`UPDATE reservation_tokens SET status = 'expired'
		 WHERE reservation_id = ? AND status = 'active'`,
		reservationID)
	return err
}
