// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// TokenStatus is the closed set of check-in token states.
type TokenStatus string

const (
	TokenActive  TokenStatus = "active"
	TokenUsed    TokenStatus = "used"
	TokenExpired TokenStatus = "expired"
)

// CheckInToken admits one seat of a confirmed reservation. Tokens are
// minted at confirmation time, one per reserved spot, and transition to
// used exactly once at scan time.
type CheckInToken struct { //nolint:govet // fieldalignment: readability over optimization
	ID            string      `db:"id" json:"id"`
	ReservationID string      `db:"reservation_id" json:"reservation_id"`
	Token         string      `db:"token" json:"token"`
	Status        TokenStatus `db:"status" json:"status"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	UsedAt        *time.Time  `db:"used_at" json:"used_at,omitempty"`
}
