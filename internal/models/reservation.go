// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// ReservationStatus is the closed set of reservation lifecycle states.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation holds spots against an event. It is created pending with a
// verification token and confirmed once the requester proves control of
// their email address.
type Reservation struct { //nolint:govet // fieldalignment: readability over optimization
	ID                string            `db:"id" json:"id"`
	EventID           string            `db:"event_id" json:"event_id"`
	UserName          string            `db:"user_name" json:"user_name"`
	UserEmail         string            `db:"user_email" json:"user_email"`
	SpotCount         int               `db:"spot_count" json:"spot_count"`
	Status            ReservationStatus `db:"status" json:"status"`
	VerificationToken string            `db:"verification_token" json:"-"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at" json:"updated_at"`
	VerifiedAt        *time.Time        `db:"verified_at" json:"verified_at,omitempty"`
}
