// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// EventStatus is derived from capacity and time, never stored.
type EventStatus string

const (
	EventOpen     EventStatus = "open"
	EventFull     EventStatus = "full"
	EventFinished EventStatus = "finished"
)

// Event is a published event with a finite capacity.
type Event struct { //nolint:govet // fieldalignment: readability over optimization
	ID                     string    `db:"id" json:"id"`
	Name                   string    `db:"name" json:"name"`
	Description            *string   `db:"description" json:"description,omitempty"`
	Location               *string   `db:"location" json:"location,omitempty"`
	StartTime              time.Time `db:"start_time" json:"start_time"`
	EndTime                time.Time `db:"end_time" json:"end_time"`
	Capacity               int       `db:"capacity" json:"capacity"`
	MaxSpotsPerReservation int       `db:"max_spots_per_reservation" json:"max_spots_per_reservation"`
	CreatedAt              time.Time `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time `db:"updated_at" json:"updated_at"`
}

// Status derives the event status from the remaining capacity at a
// point in time. The stored rows carry no status column; remaining is
// always recomputed from live reservation sums.
func (e *Event) Status(remaining int, now time.Time) EventStatus {
	switch {
	case !now.Before(e.EndTime):
		return EventFinished
	case remaining <= 0:
		return EventFull
	default:
		return EventOpen
	}
}

// Finished reports whether the event has ended.
func (e *Event) Finished(now time.Time) bool {
	return !now.Before(e.EndTime)
}
