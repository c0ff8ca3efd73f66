// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/quickres/quickres/internal/database"
	"github.com/quickres/quickres/internal/models"
	"github.com/quickres/quickres/internal/repository"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestEvent creates an event in the database. The event starts one hour
// from now and runs for two hours, so it accepts reservations.
func NewTestEvent(t *testing.T, repo *repository.Repository, name string, capacity, maxSpots int) *models.Event {
	t.Helper()
	now := time.Now().UTC()
	event := &models.Event{
		ID:                     uuid.NewString(),
		Name:                   name,
		Capacity:               capacity,
		MaxSpotsPerReservation: maxSpots,
		StartTime:              now.Add(time.Hour),
		EndTime:                now.Add(3 * time.Hour),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	require.NoError(t, repo.CreateEvent(context.Background(), event))
	return event
}

// NewFinishedEvent creates an event whose end time is already in the past.
func NewFinishedEvent(t *testing.T, repo *repository.Repository, name string) *models.Event {
	t.Helper()
	now := time.Now().UTC()
	event := &models.Event{
		ID:                     uuid.NewString(),
		Name:                   name,
		Capacity:               10,
		MaxSpotsPerReservation: 4,
		StartTime:              now.Add(-3 * time.Hour),
		EndTime:                now.Add(-time.Hour),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	require.NoError(t, repo.CreateEvent(context.Background(), event))
	return event
}

// NewTestReservation creates a pending reservation with the given
// verification token.
func NewTestReservation(t *testing.T, repo *repository.Repository, eventID, email, token string, spots int) *models.Reservation {
	t.Helper()
	now := time.Now().UTC()
	res := &models.Reservation{
		ID:                uuid.NewString(),
		EventID:           eventID,
		UserName:          "Test User",
		UserEmail:         email,
		SpotCount:         spots,
		Status:            models.ReservationPending,
		VerificationToken: token,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, repo.CreateReservation(context.Background(), res))
	return res
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}
