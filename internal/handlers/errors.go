// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quickres/quickres/internal/services/events"
	"github.com/quickres/quickres/internal/services/reservations"
)

// errorBody is the JSON shape of every error response. The error code is
// stable so clients can distinguish "you already reserved" from "event
// is full" without parsing messages.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// respondError maps domain errors to HTTP responses.
func respondError(c echo.Context, err error) error {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "path", c.Path(), "error", err)
		return c.JSON(status, errorBody{Error: code, Message: "internal error"})
	}
	return c.JSON(status, errorBody{Error: code, Message: err.Error()})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, events.ErrNotFound),
		errors.Is(err, reservations.ErrEventNotFound):
		return http.StatusNotFound, "event_not_found"
	case errors.Is(err, reservations.ErrReservationNotFound):
		return http.StatusNotFound, "reservation_not_found"
	case errors.Is(err, reservations.ErrInvalidToken):
		return http.StatusNotFound, "invalid_token"

	case errors.Is(err, reservations.ErrDuplicateReservation):
		return http.StatusConflict, "duplicate_reservation"
	case errors.Is(err, reservations.ErrCapacityExceeded):
		return http.StatusConflict, "capacity_exceeded"
	case errors.Is(err, reservations.ErrTokenAlreadyUsed):
		return http.StatusConflict, "token_already_used"
	case errors.Is(err, reservations.ErrNotConfirmed):
		return http.StatusConflict, "reservation_not_confirmed"
	case errors.Is(err, events.ErrFinished):
		return http.StatusConflict, "event_finished"

	case errors.Is(err, reservations.ErrVerificationExpired):
		return http.StatusGone, "verification_expired"
	case errors.Is(err, reservations.ErrTokenExpired):
		return http.StatusGone, "token_expired"

	case errors.Is(err, reservations.ErrEventClosed):
		return http.StatusBadRequest, "event_closed"
	case errors.Is(err, reservations.ErrInvalidSpotCount),
		errors.Is(err, reservations.ErrSpotLimitExceeded):
		return http.StatusBadRequest, "invalid_spot_count"
	case errors.Is(err, reservations.ErrInvalidEmail):
		return http.StatusBadRequest, "invalid_email"
	case errors.Is(err, events.ErrInvalidName),
		errors.Is(err, events.ErrInvalidSchedule),
		errors.Is(err, events.ErrInvalidCapacity),
		errors.Is(err, events.ErrInvalidMaxSpots):
		return http.StatusBadRequest, "invalid_event"

	default:
		return http.StatusInternalServerError, "internal"
	}
}
