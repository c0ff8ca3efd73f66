// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers exposes the reservation engine over JSON endpoints.
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quickres/quickres/internal/services/events"
	"github.com/quickres/quickres/internal/services/reservations"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	events       *events.Service
	reservations *reservations.Service
}

// New creates a new Handlers instance.
func New(events *events.Service, reservations *reservations.Service) *Handlers {
	return &Handlers{events: events, reservations: reservations}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
