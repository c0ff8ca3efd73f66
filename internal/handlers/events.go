// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quickres/quickres/internal/services/events"
)

type createEventRequest struct { //nolint:govet // fieldalignment: readability over optimization
	Name                   string    `json:"name"`
	Description            *string   `json:"description"`
	Location               *string   `json:"location"`
	StartTime              time.Time `json:"start_time"`
	EndTime                time.Time `json:"end_time"`
	Capacity               int       `json:"capacity"`
	MaxSpotsPerReservation int       `json:"max_spots_per_reservation"`
}

// CreateEvent publishes a new event.
func (h *Handlers) CreateEvent(c echo.Context) error {
	var req createEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "bad_request", Message: "invalid request body"})
	}

	event, err := h.events.Create(c.Request().Context(), events.CreateParams{
		Name:                   req.Name,
		Description:            req.Description,
		Location:               req.Location,
		StartTime:              req.StartTime,
		EndTime:                req.EndTime,
		Capacity:               req.Capacity,
		MaxSpotsPerReservation: req.MaxSpotsPerReservation,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, event)
}

// GetEvent returns an event with its remaining capacity and derived
// status.
func (h *Handlers) GetEvent(c echo.Context) error {
	view, err := h.events.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// ListEvents returns all events that have not ended yet.
func (h *Handlers) ListEvents(c echo.Context) error {
	views, err := h.events.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, views)
}

type updateEventRequest struct { //nolint:govet // fieldalignment: readability over optimization
	Name                   *string    `json:"name"`
	Description            *string    `json:"description"`
	Location               *string    `json:"location"`
	StartTime              *time.Time `json:"start_time"`
	EndTime                *time.Time `json:"end_time"`
	Capacity               *int       `json:"capacity"`
	MaxSpotsPerReservation *int       `json:"max_spots_per_reservation"`
}

// UpdateEvent applies a partial update to an event.
func (h *Handlers) UpdateEvent(c echo.Context) error {
	var req updateEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "bad_request", Message: "invalid request body"})
	}

	event, err := h.events.Update(c.Request().Context(), c.Param("id"), events.UpdateParams{
		Name:                   req.Name,
		Description:            req.Description,
		Location:               req.Location,
		StartTime:              req.StartTime,
		EndTime:                req.EndTime,
		Capacity:               req.Capacity,
		MaxSpotsPerReservation: req.MaxSpotsPerReservation,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, event)
}
