// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quickres/quickres/internal/models"
	"github.com/quickres/quickres/internal/services/reservations"
)

type createReservationRequest struct {
	EventID   string `json:"event_id"`
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	SpotCount int    `json:"spot_count"`
}

type createReservationResponse struct {
	ReservationID string                   `json:"reservation_id"`
	Status        models.ReservationStatus `json:"status"`
}

// CreateReservation reserves spots on an event and triggers the
// verification email.
func (h *Handlers) CreateReservation(c echo.Context) error {
	var req createReservationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "bad_request", Message: "invalid request body"})
	}

	reservation, err := h.reservations.Reserve(c.Request().Context(), reservations.ReserveParams{
		EventID:   req.EventID,
		UserName:  req.UserName,
		UserEmail: req.UserEmail,
		SpotCount: req.SpotCount,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, createReservationResponse{
		ReservationID: reservation.ID,
		Status:        reservation.Status,
	})
}

type verifyResponse struct { //nolint:govet // fieldalignment: readability over optimization
	ReservationID string                   `json:"reservation_id"`
	EventID       string                   `json:"event_id"`
	Status        models.ReservationStatus `json:"status"`
	VerifiedAt    *string                  `json:"verified_at,omitempty"`
	CheckInTokens []string                 `json:"check_in_tokens"`
}

// VerifyReservation confirms the reservation owning the presented
// verification token and returns the minted check-in tokens.
func (h *Handlers) VerifyReservation(c echo.Context) error {
	reservation, tokens, err := h.reservations.Verify(c.Request().Context(), c.Param("token"))
	if err != nil {
		return respondError(c, err)
	}

	resp := verifyResponse{
		ReservationID: reservation.ID,
		EventID:       reservation.EventID,
		Status:        reservation.Status,
		CheckInTokens: make([]string, 0, len(tokens)),
	}
	if reservation.VerifiedAt != nil {
		s := reservation.VerifiedAt.Format(time.RFC3339)
		resp.VerifiedAt = &s
	}
	for _, tok := range tokens {
		resp.CheckInTokens = append(resp.CheckInTokens, tok.Token)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetReservation returns a confirmed reservation with its check-in
// tokens, the target of the retrieval link in confirmation emails.
func (h *Handlers) GetReservation(c echo.Context) error {
	retrieved, err := h.reservations.Retrieve(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, retrieved)
}

// ScanCheckIn marks a check-in token as used, exactly once.
func (h *Handlers) ScanCheckIn(c echo.Context) error {
	result, err := h.reservations.CheckIn(c.Request().Context(), c.Param("token"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// CancelReservation cancels a reservation and invalidates its tokens.
func (h *Handlers) CancelReservation(c echo.Context) error {
	if err := h.reservations.Cancel(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
