// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/quickres/quickres/internal/clock"
	"github.com/quickres/quickres/internal/handlers"
	"github.com/quickres/quickres/internal/repository"
	"github.com/quickres/quickres/internal/services/events"
	"github.com/quickres/quickres/internal/services/notify"
	"github.com/quickres/quickres/internal/services/reservations"
	"github.com/quickres/quickres/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discardSender struct{}

func (discardSender) Send(context.Context, notify.Kind, string, notify.Data) error { return nil }

func newHandlers(t *testing.T) (*handlers.Handlers, *repository.Repository, *reservations.Service, *echo.Echo) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	clk := clock.NewFixed(time.Now())
	eventSvc := events.NewService(repo, clk, 30*time.Minute)
	resSvc := reservations.NewService(repo, clk, discardSender{})
	return handlers.New(eventSvc, resSvc), repo, resSvc, echo.New()
}

func TestHealth(t *testing.T) {
	h, _, _, e := newHandlers(t)
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/health", nil)

	err := h.Health(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateEvent(t *testing.T) {
	h, _, _, e := newHandlers(t)

	start := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	end := time.Now().UTC().Add(3 * time.Hour).Format(time.RFC3339)
	body := fmt.Sprintf(`{
		"name": "Meetup",
		"start_time": %q,
		"end_time": %q,
		"capacity": 40,
		"max_spots_per_reservation": 4
	}`, start, end)
	c, rec := testutil.NewEchoContext(e, http.MethodPost, "/api/events", strings.NewReader(body))

	err := h.CreateEvent(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Meetup", resp["name"])
	assert.NotEmpty(t, resp["id"])
}

func TestCreateEvent_Invalid(t *testing.T) {
	h, _, _, e := newHandlers(t)

	start := time.Now().UTC().Add(time.Hour).Format(time.RFC3339)
	end := time.Now().UTC().Add(3 * time.Hour).Format(time.RFC3339)
	body := fmt.Sprintf(`{"name": "", "start_time": %q, "end_time": %q, "capacity": 10, "max_spots_per_reservation": 2}`, start, end)
	c, rec := testutil.NewEchoContext(e, http.MethodPost, "/api/events", strings.NewReader(body))

	err := h.CreateEvent(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_event")
}

func TestGetEvent(t *testing.T) {
	h, repo, _, e := newHandlers(t)

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 2)
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/api/events/"+event.ID, nil)
	c.SetParamNames("id")
	c.SetParamValues(event.ID)

	err := h.GetEvent(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "open", resp["status"])
	assert.InDelta(t, 10, resp["remaining_capacity"], 0)
}

func TestGetEvent_NotFound(t *testing.T) {
	h, _, _, e := newHandlers(t)

	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/api/events/missing", nil)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	err := h.GetEvent(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "event_not_found")
}

func TestListEvents(t *testing.T) {
	h, repo, _, e := newHandlers(t)

	testutil.NewTestEvent(t, repo, "One", 10, 2)
	testutil.NewTestEvent(t, repo, "Two", 10, 2)
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/api/events", nil)

	err := h.ListEvents(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestUpdateEvent(t *testing.T) {
	h, repo, _, e := newHandlers(t)

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 2)
	c, rec := testutil.NewEchoContext(e, http.MethodPut, "/api/events/"+event.ID, strings.NewReader(`{"capacity": 15}`))
	c.SetParamNames("id")
	c.SetParamValues(event.ID)

	err := h.UpdateEvent(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 15, resp["capacity"], 0)
}

func TestUpdateEvent_FinishedConflicts(t *testing.T) {
	h, repo, _, e := newHandlers(t)

	event := testutil.NewFinishedEvent(t, repo, "Over")
	c, rec := testutil.NewEchoContext(e, http.MethodPut, "/api/events/"+event.ID, strings.NewReader(`{"name": "Renamed"}`))
	c.SetParamNames("id")
	c.SetParamValues(event.ID)

	err := h.UpdateEvent(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "event_finished")
}

func TestCreateReservation(t *testing.T) {
	h, repo, _, e := newHandlers(t)

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 4)
	body := fmt.Sprintf(`{"event_id": %q, "user_name": "Alice", "user_email": "alice@example.com", "spot_count": 2}`, event.ID)
	c, rec := testutil.NewEchoContext(e, http.MethodPost, "/api/reservations", strings.NewReader(body))

	err := h.CreateReservation(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp["status"])
	assert.NotEmpty(t, resp["reservation_id"])
	// The verification token travels by email only, never in the response.
	assert.NotContains(t, rec.Body.String(), "verification_token")
}

func TestCreateReservation_CapacityExceeded(t *testing.T) {
	h, repo, resSvc, e := newHandlers(t)
	ctx := context.Background()

	event := testutil.NewTestEvent(t, repo, "Tiny", 2, 2)
	_, err := resSvc.Reserve(ctx, reservations.ReserveParams{
		EventID: event.ID, UserName: "Alice", UserEmail: "alice@example.com", SpotCount: 2,
	})
	require.NoError(t, err)

	body := fmt.Sprintf(`{"event_id": %q, "user_name": "Bob", "user_email": "bob@example.com", "spot_count": 1}`, event.ID)
	c, rec := testutil.NewEchoContext(e, http.MethodPost, "/api/reservations", strings.NewReader(body))

	err = h.CreateReservation(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "capacity_exceeded")
}

func TestVerifyReservation(t *testing.T) {
	h, repo, resSvc, e := newHandlers(t)

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 4)
	res, err := resSvc.Reserve(context.Background(), reservations.ReserveParams{
		EventID: event.ID, UserName: "Alice", UserEmail: "alice@example.com", SpotCount: 2,
	})
	require.NoError(t, err)

	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/api/verify/"+res.VerificationToken, nil)
	c.SetParamNames("token")
	c.SetParamValues(res.VerificationToken)

	err = h.VerifyReservation(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status        string   `json:"status"`
		CheckInTokens []string `json:"check_in_tokens"`
		VerifiedAt    *string  `json:"verified_at"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "confirmed", resp.Status)
	assert.Len(t, resp.CheckInTokens, 2)
	assert.NotNil(t, resp.VerifiedAt)
}

func TestVerifyReservation_UnknownToken(t *testing.T) {
	h, _, _, e := newHandlers(t)

	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/api/verify/bogus", nil)
	c.SetParamNames("token")
	c.SetParamValues("bogus")

	err := h.VerifyReservation(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_token")
}

func TestScanCheckIn(t *testing.T) {
	h, repo, resSvc, e := newHandlers(t)
	ctx := context.Background()

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 4)
	res, err := resSvc.Reserve(ctx, reservations.ReserveParams{
		EventID: event.ID, UserName: "Alice", UserEmail: "alice@example.com", SpotCount: 1,
	})
	require.NoError(t, err)
	_, tokens, err := resSvc.Verify(ctx, res.VerificationToken)
	require.NoError(t, err)

	c, rec := testutil.NewEchoContext(e, http.MethodPost, "/api/scan/"+tokens[0].Token, nil)
	c.SetParamNames("token")
	c.SetParamValues(tokens[0].Token)

	err = h.ScanCheckIn(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), res.ID)

	// A second scan of the same token conflicts.
	c, rec = testutil.NewEchoContext(e, http.MethodPost, "/api/scan/"+tokens[0].Token, nil)
	c.SetParamNames("token")
	c.SetParamValues(tokens[0].Token)

	err = h.ScanCheckIn(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "token_already_used")
}

func TestGetReservation(t *testing.T) {
	h, repo, resSvc, e := newHandlers(t)
	ctx := context.Background()

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 4)
	res, err := resSvc.Reserve(ctx, reservations.ReserveParams{
		EventID: event.ID, UserName: "Alice", UserEmail: "alice@example.com", SpotCount: 2,
	})
	require.NoError(t, err)
	_, _, err = resSvc.Verify(ctx, res.VerificationToken)
	require.NoError(t, err)

	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/api/reservations/"+res.ID, nil)
	c.SetParamNames("id")
	c.SetParamValues(res.ID)

	err = h.GetReservation(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Reservation struct {
			ID string `json:"id"`
		} `json:"reservation"`
		CheckInTokens []map[string]any `json:"check_in_tokens"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, res.ID, resp.Reservation.ID)
	assert.Len(t, resp.CheckInTokens, 2)
}

func TestGetReservation_PendingConflicts(t *testing.T) {
	h, repo, resSvc, e := newHandlers(t)

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 4)
	res, err := resSvc.Reserve(context.Background(), reservations.ReserveParams{
		EventID: event.ID, UserName: "Alice", UserEmail: "alice@example.com", SpotCount: 1,
	})
	require.NoError(t, err)

	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/api/reservations/"+res.ID, nil)
	c.SetParamNames("id")
	c.SetParamValues(res.ID)

	err = h.GetReservation(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "reservation_not_confirmed")
}

func TestCancelReservation(t *testing.T) {
	h, repo, resSvc, e := newHandlers(t)

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 4)
	res, err := resSvc.Reserve(context.Background(), reservations.ReserveParams{
		EventID: event.ID, UserName: "Alice", UserEmail: "alice@example.com", SpotCount: 1,
	})
	require.NoError(t, err)

	c, rec := testutil.NewEchoContext(e, http.MethodDelete, "/api/reservations/"+res.ID, nil)
	c.SetParamNames("id")
	c.SetParamValues(res.ID)

	err = h.CancelReservation(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCancelReservation_NotFound(t *testing.T) {
	h, _, _, e := newHandlers(t)

	c, rec := testutil.NewEchoContext(e, http.MethodDelete, "/api/reservations/missing", nil)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	err := h.CancelReservation(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "reservation_not_found")
}
