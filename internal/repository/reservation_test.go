// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quickres/quickres/internal/models"
	"github.com/quickres/quickres/internal/repository"
	"github.com/quickres/quickres/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReservation(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 2)
	res := testutil.NewTestReservation(t, repo, event.ID, "alice@example.com", "tok-1", 2)

	got, err := repo.GetReservation(ctx, res.ID)

	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.UserEmail)
	assert.Equal(t, models.ReservationPending, got.Status)
	assert.Equal(t, 2, got.SpotCount)
}

func TestCreateReservation_DuplicateEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 2)
	testutil.NewTestReservation(t, repo, event.ID, "alice@example.com", "tok-1", 1)

	now := time.Now().UTC()
	dup := &models.Reservation{
		ID:                uuid.NewString(),
		EventID:           event.ID,
		UserName:          "Alice Again",
		UserEmail:         "alice@example.com",
		SpotCount:         1,
		Status:            models.ReservationPending,
		VerificationToken: "tok-2",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err := repo.CreateReservation(ctx, dup)

	assert.ErrorIs(t, err, repository.ErrDuplicateReservation)
}

func TestCreateReservation_CancelledFreesEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 2)
	first := testutil.NewTestReservation(t, repo, event.ID, "alice@example.com", "tok-1", 1)
	require.NoError(t, repo.CancelReservation(ctx, first.ID, time.Now().UTC()))

	// The partial index ignores cancelled rows, so the email can book again.
	second := testutil.NewTestReservation(t, repo, event.ID, "alice@example.com", "tok-2", 1)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateReservation_DuplicateVerificationToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 2)
	testutil.NewTestReservation(t, repo, event.ID, "alice@example.com", "tok-1", 1)

	now := time.Now().UTC()
	dup := &models.Reservation{
		ID:                uuid.NewString(),
		EventID:           event.ID,
		UserName:          "Bob",
		UserEmail:         "bob@example.com",
		SpotCount:         1,
		Status:            models.ReservationPending,
		VerificationToken: "tok-1",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err := repo.CreateReservation(ctx, dup)

	assert.ErrorIs(t, err, repository.ErrDuplicateToken)
}

func TestGetReservationByVerificationToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 2)
	res := testutil.NewTestReservation(t, repo, event.ID, "alice@example.com", "tok-1", 1)

	got, err := repo.GetReservationByVerificationToken(ctx, "tok-1")

	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)
}

func TestGetReservationByVerificationToken_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetReservationByVerificationToken(context.Background(), "nope")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestFindActiveReservation(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 2)
	res := testutil.NewTestReservation(t, repo, event.ID, "alice@example.com", "tok-1", 1)

	got, err := repo.FindActiveReservation(ctx, event.ID, "alice@example.com")

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, res.ID, got.ID)
}

func TestFindActiveReservation_None(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 2)

	got, err := repo.FindActiveReservation(context.Background(), event.ID, "nobody@example.com")

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConfirmReservation(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 2)
	res := testutil.NewTestReservation(t, repo, event.ID, "alice@example.com", "tok-1", 1)

	verifiedAt := time.Now().UTC().Truncate(time.Second)
	err := repo.ConfirmReservation(ctx, res.ID, verifiedAt)

	require.NoError(t, err)

	got, err := repo.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationConfirmed, got.Status)
	require.NotNil(t, got.VerifiedAt)
}

func TestConfirmReservation_AlreadyConfirmed(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 2)
	res := testutil.NewTestReservation(t, repo, event.ID, "alice@example.com", "tok-1", 1)
	require.NoError(t, repo.ConfirmReservation(ctx, res.ID, time.Now().UTC()))

	err := repo.ConfirmReservation(ctx, res.ID, time.Now().UTC())

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCancelReservation(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 2)
	res := testutil.NewTestReservation(t, repo, event.ID, "alice@example.com", "tok-1", 1)

	err := repo.CancelReservation(ctx, res.ID, time.Now().UTC())

	require.NoError(t, err)

	got, err := repo.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCancelled, got.Status)
}

func TestCancelReservation_AlreadyCancelled(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 2)
	res := testutil.NewTestReservation(t, repo, event.ID, "alice@example.com", "tok-1", 1)
	require.NoError(t, repo.CancelReservation(ctx, res.ID, time.Now().UTC()))

	err := repo.CancelReservation(ctx, res.ID, time.Now().UTC())

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestExpirePendingBefore(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 2)
	stale := testutil.NewTestReservation(t, repo, event.ID, "stale@example.com", "tok-1", 1)
	confirmed := testutil.NewTestReservation(t, repo, event.ID, "done@example.com", "tok-2", 1)
	require.NoError(t, repo.ConfirmReservation(ctx, confirmed.ID, time.Now().UTC()))

	swept, err := repo.ExpirePendingBefore(ctx, time.Now().UTC().Add(time.Minute), time.Now().UTC())

	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	got, err := repo.GetReservation(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCancelled, got.Status)

	kept, err := repo.GetReservation(ctx, confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationConfirmed, kept.Status)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 2)

	sentinel := repository.ErrNotFound
	err := repo.WithTx(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		res := &models.Reservation{
			ID:                uuid.NewString(),
			EventID:           event.ID,
			UserName:          "Alice",
			UserEmail:         "alice@example.com",
			SpotCount:         1,
			Status:            models.ReservationPending,
			VerificationToken: "tok-rollback",
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := repo.CreateReservation(ctx, res); err != nil {
			return err
		}
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)

	got, err := repo.FindActiveReservation(ctx, event.ID, "alice@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestWithTx_Nested(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	event := testutil.NewTestEvent(t, repo, "Meetup", 10, 2)

	err := repo.WithTx(ctx, func(ctx context.Context) error {
		return repo.WithTx(ctx, func(ctx context.Context) error {
			_, err := repo.GetEvent(ctx, event.ID)
			return err
		})
	})

	require.NoError(t, err)
}
