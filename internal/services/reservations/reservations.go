// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package reservations implements the reservation allocator and the
// reservation/token lifecycle state machines.
//
// Every mutating operation runs as one transaction against the store, so
// the capacity check and the insert (or the status guard and the update)
// are observed as a single unit of work by all concurrent callers.
package reservations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/quickres/quickres/internal/clock"
	"github.com/quickres/quickres/internal/models"
	"github.com/quickres/quickres/internal/repository"
	"github.com/quickres/quickres/internal/services/notify"
	"github.com/quickres/quickres/internal/token"
)

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrEventClosed          = errors.New("event is no longer open for reservations")
	ErrDuplicateReservation = errors.New("a reservation for this event and email already exists")
	ErrCapacityExceeded     = errors.New("not enough spots remaining")
	ErrInvalidSpotCount     = errors.New("spot count must be at least one")
	ErrSpotLimitExceeded    = errors.New("spot count exceeds the per-reservation limit")
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrInvalidToken         = errors.New("unknown token")
	ErrVerificationExpired  = errors.New("verification window has elapsed")
	ErrTokenAlreadyUsed     = errors.New("check-in token already used")
	ErrTokenExpired         = errors.New("check-in token expired")
	ErrNotConfirmed         = errors.New("reservation is not confirmed yet")
)

const (
	defaultVerificationTTL  = 30 * time.Minute
	defaultTokenAttempts    = 5
	notificationSendTimeout = 30 * time.Second
)

// Store is the data access the reservation service needs.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetEvent(ctx context.Context, id string) (*models.Event, error)
	SumHeldSpots(ctx context.Context, eventID string, pendingCutoff time.Time) (int, error)

	CreateReservation(ctx context.Context, res *models.Reservation) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	GetReservationByVerificationToken(ctx context.Context, token string) (*models.Reservation, error)
	FindActiveReservation(ctx context.Context, eventID, email string) (*models.Reservation, error)
	ConfirmReservation(ctx context.Context, id string, verifiedAt time.Time) error
	CancelReservation(ctx context.Context, id string, now time.Time) error
	ExpirePendingBefore(ctx context.Context, cutoff, now time.Time) (int64, error)

	CreateCheckInToken(ctx context.Context, tok *models.CheckInToken) error
	GetCheckInToken(ctx context.Context, token string) (*models.CheckInToken, error)
	ListCheckInTokens(ctx context.Context, reservationID string) ([]models.CheckInToken, error)
	UseCheckInToken(ctx context.Context, token string, usedAt time.Time) (bool, error)
	ExpireReservationTokens(ctx context.Context, reservationID string) error
}

// Service drives reservations and check-in tokens through their
// lifecycles.
type Service struct { //nolint:govet // fieldalignment: readability over optimization
	store            Store
	clock            clock.Clock
	notifier         notify.Sender
	verificationTTL  time.Duration
	tokenAttempts    int
	allowLateCheckIn bool
}

// Option configures the service.
type Option func(*Service)

// WithVerificationTTL overrides the window within which a pending
// reservation must be verified.
func WithVerificationTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.verificationTTL = d
		}
	}
}

// WithTokenAttempts overrides how often token generation is retried on a
// uniqueness collision.
func WithTokenAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.tokenAttempts = n
		}
	}
}

// WithLateCheckIn controls whether check-in tokens may still be scanned
// after the event has finished.
func WithLateCheckIn(allow bool) Option {
	return func(s *Service) {
		s.allowLateCheckIn = allow
	}
}

// NewService creates a reservation service.
func NewService(store Store, clk clock.Clock, notifier notify.Sender, opts ...Option) *Service {
	svc := &Service{
		store:            store,
		clock:            clk,
		notifier:         notifier,
		verificationTTL:  defaultVerificationTTL,
		tokenAttempts:    defaultTokenAttempts,
		allowLateCheckIn: true,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// VerificationTTL returns the configured verification window.
func (s *Service) VerificationTTL() time.Duration {
	return s.verificationTTL
}

// ReserveParams holds a reservation request.
type ReserveParams struct {
	EventID   string
	UserName  string
	UserEmail string
	SpotCount int
}

// Reserve atomically admits or rejects a reservation request against the
// event's remaining capacity. On success the reservation is pending and
// a verification notification is dispatched.
func (s *Service) Reserve(ctx context.Context, params ReserveParams) (*models.Reservation, error) {
	if params.SpotCount < 1 {
		return nil, ErrInvalidSpotCount
	}
	if _, err := mail.ParseAddress(params.UserEmail); err != nil {
		return nil, ErrInvalidEmail
	}

	var (
		reservation *models.Reservation
		event       *models.Event
	)

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()

		var err error
		event, err = s.store.GetEvent(txCtx, params.EventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEventNotFound
			}
			return err
		}
		if event.Finished(now) {
			return ErrEventClosed
		}
		if params.SpotCount > event.MaxSpotsPerReservation {
			return ErrSpotLimitExceeded
		}

		existing, err := s.store.FindActiveReservation(txCtx, event.ID, params.UserEmail)
		if err != nil {
			return err
		}
		if existing != nil {
			stale := existing.Status == models.ReservationPending &&
				!existing.CreatedAt.After(now.Add(-s.verificationTTL))
			if !stale {
				return ErrDuplicateReservation
			}
			// The earlier attempt was never verified and its hold has
			// lapsed; sweep it so the unique index admits the retry.
			if err := s.store.CancelReservation(txCtx, existing.ID, now); err != nil {
				return err
			}
		}

		held, err := s.store.SumHeldSpots(txCtx, event.ID, now.Add(-s.verificationTTL))
		if err != nil {
			return err
		}
		if params.SpotCount > event.Capacity-held {
			return ErrCapacityExceeded
		}

		reservation, err = s.insertReservation(txCtx, event.ID, params, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.dispatch(ctx, notify.KindVerificationRequested, reservation.UserEmail, notify.Data{
		"user_name":          reservation.UserName,
		"event_name":         event.Name,
		"spot_count":         reservation.SpotCount,
		"verification_token": reservation.VerificationToken,
		"ttl_minutes":        int(s.verificationTTL.Minutes()),
	})

	return reservation, nil
}

// insertReservation creates the pending row, regenerating the
// verification token if it collides with an existing one. The unique
// index on (event_id, user_email) is the backstop for the duplicate
// pre-check losing a race.
func (s *Service) insertReservation(ctx context.Context, eventID string, params ReserveParams, now time.Time) (*models.Reservation, error) {
	for attempt := 0; attempt < s.tokenAttempts; attempt++ {
		verificationToken, err := token.New()
		if err != nil {
			return nil, err
		}

		reservation := &models.Reservation{
			ID:                uuid.NewString(),
			EventID:           eventID,
			UserName:          params.UserName,
			UserEmail:         params.UserEmail,
			SpotCount:         params.SpotCount,
			Status:            models.ReservationPending,
			VerificationToken: verificationToken,
			CreatedAt:         now,
			UpdatedAt:         now,
		}

		err = s.store.CreateReservation(ctx, reservation)
		switch {
		case err == nil:
			return reservation, nil
		case errors.Is(err, repository.ErrDuplicateReservation):
			return nil, ErrDuplicateReservation
		case errors.Is(err, repository.ErrDuplicateToken):
			continue
		default:
			return nil, err
		}
	}
	return nil, fmt.Errorf("could not generate a unique verification token after %d attempts", s.tokenAttempts)
}

// Verify confirms the pending reservation owning the given verification
// token, mints one active check-in token per reserved spot and
// dispatches a confirmation notification.
//
// Re-presenting the token of an already confirmed reservation is a
// no-op success returning the previously minted batch; retried
// verification emails are normal client behavior.
func (s *Service) Verify(ctx context.Context, verificationToken string) (*models.Reservation, []models.CheckInToken, error) {
	var (
		reservation *models.Reservation
		tokens      []models.CheckInToken
		confirmed   bool
		expired     bool
		eventName   string
	)

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()

		var err error
		reservation, err = s.store.GetReservationByVerificationToken(txCtx, verificationToken)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidToken
			}
			return err
		}

		switch reservation.Status {
		case models.ReservationConfirmed:
			// Idempotent re-verify: hand back the existing batch.
			tokens, err = s.store.ListCheckInTokens(txCtx, reservation.ID)
			return err

		case models.ReservationCancelled:
			return ErrVerificationExpired

		case models.ReservationPending:
			if !reservation.CreatedAt.After(now.Add(-s.verificationTTL)) {
				// Window elapsed while the row was still pending; sweep it
				// now rather than waiting for housekeeping. The error is
				// surfaced after the transaction so the cancel commits.
				if err := s.store.CancelReservation(txCtx, reservation.ID, now); err != nil {
					return err
				}
				expired = true
				return nil
			}

			event, err := s.store.GetEvent(txCtx, reservation.EventID)
			if err != nil {
				return err
			}
			eventName = event.Name

			if err := s.store.ConfirmReservation(txCtx, reservation.ID, now); err != nil {
				return err
			}
			reservation.Status = models.ReservationConfirmed
			reservation.VerifiedAt = &now
			reservation.UpdatedAt = now

			tokens, err = s.mintCheckInTokens(txCtx, reservation.ID, reservation.SpotCount, now)
			if err != nil {
				return err
			}
			confirmed = true
			return nil
		}
		return fmt.Errorf("reservation %s has unknown status %q", reservation.ID, reservation.Status)
	})
	if err != nil {
		return nil, nil, err
	}
	if expired {
		return nil, nil, ErrVerificationExpired
	}

	if confirmed {
		tokenStrings := make([]string, len(tokens))
		for i, tok := range tokens {
			tokenStrings[i] = tok.Token
		}
		s.dispatch(ctx, notify.KindReservationConfirmed, reservation.UserEmail, notify.Data{
			"user_name":       reservation.UserName,
			"event_name":      eventName,
			"reservation_id":  reservation.ID,
			"check_in_tokens": tokenStrings,
		})
	}

	return reservation, tokens, nil
}

// mintCheckInTokens creates one active token per reserved spot,
// regenerating on the rare uniqueness collision.
func (s *Service) mintCheckInTokens(ctx context.Context, reservationID string, count int, now time.Time) ([]models.CheckInToken, error) {
	tokens := make([]models.CheckInToken, 0, count)
	for seat := 0; seat < count; seat++ {
		var created *models.CheckInToken
		for attempt := 0; attempt < s.tokenAttempts; attempt++ {
			value, err := token.New()
			if err != nil {
				return nil, err
			}
			tok := &models.CheckInToken{
				ID:            uuid.NewString(),
				ReservationID: reservationID,
				Token:         value,
				Status:        models.TokenActive,
				CreatedAt:     now,
			}
			err = s.store.CreateCheckInToken(ctx, tok)
			if err == nil {
				created = tok
				break
			}
			if !errors.Is(err, repository.ErrDuplicateToken) {
				return nil, err
			}
		}
		if created == nil {
			return nil, fmt.Errorf("could not generate a unique check-in token after %d attempts", s.tokenAttempts)
		}
		tokens = append(tokens, *created)
	}
	return tokens, nil
}

// CheckInResult reports the outcome of a scan.
type CheckInResult struct {
	ReservationID string             `json:"reservation_id"`
	Status        models.TokenStatus `json:"status"`
}

// CheckIn transitions a check-in token from active to used, exactly
// once. Concurrent scans of the same token see one success; all others
// get ErrTokenAlreadyUsed.
func (s *Service) CheckIn(ctx context.Context, checkInToken string) (*CheckInResult, error) {
	var result *CheckInResult

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()

		tok, err := s.store.GetCheckInToken(txCtx, checkInToken)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrInvalidToken
			}
			return err
		}

		switch tok.Status {
		case models.TokenUsed:
			return ErrTokenAlreadyUsed
		case models.TokenExpired:
			return ErrTokenExpired
		case models.TokenActive:
			// fall through to the transition below
		default:
			return fmt.Errorf("token %s has unknown status %q", tok.ID, tok.Status)
		}

		if !s.allowLateCheckIn {
			reservation, err := s.store.GetReservation(txCtx, tok.ReservationID)
			if err != nil {
				return err
			}
			event, err := s.store.GetEvent(txCtx, reservation.EventID)
			if err != nil {
				return err
			}
			if event.Finished(now) {
				return ErrTokenExpired
			}
		}

		used, err := s.store.UseCheckInToken(txCtx, checkInToken, now)
		if err != nil {
			return err
		}
		if !used {
			// The conditional update lost against a concurrent scan.
			return ErrTokenAlreadyUsed
		}

		result = &CheckInResult{ReservationID: tok.ReservationID, Status: models.TokenUsed}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel transitions a pending or confirmed reservation to cancelled and
// invalidates its issued check-in tokens. Cancelling an already
// cancelled reservation is a no-op success.
func (s *Service) Cancel(ctx context.Context, reservationID string) error {
	return s.store.WithTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()

		reservation, err := s.store.GetReservation(txCtx, reservationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrReservationNotFound
			}
			return err
		}
		if reservation.Status == models.ReservationCancelled {
			return nil
		}

		if err := s.store.CancelReservation(txCtx, reservationID, now); err != nil {
			return err
		}
		return s.store.ExpireReservationTokens(txCtx, reservationID)
	})
}

// Retrieved is a confirmed reservation together with its check-in
// tokens, the payload behind the retrieval link in confirmation emails.
type Retrieved struct {
	Reservation *models.Reservation   `json:"reservation"`
	Tokens      []models.CheckInToken `json:"check_in_tokens"`
}

// Retrieve returns a reservation and its tokens. Pending reservations
// are withheld until verified.
func (s *Service) Retrieve(ctx context.Context, reservationID string) (*Retrieved, error) {
	reservation, err := s.store.GetReservation(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	if reservation.Status == models.ReservationPending {
		return nil, ErrNotConfirmed
	}

	tokens, err := s.store.ListCheckInTokens(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	return &Retrieved{Reservation: reservation, Tokens: tokens}, nil
}

// ExpirePending sweeps pending reservations whose verification window
// has elapsed. The sweep is housekeeping only: capacity accounting
// already ignores stale pendings.
func (s *Service) ExpirePending(ctx context.Context) (int64, error) {
	var swept int64
	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		now := s.clock.Now()
		var err error
		swept, err = s.store.ExpirePendingBefore(txCtx, now.Add(-s.verificationTTL), now)
		return err
	})
	return swept, err
}

// dispatch sends a notification without blocking the caller. Failures
// are logged and never surfaced: the state transition that triggered the
// notification has already committed. The request context is detached
// from cancellation but keeps its values, so the recipient's locale
// still reaches the sender.
func (s *Service) dispatch(ctx context.Context, kind notify.Kind, recipient string, data notify.Data) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notificationSendTimeout)
	go func() {
		defer cancel()
		if err := s.notifier.Send(sendCtx, kind, recipient, data); err != nil {
			slog.Error("notification dispatch failed", "kind", kind, "recipient", recipient, "error", err)
		}
	}()
}
