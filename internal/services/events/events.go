// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package events owns event definitions and the authoritative capacity
// figure. Remaining capacity is always recomputed from live reservation
// sums; the derived open/full/finished status is a projection, never a
// source of truth for allocation.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/quickres/quickres/internal/clock"
	"github.com/quickres/quickres/internal/models"
	"github.com/quickres/quickres/internal/repository"
)

var (
	ErrNotFound        = errors.New("event not found")
	ErrFinished        = errors.New("event has already ended")
	ErrInvalidName     = errors.New("event name must not be empty")
	ErrInvalidSchedule = errors.New("event end time must be after its start time")
	ErrInvalidCapacity = errors.New("event capacity must be at least one")
	ErrInvalidMaxSpots = errors.New("max spots per reservation must be between one and the capacity")
)

// Store is the data access the event service needs.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	UpdateEvent(ctx context.Context, event *models.Event) error
	ListUpcomingEvents(ctx context.Context, now time.Time) ([]models.Event, error)
	SumHeldSpots(ctx context.Context, eventID string, pendingCutoff time.Time) (int, error)
}

// Service implements the event store operations.
type Service struct {
	store           Store
	clock           clock.Clock
	verificationTTL time.Duration
}

// NewService creates an event service. verificationTTL is the window
// within which pending reservations still count against capacity.
func NewService(store Store, clk clock.Clock, verificationTTL time.Duration) *Service {
	return &Service{
		store:           store,
		clock:           clk,
		verificationTTL: verificationTTL,
	}
}

// CreateParams holds the fields of a new event.
type CreateParams struct { //nolint:govet // fieldalignment: readability over optimization
	Name                   string
	Description            *string
	Location               *string
	StartTime              time.Time
	EndTime                time.Time
	Capacity               int
	MaxSpotsPerReservation int
}

func (p CreateParams) validate() error {
	switch {
	case p.Name == "":
		return ErrInvalidName
	case !p.EndTime.After(p.StartTime):
		return ErrInvalidSchedule
	case p.Capacity < 1:
		return ErrInvalidCapacity
	case p.MaxSpotsPerReservation < 1 || p.MaxSpotsPerReservation > p.Capacity:
		return ErrInvalidMaxSpots
	}
	return nil
}

// Create publishes a new event.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.Event, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	event := &models.Event{
		ID:                     uuid.NewString(),
		Name:                   params.Name,
		Description:            params.Description,
		Location:               params.Location,
		StartTime:              params.StartTime.UTC(),
		EndTime:                params.EndTime.UTC(),
		Capacity:               params.Capacity,
		MaxSpotsPerReservation: params.MaxSpotsPerReservation,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.store.CreateEvent(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// UpdateParams is a patch for an existing event; nil fields are left
// unchanged.
type UpdateParams struct { //nolint:govet // fieldalignment: readability over optimization
	Name                   *string
	Description            *string
	Location               *string
	StartTime              *time.Time
	EndTime                *time.Time
	Capacity               *int
	MaxSpotsPerReservation *int
}

// Update applies a patch to an event. Finished events are immutable.
func (s *Service) Update(ctx context.Context, id string, patch UpdateParams) (*models.Event, error) {
	var updated *models.Event

	err := s.store.WithTx(ctx, func(txCtx context.Context) error {
		event, err := s.store.GetEvent(txCtx, id)
		if err != nil {
			return mapNotFound(err)
		}
		if event.Finished(s.clock.Now()) {
			return ErrFinished
		}

		if patch.Name != nil {
			event.Name = *patch.Name
		}
		if patch.Description != nil {
			event.Description = patch.Description
		}
		if patch.Location != nil {
			event.Location = patch.Location
		}
		if patch.StartTime != nil {
			event.StartTime = patch.StartTime.UTC()
		}
		if patch.EndTime != nil {
			event.EndTime = patch.EndTime.UTC()
		}
		if patch.Capacity != nil {
			event.Capacity = *patch.Capacity
		}
		if patch.MaxSpotsPerReservation != nil {
			event.MaxSpotsPerReservation = *patch.MaxSpotsPerReservation
		}

		if err := (CreateParams{
			Name:                   event.Name,
			StartTime:              event.StartTime,
			EndTime:                event.EndTime,
			Capacity:               event.Capacity,
			MaxSpotsPerReservation: event.MaxSpotsPerReservation,
		}).validate(); err != nil {
			return err
		}

		event.UpdatedAt = s.clock.Now()
		if err := s.store.UpdateEvent(txCtx, event); err != nil {
			return mapNotFound(err)
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// View is an event enriched with its live remaining capacity and the
// status derived from it.
type View struct {
	models.Event
	Remaining int                `json:"remaining_capacity"`
	Status    models.EventStatus `json:"status"`
}

// Get returns an event view with remaining capacity and derived status.
func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	event, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}

	remaining, err := s.Remaining(ctx, event)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	return &View{Event: *event, Remaining: remaining, Status: event.Status(remaining, now)}, nil
}

// List returns views of all events that have not ended yet.
func (s *Service) List(ctx context.Context) ([]View, error) {
	now := s.clock.Now()
	list, err := s.store.ListUpcomingEvents(ctx, now)
	if err != nil {
		return nil, err
	}

	views := make([]View, 0, len(list))
	for i := range list {
		event := &list[i]
		remaining, err := s.Remaining(ctx, event)
		if err != nil {
			return nil, err
		}
		views = append(views, View{Event: *event, Remaining: remaining, Status: event.Status(remaining, now)})
	}
	return views, nil
}

// Remaining computes the spots still available on an event: capacity
// minus the spots held by confirmed and unexpired pending reservations.
// Pending reservations past the verification window no longer count,
// which releases their spots lazily.
func (s *Service) Remaining(ctx context.Context, event *models.Event) (int, error) {
	cutoff := s.clock.Now().Add(-s.verificationTTL)
	held, err := s.store.SumHeldSpots(ctx, event.ID, cutoff)
	if err != nil {
		return 0, err
	}
	remaining := event.Capacity - held
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
