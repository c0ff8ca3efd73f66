// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models_test

import (
	"testing"
	"time"

	"github.com/quickres/quickres/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestEventStatus(t *testing.T) {
	now := time.Now().UTC()
	event := &models.Event{
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(3 * time.Hour),
		Capacity:  10,
	}

	tests := []struct {
		name      string
		remaining int
		at        time.Time
		expected  models.EventStatus
	}{
		{"open with capacity", 5, now, models.EventOpen},
		{"full at zero", 0, now, models.EventFull},
		{"full below zero", -1, now, models.EventFull},
		{"finished at end time", 5, event.EndTime, models.EventFinished},
		{"finished after end time", 5, event.EndTime.Add(time.Minute), models.EventFinished},
		{"finished wins over full", 0, event.EndTime.Add(time.Minute), models.EventFinished},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, event.Status(tt.remaining, tt.at))
		})
	}
}

func TestEventFinished(t *testing.T) {
	now := time.Now().UTC()
	event := &models.Event{EndTime: now}

	assert.False(t, event.Finished(now.Add(-time.Second)))
	assert.True(t, event.Finished(now))
	assert.True(t, event.Finished(now.Add(time.Second)))
}
