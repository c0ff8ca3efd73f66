// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package notify

import (
	"context"
	"log/slog"
)

// LogSender writes notifications to the log instead of delivering them.
// Used in development and as the default when no transport is configured.
type LogSender struct{}

// NewLogSender creates a log-only sender.
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Send logs the notification.
func (s *LogSender) Send(_ context.Context, kind Kind, recipient string, data Data) error {
	slog.Info("notification", "kind", kind, "recipient", recipient, "data", data)
	return nil
}
