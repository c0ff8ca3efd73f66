// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package notify dispatches reservation notifications. Senders are
// best-effort collaborators: a failed send is logged by the caller and
// never rolls back the state transition that triggered it.
package notify

import "context"

// Kind identifies a notification template.
type Kind string

const (
	// KindVerificationRequested asks the requester to prove control of
	// their email address and carries the verification token.
	KindVerificationRequested Kind = "verification_requested"
	// KindReservationConfirmed confirms a reservation and carries the
	// minted check-in tokens.
	KindReservationConfirmed Kind = "reservation_confirmed"
)

// Data is the template payload of a notification.
type Data map[string]any

// Sender delivers a notification to a recipient. Implementations decide
// the transport; the core never consumes a result beyond the error.
type Sender interface {
	Send(ctx context.Context, kind Kind, recipient string, data Data) error
}
