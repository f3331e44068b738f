package viewer

import (
	"errors"
	"fmt"
)

var (
	ErrMissingRoomCode  = errors.New("room code is required")
	ErrMissingToken     = errors.New("spectator token is required")
	ErrConnectionClosed = errors.New("peer connection closed")
	ErrNoDescription    = errors.New("offer carries no session description")
	ErrNotAnOffer       = errors.New("session description is not an offer")
)

// Error describes a failed step of a session, optionally scoped to one participant.
type Error struct {
	Op          string
	Participant string
	Err         error
	Details     string
}

func (e *Error) Error() string {
	if e.Participant != "" {
		return fmt.Sprintf("%s [%s]: %v", e.Op, e.Participant, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func NewParticipantError(op, participant string, err error) *Error {
	return &Error{Op: op, Participant: participant, Err: err}
}

func WrapError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}
