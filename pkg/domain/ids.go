// Package domain holds typed identifiers shared across modules.
//
// Typed IDs keep a GuardianID from being passed where a RegistrationID is
// expected. Construct them with the Parse* functions at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "retreat/pkg/domain-errors"
)

type (
	RegistrationID uuid.UUID
	GuardianID     uuid.UUID
	ParticipantID  uuid.UUID
	WaiverID       uuid.UUID
)

func parseUUID(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	// Reject anything longer than the canonical or braced forms before parsing.
	if len(s) > 38 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return u, nil
}

func ParseRegistrationID(s string) (RegistrationID, error) {
	u, err := parseUUID("registration id", s)
	return RegistrationID(u), err
}

func ParseGuardianID(s string) (GuardianID, error) {
	u, err := parseUUID("guardian id", s)
	return GuardianID(u), err
}

func ParseParticipantID(s string) (ParticipantID, error) {
	u, err := parseUUID("participant id", s)
	return ParticipantID(u), err
}

func ParseWaiverID(s string) (WaiverID, error) {
	u, err := parseUUID("waiver id", s)
	return WaiverID(u), err
}

func NewRegistrationID() RegistrationID { return RegistrationID(uuid.New()) }
func NewGuardianID() GuardianID         { return GuardianID(uuid.New()) }
func NewParticipantID() ParticipantID   { return ParticipantID(uuid.New()) }
func NewWaiverID() WaiverID             { return WaiverID(uuid.New()) }

func (id RegistrationID) String() string { return uuid.UUID(id).String() }
func (id GuardianID) String() string     { return uuid.UUID(id).String() }
func (id ParticipantID) String() string  { return uuid.UUID(id).String() }
func (id WaiverID) String() string       { return uuid.UUID(id).String() }

func (id RegistrationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id GuardianID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id ParticipantID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id WaiverID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }

func (id RegistrationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id GuardianID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id ParticipantID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id WaiverID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }

func (id *RegistrationID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *GuardianID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *ParticipantID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *WaiverID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
