// Package domain holds shared domain primitives: typed identifiers and the
// values that cross module boundaries. Typed IDs prevent cross-type
// assignment at compile time (a SessionID can never be passed where a
// SubjectID is expected).
package domain

import (
	"github.com/google/uuid"

	dErrors "facelive/pkg/domain-errors"
)

// SessionID identifies one verification attempt.
type SessionID uuid.UUID

// SubjectID references the user under verification. The user record itself
// is owned by an external user store; we only carry the identifier.
type SubjectID uuid.UUID

// SubmissionID identifies one KYC submission record.
type SubmissionID uuid.UUID

// NewSessionID returns a fresh random session ID.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

// NewSubjectID returns a fresh random subject ID.
func NewSubjectID() SubjectID {
	return SubjectID(uuid.New())
}

// NewSubmissionID returns a fresh random submission ID.
func NewSubmissionID() SubmissionID {
	return SubmissionID(uuid.New())
}

// ParseSubmissionID validates and parses a submission ID.
func ParseSubmissionID(s string) (SubmissionID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return SubmissionID{}, err
	}
	return SubmissionID(u), nil
}

// ParseSessionID validates and parses a session ID from its string form.
// Rejects empty, malformed, and nil UUIDs at the trust boundary.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return SessionID{}, err
	}
	return SessionID(u), nil
}

// ParseSubjectID validates and parses a subject ID from its string form.
func ParseSubjectID(s string) (SubjectID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return SubjectID{}, err
	}
	return SubjectID(u), nil
}

func (id SessionID) String() string { return uuid.UUID(id).String() }
func (id SessionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id SubjectID) String() string { return uuid.UUID(id).String() }
func (id SubjectID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders the ID in canonical UUID form so JSON and log
// encoders never see the raw byte array.
func (id SessionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText parses the canonical UUID form.
func (id *SessionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSessionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id SubmissionID) String() string { return uuid.UUID(id).String() }
func (id SubmissionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders the ID in canonical UUID form.
func (id SubjectID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText parses the canonical UUID form.
func (id *SubjectID) UnmarshalText(b []byte) error {
	parsed, err := ParseSubjectID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalText renders the ID in canonical UUID form.
func (id SubmissionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText parses the canonical UUID form.
func (id *SubmissionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSubmissionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id too long")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}
