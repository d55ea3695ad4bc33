package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"
)

const (
	snapshotFormatVersionV1      = 1
	snapshotFormatVersionCurrent = snapshotFormatVersionV1
)

// Provenance codes persisted inside a snapshot. They mirror the resolver's
// source ordering: backend beats store cache beats legacy cookie.
const (
	ProvenanceBackend uint8 = 1
	ProvenanceLegacy  uint8 = 2
)

// Snapshot is the cached server-side session record. TenantID stays empty
// until onboarding completes; NeedsOnboarding and TenantID being set at the
// same time is a contradiction the resolver must reconcile, never this
// package.
type Snapshot struct {
	SessionID string
	UserID    string
	Email     string
	TenantID  string

	NeedsOnboarding     bool
	OnboardingCompleted bool

	Provenance uint8

	CreatedAt       int64
	LastValidatedAt int64
}

// Age returns how long ago the snapshot was last validated against the
// backend.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(time.Unix(s.LastValidatedAt, 0))
}

// Conflicted reports the tenant/onboarding contradiction state.
func (s *Snapshot) Conflicted() bool {
	return s.TenantID != "" && s.NeedsOnboarding
}

const (
	flagNeedsOnboarding     = 1 << 0
	flagOnboardingCompleted = 1 << 1
)

func Encode(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(snapshotFormatVersionCurrent)

	if len(s.SessionID) > 255 {
		return nil, errors.New("sessionID too long")
	}
	buf.WriteByte(byte(len(s.SessionID)))
	buf.WriteString(s.SessionID)

	if len(s.UserID) > 255 {
		return nil, errors.New("userID too long")
	}
	buf.WriteByte(byte(len(s.UserID)))
	buf.WriteString(s.UserID)

	if len(s.Email) > 65535 {
		return nil, errors.New("email too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(s.Email))); err != nil {
		return nil, err
	}
	buf.WriteString(s.Email)

	if len(s.TenantID) > 255 {
		return nil, errors.New("tenantID too long")
	}
	buf.WriteByte(byte(len(s.TenantID)))
	buf.WriteString(s.TenantID)

	var flags byte
	if s.NeedsOnboarding {
		flags |= flagNeedsOnboarding
	}
	if s.OnboardingCompleted {
		flags |= flagOnboardingCompleted
	}
	buf.WriteByte(flags)
	buf.WriteByte(s.Provenance)

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.LastValidatedAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func Decode(data []byte) (*Snapshot, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != snapshotFormatVersionV1 {
		return nil, errors.New("invalid snapshot version")
	}

	s := &Snapshot{}

	if s.SessionID, err = readShortString(reader); err != nil {
		return nil, err
	}
	if s.UserID, err = readShortString(reader); err != nil {
		return nil, err
	}

	var emailLen uint16
	if err := binary.Read(reader, binary.BigEndian, &emailLen); err != nil {
		return nil, err
	}
	email := make([]byte, emailLen)
	if _, err := io.ReadFull(reader, email); err != nil {
		return nil, err
	}
	s.Email = string(email)

	if s.TenantID, err = readShortString(reader); err != nil {
		return nil, err
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	s.NeedsOnboarding = flags&flagNeedsOnboarding != 0
	s.OnboardingCompleted = flags&flagOnboardingCompleted != 0

	if s.Provenance, err = reader.ReadByte(); err != nil {
		return nil, err
	}

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.LastValidatedAt); err != nil {
		return nil, err
	}

	if s.SessionID == "" || s.UserID == "" {
		return nil, errors.New("snapshot missing identity fields")
	}

	return s, nil
}

func readShortString(reader *bytes.Reader) (string, error) {
	n, err := reader.ReadByte()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(reader, b); err != nil {
		return "", err
	}
	return string(b), nil
}
