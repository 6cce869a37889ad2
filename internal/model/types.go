package model

import (
	"time"

	"github.com/google/uuid"
)

// Credential is a wholesale access password issued by the back office
type Credential struct {
	ID          uuid.UUID
	Password    string
	OwnerLabel  string
	IsShared    bool
	IsActive    bool
	BoundDevice *string
	LastUsedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsBound reports whether an exclusive credential has been claimed by a device
func (c Credential) IsBound() bool {
	return c.BoundDevice != nil
}

// BoundTo reports whether the credential is claimed by the given device
func (c Credential) BoundTo(deviceID string) bool {
	return c.BoundDevice != nil && *c.BoundDevice == deviceID
}

// Session is an issued wholesale catalog session. Only the token hash is stored.
type Session struct {
	ID           uuid.UUID
	TokenHash    string
	DeviceID     string
	CredentialID *uuid.UUID
	OwnerLabel   string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// OneTimeCode is a phone verification code record
type OneTimeCode struct {
	ID          uuid.UUID
	PhoneNumber string
	CodeHash    []byte
	ExpiresAt   time.Time
	Attempts    int
	Verified    bool
	CreatedAt   time.Time
}

// RoleAdmin is the user_roles entry that grants back-office access
const RoleAdmin = "admin"
