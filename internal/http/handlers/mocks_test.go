package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/yusf-1/zagrosexpress-main/internal/auth"
	"github.com/yusf-1/zagrosexpress-main/internal/model"
)

type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) CreateSession(ctx context.Context, deviceID, password string) (auth.IssuedSession, error) {
	args := m.Called(ctx, deviceID, password)
	return args.Get(0).(auth.IssuedSession), args.Error(1)
}

func (m *mockSessions) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockSessions) RevokeCredentialSessions(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

type mockCodes struct {
	mock.Mock
	dev bool
}

func (m *mockCodes) SendCode(ctx context.Context, phone string) error {
	return m.Called(ctx, phone).Error(0)
}

func (m *mockCodes) VerifyCode(ctx context.Context, phone, code string) error {
	return m.Called(ctx, phone, code).Error(0)
}

func (m *mockCodes) DevMode() bool {
	return m.dev
}

type mockCredentials struct {
	mock.Mock
}

func (m *mockCredentials) CreateCredential(ctx context.Context, ownerLabel string, isShared bool) (model.Credential, error) {
	args := m.Called(ctx, ownerLabel, isShared)
	return args.Get(0).(model.Credential), args.Error(1)
}

func (m *mockCredentials) ListCredentials(ctx context.Context) ([]model.Credential, error) {
	args := m.Called(ctx)
	creds, _ := args.Get(0).([]model.Credential)
	return creds, args.Error(1)
}

func (m *mockCredentials) ResetCredential(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCredentials) ActivateCredential(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCredentials) DeactivateCredential(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCredentials) DeleteCredential(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// allowAll admits every request
type allowAll struct{}

func (allowAll) Allow(context.Context, string) bool { return true }

// denyAll rejects every request
type denyAll struct{}

func (denyAll) Allow(context.Context, string) bool { return false }
