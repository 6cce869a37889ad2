package auth

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPhone = "+9647501234567"

func newTestCodeService(t *testing.T, code string) (*CodeService, *memCodes, *mockSender, *clock) {
	t.Helper()
	codes := newMemCodes()
	sender := &mockSender{}
	clk := newClock()
	svc := NewCodeService(codes, sender, "test-salt", false, zap.NewNop())
	svc.now = clk.Now
	svc.newCode = func() (string, error) { return code, nil }
	return svc, codes, sender, clk
}

func TestHashCodeHex_consistency(t *testing.T) {
	h1 := hashCodeHex("+49123", "123456", "test-salt")
	h2 := hashCodeHex("+49123", "123456", "test-salt")
	assert.Equal(t, h1, h2)

	decoded, err := hex.DecodeString(h1)
	require.NoError(t, err)
	assert.Len(t, decoded, 32)
}

func TestHashCodeHex_differentInputsDifferentHash(t *testing.T) {
	h1 := hashCodeHex("+49123", "123456", "salt")
	h2 := hashCodeHex("+49124", "123456", "salt")
	h3 := hashCodeHex("+49123", "654321", "salt")
	h4 := hashCodeHex("+49123", "123456", "other")
	assert.NotEqual(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.NotEqual(t, h1, h4)
}

func TestGenerateCode_range(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		assert.NotEqual(t, byte('0'), code[0], "code %q must be in [100000, 999999]", code)
	}
}

func TestSendCode_storesHashAndDelivers(t *testing.T) {
	svc, codes, sender, clk := newTestCodeService(t, "482913")
	sender.On("Send", mock.Anything, testPhone, "Your ZAGROSS EXPRESS verification code is: 482913\n\nThis code expires in 5 minutes.").
		Return(nil).Once()

	require.NoError(t, svc.SendCode(context.Background(), "+964 750 123 4567"))

	stored := codes.forPhone(testPhone)
	require.Len(t, stored, 1)
	assert.Equal(t, hashCode(testPhone, "482913", "test-salt"), stored[0].CodeHash)
	assert.Equal(t, clk.Now().Add(5*time.Minute), stored[0].ExpiresAt)
	assert.Zero(t, stored[0].Attempts)
	assert.False(t, stored[0].Verified)
	sender.AssertExpectations(t)
}

func TestSendCode_invalidPhone(t *testing.T) {
	svc, _, sender, _ := newTestCodeService(t, "482913")

	err := svc.SendCode(context.Background(), "not a phone")
	assert.ErrorIs(t, err, ErrInvalidPhone)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendCode_deliveryFailureRemovesRecord(t *testing.T) {
	svc, codes, sender, _ := newTestCodeService(t, "482913")
	sender.On("Send", mock.Anything, testPhone, mock.Anything).Return(errors.New("twilio 503")).Once()

	err := svc.SendCode(context.Background(), testPhone)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Empty(t, codes.forPhone(testPhone))

	assert.ErrorIs(t, svc.VerifyCode(context.Background(), testPhone, "482913"), ErrNoSuchCode)
}

func TestSendCode_replacesPreviousCode(t *testing.T) {
	svc, codes, sender, _ := newTestCodeService(t, "111111")
	sender.On("Send", mock.Anything, testPhone, mock.Anything).Return(nil)

	require.NoError(t, svc.SendCode(context.Background(), testPhone))
	svc.newCode = func() (string, error) { return "222222", nil }
	require.NoError(t, svc.SendCode(context.Background(), testPhone))

	assert.Len(t, codes.forPhone(testPhone), 1)

	var mismatch *MismatchError
	require.ErrorAs(t, svc.VerifyCode(context.Background(), testPhone, "111111"), &mismatch)
	assert.NoError(t, svc.VerifyCode(context.Background(), testPhone, "222222"))
}

func TestVerifyCode_success(t *testing.T) {
	svc, codes, sender, _ := newTestCodeService(t, "482913")
	sender.On("Send", mock.Anything, testPhone, mock.Anything).Return(nil)
	require.NoError(t, svc.SendCode(context.Background(), testPhone))

	require.NoError(t, svc.VerifyCode(context.Background(), "+964-750-123-4567", "482913"))

	stored := codes.forPhone(testPhone)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Verified)

	// A verified code is consumed.
	assert.ErrorIs(t, svc.VerifyCode(context.Background(), testPhone, "482913"), ErrNoSuchCode)
}

func TestVerifyCode_noPendingCode(t *testing.T) {
	svc, _, _, _ := newTestCodeService(t, "482913")
	assert.ErrorIs(t, svc.VerifyCode(context.Background(), testPhone, "482913"), ErrNoSuchCode)
}

func TestVerifyCode_attemptCountdownThenLocked(t *testing.T) {
	svc, codes, sender, _ := newTestCodeService(t, "482913")
	sender.On("Send", mock.Anything, testPhone, mock.Anything).Return(nil)
	require.NoError(t, svc.SendCode(context.Background(), testPhone))

	for want := 4; want >= 0; want-- {
		err := svc.VerifyCode(context.Background(), testPhone, "000000")
		var mismatch *MismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, want, mismatch.Remaining)
	}

	// The correct code no longer helps once the attempts are spent.
	assert.ErrorIs(t, svc.VerifyCode(context.Background(), testPhone, "482913"), ErrCodeLocked)
	assert.Empty(t, codes.forPhone(testPhone))
	assert.ErrorIs(t, svc.VerifyCode(context.Background(), testPhone, "482913"), ErrNoSuchCode)
}

func TestVerifyCode_correctAfterWrongAttempts(t *testing.T) {
	svc, _, sender, _ := newTestCodeService(t, "482913")
	sender.On("Send", mock.Anything, testPhone, mock.Anything).Return(nil)
	require.NoError(t, svc.SendCode(context.Background(), testPhone))

	for i := 0; i < MaxCodeAttempts-1; i++ {
		var mismatch *MismatchError
		require.ErrorAs(t, svc.VerifyCode(context.Background(), testPhone, "999999"), &mismatch)
	}
	assert.NoError(t, svc.VerifyCode(context.Background(), testPhone, "482913"))
}

func TestVerifyCode_expired(t *testing.T) {
	svc, codes, sender, clk := newTestCodeService(t, "482913")
	sender.On("Send", mock.Anything, testPhone, mock.Anything).Return(nil)
	require.NoError(t, svc.SendCode(context.Background(), testPhone))

	clk.Advance(5 * time.Minute)

	assert.ErrorIs(t, svc.VerifyCode(context.Background(), testPhone, "482913"), ErrCodeExpired)
	assert.Empty(t, codes.forPhone(testPhone))
	assert.ErrorIs(t, svc.VerifyCode(context.Background(), testPhone, "482913"), ErrNoSuchCode)
}

func TestVerifyCode_justBeforeExpiry(t *testing.T) {
	svc, _, sender, clk := newTestCodeService(t, "482913")
	sender.On("Send", mock.Anything, testPhone, mock.Anything).Return(nil)
	require.NoError(t, svc.SendCode(context.Background(), testPhone))

	clk.Advance(5*time.Minute - time.Second)

	assert.NoError(t, svc.VerifyCode(context.Background(), testPhone, "482913"))
}

func TestCodeService_devMode(t *testing.T) {
	codes := newMemCodes()
	sender := &mockSender{}
	sender.On("Send", mock.Anything, testPhone, mock.Anything).Return(nil)
	svc := NewCodeService(codes, sender, "salt", true, zap.NewNop())

	assert.True(t, svc.DevMode())
	require.NoError(t, svc.SendCode(context.Background(), testPhone))
	assert.NoError(t, svc.VerifyCode(context.Background(), testPhone, DevCode))
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "+964 750 123 4567", want: "+9647501234567"},
		{in: " 0750-123-4567 ", want: "07501234567"},
		{in: "+(964) 750.123.4567", want: "+9647501234567"},
		{in: "964+750", want: "964750"},
		{in: "+", wantErr: true},
		{in: "", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizePhone(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "+9**********67", MaskPhone(testPhone))
	assert.Equal(t, "****", MaskPhone("+964"))
}
