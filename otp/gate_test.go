package otp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embercash/payflow/constants"
	"github.com/embercash/payflow/events"
	"github.com/embercash/payflow/tests/mocks"
)

func otpEvent() *events.Event {
	return &events.Event{Event: constants.EVENT_OTP_REQUESTED}
}

func TestGate_SubmitWithoutChallenge(t *testing.T) {
	gate := NewGate(nil)
	gate.SetClient(mocks.NewMockWalletClient())

	err := gate.Submit(context.TODO(), "123456")
	assert.ErrorIs(t, err, ErrNoPendingChallenge)
}

func TestGate_EmptyCodeRejected(t *testing.T) {
	gate := NewGate(nil)
	gate.SetClient(mocks.NewMockWalletClient())
	gate.ConsumeEvent(context.TODO(), otpEvent(), nil)

	err := gate.Submit(context.TODO(), "")
	assert.ErrorIs(t, err, ErrEmptyCode)
	assert.True(t, gate.Pending())
}

func TestGate_ChallengePrompts(t *testing.T) {
	prompts := 0
	gate := NewGate(func() { prompts++ })
	gate.SetClient(mocks.NewMockWalletClient())

	gate.ConsumeEvent(context.TODO(), otpEvent(), nil)
	assert.True(t, gate.Pending())
	assert.Equal(t, 1, prompts)

	// unrelated events are ignored
	gate.ConsumeEvent(context.TODO(), &events.Event{Event: "payflow_payment_settled"}, nil)
	assert.Equal(t, 1, prompts)
}

func TestGate_SubmitForwardsCode(t *testing.T) {
	ctx := context.TODO()

	client := mocks.NewMockWalletClient()
	client.On("FinishOtp", ctx, "123456").Return(nil)

	gate := NewGate(nil)
	gate.SetClient(client)
	gate.ConsumeEvent(ctx, otpEvent(), nil)

	require.NoError(t, gate.Submit(ctx, "123456"))
	assert.False(t, gate.Pending())
	client.AssertExpectations(t)
}

func TestGate_RejectedCodeRepromptsWithoutOtherStateChange(t *testing.T) {
	ctx := context.TODO()

	client := mocks.NewMockWalletClient()
	client.On("FinishOtp", ctx, "000000").Return(assert.AnError).Once()
	client.On("FinishOtp", ctx, "123456").Return(nil).Once()

	promptCount := 0
	gate := NewGate(func() { promptCount++ })
	gate.SetClient(client)

	gate.ConsumeEvent(ctx, otpEvent(), nil)
	require.Equal(t, 1, promptCount)

	err := gate.Submit(ctx, "000000")
	assert.Error(t, err)
	assert.False(t, gate.Pending())

	// the backend re-raises the same challenge as a fresh event
	gate.ConsumeEvent(ctx, otpEvent(), nil)
	assert.True(t, gate.Pending())
	assert.Equal(t, 2, promptCount)
	assert.Equal(t, uint(2), gate.Prompts())

	require.NoError(t, gate.Submit(ctx, "123456"))
	client.AssertExpectations(t)
}

func TestGate_CancelClearsChallenge(t *testing.T) {
	gate := NewGate(nil)
	gate.SetClient(mocks.NewMockWalletClient())
	gate.ConsumeEvent(context.TODO(), otpEvent(), nil)

	gate.Cancel()
	assert.False(t, gate.Pending())

	err := gate.Submit(context.TODO(), "123456")
	assert.ErrorIs(t, err, ErrNoPendingChallenge)
}

func TestGate_SwitchingClientResetsChallenge(t *testing.T) {
	gate := NewGate(nil)
	gate.SetClient(mocks.NewMockWalletClient())
	gate.ConsumeEvent(context.TODO(), otpEvent(), nil)

	gate.SetClient(mocks.NewMockWalletClient())
	assert.False(t, gate.Pending())
}
