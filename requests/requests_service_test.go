package requests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embercash/payflow/constants"
	"github.com/embercash/payflow/db"
	"github.com/embercash/payflow/tests"
	"github.com/embercash/payflow/tests/mocks"
	"github.com/embercash/payflow/walletclient"
)

func TestCreate_PersistsRequest(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	client := mocks.NewMockWalletClient()
	client.On("CreateRequest", ctx, uint64(21_000), "coffee", uint64(3600), false, false).
		Return(&walletclient.CreateRequestResponse{
			Address:        "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
			PaymentRequest: "lnbc210n1...",
		}, nil)

	requestsSvc := NewRequestsService(svc.DB, svc.EventPublisher)

	params := CreateParams{AmountMsat: 21_000, Description: "coffee", Expiry: 3600}
	request, err := requestsSvc.Create(ctx, params, client)
	require.NoError(t, err)
	assert.NotEmpty(t, request.Key)
	assert.Equal(t, constants.REQUEST_STATE_CREATED, request.State)
	assert.NotNil(t, request.ExpiresAt)

	stored, err := requestsSvc.LookupRequest(ctx, request.Key)
	require.NoError(t, err)
	assert.Equal(t, "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", stored.Address)
}

func TestCreateWithFallback_LightningOnlyRetry(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	client := mocks.NewMockWalletClient()
	client.On("CreateRequest", ctx, uint64(21_000), "coffee", uint64(3600), false, false).
		Return(nil, walletclient.NewRequestCreateError(constants.REQUEST_ERROR_LN, "no onchain wallet available")).Once()
	// the retry carries exactly the relaxed parameter combination
	client.On("CreateRequest", ctx, uint64(21_000), "coffee", uint64(3600), true, false).
		Return(&walletclient.CreateRequestResponse{
			PaymentRequest: "lnbc210n1...",
		}, nil).Once()

	requestsSvc := NewRequestsService(svc.DB, svc.EventPublisher)

	confirmations := 0
	confirm := func(code string, message string) bool {
		confirmations++
		assert.Equal(t, constants.REQUEST_ERROR_LN, code)
		return true
	}

	params := CreateParams{AmountMsat: 21_000, Description: "coffee", Expiry: 3600}
	request, err := requestsSvc.CreateWithFallback(ctx, params, client, confirm)
	require.NoError(t, err)
	assert.True(t, request.LightningOnly)
	assert.False(t, request.ReuseAddress)
	assert.Equal(t, 1, confirmations)
	client.AssertExpectations(t)
}

func TestCreateWithFallback_ReuseAddressRetry(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	client := mocks.NewMockWalletClient()
	client.On("CreateRequest", ctx, uint64(21_000), "", uint64(3600), false, false).
		Return(nil, walletclient.NewRequestCreateError(constants.REQUEST_ERROR_REUSE_ADDR, "no fresh address available")).Once()
	client.On("CreateRequest", ctx, uint64(21_000), "", uint64(3600), false, true).
		Return(&walletclient.CreateRequestResponse{
			Address: "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
		}, nil).Once()

	requestsSvc := NewRequestsService(svc.DB, svc.EventPublisher)

	params := CreateParams{AmountMsat: 21_000, Expiry: 3600}
	request, err := requestsSvc.CreateWithFallback(ctx, params, client, func(string, string) bool { return true })
	require.NoError(t, err)
	assert.True(t, request.ReuseAddress)
	client.AssertExpectations(t)
}

func TestCreateWithFallback_DeclinedStops(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	client := mocks.NewMockWalletClient()
	client.On("CreateRequest", ctx, uint64(21_000), "", uint64(3600), false, false).
		Return(nil, walletclient.NewRequestCreateError(constants.REQUEST_ERROR_LN, "no onchain wallet available")).Once()

	requestsSvc := NewRequestsService(svc.DB, svc.EventPublisher)

	params := CreateParams{AmountMsat: 21_000, Expiry: 3600}
	_, err = requestsSvc.CreateWithFallback(ctx, params, client, func(string, string) bool { return false })
	assert.Error(t, err)
	client.AssertExpectations(t)

	var count int64
	svc.DB.Model(&db.Request{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateWithFallback_NonActionableErrorStops(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	client := mocks.NewMockWalletClient()
	client.On("CreateRequest", ctx, uint64(21_000), "", uint64(3600), false, false).
		Return(nil, assert.AnError).Once()

	requestsSvc := NewRequestsService(svc.DB, svc.EventPublisher)

	confirmed := false
	params := CreateParams{AmountMsat: 21_000, Expiry: 3600}
	_, err = requestsSvc.CreateWithFallback(ctx, params, client, func(string, string) bool {
		confirmed = true
		return true
	})
	assert.Error(t, err)
	assert.False(t, confirmed)
	client.AssertExpectations(t)
}

func TestCreateWithFallback_FailedRetryIsTerminal(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	client := mocks.NewMockWalletClient()
	client.On("CreateRequest", ctx, uint64(21_000), "", uint64(3600), false, false).
		Return(nil, walletclient.NewRequestCreateError(constants.REQUEST_ERROR_LN, "no onchain wallet available")).Once()
	// the retry fails with another actionable code, no second chain opens
	client.On("CreateRequest", ctx, uint64(21_000), "", uint64(3600), true, false).
		Return(nil, walletclient.NewRequestCreateError(constants.REQUEST_ERROR_REUSE_ADDR, "no fresh address available")).Once()

	requestsSvc := NewRequestsService(svc.DB, svc.EventPublisher)

	confirmations := 0
	params := CreateParams{AmountMsat: 21_000, Expiry: 3600}
	_, err = requestsSvc.CreateWithFallback(ctx, params, client, func(string, string) bool {
		confirmations++
		return true
	})
	assert.Error(t, err)
	assert.Equal(t, 1, confirmations)
	client.AssertExpectations(t)
}
