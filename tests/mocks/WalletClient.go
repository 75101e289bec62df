package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/embercash/payflow/walletclient"
)

// MockWalletClient is a testify mock for the type walletclient.WalletClient
type MockWalletClient struct {
	mock.Mock
}

func NewMockWalletClient() *MockWalletClient {
	return &MockWalletClient{}
}

func (_mock *MockWalletClient) GetCapabilities(ctx context.Context) (*walletclient.Capabilities, error) {
	ret := _mock.Called(ctx)

	var r0 *walletclient.Capabilities
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*walletclient.Capabilities)
	}
	return r0, ret.Error(1)
}

func (_mock *MockWalletClient) CreateRequest(ctx context.Context, amountMsat uint64, description string, expiry uint64, lightningOnly bool, reuseAddress bool) (*walletclient.CreateRequestResponse, error) {
	ret := _mock.Called(ctx, amountMsat, description, expiry, lightningOnly, reuseAddress)

	var r0 *walletclient.CreateRequestResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*walletclient.CreateRequestResponse)
	}
	return r0, ret.Error(1)
}

func (_mock *MockWalletClient) PayInvoice(ctx context.Context, paymentRequest string) (*walletclient.PayInvoiceResponse, error) {
	ret := _mock.Called(ctx, paymentRequest)

	var r0 *walletclient.PayInvoiceResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*walletclient.PayInvoiceResponse)
	}
	return r0, ret.Error(1)
}

func (_mock *MockWalletClient) SignTransaction(ctx context.Context, address string, amountSat uint64, message string) (*walletclient.SignTransactionResponse, error) {
	ret := _mock.Called(ctx, address, amountSat, message)

	var r0 *walletclient.SignTransactionResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*walletclient.SignTransactionResponse)
	}
	return r0, ret.Error(1)
}

func (_mock *MockWalletClient) BroadcastTransaction(ctx context.Context, rawTx string) (string, error) {
	ret := _mock.Called(ctx, rawTx)
	return ret.String(0), ret.Error(1)
}

func (_mock *MockWalletClient) ImportChannelBackup(ctx context.Context, blob []byte) error {
	ret := _mock.Called(ctx, blob)
	return ret.Error(0)
}

func (_mock *MockWalletClient) FinishOtp(ctx context.Context, code string) error {
	ret := _mock.Called(ctx, code)
	return ret.Error(0)
}

func (_mock *MockWalletClient) Shutdown() error {
	ret := _mock.Called()
	return ret.Error(0)
}

var _ walletclient.WalletClient = (*MockWalletClient)(nil)
