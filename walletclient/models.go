package walletclient

import (
	"context"
	"errors"
	"fmt"
)

// Capabilities of the currently active wallet. Owned by the wallet backend,
// read once per wallet switch and passed explicitly into routing decisions.
type Capabilities struct {
	IsLightning            bool
	LightningCanSendMsat   uint64
	IsWatchOnly            bool
	CanSignWithoutCosigner bool
}

type CreateRequestResponse struct {
	Address        string
	PaymentRequest string
	PaymentHash    string
	ExpiresAt      *int64
}

type PayInvoiceResponse struct {
	Preimage string
	FeeMsat  uint64
}

type SignTransactionResponse struct {
	TxId     string
	RawTx    string
	Complete bool
}

// WalletClient abstracts the wallet backend: request creation, Lightning
// payments, on-chain signing and broadcast, channel backup import and OTP
// completion. Long-running completions arrive as events on the engine bus.
type WalletClient interface {
	GetCapabilities(ctx context.Context) (*Capabilities, error)
	CreateRequest(ctx context.Context, amountMsat uint64, description string, expiry uint64, lightningOnly bool, reuseAddress bool) (*CreateRequestResponse, error)
	PayInvoice(ctx context.Context, paymentRequest string) (*PayInvoiceResponse, error)
	SignTransaction(ctx context.Context, address string, amountSat uint64, message string) (*SignTransactionResponse, error)
	BroadcastTransaction(ctx context.Context, rawTx string) (string, error)
	ImportChannelBackup(ctx context.Context, blob []byte) error
	FinishOtp(ctx context.Context, code string) error
	Shutdown() error
}

// RequestCreateError carries the policy code the request creator keys its
// fallback behavior on ("ln", "reuse_addr", or anything else).
type RequestCreateError struct {
	Code    string
	Message string
}

func (err *RequestCreateError) Error() string {
	return fmt.Sprintf("request creation failed (%s): %s", err.Code, err.Message)
}

func NewRequestCreateError(code string, message string) error {
	return &RequestCreateError{Code: code, Message: message}
}

// RequestErrorCode extracts the policy code from an error chain, or ""
func RequestErrorCode(err error) string {
	var requestCreateErr *RequestCreateError
	if errors.As(err, &requestCreateErr) {
		return requestCreateErr.Code
	}
	return ""
}

type BroadcastError struct {
	TxId    string
	Code    string
	Message string
}

func (err *BroadcastError) Error() string {
	return fmt.Sprintf("broadcast failed (%s) for tx %s: %s", err.Code, err.TxId, err.Message)
}

func NewBroadcastError(txId string, code string, message string) error {
	return &BroadcastError{TxId: txId, Code: code, Message: message}
}

type otpRejectedError struct {
}

func NewOtpRejectedError() error {
	return &otpRejectedError{}
}

func (err *otpRejectedError) Error() string {
	return "the submitted one-time code was rejected"
}

func IsOtpRejectedError(err error) bool {
	var target *otpRejectedError
	return errors.As(err, &target)
}
