package api

import (
	"time"

	"gorm.io/datatypes"
)

type InfoResponse struct {
	BaseUrl  string `json:"baseUrl"`
	Network  string `json:"network"`
	Version  string `json:"version"`
	Unlocked bool   `json:"unlocked"`
	WorkDir  string `json:"workdir"`
}

type UnlockRequest struct {
	Password        string  `json:"password"`
	TokenExpiryDays *uint64 `json:"tokenExpiryDays"`
}

type ParseRequest struct {
	Uri string `json:"uri"`
}

type ParseResponse struct {
	Invoice *InvoiceResponse `json:"invoice"`
	Warning *WarningResponse `json:"warning,omitempty"`
}

type WarningResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type InvoiceResponse struct {
	Key            string         `json:"key"`
	Type           string         `json:"type"`
	State          string         `json:"state"`
	Address        string         `json:"address,omitempty"`
	AmountMsat     *uint64        `json:"amountMsat,omitempty"`
	Description    string         `json:"description,omitempty"`
	PaymentRequest string         `json:"paymentRequest,omitempty"`
	PaymentHash    string         `json:"paymentHash,omitempty"`
	Preimage       *string        `json:"preimage,omitempty"`
	ExpiresAt      *time.Time     `json:"expiresAt,omitempty"`
	SettledAt      *time.Time     `json:"settledAt,omitempty"`
	FailureReason  string         `json:"failureReason,omitempty"`
	Metadata       datatypes.JSON `json:"metadata,omitempty"`
}

type PayRequest struct {
	AmountMsat *uint64 `json:"amountMsat"`
}

type CreateRequestRequest struct {
	AmountMsat  uint64 `json:"amountMsat"`
	Description string `json:"description"`
}

type RequestResponse struct {
	Key            string     `json:"key"`
	State          string     `json:"state"`
	AmountMsat     uint64     `json:"amountMsat"`
	Description    string     `json:"description,omitempty"`
	Address        string     `json:"address,omitempty"`
	PaymentRequest string     `json:"paymentRequest,omitempty"`
	LightningOnly  bool       `json:"lightningOnly"`
	ReuseAddress   bool       `json:"reuseAddress"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
}

type TransactionResponse struct {
	FinalizerId   string     `json:"finalizerId"`
	InvoiceKey    string     `json:"invoiceKey"`
	State         string     `json:"state"`
	SigningMode   string     `json:"signingMode"`
	Address       string     `json:"address"`
	AmountSat     uint64     `json:"amountSat"`
	TxId          string     `json:"txId,omitempty"`
	RawTx         string     `json:"rawTx,omitempty"`
	Complete      bool       `json:"complete"`
	BroadcastAt   *time.Time `json:"broadcastAt,omitempty"`
	FailureReason string     `json:"failureReason,omitempty"`
}

type FinalizerResponse struct {
	Id            string `json:"id"`
	State         string `json:"state"`
	SigningMode   string `json:"signingMode"`
	CanComplete   bool   `json:"canComplete"`
	TxId          string `json:"txId,omitempty"`
	RawTx         string `json:"rawTx,omitempty"`
	FailureReason string `json:"failureReason,omitempty"`
}

type OtpRequest struct {
	Code string `json:"code"`
}

type OtpStatusResponse struct {
	Pending bool `json:"pending"`
	Prompts uint `json:"prompts"`
}
