package db

import (
	"time"

	"gorm.io/datatypes"
)

type UserConfig struct {
	ID        uint
	Key       string `gorm:"unique;not null"`
	Value     string
	Encrypted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Invoice is a parsed payment target persisted by the invoice parser.
// Dialogs reference invoices by Key, never by value; this row is the
// source of truth for expiry and settlement updates.
type Invoice struct {
	ID              uint
	Key             string `gorm:"unique;not null"`
	Type            string
	State           string
	Address         string
	AmountMsat      *uint64
	Description     string
	PaymentRequest  string
	PaymentHash     string
	Preimage        *string
	MinFinalCltv    uint32
	LnurlEndpoint   string
	LnurlMinSendable uint64
	LnurlMaxSendable uint64
	RawUri          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ExpiresAt       *time.Time
	SettledAt       *time.Time
	FailureReason   string
	Metadata        datatypes.JSON
}

// Request is a persisted incoming payment request created by the
// request creator.
type Request struct {
	ID             uint
	Key            string `gorm:"unique;not null"`
	State          string
	AmountMsat     uint64
	Description    string
	Address        string
	PaymentRequest string
	LightningOnly  bool
	ReuseAddress   bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ExpiresAt      *time.Time
}

// Transaction is an on-chain payment attempt driven by the finalizer.
// Partially signed transactions are kept here so an online co-signer
// can complete them later.
type Transaction struct {
	ID            uint
	FinalizerId   string `gorm:"column:finalizer_id"`
	InvoiceKey    string
	State         string
	SigningMode   string
	Address       string
	AmountSat     uint64
	Message       string
	TxId          string
	RawTx         string
	Complete      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	BroadcastAt   *time.Time
	FailureReason string
	Metadata      datatypes.JSON
}
