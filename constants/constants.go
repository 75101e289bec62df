package constants

// shared constants used by multiple packages

const (
	INVOICE_TYPE_ONCHAIN        = "onchain"
	INVOICE_TYPE_LIGHTNING      = "lightning"
	INVOICE_TYPE_LNURL_PAY      = "lnurl_pay"
	INVOICE_TYPE_CHANNEL_BACKUP = "channel_backup"

	INVOICE_STATE_UNPAID   = "UNPAID"
	INVOICE_STATE_EXPIRED  = "EXPIRED"
	INVOICE_STATE_INFLIGHT = "INFLIGHT"
	INVOICE_STATE_PAID     = "PAID"
	INVOICE_STATE_FAILED   = "FAILED"
)

const (
	PLAN_ONCHAIN       = "onchain"
	PLAN_LIGHTNING     = "lightning"
	PLAN_IMPORT_BACKUP = "import_backup"
)

const (
	SIGNING_MODE_SIGN_AND_SEND = "sign_and_send"
	SIGNING_MODE_SIGN_AND_SAVE = "sign_and_save"
)

const (
	TRANSACTION_STATE_BUILT            = "BUILT"
	TRANSACTION_STATE_SIGNING          = "SIGNING"
	TRANSACTION_STATE_PARTIALLY_SIGNED = "PARTIALLY_SIGNED"
	TRANSACTION_STATE_FULLY_SIGNED     = "FULLY_SIGNED"
	TRANSACTION_STATE_SAVING           = "SAVING"
	TRANSACTION_STATE_BROADCASTING     = "BROADCASTING"
	TRANSACTION_STATE_DONE             = "DONE"
	TRANSACTION_STATE_SIGN_FAILED      = "SIGN_FAILED"
	TRANSACTION_STATE_BROADCAST_FAILED = "BROADCAST_FAILED"
)

const (
	REQUEST_STATE_PENDING = "PENDING"
	REQUEST_STATE_CREATED = "CREATED"
	REQUEST_STATE_FAILED  = "FAILED"
)

// request creation error codes with a policy-driven fallback.
// any other code is surfaced as-is and stops the attempt.
const (
	REQUEST_ERROR_LN         = "ln"
	REQUEST_ERROR_REUSE_ADDR = "reuse_addr"
)

// validation warning and error codes emitted by the invoice parser
const (
	WARNING_NO_CHANNELS = "no_channels"

	ERROR_UNKNOWN_SCHEME  = "unknown_scheme"
	ERROR_EXPIRED         = "expired"
	ERROR_AMOUNT          = "amount"
	ERROR_INVALID_ADDRESS = "invalid_address"
	ERROR_LNURL           = "lnurl"
	ERROR_INTERNAL        = "internal"
)

// event names published on the engine event bus
const (
	EVENT_PAYMENT_SETTLED        = "payflow_payment_settled"
	EVENT_PAYMENT_FAILED         = "payflow_payment_failed"
	EVENT_BROADCAST_SUCCESS      = "payflow_broadcast_success"
	EVENT_SIGN_FAILED            = "payflow_sign_failed"
	EVENT_BROADCAST_FAILED       = "payflow_broadcast_failed"
	EVENT_TRANSACTION_SAVED      = "payflow_transaction_saved"
	EVENT_REQUEST_CREATE_SUCCESS = "payflow_request_create_success"
	EVENT_REQUEST_CREATE_ERROR   = "payflow_request_create_error"
	EVENT_OTP_REQUESTED          = "payflow_otp_requested"
)

// limit encoded metadata length so list responses stay well below transport
// frame limits
const INVOICE_METADATA_MAX_LENGTH = 4096
