package engine

import (
	"github.com/embercash/payflow/invoices"
)

// Presenter is the presentation boundary. The engine never renders; it
// supplies data model entities and outcome callbacks and the caller decides
// how (or whether) to show them. Dialogs reference invoices, requests and
// finalizers by key, never by value.
type Presenter interface {
	// OpenInvoiceDialog presents a parsed invoice. The warning, if any, is
	// advisory and never blocks display.
	OpenInvoiceDialog(invoiceKey string, warning *invoices.ValidationWarning)

	OpenPaymentProgress(invoiceKey string)
	PaymentSettled(invoiceKey string, preimage string)
	PaymentFailed(invoiceKey string, reason string)

	// OpenExport offers the finished transaction for export (QR, file).
	// Offered uniformly on Done, whether broadcast or saved for a co-signer.
	OpenExport(finalizerId string, txId string, rawTx string)
	ShowBroadcastFailed(txId string, code string, message string)

	// Confirm asks a yes/no question, used by the request-creation fallback
	// policy and the channel backup import flow
	Confirm(code string, message string) bool

	// PromptOtp asks the user for a one-time code; the collected code is
	// submitted through Engine.SubmitOtp
	PromptOtp()

	ShowRequest(requestKey string)
	ShowError(code string, message string)
}
