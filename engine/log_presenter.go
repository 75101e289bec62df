package engine

import (
	"github.com/embercash/payflow/invoices"
	"github.com/embercash/payflow/logger"
)

// LogPresenter is the headless presenter used by the daemon. Outcomes are
// logged and left for API clients to poll; confirmation prompts resolve to a
// fixed policy instead of a dialog.
type LogPresenter struct {
	// AutoConfirm answers every confirmation prompt. Fallback retries and
	// backup imports only proceed when it is true.
	AutoConfirm bool
}

func NewLogPresenter(autoConfirm bool) *LogPresenter {
	return &LogPresenter{AutoConfirm: autoConfirm}
}

func (p *LogPresenter) OpenInvoiceDialog(invoiceKey string, warning *invoices.ValidationWarning) {
	event := logger.Logger.Info().Str("invoice_key", invoiceKey)
	if warning != nil {
		event = event.Str("warning", warning.Code)
	}
	event.Msg("Invoice ready for payment")
}

func (p *LogPresenter) OpenPaymentProgress(invoiceKey string) {
	logger.Logger.Info().Str("invoice_key", invoiceKey).Msg("Payment in flight")
}

func (p *LogPresenter) PaymentSettled(invoiceKey string, preimage string) {
	logger.Logger.Info().Str("invoice_key", invoiceKey).Msg("Payment settled")
}

func (p *LogPresenter) PaymentFailed(invoiceKey string, reason string) {
	logger.Logger.Warn().
		Str("invoice_key", invoiceKey).
		Str("reason", reason).
		Msg("Payment failed")
}

func (p *LogPresenter) OpenExport(finalizerId string, txId string, rawTx string) {
	logger.Logger.Info().
		Str("finalizer_id", finalizerId).
		Str("tx_id", txId).
		Msg("Transaction finalized, available for export")
}

func (p *LogPresenter) ShowBroadcastFailed(txId string, code string, message string) {
	logger.Logger.Error().
		Str("tx_id", txId).
		Str("code", code).
		Str("message", message).
		Msg("Broadcast failed")
}

func (p *LogPresenter) Confirm(code string, message string) bool {
	logger.Logger.Info().
		Str("code", code).
		Str("message", message).
		Bool("auto_confirm", p.AutoConfirm).
		Msg("Confirmation prompt resolved by policy")
	return p.AutoConfirm
}

func (p *LogPresenter) PromptOtp() {
	logger.Logger.Info().Msg("One-time code required, submit via the OTP endpoint")
}

func (p *LogPresenter) ShowRequest(requestKey string) {
	logger.Logger.Info().Str("request_key", requestKey).Msg("Payment request created")
}

func (p *LogPresenter) ShowError(code string, message string) {
	logger.Logger.Error().
		Str("code", code).
		Str("message", message).
		Msg("Operation failed")
}

var _ Presenter = (*LogPresenter)(nil)
