package router

import (
	"errors"

	"github.com/embercash/payflow/constants"
	"github.com/embercash/payflow/invoices"
	"github.com/embercash/payflow/logger"
	"github.com/embercash/payflow/walletclient"
)

// Plan is the selected payment path for a validated invoice.
type Plan struct {
	Type string
	// InvoiceKey identifies the invoice to pay for the Lightning plan
	InvoiceKey string
	// Address and AmountMsat parameterize the on-chain plan
	Address    string
	AmountMsat *uint64
	Message    string
	// ConfirmationRequired is set for plans the caller must confirm before
	// executing (channel backup import)
	ConfirmationRequired bool
}

var ErrEmptyInvoiceKey = errors.New("lightning invoice has no key")

// Route decides the payment path for a validated invoice. Pure function of
// its inputs; evaluated in order, first match wins.
func Route(invoice *invoices.Invoice, caps *walletclient.Capabilities) (*Plan, error) {
	switch invoice.Type {
	case constants.INVOICE_TYPE_ONCHAIN:
		return &Plan{
			Type:       constants.PLAN_ONCHAIN,
			Address:    invoice.Address,
			AmountMsat: invoice.AmountMsat,
			Message:    invoice.Description,
		}, nil

	case constants.INVOICE_TYPE_LIGHTNING, constants.INVOICE_TYPE_LNURL_PAY:
		var amountMsat uint64
		if invoice.AmountMsat != nil {
			amountMsat = *invoice.AmountMsat
		}

		if amountMsat > caps.LightningCanSendMsat {
			// treat the invoice as an address-equivalent on-chain fallback
			logger.Logger.Debug().
				Str("key", invoice.Key).
				Uint64("amount_msat", amountMsat).
				Uint64("can_send_msat", caps.LightningCanSendMsat).
				Msg("Lightning amount exceeds spendable, routing on-chain")
			return &Plan{
				Type:       constants.PLAN_ONCHAIN,
				Address:    invoice.Address,
				AmountMsat: invoice.AmountMsat,
				Message:    invoice.Description,
			}, nil
		}

		if invoice.Key == "" {
			logger.Logger.Error().
				Str("type", invoice.Type).
				Msg("Refusing to route Lightning payment with empty invoice key")
			return nil, ErrEmptyInvoiceKey
		}

		return &Plan{
			Type:       constants.PLAN_LIGHTNING,
			InvoiceKey: invoice.Key,
			AmountMsat: invoice.AmountMsat,
		}, nil

	case constants.INVOICE_TYPE_CHANNEL_BACKUP:
		return &Plan{
			Type:                 constants.PLAN_IMPORT_BACKUP,
			InvoiceKey:           invoice.Key,
			ConfirmationRequired: true,
		}, nil
	}

	return nil, errors.New("cannot route invalid invoice")
}
