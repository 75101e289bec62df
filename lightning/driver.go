package lightning

import (
	"context"
	"errors"

	"github.com/embercash/payflow/constants"
	"github.com/embercash/payflow/events"
	"github.com/embercash/payflow/invoices"
	"github.com/embercash/payflow/logger"
	"github.com/embercash/payflow/walletclient"
)

const (
	UpdateProgress = "progress"
	UpdateSettled  = "settled"
	UpdateFailed   = "failed"
)

type PaymentUpdate struct {
	Status   string
	Preimage string
	Reason   string
}

var ErrEmptyKey = errors.New("refusing to pay invoice with empty key")

type driver struct {
	invoicesSvc    invoices.InvoicesService
	eventPublisher events.EventPublisher
}

type Driver interface {
	Pay(ctx context.Context, invoiceKey string, client walletclient.WalletClient) (<-chan PaymentUpdate, error)
}

func NewDriver(invoicesSvc invoices.InvoicesService, eventPublisher events.EventPublisher) *driver {
	return &driver{
		invoicesSvc:    invoicesSvc,
		eventPublisher: eventPublisher,
	}
}

// Pay issues a Lightning payment for a resolved invoice key and streams its
// progress to a terminal Settled or Failed update. The first update arrives
// immediately so a progress view can be presented on initiation.
func (d *driver) Pay(ctx context.Context, invoiceKey string, client walletclient.WalletClient) (<-chan PaymentUpdate, error) {
	if invoiceKey == "" {
		logger.Logger.Error().Msg("Refusing to initiate Lightning payment with empty invoice key")
		return nil, ErrEmptyKey
	}

	invoice, err := d.invoicesSvc.LookupInvoice(ctx, invoiceKey)
	if err != nil {
		return nil, err
	}
	if invoice.PaymentRequest == "" {
		return nil, errors.New("invoice has no payment request")
	}
	switch invoice.State {
	case constants.INVOICE_STATE_PAID:
		return nil, errors.New("this invoice has already been paid")
	case constants.INVOICE_STATE_INFLIGHT:
		return nil, errors.New("there is already a payment pending for this invoice")
	case constants.INVOICE_STATE_EXPIRED:
		return nil, errors.New("this invoice has expired")
	}

	if err := d.invoicesSvc.MarkInflight(invoiceKey); err != nil {
		return nil, err
	}

	updates := make(chan PaymentUpdate, 3)
	updates <- PaymentUpdate{Status: UpdateProgress}

	logger.Logger.Info().
		Str("key", invoiceKey).
		Msg("Initiating Lightning payment")

	go func() {
		defer close(updates)

		response, err := client.PayInvoice(ctx, invoice.PaymentRequest)
		if err != nil {
			logger.Logger.Error().Err(err).
				Str("key", invoiceKey).
				Msg("Lightning payment failed")

			if markErr := d.invoicesSvc.MarkFailed(invoiceKey, err.Error()); markErr != nil {
				logger.Logger.Error().Err(markErr).Str("key", invoiceKey).Msg("Failed to mark invoice failed")
			}
			d.eventPublisher.Publish(&events.Event{
				Event: constants.EVENT_PAYMENT_FAILED,
				Properties: map[string]interface{}{
					"key":    invoiceKey,
					"reason": err.Error(),
				},
			})
			updates <- PaymentUpdate{Status: UpdateFailed, Reason: err.Error()}
			return
		}

		if err := d.invoicesSvc.MarkPaid(invoiceKey, response.Preimage); err != nil {
			logger.Logger.Error().Err(err).Str("key", invoiceKey).Msg("Failed to mark invoice paid")
		}

		logger.Logger.Info().
			Str("key", invoiceKey).
			Uint64("fee_msat", response.FeeMsat).
			Msg("Lightning payment settled")

		d.eventPublisher.Publish(&events.Event{
			Event: constants.EVENT_PAYMENT_SETTLED,
			Properties: map[string]interface{}{
				"key":      invoiceKey,
				"preimage": response.Preimage,
			},
		})
		updates <- PaymentUpdate{Status: UpdateSettled, Preimage: response.Preimage}
	}()

	return updates, nil
}
