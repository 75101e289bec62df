package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embercash/payflow/constants"
	"github.com/embercash/payflow/invoices"
	"github.com/embercash/payflow/walletclient"
)

func uint64Ptr(v uint64) *uint64 {
	return &v
}

func TestRoute_Onchain(t *testing.T) {
	invoice := &invoices.Invoice{
		Key:         "onchain-key",
		Type:        constants.INVOICE_TYPE_ONCHAIN,
		Address:     "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
		AmountMsat:  uint64Ptr(100_000_000),
		Description: "rent",
	}
	caps := &walletclient.Capabilities{IsLightning: true, LightningCanSendMsat: 1_000_000_000}

	plan, err := Route(invoice, caps)
	require.NoError(t, err)
	assert.Equal(t, constants.PLAN_ONCHAIN, plan.Type)
	assert.Equal(t, invoice.Address, plan.Address)
	assert.Equal(t, uint64(100_000_000), *plan.AmountMsat)
	assert.Equal(t, "rent", plan.Message)
	assert.False(t, plan.ConfirmationRequired)
}

func TestRoute_LightningWithinBudget(t *testing.T) {
	invoice := &invoices.Invoice{
		Key:        "abc123",
		Type:       constants.INVOICE_TYPE_LIGHTNING,
		AmountMsat: uint64Ptr(50_000),
	}
	caps := &walletclient.Capabilities{IsLightning: true, LightningCanSendMsat: 100_000}

	plan, err := Route(invoice, caps)
	require.NoError(t, err)
	assert.Equal(t, constants.PLAN_LIGHTNING, plan.Type)
	assert.Equal(t, "abc123", plan.InvoiceKey)
}

func TestRoute_LightningOverBudgetFallsBackOnchain(t *testing.T) {
	invoice := &invoices.Invoice{
		Key:        "abc123",
		Type:       constants.INVOICE_TYPE_LIGHTNING,
		Address:    "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
		AmountMsat: uint64Ptr(200_000),
	}
	caps := &walletclient.Capabilities{IsLightning: true, LightningCanSendMsat: 100_000}

	plan, err := Route(invoice, caps)
	require.NoError(t, err)
	assert.Equal(t, constants.PLAN_ONCHAIN, plan.Type)
}

func TestRoute_LightningEmptyKeyRefused(t *testing.T) {
	invoice := &invoices.Invoice{
		Type:       constants.INVOICE_TYPE_LIGHTNING,
		AmountMsat: uint64Ptr(50_000),
	}
	caps := &walletclient.Capabilities{IsLightning: true, LightningCanSendMsat: 100_000}

	_, err := Route(invoice, caps)
	assert.ErrorIs(t, err, ErrEmptyInvoiceKey)
}

func TestRoute_ChannelBackupRequiresConfirmation(t *testing.T) {
	invoice := &invoices.Invoice{
		Key:  "backup-key",
		Type: constants.INVOICE_TYPE_CHANNEL_BACKUP,
	}
	caps := &walletclient.Capabilities{}

	plan, err := Route(invoice, caps)
	require.NoError(t, err)
	assert.Equal(t, constants.PLAN_IMPORT_BACKUP, plan.Type)
	assert.True(t, plan.ConfirmationRequired)
}

func TestRoute_UnknownTypeRejected(t *testing.T) {
	invoice := &invoices.Invoice{Type: "bogus"}

	_, err := Route(invoice, &walletclient.Capabilities{})
	assert.Error(t, err)
}
