package invoices

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embercash/payflow/constants"
	"github.com/embercash/payflow/db"
	"github.com/embercash/payflow/tests"
	"github.com/embercash/payflow/walletclient"
)

// BIP173 test vector, passes the mainnet checksum
const testAddress = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"

var testCaps = &walletclient.Capabilities{
	IsLightning:          true,
	LightningCanSendMsat: 1_000_000_000,
}

func TestParse_MalformedInputLeavesNoInvoice(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	invoicesSvc := NewInvoicesService(svc.DB, "mainnet")

	_, _, err = invoicesSvc.Parse(ctx, "bc1qexampleaddress", testCaps)
	assert.Error(t, err)

	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)

	var count int64
	svc.DB.Model(&db.Invoice{}).Count(&count)
	assert.Zero(t, count)
}

func TestParse_EmptyInput(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	invoicesSvc := NewInvoicesService(svc.DB, "mainnet")

	_, _, err = invoicesSvc.Parse(ctx, "   ", testCaps)
	assert.Error(t, err)
}

func TestParse_OnchainAddress(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	invoicesSvc := NewInvoicesService(svc.DB, "mainnet")

	invoice, warning, err := invoicesSvc.Parse(ctx, testAddress, testCaps)
	require.NoError(t, err)
	assert.Nil(t, warning)
	assert.Equal(t, constants.INVOICE_TYPE_ONCHAIN, invoice.Type)
	assert.Equal(t, constants.INVOICE_STATE_UNPAID, invoice.State)
	assert.Equal(t, testAddress, invoice.Address)
	assert.Nil(t, invoice.AmountMsat)
	assert.NotEmpty(t, invoice.Key)

	// the same identifier resolves to the same stored invoice
	again, _, err := invoicesSvc.Parse(ctx, testAddress, testCaps)
	require.NoError(t, err)
	assert.Equal(t, invoice.Key, again.Key)

	var count int64
	svc.DB.Model(&db.Invoice{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestParse_Bip21URI(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	invoicesSvc := NewInvoicesService(svc.DB, "mainnet")

	invoice, _, err := invoicesSvc.Parse(ctx, "bitcoin:"+testAddress+"?amount=0.001&message=coffee", testCaps)
	require.NoError(t, err)
	assert.Equal(t, constants.INVOICE_TYPE_ONCHAIN, invoice.Type)
	assert.Equal(t, testAddress, invoice.Address)
	require.NotNil(t, invoice.AmountMsat)
	assert.Equal(t, uint64(100_000_000), *invoice.AmountMsat)
	assert.Equal(t, "coffee", invoice.Description)
}

func TestParse_Bip21UnknownRequiredParam(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	invoicesSvc := NewInvoicesService(svc.DB, "mainnet")

	_, _, err = invoicesSvc.Parse(ctx, "bitcoin:"+testAddress+"?req-somethingyoudontunderstand=50", testCaps)
	assert.Error(t, err)
}

func TestParse_Bolt11(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	invoicesSvc := NewInvoicesService(svc.DB, "mainnet")

	payReq := tests.CreateTestBolt11(t, 50_000_000, "test payment", time.Now(), time.Hour)

	invoice, warning, err := invoicesSvc.Parse(ctx, payReq, testCaps)
	require.NoError(t, err)
	assert.Nil(t, warning)
	assert.Equal(t, constants.INVOICE_TYPE_LIGHTNING, invoice.Type)
	assert.Equal(t, invoice.PaymentHash, invoice.Key)
	require.NotNil(t, invoice.AmountMsat)
	assert.Equal(t, uint64(50_000_000), *invoice.AmountMsat)
	assert.Equal(t, "test payment", invoice.Description)
	require.NotNil(t, invoice.ExpiresAt)
	assert.True(t, invoice.ExpiresAt.After(time.Now()))
}

func TestParse_Bolt11WithLightningScheme(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	invoicesSvc := NewInvoicesService(svc.DB, "mainnet")

	payReq := tests.CreateTestBolt11(t, 50_000_000, "test payment", time.Now(), time.Hour)

	invoice, _, err := invoicesSvc.Parse(ctx, "lightning:"+payReq, testCaps)
	require.NoError(t, err)
	assert.Equal(t, constants.INVOICE_TYPE_LIGHTNING, invoice.Type)
}

func TestParse_ExpiredBolt11(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	invoicesSvc := NewInvoicesService(svc.DB, "mainnet")

	payReq := tests.CreateTestBolt11(t, 50_000_000, "stale", time.Now().Add(-2*time.Hour), time.Hour)

	_, _, err = invoicesSvc.Parse(ctx, payReq, testCaps)
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, constants.ERROR_EXPIRED, validationErr.Code)
}

func TestParse_ZeroAmountBolt11(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	invoicesSvc := NewInvoicesService(svc.DB, "mainnet")

	payReq := tests.CreateTestBolt11(t, 0, "amountless", time.Now(), time.Hour)

	_, _, err = invoicesSvc.Parse(ctx, payReq, testCaps)
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, constants.ERROR_AMOUNT, validationErr.Code)
}

func TestParse_Bolt11NoChannelsWarning(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	invoicesSvc := NewInvoicesService(svc.DB, "mainnet")

	payReq := tests.CreateTestBolt11(t, 50_000_000, "test payment", time.Now(), time.Hour)

	noChannelCaps := &walletclient.Capabilities{
		IsLightning:          true,
		LightningCanSendMsat: 0,
	}

	invoice, warning, err := invoicesSvc.Parse(ctx, payReq, noChannelCaps)
	require.NoError(t, err)
	require.NotNil(t, warning)
	assert.Equal(t, constants.WARNING_NO_CHANNELS, warning.Code)
	// the warning is advisory, the invoice is stored regardless
	assert.Equal(t, constants.INVOICE_STATE_UNPAID, invoice.State)
}

func TestParse_Bip21LightningParamTakesPrecedence(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	invoicesSvc := NewInvoicesService(svc.DB, "mainnet")

	payReq := tests.CreateTestBolt11(t, 50_000_000, "unified", time.Now(), time.Hour)

	invoice, _, err := invoicesSvc.Parse(ctx, "bitcoin:"+testAddress+"?lightning="+payReq, testCaps)
	require.NoError(t, err)
	assert.Equal(t, constants.INVOICE_TYPE_LIGHTNING, invoice.Type)
}

func TestParse_Bip21LightningParamIgnoredWithoutLightningWallet(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	invoicesSvc := NewInvoicesService(svc.DB, "mainnet")

	payReq := tests.CreateTestBolt11(t, 50_000_000, "unified", time.Now(), time.Hour)

	onchainOnlyCaps := &walletclient.Capabilities{IsLightning: false}

	invoice, _, err := invoicesSvc.Parse(ctx, "bitcoin:"+testAddress+"?lightning="+payReq, onchainOnlyCaps)
	require.NoError(t, err)
	assert.Equal(t, constants.INVOICE_TYPE_ONCHAIN, invoice.Type)
	assert.Equal(t, testAddress, invoice.Address)
}

func TestParse_ChannelBackup(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	invoicesSvc := NewInvoicesService(svc.DB, "mainnet")

	blob := base64.StdEncoding.EncodeToString([]byte("backup-bytes"))

	invoice, _, err := invoicesSvc.Parse(ctx, "channel_backup:"+blob, testCaps)
	require.NoError(t, err)
	assert.Equal(t, constants.INVOICE_TYPE_CHANNEL_BACKUP, invoice.Type)
	assert.NotEmpty(t, invoice.Key)
}

func TestLookupInvoice_LazyExpiry(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	invoicesSvc := NewInvoicesService(svc.DB, "mainnet")

	expiresAt := time.Now().Add(-time.Minute)
	amountMsat := uint64(1000)
	svc.DB.Create(&db.Invoice{
		Key:        "stale-invoice",
		Type:       constants.INVOICE_TYPE_LIGHTNING,
		State:      constants.INVOICE_STATE_UNPAID,
		AmountMsat: &amountMsat,
		ExpiresAt:  &expiresAt,
	})

	invoice, err := invoicesSvc.LookupInvoice(ctx, "stale-invoice")
	require.NoError(t, err)
	assert.Equal(t, constants.INVOICE_STATE_EXPIRED, invoice.State)
}

func TestLookupInvoice_NotFound(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	invoicesSvc := NewInvoicesService(svc.DB, "mainnet")

	_, err = invoicesSvc.LookupInvoice(ctx, "missing")
	assert.Error(t, err)
	assert.True(t, IsNotFoundError(err))
	assert.False(t, IsNotFoundError(errors.New("some other error")))
}

func TestMarkPaid(t *testing.T) {
	ctx := context.TODO()

	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	invoicesSvc := NewInvoicesService(svc.DB, "mainnet")

	payReq := tests.CreateTestBolt11(t, 50_000_000, "test payment", time.Now(), time.Hour)
	invoice, _, err := invoicesSvc.Parse(ctx, payReq, testCaps)
	require.NoError(t, err)

	require.NoError(t, invoicesSvc.MarkInflight(invoice.Key))
	require.NoError(t, invoicesSvc.MarkPaid(invoice.Key, "00ff"))

	paid, err := invoicesSvc.LookupInvoice(ctx, invoice.Key)
	require.NoError(t, err)
	assert.Equal(t, constants.INVOICE_STATE_PAID, paid.State)
	require.NotNil(t, paid.Preimage)
	assert.Equal(t, "00ff", *paid.Preimage)
	assert.NotNil(t, paid.SettledAt)
}
