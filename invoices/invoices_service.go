package invoices

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	decodepay "github.com/nbd-wtf/ln-decodepay"
	"gorm.io/gorm"

	"github.com/embercash/payflow/constants"
	"github.com/embercash/payflow/db"
	"github.com/embercash/payflow/logger"
	"github.com/embercash/payflow/walletclient"
)

const channelBackupScheme = "channel_backup:"
const lightningScheme = "lightning:"

type invoicesService struct {
	db     *gorm.DB
	params *chaincfg.Params
}

type InvoicesService interface {
	// Parse consumes raw user input, classifies and validates it against
	// the wallet capabilities, persists the result and returns it with a
	// stable key. The returned warning, if any, never blocks display.
	Parse(ctx context.Context, raw string, caps *walletclient.Capabilities) (*Invoice, *ValidationWarning, error)
	LookupInvoice(ctx context.Context, key string) (*Invoice, error)
	MarkInflight(key string) error
	MarkPaid(key string, preimage string) error
	MarkFailed(key string, reason string) error
}

func NewInvoicesService(gormDB *gorm.DB, network string) *invoicesService {
	return &invoicesService{
		db:     gormDB,
		params: chainParams(network),
	}
}

func chainParams(network string) *chaincfg.Params {
	switch network {
	case "testnet":
		return &chaincfg.TestNet3Params
	case "signet":
		return &chaincfg.SigNetParams
	case "regtest":
		return &chaincfg.RegressionNetParams
	default:
		return &chaincfg.MainNetParams
	}
}

// classification order: channel-backup blob, then Lightning invoice/LNURL,
// then on-chain URI/address, else malformed
func (svc *invoicesService) Parse(ctx context.Context, raw string, caps *walletclient.Capabilities) (*Invoice, *ValidationWarning, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil, NewParseError("empty payment identifier")
	}

	if strings.HasPrefix(raw, channelBackupScheme) {
		return svc.parseChannelBackup(raw)
	}

	if payload := extractLightningPayload(raw); payload != "" {
		if strings.HasPrefix(payload, "lnurl") {
			return svc.parseLnurl(raw, payload)
		}
		return svc.parseBolt11(raw, payload, caps)
	}

	if strings.HasPrefix(strings.ToLower(raw), bip21Scheme+":") {
		return svc.parseOnchainURI(raw, caps)
	}

	if _, err := btcutil.DecodeAddress(raw, svc.params); err == nil {
		return svc.saveOnchain(raw, raw, nil, "")
	}

	truncated := raw
	if len(truncated) > 100 {
		truncated = truncated[:100] + "..."
	}
	return nil, nil, NewParseError(fmt.Sprintf("unknown payment identifier: %s", truncated))
}

// extractLightningPayload strips an optional lightning: scheme and reports
// whether the remainder looks like a bolt11 invoice or lnurl string.
func extractLightningPayload(raw string) string {
	lower := strings.ToLower(raw)
	lower = strings.TrimPrefix(lower, lightningScheme)
	if strings.HasPrefix(lower, "lnurl") {
		return lower
	}
	for _, prefix := range []string{"lnbc", "lntb", "lntbs", "lnbcrt"} {
		if strings.HasPrefix(lower, prefix) {
			return lower
		}
	}
	return ""
}

func (svc *invoicesService) parseChannelBackup(raw string) (*Invoice, *ValidationWarning, error) {
	encoded := strings.TrimPrefix(raw, channelBackupScheme)
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(blob) == 0 {
		return nil, nil, NewParseError("malformed channel backup")
	}

	checksum := sha256.Sum256(blob)
	invoice := &db.Invoice{
		Key:    hex.EncodeToString(checksum[:]),
		Type:   constants.INVOICE_TYPE_CHANNEL_BACKUP,
		State:  constants.INVOICE_STATE_UNPAID,
		RawUri: raw,
	}
	return svc.save(invoice)
}

func (svc *invoicesService) parseBolt11(raw string, payload string, caps *walletclient.Capabilities) (*Invoice, *ValidationWarning, error) {
	paymentRequest, err := decodepay.Decodepay(payload)
	if err != nil {
		logger.Logger.Error().Err(err).
			Str("bolt11", payload).
			Msg("Failed to decode bolt11 invoice")
		return nil, nil, NewParseError("error parsing Lightning invoice")
	}

	expiresAt := time.Unix(int64(paymentRequest.CreatedAt+paymentRequest.Expiry), 0)
	if time.Now().After(expiresAt) {
		return nil, nil, NewValidationError(constants.ERROR_EXPIRED, "this invoice has expired")
	}

	if paymentRequest.MSatoshi == 0 {
		return nil, nil, NewValidationError(constants.ERROR_AMOUNT, "zero-amount invoices are not supported")
	}

	amountMsat := uint64(paymentRequest.MSatoshi)
	invoice := &db.Invoice{
		Key:            paymentRequest.PaymentHash,
		Type:           constants.INVOICE_TYPE_LIGHTNING,
		State:          constants.INVOICE_STATE_UNPAID,
		AmountMsat:     &amountMsat,
		Description:    paymentRequest.Description,
		PaymentRequest: payload,
		PaymentHash:    paymentRequest.PaymentHash,
		MinFinalCltv:   uint32(paymentRequest.MinFinalCLTVExpiry),
		RawUri:         raw,
		ExpiresAt:      &expiresAt,
	}

	saved, _, err := svc.save(invoice)
	if err != nil {
		return nil, nil, err
	}

	var warning *ValidationWarning
	if caps != nil && caps.LightningCanSendMsat == 0 {
		warning = &ValidationWarning{
			Code:    constants.WARNING_NO_CHANNELS,
			Message: "wallet has no usable channels, payment will fall back to on-chain",
		}
	}

	return saved, warning, nil
}

func (svc *invoicesService) parseLnurl(raw string, payload string) (*Invoice, *ValidationWarning, error) {
	endpoint, err := decodeLnurl(payload)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to decode lnurl")
		return nil, nil, NewValidationError(constants.ERROR_LNURL, "error parsing lnurl string")
	}

	checksum := sha256.Sum256([]byte(endpoint))
	invoice := &db.Invoice{
		Key:           hex.EncodeToString(checksum[:]),
		Type:          constants.INVOICE_TYPE_LNURL_PAY,
		State:         constants.INVOICE_STATE_UNPAID,
		LnurlEndpoint: endpoint,
		RawUri:        raw,
	}
	return svc.save(invoice)
}

func (svc *invoicesService) parseOnchainURI(raw string, caps *walletclient.Capabilities) (*Invoice, *ValidationWarning, error) {
	params, err := parseBip21URI(raw)
	if err != nil {
		return nil, nil, NewParseError(fmt.Sprintf("error parsing URI: %s", err))
	}

	// a BIP21 lightning parameter takes precedence when the wallet can use it
	if params.Lightning != "" && caps != nil && caps.IsLightning {
		return svc.parseBolt11(raw, strings.ToLower(params.Lightning), caps)
	}

	return svc.saveOnchain(raw, params.Address, params.AmountMsat, params.Message)
}

func (svc *invoicesService) saveOnchain(raw string, address string, amountMsat *uint64, message string) (*Invoice, *ValidationWarning, error) {
	if _, err := btcutil.DecodeAddress(address, svc.params); err != nil {
		return nil, nil, NewValidationError(constants.ERROR_INVALID_ADDRESS, "invalid address checksum")
	}

	keyInput := fmt.Sprintf("%s|%v|%s", address, amountMsat, message)
	checksum := sha256.Sum256([]byte(keyInput))

	invoice := &db.Invoice{
		Key:         hex.EncodeToString(checksum[:]),
		Type:        constants.INVOICE_TYPE_ONCHAIN,
		State:       constants.INVOICE_STATE_UNPAID,
		Address:     address,
		AmountMsat:  amountMsat,
		Description: message,
		RawUri:      raw,
	}
	return svc.save(invoice)
}

func (svc *invoicesService) save(invoice *db.Invoice) (*Invoice, *ValidationWarning, error) {
	var existing db.Invoice
	result := svc.db.Limit(1).Find(&existing, &db.Invoice{Key: invoice.Key})
	if result.Error != nil {
		return nil, nil, result.Error
	}
	if result.RowsAffected > 0 {
		return &existing, nil, nil
	}

	err := svc.db.Create(invoice).Error
	if err != nil {
		logger.Logger.Error().Err(err).Str("key", invoice.Key).Msg("Failed to persist invoice")
		return nil, nil, err
	}
	return invoice, nil, nil
}

func (svc *invoicesService) LookupInvoice(ctx context.Context, key string) (*Invoice, error) {
	var invoice db.Invoice
	result := svc.db.Limit(1).Find(&invoice, &db.Invoice{Key: key})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, NewNotFoundError()
	}

	// evaluate expiry lazily so key-holders always observe a fresh state
	if invoice.State == constants.INVOICE_STATE_UNPAID &&
		invoice.ExpiresAt != nil && time.Now().After(*invoice.ExpiresAt) {
		err := svc.db.Model(&invoice).Update("state", constants.INVOICE_STATE_EXPIRED).Error
		if err != nil {
			return nil, err
		}
	}

	return &invoice, nil
}

func (svc *invoicesService) MarkInflight(key string) error {
	return svc.setState(key, map[string]interface{}{
		"state": constants.INVOICE_STATE_INFLIGHT,
	})
}

func (svc *invoicesService) MarkPaid(key string, preimage string) error {
	now := time.Now()
	return svc.setState(key, map[string]interface{}{
		"state":      constants.INVOICE_STATE_PAID,
		"preimage":   &preimage,
		"settled_at": &now,
	})
}

func (svc *invoicesService) MarkFailed(key string, reason string) error {
	return svc.setState(key, map[string]interface{}{
		"state":          constants.INVOICE_STATE_FAILED,
		"failure_reason": reason,
	})
}

func (svc *invoicesService) setState(key string, updates map[string]interface{}) error {
	result := svc.db.Model(&db.Invoice{}).Where("key = ?", key).Updates(updates)
	if result.Error != nil {
		logger.Logger.Error().Err(result.Error).Str("key", key).Msg("Failed to update invoice state")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return NewNotFoundError()
	}
	return nil
}
