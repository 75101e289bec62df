package engine

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/embercash/payflow/config"
	"github.com/embercash/payflow/constants"
	"github.com/embercash/payflow/db"
	"github.com/embercash/payflow/events"
	"github.com/embercash/payflow/finalizer"
	"github.com/embercash/payflow/invoices"
	"github.com/embercash/payflow/lightning"
	"github.com/embercash/payflow/logger"
	"github.com/embercash/payflow/otp"
	"github.com/embercash/payflow/requests"
	"github.com/embercash/payflow/router"
	"github.com/embercash/payflow/walletclient"
)

// Engine is the orchestration core: it interprets payment intents, routes
// them, drives finalization and request creation, and buffers intents that
// arrive before a wallet is active. All components receive the wallet
// context explicitly; there is no ambient current-wallet lookup.
type Engine struct {
	gormDB         *gorm.DB
	cfg            config.Config
	eventPublisher events.EventPublisher
	presenter      Presenter

	invoicesSvc invoices.InvoicesService
	requestsSvc requests.RequestsService
	driver      lightning.Driver
	arena       *finalizer.Arena
	otpGate     *otp.Gate

	mu         sync.Mutex
	client     walletclient.WalletClient
	caps       *walletclient.Capabilities
	pendingURI string
	subscribed bool
}

func NewEngine(gormDB *gorm.DB, cfg config.Config, eventPublisher events.EventPublisher, presenter Presenter) *Engine {
	invoicesSvc := invoices.NewInvoicesService(gormDB, cfg.GetNetwork())

	e := &Engine{
		gormDB:         gormDB,
		cfg:            cfg,
		eventPublisher: eventPublisher,
		presenter:      presenter,
		invoicesSvc:    invoicesSvc,
		requestsSvc:    requests.NewRequestsService(gormDB, eventPublisher),
		driver:         lightning.NewDriver(invoicesSvc, eventPublisher),
		arena:          finalizer.NewArena(gormDB, eventPublisher),
	}
	e.otpGate = otp.NewGate(presenter.PromptOtp)
	return e
}

func (e *Engine) Arena() *finalizer.Arena {
	return e.arena
}

func (e *Engine) Invoices() invoices.InvoicesService {
	return e.invoicesSvc
}

func (e *Engine) Requests() requests.RequestsService {
	return e.requestsSvc
}

func (e *Engine) OtpGate() *otp.Gate {
	return e.otpGate
}

// SetActiveWallet switches the engine to a new wallet backend. Event
// consumers are resubscribed exactly once per switch, and a deferred URI is
// applied exactly once.
func (e *Engine) SetActiveWallet(ctx context.Context, client walletclient.WalletClient) error {
	caps, err := client.GetCapabilities(ctx)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to read wallet capabilities")
		return err
	}

	e.mu.Lock()
	if e.subscribed {
		e.eventPublisher.RemoveSubscriber(e.otpGate)
		e.eventPublisher.RemoveSubscriber(e)
	}
	e.eventPublisher.RegisterSubscriber(e.otpGate)
	e.eventPublisher.RegisterSubscriber(e)
	e.subscribed = true

	e.client = client
	e.caps = caps
	e.otpGate.SetClient(client)

	pendingURI := e.pendingURI
	e.pendingURI = ""
	e.mu.Unlock()

	logger.Logger.Info().
		Bool("is_lightning", caps.IsLightning).
		Msg("Activated wallet")

	if pendingURI != "" {
		logger.Logger.Debug().Msg("Applying deferred payment URI")
		e.HandleURI(ctx, pendingURI)
	}

	return nil
}

// ActiveWallet returns the current wallet client and its capabilities, or
// nil when no wallet has been activated.
func (e *Engine) ActiveWallet() (walletclient.WalletClient, *walletclient.Capabilities) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client, e.caps
}

// HandleURI receives an external URI or deep link. Without an active wallet
// the URI is held as a single pending value, last write wins, and applied
// exactly once when a wallet becomes available.
func (e *Engine) HandleURI(ctx context.Context, raw string) {
	e.mu.Lock()
	if e.client == nil {
		e.pendingURI = raw
		e.mu.Unlock()
		logger.Logger.Debug().Msg("No active wallet, deferring payment URI")
		return
	}
	caps := e.caps
	e.mu.Unlock()

	invoice, warning, err := e.invoicesSvc.Parse(ctx, raw, caps)
	if err != nil {
		// dialog state survives; the caller may retry with a fresh string
		var validationErr *invoices.ValidationError
		if errors.As(err, &validationErr) {
			e.presenter.ShowError(validationErr.Code, validationErr.Message)
		} else {
			e.presenter.ShowError(constants.ERROR_UNKNOWN_SCHEME, err.Error())
		}
		return
	}

	e.presenter.OpenInvoiceDialog(invoice.Key, warning)
}

// Pay executes the payment plan for a previously parsed invoice. An amount
// override below a Lightning invoice's declared amount is refused.
func (e *Engine) Pay(ctx context.Context, invoiceKey string, amountOverrideMsat *uint64) error {
	client, caps := e.ActiveWallet()
	if client == nil {
		return errors.New("no active wallet")
	}

	invoice, err := e.invoicesSvc.LookupInvoice(ctx, invoiceKey)
	if err != nil {
		return err
	}

	effective := *invoice
	if amountOverrideMsat != nil {
		if invoice.Type == constants.INVOICE_TYPE_LIGHTNING &&
			invoice.AmountMsat != nil && *amountOverrideMsat < *invoice.AmountMsat {
			return errors.New("cannot pay less than the amount specified in the invoice")
		}
		effective.AmountMsat = amountOverrideMsat
	}

	plan, err := router.Route(&effective, caps)
	if err != nil {
		return err
	}

	switch plan.Type {
	case constants.PLAN_LIGHTNING:
		return e.payLightning(ctx, plan, client)
	case constants.PLAN_ONCHAIN:
		return e.payOnchain(ctx, invoice.Key, plan, caps, client)
	case constants.PLAN_IMPORT_BACKUP:
		return e.importBackup(ctx, invoice, client)
	}
	return errors.New("unsupported payment plan")
}

func (e *Engine) payLightning(ctx context.Context, plan *router.Plan, client walletclient.WalletClient) error {
	updates, err := e.driver.Pay(ctx, plan.InvoiceKey, client)
	if err != nil {
		return err
	}

	e.presenter.OpenPaymentProgress(plan.InvoiceKey)

	go func() {
		for update := range updates {
			switch update.Status {
			case lightning.UpdateSettled:
				e.presenter.PaymentSettled(plan.InvoiceKey, update.Preimage)
			case lightning.UpdateFailed:
				// the caller decides whether to offer an on-chain retry
				e.presenter.PaymentFailed(plan.InvoiceKey, update.Reason)
			}
		}
	}()

	return nil
}

func (e *Engine) payOnchain(ctx context.Context, invoiceKey string, plan *router.Plan, caps *walletclient.Capabilities, client walletclient.WalletClient) error {
	if plan.AmountMsat == nil || *plan.AmountMsat == 0 {
		return errors.New("amount required for on-chain payment")
	}
	if plan.Address == "" {
		return errors.New("on-chain plan has no address")
	}

	f := e.arena.Create(invoiceKey, plan.Address, *plan.AmountMsat/1000, plan.Message, caps, client)

	go func() {
		if err := f.Start(ctx); err != nil {
			logger.Logger.Error().Err(err).Str("finalizer_id", f.Id).Msg("Finalization attempt failed")
		}
	}()

	return nil
}

func (e *Engine) importBackup(ctx context.Context, invoice *invoices.Invoice, client walletclient.WalletClient) error {
	if !e.presenter.Confirm("import_backup", "Import channel backup into the active wallet?") {
		return nil
	}

	encoded := strings.TrimPrefix(invoice.RawUri, "channel_backup:")
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return err
	}

	err = client.ImportChannelBackup(ctx, blob)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to import channel backup")
		e.presenter.ShowError(constants.ERROR_INTERNAL, err.Error())
		return err
	}
	return nil
}

// RetryFinalizer re-enters signing for a failed attempt, from user action
func (e *Engine) RetryFinalizer(ctx context.Context, finalizerId string) error {
	f, ok := e.arena.Get(finalizerId)
	if !ok {
		return errors.New("finalizer not found")
	}
	return f.Retry(ctx)
}

// CancelFinalizer releases a finalizer on dialog close. A pending signature
// keeps the instance alive until the backend reports completion.
func (e *Engine) CancelFinalizer(finalizerId string) bool {
	return e.arena.Cancel(finalizerId)
}

// CreateRequest builds an incoming payment request with the graduated
// fallback policy, confirming each fallback through the presenter.
func (e *Engine) CreateRequest(ctx context.Context, amountMsat uint64, description string) error {
	client, _ := e.ActiveWallet()
	if client == nil {
		return errors.New("no active wallet")
	}

	params := requests.CreateParams{
		AmountMsat:  amountMsat,
		Description: description,
		Expiry:      e.cfg.GetEnv().RequestExpiry,
	}

	request, err := e.requestsSvc.CreateWithFallback(ctx, params, client, e.presenter.Confirm)
	if err != nil {
		code := walletclient.RequestErrorCode(err)
		e.presenter.ShowError(code, err.Error())
		return err
	}

	e.presenter.ShowRequest(request.Key)
	return nil
}

// SubmitOtp resumes a suspended signing operation with the collected code
func (e *Engine) SubmitOtp(ctx context.Context, code string) error {
	return e.otpGate.Submit(ctx, code)
}

// ConsumeEvent surfaces finalizer outcomes through the presenter.
func (e *Engine) ConsumeEvent(ctx context.Context, event *events.Event, globalProperties map[string]interface{}) {
	switch event.Event {
	case constants.EVENT_BROADCAST_SUCCESS, constants.EVENT_TRANSACTION_SAVED:
		f, ok := event.Properties.(*finalizer.Finalizer)
		if !ok {
			logger.Logger.Error().Interface("event", event).Msg("Failed to cast event")
			return
		}
		e.presenter.OpenExport(f.Id, f.TxId(), f.RawTx())

	case constants.EVENT_BROADCAST_FAILED:
		properties, ok := event.Properties.(*finalizer.BroadcastFailedEventProperties)
		if !ok {
			logger.Logger.Error().Interface("event", event).Msg("Failed to cast event")
			return
		}
		e.presenter.ShowBroadcastFailed(properties.TxId, properties.Code, properties.Message)
	}
}

// PendingURI exposes the deferred intent for inspection
func (e *Engine) PendingURI() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pendingURI
}

var _ events.EventSubscriber = (*Engine)(nil)

// Transactions lists the finalized on-chain attempts, newest first.
func (e *Engine) Transactions(ctx context.Context, limit int) ([]db.Transaction, error) {
	var transactions []db.Transaction
	tx := e.gormDB.Order("created_at desc")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	err := tx.Find(&transactions).Error
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to list transactions")
		return nil, err
	}
	return transactions, nil
}
