package finalizer

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/embercash/payflow/constants"
	"github.com/embercash/payflow/db"
	"github.com/embercash/payflow/events"
	"github.com/embercash/payflow/logger"
	"github.com/embercash/payflow/walletclient"
)

// Finalizer drives a single on-chain payment attempt through construction,
// signing, saving or broadcast. The signing mode is decided once at
// construction and is immutable for the life of the instance.
type Finalizer struct {
	Id         string
	InvoiceKey string
	Address    string
	AmountSat  uint64
	Message    string

	signingMode string
	canComplete bool

	mu            sync.Mutex
	state         string
	inFlight      bool
	txId          string
	rawTx         string
	failureReason string

	gormDB         *gorm.DB
	client         walletclient.WalletClient
	eventPublisher events.EventPublisher
	onTerminal     func(f *Finalizer)
}

type BroadcastFailedEventProperties struct {
	TxId    string `json:"tx_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

var ErrBusy = errors.New("finalizer has an operation in flight")
var ErrNotRetryable = errors.New("finalizer is not in a retryable state")

func newFinalizer(id string, invoiceKey string, address string, amountSat uint64, message string, caps *walletclient.Capabilities, client walletclient.WalletClient, gormDB *gorm.DB, eventPublisher events.EventPublisher) *Finalizer {
	canComplete := !caps.IsWatchOnly && caps.CanSignWithoutCosigner
	signingMode := constants.SIGNING_MODE_SIGN_AND_SAVE
	if canComplete {
		signingMode = constants.SIGNING_MODE_SIGN_AND_SEND
	}

	f := &Finalizer{
		Id:             id,
		InvoiceKey:     invoiceKey,
		Address:        address,
		AmountSat:      amountSat,
		Message:        message,
		signingMode:    signingMode,
		canComplete:    canComplete,
		state:          constants.TRANSACTION_STATE_BUILT,
		gormDB:         gormDB,
		client:         client,
		eventPublisher: eventPublisher,
	}

	err := gormDB.Create(&db.Transaction{
		FinalizerId: id,
		InvoiceKey:  invoiceKey,
		State:       constants.TRANSACTION_STATE_BUILT,
		SigningMode: signingMode,
		Address:     address,
		AmountSat:   amountSat,
		Message:     message,
	}).Error
	if err != nil {
		logger.Logger.Error().Err(err).Str("finalizer_id", id).Msg("Failed to persist transaction")
	}

	return f
}

func (f *Finalizer) State() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Finalizer) SigningMode() string {
	return f.signingMode
}

func (f *Finalizer) CanComplete() bool {
	return f.canComplete
}

func (f *Finalizer) TxId() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txId
}

func (f *Finalizer) RawTx() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rawTx
}

func (f *Finalizer) FailureReason() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failureReason
}

// Start enters Signing from Built and runs the attempt to a terminal state.
// The caller is expected to invoke it from its own goroutine; completion is
// reported through the event bus.
func (f *Finalizer) Start(ctx context.Context) error {
	return f.run(ctx, constants.TRANSACTION_STATE_BUILT)
}

// Retry re-enters Signing after SignFailed or BroadcastFailed. Only ever
// triggered by user action, never automatically.
func (f *Finalizer) Retry(ctx context.Context) error {
	f.mu.Lock()
	state := f.state
	f.mu.Unlock()

	if state != constants.TRANSACTION_STATE_SIGN_FAILED && state != constants.TRANSACTION_STATE_BROADCAST_FAILED {
		return ErrNotRetryable
	}
	return f.run(ctx, state)
}

func (f *Finalizer) run(ctx context.Context, fromState string) error {
	f.mu.Lock()
	if f.inFlight {
		f.mu.Unlock()
		return ErrBusy
	}
	if f.state != fromState {
		f.mu.Unlock()
		return ErrNotRetryable
	}
	f.inFlight = true
	f.state = constants.TRANSACTION_STATE_SIGNING
	f.mu.Unlock()

	f.updateTransaction(map[string]interface{}{"state": constants.TRANSACTION_STATE_SIGNING})

	defer func() {
		f.mu.Lock()
		f.inFlight = false
		f.mu.Unlock()
	}()

	logger.Logger.Info().
		Str("finalizer_id", f.Id).
		Str("address", f.Address).
		Uint64("amount_sat", f.AmountSat).
		Str("signing_mode", f.signingMode).
		Msg("Signing transaction")

	signed, err := f.client.SignTransaction(ctx, f.Address, f.AmountSat, f.Message)
	if err != nil {
		logger.Logger.Error().Err(err).Str("finalizer_id", f.Id).Msg("Failed to sign transaction")
		f.fail(constants.TRANSACTION_STATE_SIGN_FAILED, err.Error())
		f.eventPublisher.Publish(&events.Event{
			Event:      constants.EVENT_SIGN_FAILED,
			Properties: f,
		})
		return err
	}

	f.mu.Lock()
	f.txId = signed.TxId
	f.rawTx = signed.RawTx
	f.mu.Unlock()

	if signed.Complete && f.signingMode == constants.SIGNING_MODE_SIGN_AND_SEND {
		f.setState(constants.TRANSACTION_STATE_FULLY_SIGNED)
		return f.broadcast(ctx)
	}

	f.setState(constants.TRANSACTION_STATE_PARTIALLY_SIGNED)
	return f.save(signed.Complete)
}

func (f *Finalizer) broadcast(ctx context.Context) error {
	f.setState(constants.TRANSACTION_STATE_BROADCASTING)

	txId, err := f.client.BroadcastTransaction(ctx, f.rawTx)
	if err != nil {
		var broadcastErr *walletclient.BroadcastError
		code := "unknown"
		message := err.Error()
		if errors.As(err, &broadcastErr) {
			txId = broadcastErr.TxId
			code = broadcastErr.Code
			message = broadcastErr.Message
		}

		logger.Logger.Error().Err(err).
			Str("finalizer_id", f.Id).
			Str("tx_id", txId).
			Msg("Failed to broadcast transaction")

		f.mu.Lock()
		f.txId = txId
		f.mu.Unlock()
		f.fail(constants.TRANSACTION_STATE_BROADCAST_FAILED, message)

		f.eventPublisher.Publish(&events.Event{
			Event: constants.EVENT_BROADCAST_FAILED,
			Properties: &BroadcastFailedEventProperties{
				TxId:    txId,
				Code:    code,
				Message: message,
			},
		})
		return err
	}

	f.mu.Lock()
	f.txId = txId
	f.mu.Unlock()

	now := time.Now()
	f.updateTransaction(map[string]interface{}{
		"state":        constants.TRANSACTION_STATE_DONE,
		"tx_id":        txId,
		"raw_tx":       f.RawTx(),
		"complete":     true,
		"broadcast_at": &now,
	})
	f.terminal(constants.TRANSACTION_STATE_DONE)

	logger.Logger.Info().
		Str("finalizer_id", f.Id).
		Str("tx_id", txId).
		Msg("Broadcast transaction")

	f.eventPublisher.Publish(&events.Event{
		Event:      constants.EVENT_BROADCAST_SUCCESS,
		Properties: f,
	})
	return nil
}

// save persists the signed transaction locally so an online counterpart can
// complete and broadcast it. Done is uniform: export is offered either way.
func (f *Finalizer) save(complete bool) error {
	f.setState(constants.TRANSACTION_STATE_SAVING)

	f.updateTransaction(map[string]interface{}{
		"state":    constants.TRANSACTION_STATE_DONE,
		"tx_id":    f.TxId(),
		"raw_tx":   f.RawTx(),
		"complete": complete,
	})
	f.terminal(constants.TRANSACTION_STATE_DONE)

	logger.Logger.Info().
		Str("finalizer_id", f.Id).
		Bool("complete", complete).
		Msg("Saved transaction")

	f.eventPublisher.Publish(&events.Event{
		Event:      constants.EVENT_TRANSACTION_SAVED,
		Properties: f,
	})
	return nil
}

func (f *Finalizer) fail(state string, reason string) {
	f.mu.Lock()
	f.failureReason = reason
	f.state = state
	f.mu.Unlock()
	f.updateTransaction(map[string]interface{}{
		"state":          state,
		"tx_id":          f.TxId(),
		"failure_reason": reason,
	})
}

// setState tracks fleeting intermediate states in memory only; durable
// states are written by the transition that reaches them.
func (f *Finalizer) setState(state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
}

// terminal marks the finalizer done and releases it from the arena
func (f *Finalizer) terminal(state string) {
	f.mu.Lock()
	f.state = state
	onTerminal := f.onTerminal
	f.mu.Unlock()

	if onTerminal != nil {
		onTerminal(f)
	}
}

func (f *Finalizer) updateTransaction(updates map[string]interface{}) {
	err := f.gormDB.Model(&db.Transaction{}).
		Where("finalizer_id = ?", f.Id).
		Updates(updates).Error
	if err != nil {
		logger.Logger.Error().Err(err).Str("finalizer_id", f.Id).Msg("Failed to update transaction")
	}
}
