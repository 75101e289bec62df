package finalizer

import (
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/embercash/payflow/constants"
	"github.com/embercash/payflow/events"
	"github.com/embercash/payflow/logger"
	"github.com/embercash/payflow/walletclient"
)

// Arena owns finalizer instances, addressed by a stable identifier separate
// from any presentation lifetime. Dialogs hold the id and look instances up;
// entries are reaped on terminal state, never on dialog close, so a pending
// signature survives dismissal of the dialog that spawned it.
type Arena struct {
	mu             sync.Mutex
	finalizers     map[string]*Finalizer
	gormDB         *gorm.DB
	eventPublisher events.EventPublisher
}

func NewArena(gormDB *gorm.DB, eventPublisher events.EventPublisher) *Arena {
	return &Arena{
		finalizers:     map[string]*Finalizer{},
		gormDB:         gormDB,
		eventPublisher: eventPublisher,
	}
}

// Create builds a finalizer for a confirmed payment amount and registers it.
// The signing mode is fixed here from the capabilities snapshot and never
// revisited.
func (a *Arena) Create(invoiceKey string, address string, amountSat uint64, message string, caps *walletclient.Capabilities, client walletclient.WalletClient) *Finalizer {
	id := uuid.NewString()
	f := newFinalizer(id, invoiceKey, address, amountSat, message, caps, client, a.gormDB, a.eventPublisher)
	f.onTerminal = a.reap

	a.mu.Lock()
	a.finalizers[id] = f
	a.mu.Unlock()

	logger.Logger.Debug().
		Str("finalizer_id", id).
		Str("invoice_key", invoiceKey).
		Str("signing_mode", f.SigningMode()).
		Msg("Created finalizer")

	return f
}

func (a *Arena) Get(id string) (*Finalizer, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, ok := a.finalizers[id]
	return f, ok
}

func (a *Arena) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.finalizers)
}

// Cancel releases a finalizer on user cancellation. A finalizer with a
// pending signing or broadcast operation is kept alive until the backend
// reports completion; Cancel then reports false and the terminal-state reap
// takes over.
func (a *Arena) Cancel(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, ok := a.finalizers[id]
	if !ok {
		return true
	}

	f.mu.Lock()
	busy := f.inFlight
	f.mu.Unlock()
	if busy {
		logger.Logger.Info().
			Str("finalizer_id", id).
			Msg("Finalizer has a pending operation, keeping it alive past dialog close")
		return false
	}

	delete(a.finalizers, id)
	return true
}

func (a *Arena) reap(f *Finalizer) {
	if f.State() != constants.TRANSACTION_STATE_DONE {
		return
	}

	a.mu.Lock()
	delete(a.finalizers, f.Id)
	a.mu.Unlock()

	logger.Logger.Debug().Str("finalizer_id", f.Id).Msg("Reaped finalizer")
}
