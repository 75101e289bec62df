package otp

import (
	"context"
	"errors"
	"sync"

	"github.com/embercash/payflow/constants"
	"github.com/embercash/payflow/events"
	"github.com/embercash/payflow/logger"
	"github.com/embercash/payflow/walletclient"
)

var ErrNoPendingChallenge = errors.New("no one-time code challenge is pending")
var ErrEmptyCode = errors.New("one-time code must not be empty")

// Gate interposes a second-factor challenge raised by the backend mid-signing.
// The in-flight signing operation stays suspended inside the wallet client;
// the gate only collects a code and resumes by submitting it. Correctness is
// judged by the backend: a rejected code makes the backend re-raise the same
// challenge and the gate re-prompts, with no retry limit of its own.
type Gate struct {
	mu      sync.Mutex
	client  walletclient.WalletClient
	pending bool
	prompts uint

	// onPrompt is invoked every time a challenge is raised, including
	// re-raises after a rejected code
	onPrompt func()
}

func NewGate(onPrompt func()) *Gate {
	return &Gate{onPrompt: onPrompt}
}

func (g *Gate) SetClient(client walletclient.WalletClient) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.client = client
	g.pending = false
}

func (g *Gate) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}

func (g *Gate) Prompts() uint {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prompts
}

// ConsumeEvent reacts to the backend raising an OTP challenge.
func (g *Gate) ConsumeEvent(ctx context.Context, event *events.Event, globalProperties map[string]interface{}) {
	if event.Event != constants.EVENT_OTP_REQUESTED {
		return
	}

	g.mu.Lock()
	g.pending = true
	g.prompts++
	onPrompt := g.onPrompt
	g.mu.Unlock()

	logger.Logger.Info().Msg("One-time code requested by wallet backend")

	if onPrompt != nil {
		onPrompt()
	}
}

// Submit forwards the collected code to the backend. The pending flag is
// cleared before submission; a rejection re-raises the challenge as a fresh
// event and sets it again.
func (g *Gate) Submit(ctx context.Context, code string) error {
	if code == "" {
		return ErrEmptyCode
	}

	g.mu.Lock()
	if !g.pending {
		g.mu.Unlock()
		return ErrNoPendingChallenge
	}
	g.pending = false
	client := g.client
	g.mu.Unlock()

	if client == nil {
		return errors.New("no wallet client attached")
	}

	err := client.FinishOtp(ctx, code)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to submit one-time code")
		return err
	}
	return nil
}

// Cancel abandons the pending challenge without submitting a code.
func (g *Gate) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = false
}
