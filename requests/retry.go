package requests

import (
	"errors"
	"fmt"
	"sync"

	"github.com/embercash/payflow/constants"
)

type ChainState string

const (
	ChainPending   ChainState = "pending"
	ChainConfirmed ChainState = "confirmed"
	ChainRetried   ChainState = "retried"
	ChainDeclined  ChainState = "declined"
)

// RetryChain models one confirmation-then-retry flow as an explicit state
// machine (Pending → Confirmed → Retried, or Pending → Declined) so the
// no-loop invariant is mechanically checkable: a chain advances forward
// only, and a retried attempt never opens a second confirmation.
type RetryChain struct {
	mu    sync.Mutex
	code  string
	state ChainState
}

func NewRetryChain(code string) (*RetryChain, error) {
	if code != constants.REQUEST_ERROR_LN && code != constants.REQUEST_ERROR_REUSE_ADDR {
		return nil, fmt.Errorf("error code %q has no fallback", code)
	}
	return &RetryChain{code: code, state: ChainPending}, nil
}

func (c *RetryChain) State() ChainState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *RetryChain) Confirm() error {
	return c.advance(ChainPending, ChainConfirmed)
}

func (c *RetryChain) Decline() error {
	return c.advance(ChainPending, ChainDeclined)
}

func (c *RetryChain) MarkRetried() error {
	return c.advance(ChainConfirmed, ChainRetried)
}

func (c *RetryChain) advance(from ChainState, to ChainState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != from {
		return errors.New("retry chain cannot advance from " + string(c.state))
	}
	c.state = to
	return nil
}

// FallbackParams derives the retry parameters for the chain's error code.
// The derivation is a pure function of the code: calling it any number of
// times yields the same combination.
func (c *RetryChain) FallbackParams(params CreateParams) CreateParams {
	retry := params
	switch c.code {
	case constants.REQUEST_ERROR_LN:
		retry.LightningOnly = true
		retry.ReuseAddress = false
	case constants.REQUEST_ERROR_REUSE_ADDR:
		retry.LightningOnly = false
		retry.ReuseAddress = true
	}
	return retry
}
