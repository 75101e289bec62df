package requests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/embercash/payflow/constants"
	"github.com/embercash/payflow/db"
	"github.com/embercash/payflow/events"
	"github.com/embercash/payflow/logger"
	"github.com/embercash/payflow/walletclient"
)

type CreateParams struct {
	AmountMsat    uint64
	Description   string
	Expiry        uint64
	LightningOnly bool
	ReuseAddress  bool
}

// Confirmer asks the user a yes/no question before a fallback retry. The
// presentation layer owns the dialog; this is only the decision callback.
type Confirmer func(code string, message string) bool

type requestsService struct {
	db             *gorm.DB
	eventPublisher events.EventPublisher
}

type RequestsService interface {
	Create(ctx context.Context, params CreateParams, client walletclient.WalletClient) (*db.Request, error)
	CreateWithFallback(ctx context.Context, params CreateParams, client walletclient.WalletClient, confirm Confirmer) (*db.Request, error)
	LookupRequest(ctx context.Context, key string) (*db.Request, error)
}

func NewRequestsService(gormDB *gorm.DB, eventPublisher events.EventPublisher) *requestsService {
	return &requestsService{
		db:             gormDB,
		eventPublisher: eventPublisher,
	}
}

// Create issues a single request-creation call against the wallet backend
// and persists the outcome. No fallback handling happens here.
func (svc *requestsService) Create(ctx context.Context, params CreateParams, client walletclient.WalletClient) (*db.Request, error) {
	logger.Logger.Debug().
		Uint64("amount_msat", params.AmountMsat).
		Str("description", params.Description).
		Bool("lightning_only", params.LightningOnly).
		Bool("reuse_address", params.ReuseAddress).
		Msg("Creating payment request")

	response, err := client.CreateRequest(ctx, params.AmountMsat, params.Description, params.Expiry, params.LightningOnly, params.ReuseAddress)
	if err != nil {
		code := walletclient.RequestErrorCode(err)
		logger.Logger.Error().Err(err).
			Str("code", code).
			Msg("Failed to create payment request")
		svc.eventPublisher.Publish(&events.Event{
			Event: constants.EVENT_REQUEST_CREATE_ERROR,
			Properties: map[string]interface{}{
				"code":    code,
				"message": err.Error(),
			},
		})
		return nil, err
	}

	var expiresAt *time.Time
	if response.ExpiresAt != nil {
		expiresAtValue := time.Unix(*response.ExpiresAt, 0)
		expiresAt = &expiresAtValue
	} else if params.Expiry > 0 {
		expiresAtValue := time.Now().Add(time.Duration(params.Expiry) * time.Second)
		expiresAt = &expiresAtValue
	}

	request := db.Request{
		Key:            uuid.NewString(),
		State:          constants.REQUEST_STATE_CREATED,
		AmountMsat:     params.AmountMsat,
		Description:    params.Description,
		Address:        response.Address,
		PaymentRequest: response.PaymentRequest,
		LightningOnly:  params.LightningOnly,
		ReuseAddress:   params.ReuseAddress,
		ExpiresAt:      expiresAt,
	}
	err = svc.db.Create(&request).Error
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to persist payment request")
		return nil, err
	}

	svc.eventPublisher.Publish(&events.Event{
		Event: constants.EVENT_REQUEST_CREATE_SUCCESS,
		Properties: map[string]interface{}{
			"key": request.Key,
		},
	})

	return &request, nil
}

// CreateWithFallback runs the graduated fallback policy: an "ln" error
// offers a Lightning-only retry, a "reuse_addr" error offers an
// address-reuse retry, anything else stops. At most one retry chain runs
// per attempt; a failed retry never opens another confirmation.
func (svc *requestsService) CreateWithFallback(ctx context.Context, params CreateParams, client walletclient.WalletClient, confirm Confirmer) (*db.Request, error) {
	request, err := svc.Create(ctx, params, client)
	if err == nil {
		return request, nil
	}

	code := walletclient.RequestErrorCode(err)
	chain, chainErr := NewRetryChain(code)
	if chainErr != nil {
		// non-actionable error, surface and stop
		return nil, err
	}

	if !confirm(code, err.Error()) {
		if declineErr := chain.Decline(); declineErr != nil {
			logger.Logger.Error().Err(declineErr).Msg("Failed to decline retry chain")
		}
		return nil, err
	}

	if confirmErr := chain.Confirm(); confirmErr != nil {
		return nil, err
	}

	retryParams := chain.FallbackParams(params)
	if retryErr := chain.MarkRetried(); retryErr != nil {
		return nil, err
	}

	logger.Logger.Info().
		Str("code", code).
		Bool("lightning_only", retryParams.LightningOnly).
		Bool("reuse_address", retryParams.ReuseAddress).
		Msg("Retrying payment request with relaxed parameters")

	return svc.Create(ctx, retryParams, client)
}

func (svc *requestsService) LookupRequest(ctx context.Context, key string) (*db.Request, error) {
	var request db.Request
	result := svc.db.Limit(1).Find(&request, &db.Request{Key: key})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &request, nil
}
