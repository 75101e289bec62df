package api

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/embercash/payflow/config"
	"github.com/embercash/payflow/db"
	"github.com/embercash/payflow/engine"
	"github.com/embercash/payflow/events"
	"github.com/embercash/payflow/invoices"
	"github.com/embercash/payflow/version"
)

type api struct {
	db             *gorm.DB
	cfg            config.Config
	engine         *engine.Engine
	eventPublisher events.EventPublisher
}

type API interface {
	GetInfo(ctx context.Context) (*InfoResponse, error)
	ParseInvoice(ctx context.Context, uri string) (*ParseResponse, error)
	GetInvoice(ctx context.Context, key string) (*InvoiceResponse, error)
	Pay(ctx context.Context, invoiceKey string, amountMsat *uint64) error
	CreateRequest(ctx context.Context, req *CreateRequestRequest) error
	GetRequest(ctx context.Context, key string) (*RequestResponse, error)
	ListTransactions(ctx context.Context, limit int) ([]TransactionResponse, error)
	GetFinalizer(finalizerId string) (*FinalizerResponse, error)
	RetryFinalizer(ctx context.Context, finalizerId string) error
	CancelFinalizer(finalizerId string) bool
	SubmitOtp(ctx context.Context, code string) error
	GetOtpStatus() *OtpStatusResponse
	SendEvent(event string, properties map[string]interface{})
}

func NewAPI(gormDB *gorm.DB, cfg config.Config, eng *engine.Engine, eventPublisher events.EventPublisher) *api {
	return &api{
		db:             gormDB,
		cfg:            cfg,
		engine:         eng,
		eventPublisher: eventPublisher,
	}
}

func (api *api) GetInfo(ctx context.Context) (*InfoResponse, error) {
	env := api.cfg.GetEnv()
	return &InfoResponse{
		BaseUrl: env.BaseUrl,
		Network: api.cfg.GetNetwork(),
		Version: version.Tag,
		WorkDir: env.Workdir,
	}, nil
}

func (api *api) ParseInvoice(ctx context.Context, uri string) (*ParseResponse, error) {
	client, caps := api.engine.ActiveWallet()
	if client == nil {
		return nil, errors.New("no active wallet")
	}

	invoice, warning, err := api.engine.Invoices().Parse(ctx, uri, caps)
	if err != nil {
		return nil, err
	}

	response := &ParseResponse{
		Invoice: toInvoiceResponse(invoice),
	}
	if warning != nil {
		response.Warning = &WarningResponse{
			Code:    warning.Code,
			Message: warning.Message,
		}
	}
	return response, nil
}

func (api *api) GetInvoice(ctx context.Context, key string) (*InvoiceResponse, error) {
	invoice, err := api.engine.Invoices().LookupInvoice(ctx, key)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(invoice), nil
}

func (api *api) Pay(ctx context.Context, invoiceKey string, amountMsat *uint64) error {
	return api.engine.Pay(ctx, invoiceKey, amountMsat)
}

func (api *api) CreateRequest(ctx context.Context, req *CreateRequestRequest) error {
	return api.engine.CreateRequest(ctx, req.AmountMsat, req.Description)
}

func (api *api) GetRequest(ctx context.Context, key string) (*RequestResponse, error) {
	request, err := api.engine.Requests().LookupRequest(ctx, key)
	if err != nil {
		return nil, err
	}
	return &RequestResponse{
		Key:            request.Key,
		State:          request.State,
		AmountMsat:     request.AmountMsat,
		Description:    request.Description,
		Address:        request.Address,
		PaymentRequest: request.PaymentRequest,
		LightningOnly:  request.LightningOnly,
		ReuseAddress:   request.ReuseAddress,
		ExpiresAt:      request.ExpiresAt,
	}, nil
}

func (api *api) ListTransactions(ctx context.Context, limit int) ([]TransactionResponse, error) {
	transactions, err := api.engine.Transactions(ctx, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]TransactionResponse, 0, len(transactions))
	for _, transaction := range transactions {
		responses = append(responses, toTransactionResponse(&transaction))
	}
	return responses, nil
}

func (api *api) GetFinalizer(finalizerId string) (*FinalizerResponse, error) {
	f, ok := api.engine.Arena().Get(finalizerId)
	if !ok {
		return nil, errors.New("finalizer not found")
	}
	return &FinalizerResponse{
		Id:            f.Id,
		State:         f.State(),
		SigningMode:   f.SigningMode(),
		CanComplete:   f.CanComplete(),
		TxId:          f.TxId(),
		RawTx:         f.RawTx(),
		FailureReason: f.FailureReason(),
	}, nil
}

func (api *api) RetryFinalizer(ctx context.Context, finalizerId string) error {
	return api.engine.RetryFinalizer(ctx, finalizerId)
}

func (api *api) CancelFinalizer(finalizerId string) bool {
	return api.engine.CancelFinalizer(finalizerId)
}

func (api *api) SubmitOtp(ctx context.Context, code string) error {
	return api.engine.SubmitOtp(ctx, code)
}

func (api *api) GetOtpStatus() *OtpStatusResponse {
	gate := api.engine.OtpGate()
	return &OtpStatusResponse{
		Pending: gate.Pending(),
		Prompts: gate.Prompts(),
	}
}

func (api *api) SendEvent(event string, properties map[string]interface{}) {
	api.eventPublisher.Publish(&events.Event{
		Event:      event,
		Properties: properties,
	})
}

func toInvoiceResponse(invoice *invoices.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		Key:            invoice.Key,
		Type:           invoice.Type,
		State:          invoice.State,
		Address:        invoice.Address,
		AmountMsat:     invoice.AmountMsat,
		Description:    invoice.Description,
		PaymentRequest: invoice.PaymentRequest,
		PaymentHash:    invoice.PaymentHash,
		Preimage:       invoice.Preimage,
		ExpiresAt:      invoice.ExpiresAt,
		SettledAt:      invoice.SettledAt,
		FailureReason:  invoice.FailureReason,
		Metadata:       invoice.Metadata,
	}
}

func toTransactionResponse(transaction *db.Transaction) TransactionResponse {
	return TransactionResponse{
		FinalizerId:   transaction.FinalizerId,
		InvoiceKey:    transaction.InvoiceKey,
		State:         transaction.State,
		SigningMode:   transaction.SigningMode,
		Address:       transaction.Address,
		AmountSat:     transaction.AmountSat,
		TxId:          transaction.TxId,
		RawTx:         transaction.RawTx,
		Complete:      transaction.Complete,
		BroadcastAt:   transaction.BroadcastAt,
		FailureReason: transaction.FailureReason,
	}
}
