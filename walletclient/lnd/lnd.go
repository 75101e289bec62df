package lnd

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"errors"

	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/lnrpc/walletrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	macaroon "gopkg.in/macaroon.v2"

	"github.com/embercash/payflow/constants"
	"github.com/embercash/payflow/events"
	"github.com/embercash/payflow/logger"
	"github.com/embercash/payflow/walletclient"
)

type LNDService struct {
	conn           *grpc.ClientConn
	client         lnrpc.LightningClient
	walletKit      walletrpc.WalletKitClient
	eventPublisher events.EventPublisher
	cancel         context.CancelFunc
}

func NewLNDService(ctx context.Context, eventPublisher events.EventPublisher, lndAddress, lndCertHex, lndMacaroonHex string) (walletclient.WalletClient, error) {
	if lndAddress == "" || lndMacaroonHex == "" {
		return nil, errors.New("one or more required LND configuration are missing")
	}

	conn, err := dial(lndAddress, lndCertHex, lndMacaroonHex)
	if err != nil {
		logger.Logger.Error().Err(err).Str("address", lndAddress).Msg("Failed to connect to LND")
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	svc := &LNDService{
		conn:           conn,
		client:         lnrpc.NewLightningClient(conn),
		walletKit:      walletrpc.NewWalletKitClient(conn),
		eventPublisher: eventPublisher,
		cancel:         cancel,
	}

	info, err := svc.client.GetInfo(ctx, &lnrpc.GetInfoRequest{})
	if err != nil {
		cancel()
		conn.Close()
		return nil, err
	}

	logger.Logger.Info().
		Str("pubkey", info.IdentityPubkey).
		Str("alias", info.Alias).
		Msg("Connected to LND")

	return svc, nil
}

func dial(address, certHex, macaroonHex string) (*grpc.ClientConn, error) {
	macBytes, err := hex.DecodeString(macaroonHex)
	if err != nil {
		return nil, err
	}
	mac := &macaroon.Macaroon{}
	if err := mac.UnmarshalBinary(macBytes); err != nil {
		return nil, err
	}

	var creds credentials.TransportCredentials
	if certHex != "" {
		certBytes, err := hex.DecodeString(certHex)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(certBytes) {
			return nil, errors.New("failed to parse LND TLS certificate")
		}
		creds = credentials.NewClientTLSFromCert(pool, "")
	} else {
		creds = credentials.NewTLS(&tls.Config{InsecureSkipVerify: true})
	}

	return grpc.NewClient(
		address,
		grpc.WithTransportCredentials(creds),
		grpc.WithPerRPCCredentials(&macaroonCredential{macaroonHex: macaroonHex}),
	)
}

type macaroonCredential struct {
	macaroonHex string
}

func (c *macaroonCredential) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{"macaroon": c.macaroonHex}, nil
}

func (c *macaroonCredential) RequireTransportSecurity() bool {
	return true
}

func (svc *LNDService) GetCapabilities(ctx context.Context) (*walletclient.Capabilities, error) {
	balance, err := svc.client.ChannelBalance(ctx, &lnrpc.ChannelBalanceRequest{})
	if err != nil {
		return nil, err
	}

	var canSendMsat uint64
	if balance.LocalBalance != nil {
		canSendMsat = balance.LocalBalance.Msat
	}

	// an LND node holds its own keys and can always complete a signature
	return &walletclient.Capabilities{
		IsLightning:            true,
		LightningCanSendMsat:   canSendMsat,
		IsWatchOnly:            false,
		CanSignWithoutCosigner: true,
	}, nil
}

func (svc *LNDService) CreateRequest(ctx context.Context, amountMsat uint64, description string, expiry uint64, lightningOnly bool, reuseAddress bool) (*walletclient.CreateRequestResponse, error) {
	resp := &walletclient.CreateRequestResponse{}

	invoice, err := svc.client.AddInvoice(ctx, &lnrpc.Invoice{
		ValueMsat: int64(amountMsat),
		Memo:      description,
		Expiry:    int64(expiry),
	})
	if err != nil {
		if lightningOnly {
			return nil, walletclient.NewRequestCreateError(constants.REQUEST_ERROR_LN, err.Error())
		}
		logger.Logger.Warn().Err(err).Msg("Failed to add invoice, falling back to on-chain only request")
	} else {
		resp.PaymentRequest = invoice.PaymentRequest
		resp.PaymentHash = hex.EncodeToString(invoice.RHash)
	}

	if !lightningOnly {
		addressType := lnrpc.AddressType_WITNESS_PUBKEY_HASH
		if reuseAddress {
			addressType = lnrpc.AddressType_UNUSED_WITNESS_PUBKEY_HASH
		}
		address, err := svc.client.NewAddress(ctx, &lnrpc.NewAddressRequest{Type: addressType})
		if err != nil {
			return nil, walletclient.NewRequestCreateError(constants.REQUEST_ERROR_REUSE_ADDR, err.Error())
		}
		resp.Address = address.Address
	}

	return resp, nil
}

func (svc *LNDService) PayInvoice(ctx context.Context, paymentRequest string) (*walletclient.PayInvoiceResponse, error) {
	resp, err := svc.client.SendPaymentSync(ctx, &lnrpc.SendRequest{PaymentRequest: paymentRequest})
	if err != nil {
		return nil, err
	}
	if resp.PaymentError != "" {
		return nil, errors.New(resp.PaymentError)
	}
	var feeMsat uint64
	if resp.PaymentRoute != nil {
		feeMsat = uint64(resp.PaymentRoute.TotalFeesMsat)
	}
	return &walletclient.PayInvoiceResponse{
		Preimage: hex.EncodeToString(resp.PaymentPreimage),
		FeeMsat:  feeMsat,
	}, nil
}

func (svc *LNDService) SignTransaction(ctx context.Context, address string, amountSat uint64, message string) (*walletclient.SignTransactionResponse, error) {
	funded, err := svc.walletKit.FundPsbt(ctx, &walletrpc.FundPsbtRequest{
		Template: &walletrpc.FundPsbtRequest_Raw{
			Raw: &walletrpc.TxTemplate{
				Outputs: map[string]uint64{address: amountSat},
			},
		},
		Fees: &walletrpc.FundPsbtRequest_TargetConf{TargetConf: 2},
	})
	if err != nil {
		return nil, err
	}

	finalized, err := svc.walletKit.FinalizePsbt(ctx, &walletrpc.FinalizePsbtRequest{
		FundedPsbt: funded.FundedPsbt,
	})
	if err != nil {
		return nil, err
	}

	if len(finalized.RawFinalTx) == 0 {
		// signing incomplete, hand back the partial PSBT
		return &walletclient.SignTransactionResponse{
			RawTx:    hex.EncodeToString(finalized.SignedPsbt),
			Complete: false,
		}, nil
	}

	var msgTx wire.MsgTx
	if err := msgTx.Deserialize(bytes.NewReader(finalized.RawFinalTx)); err != nil {
		return nil, err
	}

	return &walletclient.SignTransactionResponse{
		TxId:     msgTx.TxHash().String(),
		RawTx:    hex.EncodeToString(finalized.RawFinalTx),
		Complete: true,
	}, nil
}

func (svc *LNDService) BroadcastTransaction(ctx context.Context, rawTx string) (string, error) {
	txBytes, err := hex.DecodeString(rawTx)
	if err != nil {
		return "", err
	}

	var msgTx wire.MsgTx
	if err := msgTx.Deserialize(bytes.NewReader(txBytes)); err != nil {
		return "", err
	}
	txId := msgTx.TxHash().String()

	resp, err := svc.walletKit.PublishTransaction(ctx, &walletrpc.Transaction{TxHex: txBytes})
	if err != nil {
		return "", walletclient.NewBroadcastError(txId, "rpc", err.Error())
	}
	if resp.PublishError != "" {
		return "", walletclient.NewBroadcastError(txId, "publish", resp.PublishError)
	}

	return txId, nil
}

func (svc *LNDService) ImportChannelBackup(ctx context.Context, blob []byte) error {
	_, err := svc.client.RestoreChannelBackups(ctx, &lnrpc.RestoreChanBackupRequest{
		Backup: &lnrpc.RestoreChanBackupRequest_MultiChanBackup{MultiChanBackup: blob},
	})
	return err
}

func (svc *LNDService) FinishOtp(ctx context.Context, code string) error {
	return errors.New("OTP is not supported by the LND backend")
}

func (svc *LNDService) Shutdown() error {
	logger.Logger.Info().Msg("Shutting down LND client")
	svc.cancel()
	return svc.conn.Close()
}
