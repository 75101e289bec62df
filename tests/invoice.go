package tests

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
	"github.com/stretchr/testify/require"
)

// CreateTestBolt11 signs a fresh mainnet invoice with a throwaway key. A
// zero amountMsat produces an amountless invoice.
func CreateTestBolt11(t *testing.T, amountMsat uint64, description string, timestamp time.Time, expiry time.Duration) string {
	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var paymentHash [32]byte
	_, err = rand.Read(paymentHash[:])
	require.NoError(t, err)

	options := []func(*zpay32.Invoice){
		zpay32.Description(description),
		zpay32.Expiry(expiry),
	}
	if amountMsat > 0 {
		amount := lnwire.MilliSatoshi(amountMsat)
		options = append(options, zpay32.Amount(amount))
	}

	invoice, err := zpay32.NewInvoice(&chaincfg.MainNetParams, paymentHash, timestamp, options...)
	require.NoError(t, err)

	encoded, err := invoice.Encode(zpay32.MessageSigner{
		SignCompact: func(msg []byte) ([]byte, error) {
			hash := chainhash.HashB(msg)
			return ecdsa.SignCompact(privKey, hash, true), nil
		},
	})
	require.NoError(t, err)

	return encoded
}
