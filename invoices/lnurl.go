package invoices

import (
	"errors"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// LnurlPayData is the resolved pay-request metadata used to bounds-check
// the amount before fetching the callback invoice.
type LnurlPayData struct {
	Callback        string `json:"callback"`
	MinSendableMsat uint64 `json:"minSendable"`
	MaxSendableMsat uint64 `json:"maxSendable"`
	Metadata        string `json:"metadata"`
	CommentAllowed  int    `json:"commentAllowed"`
}

// decodeLnurl decodes a bech32-encoded lnurl string into its endpoint URL.
func decodeLnurl(lnurl string) (string, error) {
	hrp, data, err := bech32.DecodeNoLimit(strings.ToLower(lnurl))
	if err != nil {
		return "", err
	}
	if hrp != "lnurl" {
		return "", errors.New("not an lnurl string")
	}

	converted, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", err
	}

	endpoint := string(converted)
	if !strings.HasPrefix(endpoint, "https://") && !strings.HasPrefix(endpoint, "http://") {
		return "", errors.New("lnurl does not contain a valid endpoint URL")
	}
	return endpoint, nil
}

// CheckLnurlAmount validates an amount against the pay-request bounds.
func CheckLnurlAmount(data *LnurlPayData, amountMsat uint64) error {
	if data.MinSendableMsat != 0 && amountMsat < data.MinSendableMsat {
		return errors.New("amount is below the minimum this recipient accepts")
	}
	if data.MaxSendableMsat != 0 && amountMsat > data.MaxSendableMsat {
		return errors.New("amount is above the maximum this recipient accepts")
	}
	return nil
}
