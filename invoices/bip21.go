package invoices

import (
	"fmt"
	"net/url"
	"strings"
)

const bip21Scheme = "bitcoin"

type bip21Params struct {
	Address    string
	AmountMsat *uint64
	Message    string
	Lightning  string
}

// parseBip21URI parses a BIP21 payment URI. Unknown required parameters
// (req-*) are a hard error per the BIP.
func parseBip21URI(uri string) (*bip21Params, error) {
	if len(uri) <= len(bip21Scheme)+1 || !strings.EqualFold(uri[:len(bip21Scheme)+1], bip21Scheme+":") {
		return nil, fmt.Errorf("not a %s URI", bip21Scheme)
	}

	body := uri[len(bip21Scheme)+1:]
	address := body
	query := ""
	if idx := strings.Index(body, "?"); idx >= 0 {
		address = body[:idx]
		query = body[idx+1:]
	}

	params := &bip21Params{Address: address}

	if query == "" {
		return params, nil
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, err
	}

	for key := range values {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "req-") {
			return nil, fmt.Errorf("unsupported required parameter %q", key)
		}
	}

	if amount := values.Get("amount"); amount != "" {
		sats, err := parseBtcAmount(amount)
		if err != nil {
			return nil, err
		}
		msat := sats * 1000
		params.AmountMsat = &msat
	}

	if message := values.Get("message"); message != "" {
		params.Message = message
	} else if label := values.Get("label"); label != "" {
		params.Message = label
	}

	params.Lightning = values.Get("lightning")

	return params, nil
}

// parseBtcAmount converts a BIP21 decimal BTC amount to satoshis without
// going through floating point.
func parseBtcAmount(amount string) (uint64, error) {
	whole, frac, _ := strings.Cut(amount, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 8 {
		return 0, fmt.Errorf("amount %q has sub-satoshi precision", amount)
	}
	frac = frac + strings.Repeat("0", 8-len(frac))

	var sats uint64
	for _, part := range []string{whole, frac} {
		for _, c := range part {
			if c < '0' || c > '9' {
				return 0, fmt.Errorf("invalid amount %q", amount)
			}
			sats = sats*10 + uint64(c-'0')
		}
	}
	return sats, nil
}
