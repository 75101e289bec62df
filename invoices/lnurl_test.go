package invoices

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// LUD-01 reference vector
const testLnurl = "LNURL1DP68GURN8GHJ7UM9WFMXJCM99E3K7MF0V9CXJ0M385EKVCENXC6R2C35XVUKXEFCV5MKVV34X5EKZD3EV56NYD3HXQURZEPEXEJXXEPNXSCRVWFNV9NXZCN9XQ6XYEFHVGCXXCMYXYMNSERXFQ5FNS"

func TestDecodeLnurl(t *testing.T) {
	endpoint, err := decodeLnurl(testLnurl)
	require.NoError(t, err)
	assert.Equal(t, "https://service.com/api?q=3fc3645b439ce8e7f2553a69e5267081d96dcd340693afabe04be7b0ccd178df", endpoint)
}

func TestDecodeLnurl_RejectsOtherBech32(t *testing.T) {
	_, err := decodeLnurl("bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4")
	assert.Error(t, err)
}

func TestCheckLnurlAmount(t *testing.T) {
	data := &LnurlPayData{MinSendableMsat: 1000, MaxSendableMsat: 1_000_000}

	assert.NoError(t, CheckLnurlAmount(data, 1000))
	assert.NoError(t, CheckLnurlAmount(data, 500_000))
	assert.NoError(t, CheckLnurlAmount(data, 1_000_000))
	assert.Error(t, CheckLnurlAmount(data, 999))
	assert.Error(t, CheckLnurlAmount(data, 1_000_001))
}

func TestCheckLnurlAmount_UnboundedWhenZero(t *testing.T) {
	assert.NoError(t, CheckLnurlAmount(&LnurlPayData{}, 42))
}
