package share

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodeIsSixDigits(t *testing.T) {
	for range 200 {
		code := NewCode()
		assert.True(t, ValidCode(code), code)
	}
}

func TestLinkRoundTrip(t *testing.T) {
	l := Link{Addr: "192.168.1.20:8888", SessionID: "482913"}
	assert.Equal(t, "peerboard://192.168.1.20:8888/482913", l.String())

	got, err := ParseTarget(l.String())
	require.NoError(t, err)
	assert.Equal(t, l, got)
}

func TestParseBareCode(t *testing.T) {
	got, err := ParseTarget(" 123456 ")
	require.NoError(t, err)
	assert.Equal(t, Link{SessionID: "123456"}, got)
	assert.Equal(t, "123456", got.String())
}

func TestParseTargetRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"12345",
		"099999",
		"abcdef",
		"localboard://10.0.0.1:8888",
		"peerboard://10.0.0.1/123456",
		"peerboard://10.0.0.1:8888/",
		"peerboard://10.0.0.1:8888/12ab56",
	} {
		_, err := ParseTarget(in)
		assert.True(t, errors.Is(err, ErrInvalidTarget), "%q: %v", in, err)
	}
}

func TestQRCodeIsPNG(t *testing.T) {
	png, err := QRCode(Link{Addr: "127.0.0.1:8888", SessionID: "654321"}, 128)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestQRText(t *testing.T) {
	text, err := QRText(Link{Addr: "127.0.0.1:8888", SessionID: "654321"})
	require.NoError(t, err)
	assert.Greater(t, len(strings.Split(text, "\n")), 10)
}
