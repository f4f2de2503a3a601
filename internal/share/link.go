// Package share turns a hosted session into something a person can pass on:
// a six-digit code, a peerboard:// link and a QR code of that link.
package share

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/url"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const Scheme = "peerboard"

const (
	codeMin = 100000
	codeMax = 999999
)

var ErrInvalidTarget = errors.New("not a session link or code")

// NewCode returns a random six-digit session code.
func NewCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10)
}

// ValidCode reports whether s looks like a session code.
func ValidCode(s string) bool {
	if len(s) != 6 {
		return false
	}
	n, err := strconv.Atoi(s)
	return err == nil && n >= codeMin && n <= codeMax
}

// Link locates a session. Addr is empty when only the code is known.
type Link struct {
	Addr      string
	SessionID string
}

func (l Link) String() string {
	if l.Addr == "" {
		return l.SessionID
	}
	u := url.URL{Scheme: Scheme, Host: l.Addr, Path: "/" + l.SessionID}
	return u.String()
}

// ParseTarget accepts either a peerboard:// link or a bare session code.
func ParseTarget(s string) (Link, error) {
	s = strings.TrimSpace(s)
	if ValidCode(s) {
		return Link{SessionID: s}, nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return Link{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if u.Scheme != Scheme {
		return Link{}, fmt.Errorf("%w: scheme %q", ErrInvalidTarget, u.Scheme)
	}
	if _, _, err := net.SplitHostPort(u.Host); err != nil {
		return Link{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	code := strings.Trim(u.Path, "/")
	if !ValidCode(code) {
		return Link{}, fmt.Errorf("%w: bad session code %q", ErrInvalidTarget, code)
	}
	return Link{Addr: u.Host, SessionID: code}, nil
}

// QRCode renders the link as a PNG of size x size pixels.
func QRCode(l Link, size int) ([]byte, error) {
	return qrcode.Encode(l.String(), qrcode.Medium, size)
}

// QRText renders the link as a QR code made of block characters, for terminals.
func QRText(l Link) (string, error) {
	q, err := qrcode.New(l.String(), qrcode.Medium)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(false), nil
}
