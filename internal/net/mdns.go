package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/hashicorp/mdns"
)

const (
	serviceType = "_peerboard._tcp"
	sessionTXT  = "session="
)

var ErrSessionNotFound = errors.New("no host announces this session on the local network")

// Advertise announces a hosted session on the LAN so participants can join by code alone.
func Advertise(sessionID string, ip net.IP, port int) (*mdns.Server, error) {
	service, err := mdns.NewMDNSService(
		"peerboard-"+sessionID,
		serviceType,
		"",
		"",
		port,
		[]net.IP{ip},
		[]string{sessionTXT + sessionID},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Resolve browses the LAN for the host of sessionID and returns its "ip:port".
func Resolve(ctx context.Context, sessionID string, timeout time.Duration) (string, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	params := mdns.DefaultParams(serviceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true

	queryDone := make(chan error, 1)
	go func() {
		queryDone <- mdns.Query(params)
		close(entries)
	}()

	for {
		select {
		case <-ctx.Done():
			return "", &ConnectError{Target: sessionID, Err: ctx.Err()}
		case e, ok := <-entries:
			if !ok {
				if err := <-queryDone; err != nil {
					return "", &ConnectError{Target: sessionID, Err: err}
				}
				return "", &ConnectError{Target: sessionID, Err: ErrSessionNotFound}
			}
			if addr, ok := entryAddr(e, sessionID); ok {
				return addr, nil
			}
		}
	}
}

func entryAddr(e *mdns.ServiceEntry, sessionID string) (string, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return "", false
	}
	for _, field := range e.InfoFields {
		if field == sessionTXT+sessionID {
			return net.JoinHostPort(e.AddrV4.String(), fmt.Sprint(e.Port)), true
		}
	}
	return "", false
}
