package httpclient

import (
	"context"
	"net"
	"net/http"
	"time"
)

const DefaultTimeout = 30 * time.Second

type Options struct {
	PreferIPv4 bool
	Timeout    time.Duration
}

// New returns a client whose Timeout bounds the whole request, connect
// through body read.
func New(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dialer := &net.Dialer{
		Timeout:   min(timeout, 15*time.Second),
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, dialNetwork(network, opts.PreferIPv4), addr)
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   min(timeout, 15*time.Second),
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// dialNetwork forces IPv4 when asked to and otherwise keeps the transport's
// choice.
func dialNetwork(network string, preferIPv4 bool) string {
	if preferIPv4 {
		return "tcp4"
	}
	return network
}
