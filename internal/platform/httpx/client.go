package httpx

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

const (
	defaultClientTimeout         = 5 * time.Second
	defaultDialTimeout           = 3 * time.Second
	defaultResponseHeaderTimeout = 3 * time.Second
	defaultIdleConnTimeout       = 30 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 16
	defaultMaxIdleConnsPerHost   = 4
)

// NewClient returns a hardened HTTP client for API calls and ops probes.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	dialTimeout := timeout
	if dialTimeout > defaultDialTimeout {
		dialTimeout = defaultDialTimeout
	}

	responseHeaderTimeout := timeout
	if responseHeaderTimeout > defaultResponseHeaderTimeout {
		responseHeaderTimeout = defaultResponseHeaderTimeout
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: newTransport(dialTimeout, responseHeaderTimeout, nil),
	}
}

// NewPageClient returns a client for fetching arbitrary result pages.
// Header timeouts are relaxed because scraped sites are slow, and TLS
// verification is optional because many of them run broken chains.
func NewPageClient(timeout time.Duration, insecureTLS bool) *http.Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	dialTimeout := timeout
	if dialTimeout > 2*defaultDialTimeout {
		dialTimeout = 2 * defaultDialTimeout
	}

	var tlsCfg *tls.Config
	if insecureTLS {
		tlsCfg = &tls.Config{InsecureSkipVerify: true} // #nosec G402
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: newTransport(dialTimeout, timeout, tlsCfg),
	}
}

func newTransport(dialTimeout, responseHeaderTimeout time.Duration, tlsCfg *tls.Config) *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
		TLSClientConfig:       tlsCfg,
	}
}
