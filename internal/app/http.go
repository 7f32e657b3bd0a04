package app

import (
	"net"
	"net/http"
	"time"
)

// newOutboundHTTPClient returns the client used for page scrapes and
// provider calls: parallel-friendly pooling, TLS verification on, and no
// overall client timeout because the scraper and orchestrator carry their
// own per-call deadlines.
func newOutboundHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          0,
		MaxIdleConnsPerHost:   64,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: transport}
}
