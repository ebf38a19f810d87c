// Package httpclient provides the browser-like HTTP layer used by a
// retrieval: a uTLS transport whose ClientHello looks like Chrome and a
// cookie-carrying Session built on top of it. Key and challenge hosts sit
// behind edge filters that reject Go's default TLS fingerprint.
package httpclient

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// New returns an *http.Client whose TLS handshake looks like Chrome.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: NewTransport(utls.HelloChrome_Auto),
	}
}

// Transport is an http.RoundTripper that dials every HTTPS request over a
// fresh uTLS connection and speaks h2 or HTTP/1.1 depending on ALPN.
// Connections are not pooled; a retrieval makes at most four requests.
type Transport struct {
	Hello  utls.ClientHelloID
	dialer *net.Dialer
	plain  *http.Transport
}

// NewTransport returns a Transport presenting hello during handshakes.
func NewTransport(hello utls.ClientHelloID) *Transport {
	d := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &Transport{
		Hello:  hello,
		dialer: d,
		plain: &http.Transport{
			DialContext:       d.DialContext,
			DisableKeepAlives: true,
		},
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.plain.RoundTrip(req)
	}

	conn, err := t.dialTLS(req.Context(), req.URL)
	if err != nil {
		return nil, err
	}

	if conn.ConnectionState().NegotiatedProtocol == http2.NextProtoTLS {
		h2 := &http2.Transport{
			DialTLSContext: func(context.Context, string, string, *tls.Config) (net.Conn, error) {
				return conn, nil
			},
		}
		return h2.RoundTrip(req)
	}

	h1 := &http.Transport{
		DialTLSContext: func(context.Context, string, string) (net.Conn, error) {
			return conn, nil
		},
		DisableKeepAlives: true,
	}
	return h1.RoundTrip(req)
}

// dialTLS opens a TCP connection to u and completes a uTLS handshake on
// it. The handshake is bounded by ctx's deadline when it has one.
func (t *Transport) dialTLS(ctx context.Context, u *url.URL) (*utls.UConn, error) {
	host := u.Hostname()
	raw, err := t.dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, portFromURL(u)))
	if err != nil {
		return nil, err
	}

	conn := utls.UClient(raw, &utls.Config{
		ServerName: host,
		NextProtos: []string{http2.NextProtoTLS, "http/1.1"},
	}, t.Hello)

	if dl, ok := ctx.Deadline(); ok {
		raw.SetDeadline(dl)
	}
	if err := conn.Handshake(); err != nil {
		raw.Close()
		return nil, err
	}
	raw.SetDeadline(time.Time{})

	return conn, nil
}

func portFromURL(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	if u.Scheme == "https" {
		return "443"
	}
	return "80"
}
