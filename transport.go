package restfire

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"time"
)

// Response is a fully read response of a single request.
type Response struct {
	StatusCode int
	Body       []byte
}

// StreamResponse is the response of a streaming request, Body delivers the
// event stream incrementally and must be closed by the caller.
// Cancelling the context passed to Transport.Stream must unblock reads on Body.
type StreamResponse struct {
	StatusCode int
	Body       io.ReadCloser
}

// Transport executes requests, it is owned by the application and shared by every component.
type Transport interface {
	// Do executes a request and reads the whole response body.
	Do(ctx context.Context, req *Request) (*Response, error)

	// Stream executes a request and returns as soon as the status is known.
	// Redirects must be followed.
	Stream(ctx context.Context, req *Request) (*StreamResponse, error)
}

const (
	defaultConnectTimeout = 5 * time.Second
	defaultTLSTimeout     = 5 * time.Second
)

// NewDefaultHTTPClient returns a client with connect and TLS handshake timeouts only.
// There is no overall timeout, it would terminate event streams.
func NewDefaultHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: defaultConnectTimeout,
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultTLSTimeout,
	}
	return &http.Client{
		Transport: transport,
	}
}

type httpTransportImpl struct {
	client *http.Client
}

// NewHTTPTransport creates a Transport over net/http. If client is nil, NewDefaultHTTPClient is used.
func NewHTTPTransport(client *http.Client) Transport {
	if client == nil {
		client = NewDefaultHTTPClient()
	}
	return &httpTransportImpl{
		client: client,
	}
}

var _ Transport = &httpTransportImpl{}

func (t *httpTransportImpl) newHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	return httpReq, nil
}

func (t *httpTransportImpl) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := t.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
	}, nil
}

func (t *httpTransportImpl) Stream(ctx context.Context, req *Request) (*StreamResponse, error) {
	httpReq, err := t.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	// net/http follows 307 for GET and keeps the Accept header on the same host
	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}

	return &StreamResponse{
		StatusCode: httpResp.StatusCode,
		Body:       httpResp.Body,
	}, nil
}
