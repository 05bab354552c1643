package httputil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"time"
)

const defaultTimeout = 30 * time.Second

// StatusError occurs if an HTTP response has an unexpected status code.
type StatusError struct {
	Method       string
	URL          string
	Status       int
	ResponseDump string
}

// NewStatusError returns a new StatusError for resp. resp.Body is consumed.
func NewStatusError(resp *http.Response) StatusError {
	dump, err := httputil.DumpResponse(resp, true)
	if err != nil {
		dump = []byte(fmt.Sprintf("failed to dump response: %s", err))
	}
	return StatusError{
		Method:       resp.Request.Method,
		URL:          resp.Request.URL.String(),
		Status:       resp.StatusCode,
		ResponseDump: string(dump),
	}
}

func (e StatusError) Error() string {
	return fmt.Sprintf("%s %s %d: %s", e.Method, e.URL, e.Status, e.ResponseDump)
}

// IsStatus returns true if err is a StatusError of the given status.
func IsStatus(err error, status int) bool {
	var serr StatusError
	return errors.As(err, &serr) && serr.Status == status
}

// IsNotFound returns true if err is a "not found" StatusError.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

// IsRetryableStatus returns true if err is a StatusError whose status is
// worth retrying: any 5xx, or 429.
func IsRetryableStatus(err error) bool {
	var serr StatusError
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Status >= 500 || serr.Status == http.StatusTooManyRequests
}

// NetworkError occurs on any Send error which occurred while trying to send
// the HTTP request, e.g. the given host is unresponsive.
type NetworkError struct {
	err error
}

func (e NetworkError) Error() string {
	return fmt.Sprintf("network error: %s", e.err)
}

func (e NetworkError) Unwrap() error {
	return e.err
}

// IsNetworkError returns true if err is a NetworkError.
func IsNetworkError(err error) bool {
	var nerr NetworkError
	return errors.As(err, &nerr)
}

type sendOptions struct {
	ctx           context.Context
	body          io.Reader
	timeout       time.Duration
	acceptedCodes map[int]bool
	headers       map[string]string
	transport     http.RoundTripper
}

// SendOption allows overriding defaults for the Send function.
type SendOption func(*sendOptions)

// SendContext sets the context the request is bound to.
func SendContext(ctx context.Context) SendOption {
	return func(o *sendOptions) { o.ctx = ctx }
}

// SendBody specifies a body for http request
func SendBody(body io.Reader) SendOption {
	return func(o *sendOptions) { o.body = body }
}

// SendTimeout specifies timeout for http request
func SendTimeout(t time.Duration) SendOption {
	return func(o *sendOptions) { o.timeout = t }
}

// SendHeaders specifies headers for http request
func SendHeaders(headers map[string]string) SendOption {
	return func(o *sendOptions) { o.headers = headers }
}

// SendAcceptedCodes specifies accepted codes for http request
func SendAcceptedCodes(codes ...int) SendOption {
	m := make(map[int]bool)
	for _, c := range codes {
		m[c] = true
	}
	return func(o *sendOptions) { o.acceptedCodes = m }
}

// SendTransport sets the transport for the HTTP client.
func SendTransport(transport http.RoundTripper) SendOption {
	return func(o *sendOptions) { o.transport = transport }
}

// Send sends an HTTP request. May return NetworkError or StatusError.
func Send(method, url string, options ...SendOption) (*http.Response, error) {
	opts := sendOptions{
		ctx:           context.Background(),
		body:          bytes.NewReader(nil),
		timeout:       defaultTimeout,
		acceptedCodes: map[int]bool{http.StatusOK: true},
		transport:     http.DefaultTransport,
	}
	for _, o := range options {
		o(&opts)
	}

	req, err := http.NewRequestWithContext(opts.ctx, method, url, opts.body)
	if err != nil {
		return nil, fmt.Errorf("new request: %s", err)
	}
	for k, v := range opts.headers {
		req.Header.Set(k, v)
	}

	client := http.Client{
		Timeout:   opts.timeout,
		Transport: opts.transport,
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, NetworkError{err}
	}
	if !opts.acceptedCodes[resp.StatusCode] {
		defer resp.Body.Close()
		return nil, NewStatusError(resp)
	}
	return resp, nil
}

// Get sends a GET http request.
func Get(url string, options ...SendOption) (*http.Response, error) {
	return Send("GET", url, options...)
}

// Post sends a POST http request.
func Post(url string, options ...SendOption) (*http.Response, error) {
	return Send("POST", url, options...)
}
