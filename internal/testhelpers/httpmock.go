package testhelpers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Expectation is a canned reply for one request to an upstream API. Each
// expectation answers at most once.
type Expectation struct {
	Method string
	URL    *url.URL

	StatusCode int
	RespBody   []byte
	Headers    http.Header

	matched bool
}

// MockTransport answers requests from registered expectations in order.
type MockTransport struct {
	mu           sync.Mutex
	expectations []*Expectation
}

var (
	DefaultTransport                      = &MockTransport{}
	previousTransport http.RoundTripper = http.DefaultTransport
)

// New registers an expectation against baseURL on the default transport.
func New(baseURL string) *Expectation {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		panic(fmt.Sprintf("httpmock: base URL must include scheme and host: %q", baseURL))
	}

	exp := &Expectation{URL: u, Headers: make(http.Header)}
	DefaultTransport.mu.Lock()
	DefaultTransport.expectations = append(DefaultTransport.expectations, exp)
	DefaultTransport.mu.Unlock()
	return exp
}

func (e *Expectation) Post(path string) *Expectation {
	e.Method = http.MethodPost
	e.URL.Path = path
	return e
}

func (e *Expectation) Reply(statusCode int) *Expectation {
	e.StatusCode = statusCode
	return e
}

func (e *Expectation) BodyString(body string) *Expectation {
	e.RespBody = []byte(body)
	return e
}

func (e *Expectation) Header(key, value string) *Expectation {
	e.Headers.Set(key, value)
	return e
}

// IsDone reports whether every registered expectation was consumed.
func IsDone() bool {
	DefaultTransport.mu.Lock()
	defer DefaultTransport.mu.Unlock()
	for _, exp := range DefaultTransport.expectations {
		if !exp.matched {
			return false
		}
	}
	return true
}

// Activate routes http.DefaultClient through the mock transport.
func Activate() {
	if http.DefaultClient.Transport == DefaultTransport {
		return
	}
	if http.DefaultClient.Transport != nil {
		previousTransport = http.DefaultClient.Transport
	}
	http.DefaultClient.Transport = DefaultTransport
}

// Deactivate restores the previous transport and drops all expectations.
func Deactivate() {
	http.DefaultClient.Transport = previousTransport
	DefaultTransport.mu.Lock()
	DefaultTransport.expectations = nil
	DefaultTransport.mu.Unlock()
}

func (t *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var misses []string
	for _, exp := range t.expectations {
		if exp.matched {
			continue
		}
		if reason := exp.mismatch(req); reason != "" {
			misses = append(misses, reason)
			continue
		}
		exp.matched = true

		status := exp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		return &http.Response{
			StatusCode:    status,
			Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
			Body:          io.NopCloser(bytes.NewReader(exp.RespBody)),
			Header:        exp.Headers.Clone(),
			Request:       req,
			Proto:         "HTTP/1.1",
			ProtoMajor:    1,
			ProtoMinor:    1,
			ContentLength: int64(len(exp.RespBody)),
		}, nil
	}

	return nil, fmt.Errorf("httpmock: no expectation for %s %s (%s)", req.Method, req.URL, strings.Join(misses, "; "))
}

func (e *Expectation) mismatch(req *http.Request) string {
	switch {
	case e.Method != "" && e.Method != req.Method:
		return fmt.Sprintf("method %s != %s", e.Method, req.Method)
	case e.URL.Scheme != req.URL.Scheme || e.URL.Host != req.URL.Host:
		return fmt.Sprintf("host %s != %s", e.URL.Host, req.URL.Host)
	case e.URL.Path != req.URL.Path:
		return fmt.Sprintf("path %s != %s", e.URL.Path, req.URL.Path)
	}
	return ""
}
