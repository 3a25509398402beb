package telegram

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/m3rciful/notesbot/core/telegram/netutil"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 30 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
	defaultRequestTimeout    = 30 * time.Second
	defaultUploadTimeout     = 5 * time.Minute
	longPollGrace            = 10 * time.Second
	defaultRetryAttempts     = 3
	defaultRetryBackoff      = 2 * time.Second
)

// HTTPClientOptions tunes BuildHTTPClient. Zero values use defaults.
type HTTPClientOptions struct {
	// LongPollTimeout is the server-side getUpdates wait.
	LongPollTimeout time.Duration
	// UploadTimeout bounds multipart requests such as sendDocument.
	UploadTimeout time.Duration
	// RequestTimeout bounds every other API call.
	RequestTimeout time.Duration
}

// BuildHTTPClient returns a client for Bot API calls. It has no client-wide
// Timeout; each request gets a deadline by kind: getUpdates waits for the
// long-poll window plus a grace period, multipart uploads get UploadTimeout
// and everything else RequestTimeout.
func BuildHTTPClient(opts HTTPClientOptions) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: &retryTransport{
			base:       transport,
			maxRetries: defaultRetryAttempts,
			backoff:    defaultRetryBackoff,
			longPoll:   orDefault(opts.LongPollTimeout, defaultLongPollTimeout) + longPollGrace,
			upload:     orDefault(opts.UploadTimeout, defaultUploadTimeout),
			request:    orDefault(opts.RequestTimeout, defaultRequestTimeout),
		},
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration

	longPoll time.Duration
	upload   time.Duration
	request  time.Duration
}

func (t *retryTransport) timeoutFor(req *http.Request) time.Duration {
	switch {
	case strings.HasSuffix(req.URL.Path, "/getUpdates"):
		return t.longPoll
	case strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data"):
		return t.upload
	}
	return t.request
}

// RoundTrip retries transient network failures with linear backoff under a
// single deadline chosen by timeoutFor. Bodies without GetBody are sent once.
func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if d := t.timeoutFor(req); d > 0 {
		ctx, cancel = context.WithTimeout(req.Context(), d)
	} else {
		ctx, cancel = context.WithCancel(req.Context())
	}
	req = req.WithContext(ctx)

	for attempt := 1; ; attempt++ {
		resp, err := base.RoundTrip(req)
		if err == nil {
			resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
			return resp, nil
		}
		if attempt > t.maxRetries || !netutil.ShouldRetry(err) {
			cancel()
			return nil, err
		}
		next, ok := rewind(req)
		if !ok {
			cancel()
			return nil, err
		}
		if !wait(ctx, t.backoff*time.Duration(attempt)) {
			cancel()
			return nil, ctx.Err()
		}
		req = next
	}
}

// rewind clones req with a fresh body for another attempt.
func rewind(req *http.Request) (*http.Request, bool) {
	next := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return next, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	next.Body = body
	return next, true
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// cancelOnClose releases the per-request deadline once the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
