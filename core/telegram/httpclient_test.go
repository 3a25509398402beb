package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRetryTransportTimeoutFor(t *testing.T) {
	rt := &retryTransport{longPoll: 20 * time.Second, upload: 5 * time.Minute, request: 30 * time.Second}

	poll := httptest.NewRequest(http.MethodPost, "https://api.telegram.org/bot1:x/getUpdates", nil)
	upload := httptest.NewRequest(http.MethodPost, "https://api.telegram.org/bot1:x/sendDocument", nil)
	upload.Header.Set("Content-Type", "multipart/form-data; boundary=abc")
	plain := httptest.NewRequest(http.MethodPost, "https://api.telegram.org/bot1:x/sendMessage", nil)
	plain.Header.Set("Content-Type", "application/json")

	if got := rt.timeoutFor(poll); got != rt.longPoll {
		t.Errorf("getUpdates timeout = %v", got)
	}
	if got := rt.timeoutFor(upload); got != rt.upload {
		t.Errorf("upload timeout = %v", got)
	}
	if got := rt.timeoutFor(plain); got != rt.request {
		t.Errorf("request timeout = %v", got)
	}
}

func TestBuildHTTPClientDefaults(t *testing.T) {
	c := BuildHTTPClient(HTTPClientOptions{LongPollTimeout: 25 * time.Second})
	if c.Timeout != 0 {
		t.Fatalf("client-wide timeout must be disabled, got %v", c.Timeout)
	}
	rt, ok := c.Transport.(*retryTransport)
	if !ok {
		t.Fatalf("unexpected transport %T", c.Transport)
	}
	if rt.longPoll != 25*time.Second+longPollGrace || rt.upload != defaultUploadTimeout || rt.request != defaultRequestTimeout {
		t.Fatalf("unexpected timeouts %+v", rt)
	}
}

func TestRetryTransportAppliesPerRequestDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(150 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	client := &http.Client{Transport: &retryTransport{
		base:     http.DefaultTransport,
		longPoll: 2 * time.Second,
		upload:   2 * time.Second,
		request:  50 * time.Millisecond,
	}}

	resp, err := client.Post(srv.URL+"/bot1:x/getUpdates", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("getUpdates: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil || string(body) != `{"ok":true}` {
		t.Fatalf("body = %q, %v", body, err)
	}

	_, err = client.Post(srv.URL+"/bot1:x/sendMessage", "application/json", strings.NewReader("{}"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("sendMessage err = %v, want deadline exceeded", err)
	}
}
