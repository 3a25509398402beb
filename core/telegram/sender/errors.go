package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"

	tele "gopkg.in/telebot.v4"
)

var (
	tokenRe      = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
	statusTailRe = regexp.MustCompile(`\((\d{3})\)\s*$`)
)

// redact renders err with any bot token masked.
func redact(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

// errorKind buckets a failed API call for logs.
func errorKind(err error) string {
	if err == nil {
		return ""
	}
	var (
		netErr net.Error
		dnsErr *net.DNSError
		opErr  *net.OpError
		alert  tls.AlertError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.As(err, &dnsErr):
		return "dns"
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return "dial"
	case errors.As(err, &alert):
		return "tls"
	}
	switch code := statusCode(err); {
	case code == http.StatusTooManyRequests:
		return "flood"
	case code >= 500:
		return "http_5xx"
	case code >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// statusCode extracts the Bot API error code, falling back to a trailing
// "(NNN)" in the message.
func statusCode(err error) int {
	var (
		apiErr *tele.Error
		flood  tele.FloodError
		group  tele.GroupError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.As(err, &flood):
		return http.StatusTooManyRequests
	case errors.As(err, &group):
		return http.StatusBadRequest
	}
	if m := statusTailRe.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code
	}
	return 0
}
