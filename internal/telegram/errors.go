package telegram

import (
	"context"
	"errors"
	"net"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Severity buckets a delivery failure.
type Severity int

const (
	// SeverityIgnorable failures are logged and swallowed; the
	// conversation's state is left untouched.
	SeverityIgnorable Severity = iota
	// SeverityFatal failures propagate to the caller. No known delivery
	// failure is fatal today; the bucket exists to keep the distinction
	// explicit.
	SeverityFatal
)

// String returns a human-readable severity name for logging.
func (s Severity) String() string {
	switch s {
	case SeverityIgnorable:
		return "ignorable"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ClassifyDeliveryError buckets a transport delivery failure.
// Authorization-revoked, malformed-request, timeout, chat-migrated, and
// generic network conditions are all ignorable.
func ClassifyDeliveryError(_ error) Severity {
	return SeverityIgnorable
}

// DescribeDeliveryError names the failure kind for log labels.
func DescribeDeliveryError(err error) string {
	if err == nil {
		return "none"
	}

	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) {
		switch {
		case tgErr.ResponseParameters.MigrateToChatID != 0:
			return "chat_migrated"
		case tgErr.Code == http.StatusUnauthorized || tgErr.Code == http.StatusForbidden:
			return "unauthorized"
		case tgErr.Code == http.StatusBadRequest:
			return "bad_request"
		case tgErr.Code == http.StatusTooManyRequests:
			return "rate_limited"
		default:
			return "telegram_error"
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "network"
	}

	return "network"
}
