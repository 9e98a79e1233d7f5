package telegram

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vmunix/reelbox/internal/delivery"
)

// ErrServer marks a 5xx response. Callers may retry.
var ErrServer = errors.New("telegram server error")

// APIError is a non-retryable error response from the Bot API.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// descriptions meaning the recipient can no longer be messaged
var unreachableMarkers = []string{
	"chat not found",
	"bot was blocked by the user",
	"user is deactivated",
	"bot can't initiate conversation",
	"peer_id_invalid",
}

// mapError converts an error envelope to the delivery error vocabulary:
// 429 becomes *delivery.RateLimitedError, 403 and unknown chats wrap
// delivery.ErrRecipientUnreachable, 5xx wraps ErrServer and the rest is an
// *APIError.
func mapError(method string, status int, resp *apiResponse) error {
	code := resp.ErrorCode
	if code == 0 {
		code = status
	}
	desc := resp.Description

	if code == http.StatusTooManyRequests {
		wait := time.Second
		if resp.Parameters != nil && resp.Parameters.RetryAfter > 0 {
			wait = time.Duration(resp.Parameters.RetryAfter) * time.Second
		}
		return &delivery.RateLimitedError{Wait: wait}
	}
	if code == http.StatusForbidden {
		return fmt.Errorf("%w: %s", delivery.ErrRecipientUnreachable, desc)
	}
	lower := strings.ToLower(desc)
	for _, marker := range unreachableMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s", delivery.ErrRecipientUnreachable, desc)
		}
	}
	if code >= 500 {
		return fmt.Errorf("%w: %s %d %s", ErrServer, method, code, desc)
	}
	return &APIError{Method: method, Code: code, Description: desc}
}

// IsNotModified reports an edit that left the message unchanged, which
// happens when a user taps the same button twice.
func IsNotModified(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && strings.Contains(apiErr.Description, "message is not modified")
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if errors.Is(err, ErrServer) {
		return true
	}
	_, ok := delivery.IsRateLimited(err)
	return ok
}

// redactedError hides the bot token that net/http puts into url.Error.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "<token>"), err: err}
}
