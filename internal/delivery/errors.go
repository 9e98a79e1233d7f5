package delivery

import (
	"errors"
	"fmt"
	"time"

	"github.com/vmunix/reelbox/internal/catalog"
)

var (
	// ErrEmptyBatch means the request carried no items.
	ErrEmptyBatch = errors.New("empty batch")

	// ErrNothingDelivered means every item in the batch failed.
	ErrNothingDelivered = errors.New("nothing delivered")

	// ErrRecipientUnreachable is returned by a Transport when the recipient
	// blocked the bot or no longer exists. The batch is abandoned.
	ErrRecipientUnreachable = errors.New("recipient unreachable")

	// ErrUnsupportedKind means the stored item has a media kind the
	// transport cannot copy.
	ErrUnsupportedKind = errors.New("unsupported media kind")

	// ErrDeliveryInProgress is returned by the Dispatcher when the
	// recipient already has a delivery running.
	ErrDeliveryInProgress = errors.New("delivery already in progress")

	// ErrDispatcherBusy is returned when every delivery slot is taken.
	ErrDispatcherBusy = errors.New("too many deliveries in progress")

	// ErrDispatcherClosed is returned after Shutdown.
	ErrDispatcherClosed = errors.New("dispatcher closed")
)

// RateLimitedError is returned by a Transport when the platform asks the
// caller to wait before retrying.
type RateLimitedError struct {
	Wait time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.Wait)
}

// IsRateLimited extracts the wait duration from a rate limit error.
func IsRateLimited(err error) (time.Duration, bool) {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.Wait, true
	}
	return 0, false
}

// UserMessage returns the short text shown to a requester for err.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyBatch):
		return "There is nothing to send for this selection."
	case errors.Is(err, ErrDeliveryInProgress):
		return "You already have a delivery running. Please wait until it finishes."
	case errors.Is(err, ErrDispatcherBusy):
		return "The bot is busy sending files right now. Please try again in a minute."
	case errors.Is(err, ErrDispatcherClosed):
		return "The bot is restarting. Please try again shortly."
	case errors.Is(err, ErrRecipientUnreachable):
		return "Delivery stopped because the chat is no longer reachable."
	case errors.Is(err, catalog.ErrStoreUnavailable):
		return "The catalog is temporarily unavailable. Please try again."
	case errors.Is(err, ErrNothingDelivered):
		return "None of the files could be sent. Please try again later."
	default:
		return "Something went wrong while sending files."
	}
}
