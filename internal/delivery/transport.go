package delivery

import (
	"context"

	"github.com/vmunix/reelbox/internal/catalog"
	"github.com/vmunix/reelbox/internal/events"
)

//go:generate mockgen -destination=mocks/mock_transport.go -package=mocks . Transport,Fallback

// Transport copies stored items to recipients.
//
// CopyItem returns nil on success, a *RateLimitedError when the caller must
// wait and retry, an error wrapping ErrRecipientUnreachable when the
// recipient is gone, and any other error for a permanent per-item failure.
type Transport interface {
	CopyItem(ctx context.Context, recipient int64, item *catalog.FileRecord) error
	SendNotification(ctx context.Context, recipient int64, text string) error
}

// Fallback receives summaries that could not reach the recipient.
type Fallback interface {
	NotifyFallback(ctx context.Context, recipient int64, text string) error
}

// EventRecorder appends download audit records.
type EventRecorder interface {
	RecordDownload(ctx context.Context, e *catalog.DownloadEvent) error
}

// Publisher publishes lifecycle events. *events.Bus implements it.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}
