package delivery

import (
	"fmt"
	"strings"
	"time"
)

// Progress is a snapshot reported while a batch is being sent.
type Progress struct {
	RequestID string
	Label     string
	State     State
	Processed int
	Sent      int
	Errors    int
	Total     int
}

// Message renders the progress line shown to the requester.
func (p Progress) Message() string {
	if p.State == StatePreparing {
		return fmt.Sprintf("📦 Preparing %d file(s) of %s...", p.Total, p.Label)
	}
	return fmt.Sprintf("📤 Sending %s: %d/%d (✅ %d, ❌ %d)", p.Label, p.Processed, p.Total, p.Sent, p.Errors)
}

// Summary is the terminal report of one delivery request.
type Summary struct {
	RequestID string
	Recipient int64
	Label     string
	State     State
	Total     int
	Sent      int
	Errors    int
	Retries   int
	Abandoned bool
	Reason    string
	Duration  time.Duration
	Err       error
}

// Message renders the summary for the requester.
func (s *Summary) Message() string {
	var b strings.Builder
	switch {
	case s.Total == 0:
		b.WriteString("📭 There is nothing to send for " + s.Label + ".")
		return b.String()
	case s.Abandoned:
		fmt.Fprintf(&b, "⚠️ Delivery of %s stopped after %d of %d file(s): %s.", s.Label, s.Sent, s.Total, s.Reason)
	case s.State == StateCompleted:
		fmt.Fprintf(&b, "✅ Sent %d of %d file(s) of %s.", s.Sent, s.Total, s.Label)
	case s.Total == 1:
		return "❌ Failed to send " + s.Label + ". Please try again later."
	default:
		fmt.Fprintf(&b, "❌ Could not send any of the %d file(s) of %s.", s.Total, s.Label)
	}
	if s.Errors > 0 {
		fmt.Fprintf(&b, "\n%d file(s) failed.", s.Errors)
	}
	return b.String()
}
