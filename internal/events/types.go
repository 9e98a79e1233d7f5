package events

// Entity types
const (
	EntityDelivery = "delivery" // entity ID is the recipient
	EntityFile     = "file"
	EntityGroup    = "group"
)

// Event type constants
const (
	EventDeliveryStarted    = "delivery.started"
	EventDeliveryProgressed = "delivery.progressed"
	EventDeliveryCompleted  = "delivery.completed"
	EventDeliveryFailed     = "delivery.failed"
	EventFileAdded          = "file.added"
	EventGroupDeleted       = "group.deleted"
	EventCleanupCompleted   = "cleanup.completed"
)

// DeliveryStarted is emitted when a batch leaves the Preparing state.
type DeliveryStarted struct {
	BaseEvent
	RequestID string `json:"request_id"`
	Label     string `json:"label"`
	Total     int    `json:"total"`
}

// DeliveryProgressed is emitted alongside each progress notification.
type DeliveryProgressed struct {
	BaseEvent
	RequestID string `json:"request_id"`
	Processed int    `json:"processed"`
	Sent      int    `json:"sent"`
	Errors    int    `json:"errors"`
	Total     int    `json:"total"`
}

// DeliveryCompleted is emitted when at least one item was delivered.
type DeliveryCompleted struct {
	BaseEvent
	RequestID  string `json:"request_id"`
	Sent       int    `json:"sent"`
	Errors     int    `json:"errors"`
	Retries    int    `json:"retries"`
	Total      int    `json:"total"`
	DurationMS int64  `json:"duration_ms"`
}

// DeliveryFailed is emitted when nothing was delivered.
type DeliveryFailed struct {
	BaseEvent
	RequestID string `json:"request_id"`
	Reason    string `json:"reason"`
	Abandoned bool   `json:"abandoned,omitempty"`
	Errors    int    `json:"errors"`
	Total     int    `json:"total"`
}

// FileAdded is emitted after an admin stores a new item.
type FileAdded struct {
	BaseEvent
	GroupKey   string `json:"group_key"`
	Season     string `json:"season,omitempty"`
	Episode    string `json:"episode,omitempty"`
	Resolution string `json:"resolution"`
}

// GroupDeleted is emitted when a whole series is removed.
type GroupDeleted struct {
	BaseEvent
	GroupKey string `json:"group_key"`
	Removed  int64  `json:"removed"`
}

// CleanupCompleted is emitted after duplicate removal and mapping sweep.
type CleanupCompleted struct {
	BaseEvent
	DuplicatesRemoved int64 `json:"duplicates_removed"`
	MappingsRemoved   int64 `json:"mappings_removed"`
}
