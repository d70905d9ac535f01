package realtime

// Message is one user-scoped event fanned out to SSE subscribers, locally
// via the Hub and across instances via the redis bus.
type Message struct {
	UserID string         `json:"user_id"`
	Event  string         `json:"event"`
	Data   map[string]any `json:"data,omitempty"`
}

const (
	EventOrderFulfilled = "order.fulfilled"
	EventOrderCancelled = "order.cancelled"

	EventTransactionCreated   = "transaction.created"
	EventTransactionCompleted = "transaction.completed"
	EventTransactionCancelled = "transaction.cancelled"
)
