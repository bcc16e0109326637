package events

// Topic constants for domain events emitted by the storefront.
const (
	TopicOrderSaved  = "order.saved"
	TopicOrderFailed = "order.failed"
)

// DefaultTopics returns the canonical list of topics written to the event log.
func DefaultTopics() []string {
	return []string{
		TopicOrderSaved,
		TopicOrderFailed,
	}
}
