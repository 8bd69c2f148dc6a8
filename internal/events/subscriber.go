package events

// Message is one event received from the bus.
type Message struct {
	Topic string
	Data  []byte // JSON-encoded event
}

// Subscriber receives events from the event bus.
type Subscriber interface {
	Subscribe(topic string) (<-chan Message, func(), error)
	Close() error
}
