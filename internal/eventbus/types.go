package eventbus

// Event is one message on the bus.
type Event struct {
	Topic   string `json:"topic"`
	Key     string `json:"key"` // Partition key; events with equal keys are delivered in order
	Payload any    `json:"payload"`
}

// Handler processes an event.
type Handler func(event *Event) error

// Subscriber is a handler registered for a topic.
type Subscriber struct {
	Topic   string
	Handler Handler
}

// partition is one ordered queue with a single consumer goroutine.
type partition struct {
	id    int
	queue chan *Event
}
